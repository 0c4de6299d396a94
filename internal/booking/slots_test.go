package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/padel-scheduler/internal/browser"
)

// fakeStrategy serves scripted availability per date, without a browser.
type fakeStrategy struct {
	free   map[string]bool // date -> slot available
	closed map[string]bool // date -> not bookable in this flow
	opened []string
}

func (*fakeStrategy) Mode() DeviceMode    { return DeviceMobile }
func (*fakeStrategy) MaxAdvanceDays() int { return 29 }

func (f *fakeStrategy) Bookable(d time.Time) bool {
	return !f.closed[d.Format(dateLayout)]
}

func (*fakeStrategy) Login(context.Context, browser.Session, string, Credentials) error {
	return nil
}

func (f *fakeStrategy) OpenDate(_ context.Context, _ browser.Session, d time.Time) error {
	f.opened = append(f.opened, d.Format(dateLayout))
	return nil
}

func (f *fakeStrategy) FindSlot(_ context.Context, _ browser.Session, _ string, _ float64) (SlotHandle, bool, error) {
	current := f.opened[len(f.opened)-1]
	if f.free[current] {
		return SlotHandle{Index: 1, Court: "Padel indoor 1", EndTime: "22:30"}, true, nil
	}
	return SlotHandle{}, false, nil
}

var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)

func testRequest(date string) Request {
	d, _ := ParseDate(date)
	return Request{
		LoginURL:        "https://portal.example/login",
		Date:            d,
		StartTime:       "21:30",
		DurationHours:   1,
		BookerFirstName: "Bram",
		Candidates:      []string{"Daan", "Sven", "Timo"},
		DeviceMode:      DeviceMobile,
	}
}

func TestSlotFinderPreferredDateFree(t *testing.T) {
	strat := &fakeStrategy{free: map[string]bool{"2026-09-05": true}}
	f := &SlotFinder{MaxAttempts: 5}

	res, err := f.Find(context.Background(), newFakeSession(), strat, testRequest("2026-09-05"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts %d, want 1", res.Attempts)
	}
	if res.Date.Format(dateLayout) != "2026-09-05" {
		t.Fatalf("date %s", res.Date.Format(dateLayout))
	}
}

func TestSlotFinderFallsBackTowardToday(t *testing.T) {
	strat := &fakeStrategy{free: map[string]bool{"2026-09-03": true}}
	f := &SlotFinder{MaxAttempts: 5}

	res, err := f.Find(context.Background(), newFakeSession(), strat, testRequest("2026-09-05"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempts != 3 {
		t.Fatalf("attempts %d, want 3", res.Attempts)
	}
	want := []string{"2026-09-05", "2026-09-04", "2026-09-03"}
	if len(strat.opened) != len(want) {
		t.Fatalf("opened %v", strat.opened)
	}
	for i, d := range want {
		if strat.opened[i] != d {
			t.Fatalf("opened %v, want %v", strat.opened, want)
		}
	}
}

func TestSlotFinderSkipsUnbookableDaysWithoutSpendingAttempts(t *testing.T) {
	strat := &fakeStrategy{
		free:   map[string]bool{"2026-09-03": true},
		closed: map[string]bool{"2026-09-04": true},
	}
	f := &SlotFinder{MaxAttempts: 2}

	res, err := f.Find(context.Background(), newFakeSession(), strat, testRequest("2026-09-05"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	// 09-04 is skipped, so the two attempts land on 09-05 and 09-03.
	if res.Attempts != 2 {
		t.Fatalf("attempts %d, want 2", res.Attempts)
	}
	if res.Date.Format(dateLayout) != "2026-09-03" {
		t.Fatalf("date %s", res.Date.Format(dateLayout))
	}
}

func TestSlotFinderExhaustionListsTriedDates(t *testing.T) {
	strat := &fakeStrategy{free: map[string]bool{}}
	f := &SlotFinder{MaxAttempts: 3}

	_, err := f.Find(context.Background(), newFakeSession(), strat, testRequest("2026-09-05"), testNow)
	if KindOf(err) != KindSlotNotFound {
		t.Fatalf("kind %q, want %q", KindOf(err), KindSlotNotFound)
	}
	for _, d := range []string{"2026-09-05", "2026-09-04", "2026-09-03"} {
		if !strings.Contains(err.Error(), d) {
			t.Fatalf("message %q misses %s", err.Error(), d)
		}
	}
}

func TestSlotFinderZeroBudgetTriesPreferredDateOnly(t *testing.T) {
	strat := &fakeStrategy{free: map[string]bool{}}
	f := &SlotFinder{MaxAttempts: 0}

	_, err := f.Find(context.Background(), newFakeSession(), strat, testRequest("2026-09-05"), testNow)
	if KindOf(err) != KindSlotNotFound {
		t.Fatalf("kind %q", KindOf(err))
	}
	if len(strat.opened) != 1 {
		t.Fatalf("opened %v, want the preferred date only", strat.opened)
	}
}

func TestSlotFinderNeverSearchesBeforeToday(t *testing.T) {
	strat := &fakeStrategy{free: map[string]bool{}}
	f := &SlotFinder{MaxAttempts: 10}

	// Preferred date is tomorrow: only two days are eligible.
	_, err := f.Find(context.Background(), newFakeSession(), strat, testRequest("2026-08-30"), testNow)
	if KindOf(err) != KindSlotNotFound {
		t.Fatalf("kind %q", KindOf(err))
	}
	if len(strat.opened) != 2 {
		t.Fatalf("opened %v, want today and tomorrow only", strat.opened)
	}
}

func TestSlotFinderRejectsDateBeyondHorizon(t *testing.T) {
	strat := &fakeStrategy{free: map[string]bool{}}
	f := &SlotFinder{MaxAttempts: 3}

	_, err := f.Find(context.Background(), newFakeSession(), strat, testRequest("2026-09-28"), testNow)
	if KindOf(err) != KindInvalidRequest {
		t.Fatalf("kind %q, want %q", KindOf(err), KindInvalidRequest)
	}
}
