package booking

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/example/padel-scheduler/internal/browser"
)

// Selectors of the portal's availability matrix. Shared by both device
// flows: the matrix markup is identical, only the navigation around it
// differs.
const (
	matrixSelector   = ".matrix-container"
	freeSlotSelector = ".slot.normal.free"
)

var periodRe = regexp.MustCompile(`(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)

// matrixSlot is one free cell of the availability matrix.
type matrixSlot struct {
	index int    // position within the freeSlotSelector match set, used to click it
	court string // e.g. "Padel indoor 2"
	start string // "21:30"
	end   string // "22:00"
}

// SlotHandle identifies a bookable opening on the currently shown date: the
// free cell to click and the end time covering the requested duration.
type SlotHandle struct {
	Index   int
	Court   string
	EndTime string
}

// slotMatrix reads the availability matrix. Both navigation strategies
// embed it.
type slotMatrix struct{}

// FindSlot reports whether the date currently shown has a court free from
// start for the full duration, possibly chaining consecutive cells.
func (slotMatrix) FindSlot(ctx context.Context, sess browser.Session, start string, durationHours float64) (SlotHandle, bool, error) {
	if err := sess.WaitVisible(ctx, matrixSelector); err != nil {
		return SlotHandle{}, false, WrapErr(KindNavigation, err, "availability matrix did not load")
	}
	els, err := sess.Elements(ctx, freeSlotSelector)
	if err != nil {
		return SlotHandle{}, false, WrapErr(KindNavigation, err, "reading free slots")
	}

	var slots []matrixSlot
	for _, el := range els {
		m := periodRe.FindStringSubmatch(el.Text)
		if m == nil {
			continue
		}
		slots = append(slots, matrixSlot{index: el.Index, court: el.Title, start: m[1], end: m[2]})
	}

	h, ok := findConsecutive(slots, start, durationHours)
	return h, ok, nil
}

// findConsecutive looks for a court with enough back-to-back free cells
// starting exactly at start to cover the duration. Courts are scanned in
// name order so the choice is deterministic.
func findConsecutive(slots []matrixSlot, start string, durationHours float64) (SlotHandle, bool) {
	startAt, err := parseClock(start)
	if err != nil {
		return SlotHandle{}, false
	}
	needed := time.Duration(durationHours * float64(time.Hour))

	byCourt := make(map[string][]matrixSlot)
	for _, s := range slots {
		byCourt[s.court] = append(byCourt[s.court], s)
	}
	courts := make([]string, 0, len(byCourt))
	for c := range byCourt {
		courts = append(courts, c)
	}
	sort.Strings(courts)

	for _, court := range courts {
		cs := byCourt[court]
		sort.Slice(cs, func(i, j int) bool {
			a, _ := parseClock(cs[i].start)
			b, _ := parseClock(cs[j].start)
			return a.Before(b)
		})

		for i, s := range cs {
			if s.start != start {
				continue
			}
			endAt, err := parseClock(s.end)
			if err != nil {
				continue
			}
			covered := endAt.Sub(startAt)
			last := s
			j := i
			for covered < needed && j+1 < len(cs) {
				next := cs[j+1]
				if next.start != last.end {
					break
				}
				nextEnd, err := parseClock(next.end)
				if err != nil {
					break
				}
				nextStart, _ := parseClock(next.start)
				covered += nextEnd.Sub(nextStart)
				last = next
				j++
			}
			if covered >= needed {
				return SlotHandle{Index: s.index, Court: court, EndTime: last.end}, true
			}
		}
	}
	return SlotHandle{}, false
}
