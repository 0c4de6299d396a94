package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/padel-scheduler/internal/browser"
)

const (
	scheduleSelector   = "#schedule-index"
	dateSelectSelector = `select[name="date"]`
)

// mobileStrategy drives the phone flow, where the date is picked from a
// dropdown on the schedule page. The dropdown lists every bookable date, so
// navigation is a single select.
type mobileStrategy struct {
	slotMatrix
}

func (*mobileStrategy) Mode() DeviceMode { return DeviceMobile }

func (*mobileStrategy) MaxAdvanceDays() int { return 29 }

// Bookable: the portal lists all seven weekdays in the mobile dropdown.
func (*mobileStrategy) Bookable(time.Time) bool { return true }

func (*mobileStrategy) Login(ctx context.Context, sess browser.Session, loginURL string, creds Credentials) error {
	return login(ctx, sess, loginURL, creds)
}

func (m *mobileStrategy) OpenDate(ctx context.Context, sess browser.Session, date time.Time) error {
	if err := sess.WaitVisible(ctx, scheduleSelector); err != nil {
		return WrapErr(KindNavigation, err, "schedule page not present")
	}
	want := date.Format(dateLayout)
	if err := sess.SelectByValue(ctx, dateSelectSelector, want); err != nil {
		if errors.Is(err, browser.ErrNoSuchElement) {
			avail, _ := sess.OptionValues(ctx, dateSelectSelector)
			return Errf(KindNavigation, "date %s not offered by the portal (available: %s)",
				want, strings.Join(avail, ", "))
		}
		return WrapErr(KindNavigation, err, "selecting date %s", want)
	}
	if err := sess.WaitVisible(ctx, matrixSelector); err != nil {
		return WrapErr(KindNavigation, err, "matrix did not reload for %s", want)
	}
	// Confirm the dropdown actually switched before reading the matrix.
	got, err := sess.SelectedValue(ctx, dateSelectSelector)
	if err != nil {
		return WrapErr(KindNavigation, err, "reading selected date")
	}
	if got != want {
		return Errf(KindNavigation, "portal shows %s after selecting %s", got, want)
	}
	return nil
}
