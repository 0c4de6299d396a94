package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/padel-scheduler/internal/browser"
)

const (
	calendarTitleSelector = "#calendar_date_title"
	matrixTitleSelector   = "#matrix_date_title"
	nextMonthSelector     = ".month.next a"
	prevMonthSelector     = ".month.prev a"

	// paging guard against a calendar widget that never reaches the
	// target month
	maxMonthNavigation = 24
)

// desktopStrategy drives the desktop flow: page the calendar widget to the
// target month, click the day cell, then wait for the matrix header to show
// the date.
type desktopStrategy struct {
	slotMatrix
}

func (*desktopStrategy) Mode() DeviceMode { return DeviceDesktop }

func (*desktopStrategy) MaxAdvanceDays() int { return 28 }

// Bookable: the desktop calendar exposes all seven weekdays.
func (*desktopStrategy) Bookable(time.Time) bool { return true }

func (*desktopStrategy) Login(ctx context.Context, sess browser.Session, loginURL string, creds Credentials) error {
	return login(ctx, sess, loginURL, creds)
}

func (d *desktopStrategy) OpenDate(ctx context.Context, sess browser.Session, date time.Time) error {
	if err := sess.WaitVisible(ctx, calendarTitleSelector); err != nil {
		return WrapErr(KindNavigation, err, "calendar not present")
	}

	for hops := 0; ; hops++ {
		if hops >= maxMonthNavigation {
			return Errf(KindNavigation, "calendar never reached %s", date.Format("Jan 2006"))
		}
		title, err := sess.Text(ctx, calendarTitleSelector)
		if err != nil {
			return WrapErr(KindNavigation, err, "reading calendar title")
		}
		// Title reads like "Nov 2025".
		shown, err := time.Parse("Jan 2006", strings.TrimSpace(title))
		if err != nil {
			return WrapErr(KindNavigation, err, "unexpected calendar title %q", title)
		}
		if shown.Year() == date.Year() && shown.Month() == date.Month() {
			break
		}
		sel := nextMonthSelector
		if shown.After(date) {
			sel = prevMonthSelector
		}
		if err := sess.Click(ctx, sel); err != nil {
			return WrapErr(KindNavigation, err, "paging calendar toward %s", date.Format("Jan 2006"))
		}
		if err := sess.WaitVisible(ctx, calendarTitleSelector); err != nil {
			return WrapErr(KindNavigation, err, "calendar did not repaint")
		}
	}

	// Day cell ids carry unpadded month and day numbers.
	cell := fmt.Sprintf("#cal_%d_%d_%d .cal-link", date.Year(), int(date.Month()), date.Day())
	if err := sess.Click(ctx, cell); err != nil {
		return WrapErr(KindNavigation, err, "clicking date %s", date.Format(dateLayout))
	}
	if err := sess.WaitVisible(ctx, matrixSelector); err != nil {
		return WrapErr(KindNavigation, err, "matrix did not load for %s", date.Format(dateLayout))
	}
	return d.waitForMatrixDate(ctx, sess, date)
}

// waitForMatrixDate polls the matrix header until it shows the target date;
// the portal repaints the matrix asynchronously after a calendar click.
func (*desktopStrategy) waitForMatrixDate(ctx context.Context, sess browser.Session, date time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for {
		title, err := sess.Text(ctx, matrixTitleSelector)
		if err == nil {
			// Header reads like "Zo 30-11-2025"; the day name is locale
			// dependent, the last field is not.
			fields := strings.Fields(strings.TrimSpace(title))
			if len(fields) > 0 {
				shown, perr := time.ParseInLocation("02-01-2006", fields[len(fields)-1], date.Location())
				if perr == nil && shown.Equal(DateOnly(date)) {
					return nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return Errf(KindNavigation, "matrix never showed %s", date.Format(dateLayout))
		case <-time.After(250 * time.Millisecond):
		}
	}
}
