package booking

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/padel-scheduler/internal/browser"
)

// SlotResult is the outcome of a fallback search: the first date with the
// requested slot free, plus the handle needed to click it on the page that
// is now open.
type SlotResult struct {
	Date     time.Time
	Slot     SlotHandle
	Attempts int
}

// SlotFinder walks candidate dates backward from the preferred date toward
// today until the requested time and duration are free. Cancellations free
// earlier dates often, so searching toward the present lands close to what
// was asked for while staying inside the flow's booking horizon.
type SlotFinder struct {
	// MaxAttempts bounds how many dates are evaluated. Zero means the
	// preferred date only.
	MaxAttempts int
	Log         *zap.Logger
}

func (f *SlotFinder) Find(ctx context.Context, sess browser.Session, strat NavigationStrategy, req Request, now time.Time) (SlotResult, error) {
	if err := req.Validate(strat.MaxAdvanceDays(), now); err != nil {
		return SlotResult{}, err
	}

	log := f.logger()
	today := DateOnly(now)
	budget := f.MaxAttempts
	if budget < 1 {
		budget = 1
	}

	var tried []string
	attempts := 0
	for d := DateOnly(req.Date); !d.Before(today) && attempts < budget; d = d.AddDate(0, 0, -1) {
		if !strat.Bookable(d) {
			continue
		}
		attempts++
		tried = append(tried, d.Format(dateLayout))

		if err := strat.OpenDate(ctx, sess, d); err != nil {
			return SlotResult{}, err
		}
		handle, ok, err := strat.FindSlot(ctx, sess, req.StartTime, req.DurationHours)
		if err != nil {
			return SlotResult{}, err
		}
		if ok {
			log.Info("slot found",
				zap.String("date", d.Format(dateLayout)),
				zap.String("court", handle.Court),
				zap.String("start", req.StartTime),
				zap.String("end", handle.EndTime),
				zap.Int("attempts", attempts))
			return SlotResult{Date: d, Slot: handle, Attempts: attempts}, nil
		}
		log.Info("slot taken, falling back a day", zap.String("date", d.Format(dateLayout)))
	}

	return SlotResult{}, Errf(KindSlotNotFound, "no court free at %s for %.1fh on: %s",
		req.StartTime, req.DurationHours, strings.Join(tried, ", "))
}

func (f *SlotFinder) logger() *zap.Logger {
	if f.Log != nil {
		return f.Log
	}
	return zap.NewNop()
}
