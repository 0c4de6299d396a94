package booking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/example/padel-scheduler/internal/browser"
)

const (
	endTimeSelector     = `select[name="end_time"]`
	submitSelector      = "#__make_submit"
	confirmSelector     = "#__make_submit2"
	popupSelector       = ".swal2-popup"
	popupButtonSelector = ".swal2-popup button"
)

// The portal reports a player who already used their weekly booking with a
// Dutch popup like "[123] Jan Jansen mag niet meer spelen".
var blockedPlayerRe = regexp.MustCompile(`\[\d+\] ([^ ]+) [^ ]+ mag niet meer spelen`)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is what one attempt reports back: an honest record of what was
// tried. Players and BookingDate are present only on success; BookingDate
// may differ from the requested date when the fallback search moved it.
type Result struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Players     []string `json:"players,omitempty"`
	BookingDate string   `json:"booking_date,omitempty"`
	DryRun      bool     `json:"dry_run,omitempty"`
	ErrorKind   Kind     `json:"error_kind,omitempty"`
}

// Orchestrator composes the navigation strategy, fallback slot search and
// player selection into one end-to-end attempt. Stages run strictly in
// order; the first failure short-circuits to an error result carrying the
// originating kind.
type Orchestrator struct {
	Sessions browser.Factory
	Creds    Credentials

	// ConfirmBookings gates the final confirmation click. False is
	// dry-run: every step runs except the confirming action. Read once
	// per attempt.
	ConfirmBookings bool

	RequiredPlayers    int
	MaxSlotAttempts    int
	MaxSelectionPasses int

	// DebugDir, when set, receives a screenshot of the page each time an
	// attempt fails past login.
	DebugDir string
	Log      *zap.Logger
}

// Run performs one booking attempt. All failures are folded into the
// returned Result; nothing escapes as a process-level fault.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	log := o.logger().With(zap.String("device_mode", string(req.DeviceMode)))
	confirm := o.ConfirmBookings

	strat, err := NewNavigationStrategy(req.DeviceMode)
	if err != nil {
		return errResult(err)
	}
	if err := req.Validate(strat.MaxAdvanceDays(), time.Now()); err != nil {
		return errResult(err)
	}

	sess, err := o.Sessions(ctx, req.DeviceMode == DeviceMobile)
	if err != nil {
		return errResult(WrapErr(KindNavigation, err, "opening browser session"))
	}
	defer sess.Close()

	log.Info("attempt started",
		zap.String("date", req.Date.Format(dateLayout)),
		zap.String("start", req.StartTime),
		zap.Float64("duration_hours", req.DurationHours),
		zap.Bool("dry_run", !confirm))

	res := o.attempt(ctx, sess, strat, req, confirm, log)
	if res.Status == StatusError {
		o.dumpScreenshot(ctx, sess, log)
	}
	return res
}

func (o *Orchestrator) attempt(ctx context.Context, sess browser.Session, strat NavigationStrategy, req Request, confirm bool, log *zap.Logger) Result {
	// authenticating
	if err := strat.Login(ctx, sess, req.LoginURL, o.Creds); err != nil {
		return errResult(err)
	}
	log.Info("login successful")

	// searching_slot
	finder := &SlotFinder{MaxAttempts: o.MaxSlotAttempts, Log: log}
	found, err := finder.Find(ctx, sess, strat, req, time.Now())
	if err != nil {
		return errResult(err)
	}

	// open the booking form for the found slot
	if err := sess.ClickNth(ctx, freeSlotSelector, found.Slot.Index); err != nil {
		return errResult(WrapErr(KindNavigation, err, "opening booking form"))
	}
	if err := sess.WaitVisible(ctx, playerSeatSelector(2)); err != nil {
		return errResult(WrapErr(KindNavigation, err, "booking form did not open"))
	}
	if err := sess.SelectByValue(ctx, endTimeSelector, found.Slot.EndTime); err != nil {
		return errResult(WrapErr(KindNavigation, err, "selecting end time %s", found.Slot.EndTime))
	}

	// selecting_players, rotating out candidates the portal blocks
	selector := &PlayerSelector{RequiredPlayers: o.RequiredPlayers, Log: log}
	excluded := map[string]bool{}
	maxPasses := o.MaxSelectionPasses
	if maxPasses < 1 {
		maxPasses = 2
	}

	for pass := 1; ; pass++ {
		if pass > maxPasses {
			return errResult(Errf(KindPlayerSelection, "gave up after %d selection passes (blocked: %v)",
				maxPasses, keys(excluded)))
		}

		players, err := selector.Select(ctx, sess, req.BookerFirstName, req.Candidates, excluded)
		if err != nil {
			return errResult(err)
		}
		if err := sess.Click(ctx, submitSelector); err != nil {
			return errResult(WrapErr(KindNavigation, err, "submitting player selection"))
		}

		popup := o.readPopup(ctx, sess)
		if popup == "" {
			return o.confirmBooking(ctx, sess, req, found, players, confirm, log)
		}
		log.Warn("portal rejected selection", zap.String("popup", popup))

		m := blockedPlayerRe.FindStringSubmatch(popup)
		if m == nil {
			return errResult(Errf(KindConfirmation, "portal rejected booking: %s", popup))
		}
		blocked := m[1]
		if blocked == req.BookerFirstName {
			return errResult(Errf(KindPlayerSelection, "booker %q is blocked by the portal", blocked))
		}
		excluded[blocked] = true
		log.Info("rotating out blocked player", zap.String("name", blocked))
	}
}

func (o *Orchestrator) confirmBooking(ctx context.Context, sess browser.Session, req Request, found SlotResult, players []string, confirm bool, log *zap.Logger) Result {
	date := found.Date.Format(dateLayout)
	if !confirm {
		log.Info("dry run: skipping final confirmation",
			zap.String("booking_date", date), zap.Strings("players", players))
		return Result{
			Status:      StatusSuccess,
			Message:     fmt.Sprintf("dry run: would book %s at %s for %v", date, req.StartTime, players),
			Players:     players,
			BookingDate: date,
			DryRun:      true,
		}
	}

	if err := sess.Click(ctx, confirmSelector); err != nil {
		return errResult(WrapErr(KindConfirmation, err, "clicking final confirmation"))
	}
	if popup := o.readPopup(ctx, sess); popup != "" {
		return errResult(Errf(KindConfirmation, "portal rejected confirmation: %s", popup))
	}

	log.Info("booking confirmed", zap.String("booking_date", date), zap.Strings("players", players))
	return Result{
		Status:      StatusSuccess,
		Message:     fmt.Sprintf("booked %s at %s for %v", date, req.StartTime, players),
		Players:     players,
		BookingDate: date,
	}
}

// readPopup looks for an error surfaced either as a JavaScript dialog or as
// a modal element. Absence is the happy path, so the element wait is kept
// short.
func (o *Orchestrator) readPopup(ctx context.Context, sess browser.Session) string {
	if d := sess.DialogText(); d != "" {
		return d
	}
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sess.WaitVisible(wctx, popupSelector); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return ""
		}
		return ""
	}
	text, err := sess.Text(ctx, popupSelector)
	if err != nil {
		return ""
	}
	// Dismiss so a retry starts from a clean form.
	_ = sess.Click(ctx, popupButtonSelector)
	return text
}

func (o *Orchestrator) dumpScreenshot(ctx context.Context, sess browser.Session, log *zap.Logger) {
	if o.DebugDir == "" {
		return
	}
	buf, err := sess.Screenshot(ctx)
	if err != nil {
		log.Warn("screenshot failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(o.DebugDir, 0o755); err != nil {
		log.Warn("screenshot dir", zap.Error(err))
		return
	}
	name := filepath.Join(o.DebugDir, fmt.Sprintf("attempt-%s.png", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(name, buf, 0o644); err != nil {
		log.Warn("writing screenshot", zap.Error(err))
		return
	}
	log.Info("saved failure screenshot", zap.String("path", name))
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Log != nil {
		return o.Log
	}
	return zap.NewNop()
}

func errResult(err error) Result {
	return Result{Status: StatusError, Message: err.Error(), ErrorKind: KindOf(err)}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
