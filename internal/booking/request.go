package booking

import (
	"strings"
	"time"
)

// DeviceMode selects which portal UI flow the attempt drives. The portal
// serves different navigation surfaces to phones and desktops, with
// different booking horizons.
type DeviceMode string

const (
	DeviceMobile  DeviceMode = "mobile"
	DeviceDesktop DeviceMode = "desktop"
)

const dateLayout = "2006-01-02"

// Credentials are the portal login credentials, injected from process
// configuration; the core never reads them from the environment itself.
type Credentials struct {
	Username string
	Password string
}

// Request holds the parameters of one booking attempt. It is immutable once
// a job starts.
type Request struct {
	LoginURL        string
	Date            time.Time // calendar date, midnight local
	StartTime       string    // "21:30"
	DurationHours   float64
	BookerFirstName string
	Candidates      []string // tried in order; may repeat, repeats are ignored
	DeviceMode      DeviceMode
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.Local)
}

// DateOnly truncates a timestamp to its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Validate rejects malformed parameters and dates outside the strategy's
// booking horizon. It runs before any browser interaction.
func (r Request) Validate(maxAdvanceDays int, now time.Time) error {
	if strings.TrimSpace(r.LoginURL) == "" {
		return Errf(KindInvalidRequest, "login_url is required")
	}
	if r.Date.IsZero() {
		return Errf(KindInvalidRequest, "booking_date is required")
	}
	if _, err := parseClock(r.StartTime); err != nil {
		return Errf(KindInvalidRequest, "invalid start_time %q (want HH:MM)", r.StartTime)
	}
	if r.DurationHours <= 0 {
		return Errf(KindInvalidRequest, "duration_hours must be positive")
	}
	if strings.TrimSpace(r.BookerFirstName) == "" {
		return Errf(KindInvalidRequest, "booker_first_name is required")
	}
	if len(r.Candidates) == 0 {
		return Errf(KindInvalidRequest, "player_candidates must not be empty")
	}

	today := DateOnly(now)
	date := DateOnly(r.Date)
	if date.Before(today) {
		return Errf(KindInvalidRequest, "booking_date %s is in the past", date.Format(dateLayout))
	}
	horizon := today.AddDate(0, 0, maxAdvanceDays)
	if date.After(horizon) {
		return Errf(KindInvalidRequest, "booking_date %s is beyond the %d-day %s booking horizon",
			date.Format(dateLayout), maxAdvanceDays, r.DeviceMode)
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", strings.TrimSpace(s))
}
