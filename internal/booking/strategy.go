package booking

import (
	"context"
	"errors"
	"time"

	"github.com/example/padel-scheduler/internal/browser"
)

// NavigationStrategy is the device-specific UI path through the portal:
// authenticate, reach the availability matrix for a date, and locate the
// requested slot on it. The portal caps how far ahead each flow may book,
// so the horizon lives here too.
type NavigationStrategy interface {
	Mode() DeviceMode

	// MaxAdvanceDays is the furthest future date this flow can book,
	// counted from today.
	MaxAdvanceDays() int

	// Bookable reports whether the portal exposes slots on the given day
	// for this flow.
	Bookable(date time.Time) bool

	Login(ctx context.Context, sess browser.Session, loginURL string, creds Credentials) error
	OpenDate(ctx context.Context, sess browser.Session, date time.Time) error
	FindSlot(ctx context.Context, sess browser.Session, start string, durationHours float64) (SlotHandle, bool, error)
}

// NewNavigationStrategy maps a device mode to its concrete flow. An
// unknown mode is a configuration error and must never reach the browser
// layer.
func NewNavigationStrategy(mode DeviceMode) (NavigationStrategy, error) {
	switch mode {
	case DeviceMobile:
		return &mobileStrategy{}, nil
	case DeviceDesktop:
		return &desktopStrategy{}, nil
	default:
		return nil, Errf(KindInvalidRequest, "unknown device_mode %q (want mobile or desktop)", mode)
	}
}

const (
	loginFormSelector   = "#login-form"
	loginButtonSelector = "#login-form button"
)

// login is shared by both flows: the portal serves the same login form to
// phones and desktops.
func login(ctx context.Context, sess browser.Session, loginURL string, creds Credentials) error {
	if err := sess.ClearCookies(ctx); err != nil {
		return WrapErr(KindNavigation, err, "clearing cookies")
	}
	if err := sess.Navigate(ctx, loginURL); err != nil {
		return WrapErr(KindNavigation, err, "opening %s", loginURL)
	}
	if err := sess.WaitVisible(ctx, `input[name="username"]`); err != nil {
		return WrapErr(KindNavigation, err, "login form not present at %s", loginURL)
	}
	if err := sess.Fill(ctx, `input[name="username"]`, creds.Username); err != nil {
		return WrapErr(KindNavigation, err, "filling username")
	}
	if err := sess.Fill(ctx, `input[name="password"]`, creds.Password); err != nil {
		return WrapErr(KindNavigation, err, "filling password")
	}
	if err := sess.Click(ctx, loginButtonSelector); err != nil {
		return WrapErr(KindNavigation, err, "submitting login form")
	}
	// The form disappears on success; if it is still there the portal
	// rejected the credentials.
	if err := sess.WaitHidden(ctx, loginFormSelector); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return WrapErr(KindLogin, err, "portal rejected credentials for %q", creds.Username)
		}
		return WrapErr(KindNavigation, err, "waiting for login to complete")
	}
	return nil
}
