package browser

import (
	"context"
	"errors"
)

var (
	// ErrTimeout is returned when a bounded wait expires before its
	// condition is met. Every wait in a Session is bounded.
	ErrTimeout = errors.New("browser: wait timed out")

	// ErrNoSuchElement is returned when an operation targets an element
	// or option that is not present on the page.
	ErrNoSuchElement = errors.New("browser: no such element")
)

// Element is a snapshot of one DOM element matched by a selector. Index is
// the element's position within the matched set and can be passed back to
// ClickNth to act on that same element.
type Element struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Session is the capability surface the booking engine consumes from a
// browser. Implementations must never block indefinitely: waits fail with
// ErrTimeout once their bound expires, and a caller-supplied context
// deadline tightens that bound further.
type Session interface {
	Navigate(ctx context.Context, url string) error

	WaitVisible(ctx context.Context, selector string) error
	WaitHidden(ctx context.Context, selector string) error

	Click(ctx context.Context, selector string) error
	ClickNth(ctx context.Context, selector string, index int) error
	Fill(ctx context.Context, selector, value string) error

	SelectByValue(ctx context.Context, selector, value string) error
	SelectByText(ctx context.Context, selector, text string) error
	SelectedValue(ctx context.Context, selector string) (string, error)
	OptionTexts(ctx context.Context, selector string) ([]string, error)
	OptionValues(ctx context.Context, selector string) ([]string, error)

	Text(ctx context.Context, selector string) (string, error)
	Elements(ctx context.Context, selector string) ([]Element, error)

	// DialogText returns the message of the most recent JavaScript dialog
	// (alert/confirm) since the last call, or "" if none appeared. Dialogs
	// are accepted automatically.
	DialogText() string

	ClearCookies(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}

// Factory opens a fresh browser session. The mobile flag selects a phone
// viewport and user agent, which the portal uses to serve its mobile flow.
type Factory func(ctx context.Context, mobile bool) (Session, error)
