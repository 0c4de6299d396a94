package booking

import (
	"context"
	"fmt"

	"github.com/example/padel-scheduler/internal/browser"
)

// fakeSession is an in-memory browser.Session scripted per test. Clicks are
// recorded, and per-selector hooks let a test mutate page state the way the
// real portal would respond.
type fakeSession struct {
	visible  map[string]bool
	texts    map[string]string
	selects  map[string]*fakeSelect
	elements map[string][]browser.Element
	filled   map[string]string

	dialogs []string // queue drained by DialogText
	clicks  []string
	onClick map[string]func(s *fakeSession)

	navigated []string
	closed    bool
}

type fakeSelect struct {
	texts    []string
	values   []string
	selected string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		visible:  map[string]bool{},
		texts:    map[string]string{},
		selects:  map[string]*fakeSelect{},
		elements: map[string][]browser.Element{},
		filled:   map[string]string{},
		onClick:  map[string]func(s *fakeSession){},
	}
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *fakeSession) WaitVisible(_ context.Context, sel string) error {
	if s.visible[sel] {
		return nil
	}
	return browser.ErrTimeout
}

func (s *fakeSession) WaitHidden(_ context.Context, sel string) error {
	if !s.visible[sel] {
		return nil
	}
	return browser.ErrTimeout
}

func (s *fakeSession) Click(_ context.Context, sel string) error {
	s.clicks = append(s.clicks, sel)
	if hook := s.onClick[sel]; hook != nil {
		hook(s)
	}
	return nil
}

func (s *fakeSession) ClickNth(_ context.Context, sel string, index int) error {
	s.clicks = append(s.clicks, fmt.Sprintf("%s#%d", sel, index))
	if hook := s.onClick[sel]; hook != nil {
		hook(s)
	}
	return nil
}

func (s *fakeSession) Fill(_ context.Context, sel, value string) error {
	s.filled[sel] = value
	return nil
}

func (s *fakeSession) SelectByValue(_ context.Context, sel, value string) error {
	fs, ok := s.selects[sel]
	if !ok {
		return browser.ErrNoSuchElement
	}
	for _, v := range fs.values {
		if v == value {
			fs.selected = v
			return nil
		}
	}
	return browser.ErrNoSuchElement
}

func (s *fakeSession) SelectByText(_ context.Context, sel, text string) error {
	fs, ok := s.selects[sel]
	if !ok {
		return browser.ErrNoSuchElement
	}
	for i, t := range fs.texts {
		if t == text {
			if i < len(fs.values) {
				fs.selected = fs.values[i]
			} else {
				fs.selected = t
			}
			return nil
		}
	}
	return browser.ErrNoSuchElement
}

func (s *fakeSession) SelectedValue(_ context.Context, sel string) (string, error) {
	fs, ok := s.selects[sel]
	if !ok {
		return "", browser.ErrNoSuchElement
	}
	return fs.selected, nil
}

func (s *fakeSession) OptionTexts(_ context.Context, sel string) ([]string, error) {
	fs, ok := s.selects[sel]
	if !ok {
		return nil, browser.ErrNoSuchElement
	}
	return fs.texts, nil
}

func (s *fakeSession) OptionValues(_ context.Context, sel string) ([]string, error) {
	fs, ok := s.selects[sel]
	if !ok {
		return nil, browser.ErrNoSuchElement
	}
	return fs.values, nil
}

func (s *fakeSession) Text(_ context.Context, sel string) (string, error) {
	t, ok := s.texts[sel]
	if !ok {
		return "", browser.ErrNoSuchElement
	}
	return t, nil
}

func (s *fakeSession) Elements(_ context.Context, sel string) ([]browser.Element, error) {
	return s.elements[sel], nil
}

func (s *fakeSession) DialogText() string {
	if len(s.dialogs) == 0 {
		return ""
	}
	d := s.dialogs[0]
	s.dialogs = s.dialogs[1:]
	return d
}

func (s *fakeSession) ClearCookies(context.Context) error { return nil }

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) { return []byte{0x89}, nil }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSession) clicked(sel string) bool {
	for _, c := range s.clicks {
		if c == sel {
			return true
		}
	}
	return false
}
