package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// Config controls the Chrome process backing a session.
type Config struct {
	Headless    bool
	Mobile      bool          // emulate a phone; the portal serves its mobile flow to phone user agents
	StepTimeout time.Duration // bound for every individual wait/click/read
}

// ChromeSession drives a headless Chrome via chromedp. One session maps to
// one browser context; it is not safe for concurrent use, matching the
// single-attempt model of the booking engine.
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration

	mu     sync.Mutex
	dialog string
}

var _ Session = (*ChromeSession)(nil)

// NewChromeSession starts a Chrome process and opens one tab. JavaScript
// dialogs are accepted automatically and their text kept for DialogText.
func NewChromeSession(ctx context.Context, cfg Config) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, cancel := chromedp.NewContext(allocCtx)

	s := &ChromeSession{
		ctx:         taskCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     cfg.StepTimeout,
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}

	chromedp.ListenTarget(taskCtx, func(ev any) {
		if d, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			s.mu.Lock()
			s.dialog = d.Message
			s.mu.Unlock()
			go func() {
				_ = chromedp.Run(taskCtx, page.HandleJavaScriptDialog(true))
			}()
		}
	})

	boot := []chromedp.Action{}
	if cfg.Mobile {
		boot = append(boot, chromedp.Emulate(device.IPhoneX))
	}
	// Starts the browser process even when no emulation is requested.
	if err := chromedp.Run(taskCtx, boot...); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return s, nil
}

func (s *ChromeSession) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

// run executes actions against the tab, bounded by the step timeout or the
// caller's deadline, whichever is sooner.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := s.timeout
	if d, ok := ctx.Deadline(); ok {
		if remain := time.Until(d); remain < timeout {
			timeout = remain
		}
	}
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	err := chromedp.Run(tctx, actions...)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *ChromeSession) WaitVisible(ctx context.Context, sel string) error {
	if err := s.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("%w: %s not visible", ErrTimeout, sel)
		}
		return err
	}
	return nil
}

func (s *ChromeSession) WaitHidden(ctx context.Context, sel string) error {
	if err := s.run(ctx, chromedp.WaitNotVisible(sel, chromedp.ByQuery)); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("%w: %s still visible", ErrTimeout, sel)
		}
		return err
	}
	return nil
}

func (s *ChromeSession) Click(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

func (s *ChromeSession) ClickNth(ctx context.Context, sel string, index int) error {
	js := fmt.Sprintf(
		`(function(){var el=document.querySelectorAll(%q)[%d]; if(!el) return false; el.click(); return true;})()`,
		sel, index)
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s[%d]", ErrNoSuchElement, sel, index)
	}
	return nil
}

func (s *ChromeSession) Fill(ctx context.Context, sel, value string) error {
	return s.run(ctx, chromedp.SendKeys(sel, value, chromedp.ByQuery))
}

const setSelectJS = `(function(){
	var el=document.querySelector(%q);
	if(!el) return false;
	for(var i=0;i<el.options.length;i++){
		var o=el.options[i];
		if(%s){
			el.value=o.value;
			el.dispatchEvent(new Event('input',{bubbles:true}));
			el.dispatchEvent(new Event('change',{bubbles:true}));
			return true;
		}
	}
	return false;
})()`

func (s *ChromeSession) selectOption(ctx context.Context, sel, cond string) error {
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(setSelectJS, sel, cond), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no matching option in %s", ErrNoSuchElement, sel)
	}
	return nil
}

func (s *ChromeSession) SelectByValue(ctx context.Context, sel, value string) error {
	return s.selectOption(ctx, sel, fmt.Sprintf("o.value===%q", value))
}

func (s *ChromeSession) SelectByText(ctx context.Context, sel, text string) error {
	return s.selectOption(ctx, sel, fmt.Sprintf("o.text.trim()===%q", text))
}

func (s *ChromeSession) SelectedValue(ctx context.Context, sel string) (string, error) {
	js := fmt.Sprintf(`(function(){var el=document.querySelector(%q); return el?String(el.value):'';})()`, sel)
	var v string
	if err := s.run(ctx, chromedp.Evaluate(js, &v)); err != nil {
		return "", err
	}
	return v, nil
}

func (s *ChromeSession) OptionTexts(ctx context.Context, sel string) ([]string, error) {
	return s.strings(ctx, fmt.Sprintf(
		`(function(){var el=document.querySelector(%q); if(!el) return []; return Array.from(el.options).map(function(o){return o.text.trim();});})()`, sel))
}

func (s *ChromeSession) OptionValues(ctx context.Context, sel string) ([]string, error) {
	return s.strings(ctx, fmt.Sprintf(
		`(function(){var el=document.querySelector(%q); if(!el) return []; return Array.from(el.options).map(function(o){return String(o.value);});})()`, sel))
}

func (s *ChromeSession) strings(ctx context.Context, js string) ([]string, error) {
	var out []string
	if err := s.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChromeSession) Text(ctx context.Context, sel string) (string, error) {
	var v string
	if err := s.run(ctx, chromedp.Text(sel, &v, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return v, nil
}

func (s *ChromeSession) Elements(ctx context.Context, sel string) ([]Element, error) {
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(function(el,i){
		return {
			index:i,
			text:(el.innerText||'').trim(),
			title:el.getAttribute('title')||'',
			value:el.value!==undefined?String(el.value):''
		};
	})`, sel)
	var out []Element
	if err := s.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChromeSession) DialogText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dialog
	s.dialog = ""
	return d
}

func (s *ChromeSession) ClearCookies(ctx context.Context) error {
	return s.run(ctx, network.ClearBrowserCookies())
}

func (s *ChromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}
