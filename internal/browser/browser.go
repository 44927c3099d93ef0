// Package browser owns headless Chrome instances driven through chromedp.
//
// Each Tab is a separate Chrome process with a single page, so sessions never
// share cookies, storage or DOM state. Tab methods accept ordinary contexts:
// the caller's deadline and cancellation are applied to the action while the
// chromedp target context stays alive, so a timed-out wait never closes the
// browser.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrNoSuchElement is returned by ClickNth when the index is out of range.
var ErrNoSuchElement = errors.New("no such element")

// Options configures how Chrome is started.
type Options struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
	// LaunchTimeout bounds process start-up; <= 0 means 90s.
	LaunchTimeout time.Duration
}

// pollInterval is how often WaitURLContains re-reads the location.
const pollInterval = 200 * time.Millisecond

// Tab is one isolated browser page.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Launch starts a Chrome process and opens its first page. The browser
// outlives ctx; it is only torn down by Close.
func Launch(ctx context.Context, opts Options) (*Tab, error) {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		flags = append(flags, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		flags = append(flags, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		flags = append(flags, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), flags...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	t := &Tab{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}

	timeout := opts.LaunchTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	// The first Run allocates the browser and binds its lifetime to the
	// context it is given, so it must run on tabCtx itself; the timeout is
	// enforced from the outside.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("start chrome: %w", err)
		}
		return t, nil
	case <-timer.C:
		t.Close()
		return nil, fmt.Errorf("start chrome: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		t.Close()
		return nil, fmt.Errorf("start chrome: %w", ctx.Err())
	}
}

// Close kills the browser process. It is safe to call more than once.
func (t *Tab) Close() error {
	t.cancel()
	return nil
}

// run executes actions on the tab under ctx's deadline and cancellation.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		rctx, cancelDL = context.WithDeadline(rctx, dl)
		defer cancelDL()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(rctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, chromedp.Navigate(url))
}

// WaitVisible blocks until selector matches a visible element.
func (t *Tab) WaitVisible(ctx context.Context, selector string) error {
	return t.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// ClearAndType empties the input matched by selector and types text into it.
func (t *Tab) ClearAndType(ctx context.Context, selector, text string) error {
	return t.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// Texts returns the trimmed text of every element matching selector.
func (t *Tab) Texts(ctx context.Context, selector string) ([]string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => (e.textContent || "").trim())`, sel)
	var out []string
	if err := t.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

// ClickNth clicks the n-th (0-based) element matching selector.
func (t *Tab) ClickNth(ctx context.Context, selector string, n int) error {
	sel, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`(() => {
  const els = document.querySelectorAll(%s);
  if (%d >= els.length) { return false; }
  els[%d].click();
  return true;
})()`, sel, n, n)
	var clicked bool
	if err := t.run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: %s[%d]", ErrNoSuchElement, selector, n)
	}
	return nil
}

// Location returns the current page URL.
func (t *Tab) Location(ctx context.Context) (string, error) {
	var url string
	err := t.run(ctx, chromedp.Location(&url))
	return url, err
}

// HTML returns the rendered document.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	var html string
	err := t.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// WaitURLContains polls the location until it contains substr.
func (t *Tab) WaitURLContains(ctx context.Context, substr string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		url, err := t.Location(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(url, substr) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
