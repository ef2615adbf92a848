// Package browser drives the housing portal through a real Chrome instance
// for portals where plain form posts are not accepted.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Scope selects the document a query runs against.
type Scope int

const (
	// Top is the portal page itself.
	Top Scope = iota
	// Frame is the selection dialog's iframe.
	Frame
)

// FrameID is the id of the iframe the portal opens the selection page in.
const FrameID = "iframeDialog"

// ErrElementNotFound is returned when a required element is missing.
var ErrElementNotFound = errors.New("element not found")

// Page is the set of browser operations the transport needs. Every call is
// independent, so a page may be shared between sequential callers.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	SetCookie(ctx context.Context, name, value, domain string, expires time.Time) error
	Cookie(ctx context.Context, name string) (string, bool, error)
	// Text returns the text content of the first match.
	Text(ctx context.Context, scope Scope, selector string) (string, bool, error)
	Attribute(ctx context.Context, scope Scope, selector, name string) (string, bool, error)
	Click(ctx context.Context, scope Scope, selector string) (bool, error)
	SetValue(ctx context.Context, scope Scope, selector, value string) (bool, error)
	// ClickButton clicks the top-level dialog button labelled label.
	ClickButton(ctx context.Context, label string) (bool, error)
	// ClickRow clicks the select link in the listing table row with the given index.
	ClickRow(ctx context.Context, row int) (bool, error)
	HTML(ctx context.Context, scope Scope) (string, error)
	Close() error
}

// Options configures the Chrome process.
type Options struct {
	Logger   *slog.Logger
	ExecPath string
	Headless bool
}

// ChromePage is a Page backed by chromedp.
type ChromePage struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *slog.Logger
}

// NewChromePage starts Chrome and opens a tab. Close releases both.
func NewChromePage(ctx context.Context, opts Options) (*ChromePage, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "browser")

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1280, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// The browser outlives ctx; Close ends it.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	// The first Run launches the browser.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info("Browser started", "headless", opts.Headless)

	return &ChromePage{
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		logger:      logger,
	}, nil
}

// run executes actions on the tab while honoring ctx. Cancelling ctx aborts
// the actions but leaves the tab open.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate implements Page.
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

// Location implements Page.
func (p *ChromePage) Location(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, err
}

// SetCookie implements Page.
func (p *ChromePage) SetCookie(ctx context.Context, name, value, domain string, expires time.Time) error {
	exp := cdp.TimeSinceEpoch(expires)
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(name, value).
			WithDomain(domain).
			WithPath("/").
			WithExpires(&exp).
			Do(ctx)
	}))
}

// Cookie implements Page.
func (p *ChromePage) Cookie(ctx context.Context, name string) (string, bool, error) {
	var cookies []*network.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, err
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true, nil
		}
	}
	return "", false, nil
}

type lookup struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Text implements Page.
func (p *ChromePage) Text(ctx context.Context, scope Scope, selector string) (string, bool, error) {
	var out lookup
	js := fmt.Sprintf(`(function(){var r=%s;var e=r&&r.querySelector(%s);return e?{found:true,value:(e.textContent||'').trim()}:{found:false,value:''};})()`,
		root(scope), quote(selector))
	err := p.run(ctx, chromedp.Evaluate(js, &out))
	return out.Value, out.Found, err
}

// Attribute implements Page.
func (p *ChromePage) Attribute(ctx context.Context, scope Scope, selector, name string) (string, bool, error) {
	var out lookup
	js := fmt.Sprintf(`(function(){var r=%s;var e=r&&r.querySelector(%s);return e?{found:true,value:e.getAttribute(%s)||''}:{found:false,value:''};})()`,
		root(scope), quote(selector), quote(name))
	err := p.run(ctx, chromedp.Evaluate(js, &out))
	return out.Value, out.Found, err
}

// Click implements Page. It clicks through script so overlays and
// animations do not intercept the event.
func (p *ChromePage) Click(ctx context.Context, scope Scope, selector string) (bool, error) {
	js := fmt.Sprintf(`(function(){var r=%s;var e=r&&r.querySelector(%s);if(!e){return false;}e.click();return true;})()`,
		root(scope), quote(selector))
	return p.evalBool(ctx, js)
}

// SetValue implements Page.
func (p *ChromePage) SetValue(ctx context.Context, scope Scope, selector, value string) (bool, error) {
	js := fmt.Sprintf(`(function(){var r=%s;var e=r&&r.querySelector(%s);if(!e){return false;}e.value=%s;e.dispatchEvent(new Event('input',{bubbles:true}));e.dispatchEvent(new Event('change',{bubbles:true}));return true;})()`,
		root(scope), quote(selector), quote(value))
	return p.evalBool(ctx, js)
}

// ClickButton implements Page.
func (p *ChromePage) ClickButton(ctx context.Context, label string) (bool, error) {
	js := fmt.Sprintf(`(function(){var s=Array.from(document.querySelectorAll('button span')).find(function(s){return (s.textContent||'').trim()===%s;});if(!s){return false;}(s.closest('button')||s).click();return true;})()`,
		quote(label))
	return p.evalBool(ctx, js)
}

// ClickRow implements Page.
func (p *ChromePage) ClickRow(ctx context.Context, row int) (bool, error) {
	js := fmt.Sprintf(`(function(){var r=%s;if(!r){return false;}var tr=r.querySelectorAll('table#common-table > tbody > tr')[%d];var a=tr&&tr.querySelector('td a');if(!a){return false;}a.click();return true;})()`,
		root(Frame), row)
	return p.evalBool(ctx, js)
}

// HTML implements Page.
func (p *ChromePage) HTML(ctx context.Context, scope Scope) (string, error) {
	var html string
	js := fmt.Sprintf(`(function(){var r=%s;return r&&r.documentElement?r.documentElement.outerHTML:'';})()`, root(scope))
	err := p.run(ctx, chromedp.Evaluate(js, &html))
	return html, err
}

// Close shuts the browser down.
func (p *ChromePage) Close() error {
	p.cancelTab()
	p.cancelAlloc()
	p.logger.Info("Browser closed")
	return nil
}

func (p *ChromePage) evalBool(ctx context.Context, js string) (bool, error) {
	var ok bool
	err := p.run(ctx, chromedp.Evaluate(js, &ok))
	return ok, err
}

func root(scope Scope) string {
	if scope == Frame {
		return fmt.Sprintf(`(function(){var f=document.getElementById(%s);return f&&f.contentDocument;})()`, quote(FrameID))
	}
	return "document"
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
