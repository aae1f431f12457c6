package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeLauncher starts a headless Chrome per browsing context via chromedp.
type ChromeLauncher struct {
	opts Options
}

// NewChromeLauncher builds a launcher for a locally installed Chrome.
func NewChromeLauncher(opts Options) *ChromeLauncher {
	return &ChromeLauncher{opts: opts}
}

// Open starts the browser process and returns its context.
func (l *ChromeLauncher) Open(ctx context.Context) (Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
	)
	if ua := strings.TrimSpace(l.opts.UserAgent); ua != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(ua))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// The first Run starts the browser; it must not carry a short deadline.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &chromeBrowser{
		ctx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

type chromeBrowser struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewPage opens a new tab in the browser. The ctx argument only gates the
// call; the tab lives until Close.
func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.ctx.Err(); err != nil {
		return nil, &Error{Kind: KindClosed, Err: err}
	}

	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

func (b *chromeBrowser) Close() error {
	b.once.Do(b.cancel)
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
	once   sync.Once
}

// run executes actions on the tab, bounded by the caller's ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var loc string
	if err := p.run(navCtx, chromedp.Navigate(url), chromedp.Location(&loc)); err != nil {
		return classify(KindNavigation, url, err)
	}
	p.url = loc
	if p.url == "" {
		p.url = url
	}
	return nil
}

func (p *chromePage) URL() string { return p.url }

func (p *chromePage) eval(ctx context.Context, script string, out any) error {
	if err := p.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return classify(KindQuery, p.url, err)
	}
	return nil
}

func (p *chromePage) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := p.eval(ctx, fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector)), &n)
	return n, err
}

func (p *chromePage) Attrs(ctx context.Context, selector, name string) ([]string, error) {
	var out []string
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => e.getAttribute(%s) || "")`,
		jsString(selector), jsString(name))
	err := p.eval(ctx, script, &out)
	return out, err
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var out string
	script := fmt.Sprintf(`(() => { const e = document.querySelector(%s); return e ? e.innerText : ""; })()`, jsString(selector))
	err := p.eval(ctx, script, &out)
	return strings.TrimSpace(out), err
}

func (p *chromePage) Texts(ctx context.Context, selector string) ([]string, error) {
	var out []string
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => e.textContent || "")`, jsString(selector))
	err := p.eval(ctx, script, &out)
	return out, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var out string
	err := p.eval(ctx, `document.documentElement ? document.documentElement.outerHTML : ""`, &out)
	return out, err
}

func (p *chromePage) Scroll(ctx context.Context) error {
	return p.eval(ctx, `window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`, nil)
}

func (p *chromePage) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return classify(KindQuery, p.url, err)
	}
	return nil
}

func (p *chromePage) Wait(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (p *chromePage) Close() error {
	p.once.Do(p.cancel)
	return nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
