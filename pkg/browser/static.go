package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/review-harvester/pkg/httpclient"
)

const (
	maxHTMLBodyBytes     = 4 << 20 // 4 MiB
	defaultStaticTimeout = 15 * time.Second
)

// ErrPageClosed is returned by pages used after Close.
var ErrPageClosed = errors.New("page closed")

// StaticLauncher fetches pages over plain HTTP and queries them with goquery.
// It runs no JavaScript, so scrolling never loads more content.
type StaticLauncher struct {
	client  httpclient.Client
	headers map[string]string
	// fallback bounds navigations that carry no timeout of their own.
	fallback time.Duration
}

// NewStaticLauncher builds a static launcher; a nil client uses resty without
// a client-wide timeout, so each navigation is bounded by its own timeout.
func NewStaticLauncher(client httpclient.Client, opts Options) *StaticLauncher {
	if client == nil {
		client = httpclient.NewRestyClient(0)
	}
	fallback := opts.RequestTimeout
	if fallback <= 0 {
		fallback = defaultStaticTimeout
	}
	headers := map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		headers["User-Agent"] = ua
	}
	return &StaticLauncher{client: client, headers: headers, fallback: fallback}
}

func (l *StaticLauncher) Open(context.Context) (Browser, error) {
	return &staticBrowser{launcher: l}, nil
}

type staticBrowser struct {
	launcher *StaticLauncher
	mu       sync.Mutex
	closed   bool
}

func (b *staticBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, &Error{Kind: KindClosed, Err: ErrPageClosed}
	}
	return &staticPage{launcher: b.launcher}, nil
}

func (b *staticBrowser) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

type staticPage struct {
	launcher *StaticLauncher
	url      string
	raw      []byte
	doc      *goquery.Document
	closed   bool
}

func (p *staticPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if p.closed {
		return &Error{Kind: KindClosed, URL: url, Err: ErrPageClosed}
	}

	if timeout <= 0 {
		timeout = p.launcher.fallback
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.launcher.client.Get(navCtx, url, p.launcher.headers)
	if err != nil {
		if navCtx.Err() != nil {
			err = fmt.Errorf("%w: %w", navCtx.Err(), err)
		}
		return classify(KindNavigation, url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return &Error{Kind: KindNavigation, URL: url, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindNavigation, URL: url, Err: fmt.Errorf("parse html: %w", err)}
	}

	p.raw = body
	p.doc = doc
	p.url = url
	if final := resp.FinalURL(); final != "" {
		p.url = final
	}
	return nil
}

func (p *staticPage) URL() string { return p.url }

func (p *staticPage) find(selector string) (*goquery.Selection, error) {
	if p.closed {
		return nil, &Error{Kind: KindClosed, URL: p.url, Err: ErrPageClosed}
	}
	if p.doc == nil {
		return nil, &Error{Kind: KindQuery, Err: errors.New("no document loaded")}
	}
	return p.doc.Find(selector), nil
}

func (p *staticPage) Count(_ context.Context, selector string) (int, error) {
	sel, err := p.find(selector)
	if err != nil {
		return 0, err
	}
	return sel.Length(), nil
}

func (p *staticPage) Attrs(_ context.Context, selector, name string) ([]string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.AttrOr(name, ""))
	})
	return out, nil
}

func (p *staticPage) Text(_ context.Context, selector string) (string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

func (p *staticPage) Texts(_ context.Context, selector string) ([]string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out, nil
}

// HTML returns the response body as fetched, which keeps XML feeds intact.
func (p *staticPage) HTML(context.Context) (string, error) {
	if _, err := p.find("html"); err != nil {
		return "", err
	}
	return string(p.raw), nil
}

func (p *staticPage) Scroll(context.Context) error {
	if p.closed {
		return &Error{Kind: KindClosed, URL: p.url, Err: ErrPageClosed}
	}
	return nil
}

// WaitSelector checks the fetched document once; nothing can appear later.
func (p *staticPage) WaitSelector(_ context.Context, selector string, timeout time.Duration) error {
	sel, err := p.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return &Error{Kind: KindTimeout, URL: p.url, Err: fmt.Errorf("selector %q not present after %s", selector, timeout)}
	}
	return nil
}

func (p *staticPage) Wait(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (p *staticPage) Close() error {
	p.closed = true
	p.doc = nil
	p.raw = nil
	return nil
}
