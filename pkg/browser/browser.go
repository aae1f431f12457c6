// Package browser defines the page-level browsing capability the crawler
// drives, with a headless Chrome engine and a static HTTP engine.
package browser

import (
	"context"
	"time"
)

// Launcher opens a browsing context for one crawl run.
type Launcher interface {
	Open(ctx context.Context) (Browser, error)
}

// Browser is a browsing context holding any number of pages.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab. Query methods never wait: they report what the
// current document holds, and an absent selector yields zero values.
type Page interface {
	// Navigate loads url, failing with a timeout-kind *Error after timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// URL is the address of the loaded document.
	URL() string
	Count(ctx context.Context, selector string) (int, error)
	// Attrs returns the named attribute of every match, "" when unset.
	Attrs(ctx context.Context, selector, name string) ([]string, error)
	// Text returns the trimmed text of the first match.
	Text(ctx context.Context, selector string) (string, error)
	// Texts returns the text of every match.
	Texts(ctx context.Context, selector string) ([]string, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	Scroll(ctx context.Context) error
	// WaitSelector blocks until selector matches, or fails with a timeout-kind *Error.
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	Wait(ctx context.Context, d time.Duration) error
	Close() error
}

// Options configures launchers.
type Options struct {
	Headless  bool
	UserAgent string
	// RequestTimeout bounds static engine navigations called without a timeout.
	RequestTimeout time.Duration
}
