package sources

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/review-harvester/internal/domain"
	"github.com/samvad-hq/review-harvester/pkg/browser"
)

const (
	defaultTitleSelector     = "h1"
	defaultPublishedSelector = `meta[property="article:published_time"]`
)

// Rules drives a selector-based extractor.
type Rules struct {
	// SourceName is written into every article.
	SourceName string
	BaseURL    string

	LinkSelector string
	// WaitSelector is awaited before reading links; empty skips the wait.
	WaitSelector      string
	WaitTimeout       time.Duration
	ExcludeSubstrings []string
	MaxScrolls        int
	ScrollWait        time.Duration

	TitleSelector     string
	PublishedSelector string
	// BodyContainer must match for the page to count as an article.
	BodyContainer string
	// BodySelector selects the paragraphs joined into the article text.
	BodySelector string
}

// SelectorExtractor extracts links and articles with CSS selectors.
type SelectorExtractor struct {
	rules Rules
	now   func() time.Time
}

// NewSelectorExtractor builds an extractor from rules.
func NewSelectorExtractor(rules Rules) (*SelectorExtractor, error) {
	if strings.TrimSpace(rules.LinkSelector) == "" {
		return nil, errors.New("link selector is empty")
	}
	if strings.TrimSpace(rules.BodySelector) == "" {
		return nil, errors.New("body selector is empty")
	}
	return &SelectorExtractor{rules: rules.withDefaults(), now: time.Now}, nil
}

func (r Rules) withDefaults() Rules {
	if r.TitleSelector == "" {
		r.TitleSelector = defaultTitleSelector
	}
	if r.PublishedSelector == "" {
		r.PublishedSelector = defaultPublishedSelector
	}
	if r.ScrollWait <= 0 {
		r.ScrollWait = time.Duration(defaultScrollWaitMs) * time.Millisecond
	}
	return r
}

// ExtractLinks reads the link selector, then scrolls up to MaxScrolls times,
// stopping early once a scroll surfaces no new links.
func (e *SelectorExtractor) ExtractLinks(ctx context.Context, page browser.Page) iter.Seq[string] {
	return func(yield func(string) bool) {
		if e.rules.WaitSelector != "" {
			if err := page.WaitSelector(ctx, e.rules.WaitSelector, e.rules.WaitTimeout); err != nil {
				return
			}
		}

		seen := make(map[string]struct{})
		emit := func() (int, bool) {
			hrefs, err := page.Attrs(ctx, e.rules.LinkSelector, "href")
			if err != nil {
				return 0, false
			}
			added := 0
			for _, href := range hrefs {
				href = strings.TrimSpace(href)
				if href == "" || e.excluded(href) {
					continue
				}
				if _, dup := seen[href]; dup {
					continue
				}
				seen[href] = struct{}{}
				added++
				if !yield(href) {
					return added, false
				}
			}
			return added, true
		}

		if _, ok := emit(); !ok {
			return
		}
		for i := 0; i < e.rules.MaxScrolls; i++ {
			if ctx.Err() != nil {
				return
			}
			if err := page.Scroll(ctx); err != nil {
				return
			}
			if err := page.Wait(ctx, e.rules.ScrollWait); err != nil {
				return
			}
			added, ok := emit()
			if !ok || added == 0 {
				return
			}
		}
	}
}

func (e *SelectorExtractor) excluded(href string) bool {
	for _, sub := range e.rules.ExcludeSubstrings {
		if strings.Contains(href, sub) {
			return true
		}
	}
	return false
}

// NormalizeURL resolves site-relative links against the base URL.
func (e *SelectorExtractor) NormalizeURL(raw string) string {
	return resolveURL(e.rules.BaseURL, raw)
}

// ExtractArticle reads title, published time and body paragraphs.
func (e *SelectorExtractor) ExtractArticle(ctx context.Context, page browser.Page, pageURL string) (Result, error) {
	title, err := page.Text(ctx, e.rules.TitleSelector)
	if err != nil {
		return Result{}, fmt.Errorf("read title: %w", err)
	}
	if title == "" {
		if title, err = metaContent(ctx, page, `meta[property="og:title"]`); err != nil {
			return Result{}, fmt.Errorf("read og title: %w", err)
		}
	}
	if title == "" {
		return Skip("title %q not found", e.rules.TitleSelector), nil
	}

	published, err := publishedValue(ctx, page, e.rules.PublishedSelector)
	if err != nil {
		return Result{}, fmt.Errorf("read published time: %w", err)
	}

	if e.rules.BodyContainer != "" {
		n, err := page.Count(ctx, e.rules.BodyContainer)
		if err != nil {
			return Result{}, fmt.Errorf("count body container: %w", err)
		}
		if n == 0 {
			return Skip("body container %q not found", e.rules.BodyContainer), nil
		}
	}

	paragraphs, err := page.Texts(ctx, e.rules.BodySelector)
	if err != nil {
		return Result{}, fmt.Errorf("read body: %w", err)
	}

	article, err := domain.NewArticle(e.rules.SourceName, title, pageURL, published, joinParagraphs(paragraphs), e.now())
	if errors.Is(err, domain.ErrEmptyText) {
		return Skip("empty body"), nil
	}
	if err != nil {
		return Result{}, err
	}
	return Ok(article), nil
}

func metaContent(ctx context.Context, page browser.Page, selector string) (string, error) {
	vals, err := page.Attrs(ctx, selector, "content")
	if err != nil {
		return "", err
	}
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// publishedValue prefers a content or datetime attribute and falls back to
// element text.
func publishedValue(ctx context.Context, page browser.Page, selector string) (string, error) {
	for _, attr := range []string{"content", "datetime"} {
		vals, err := page.Attrs(ctx, selector, attr)
		if err != nil {
			return "", err
		}
		for _, v := range vals {
			if v = strings.TrimSpace(v); v != "" {
				return v, nil
			}
		}
	}
	return page.Text(ctx, selector)
}

func joinParagraphs(paragraphs []string) string {
	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

// resolveURL resolves raw against base; raw is returned untouched when either
// fails to parse or base is empty.
func resolveURL(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if base == "" || raw == "" {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return raw
	}
	return b.ResolveReference(ref).String()
}

func newExtractor(rules Rules) (Extractor, error) {
	e, err := NewSelectorExtractor(rules)
	if err != nil {
		return nil, err
	}
	return e, nil
}
