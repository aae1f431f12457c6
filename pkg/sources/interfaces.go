package sources

import (
	"context"
	"fmt"
	"iter"

	"github.com/samvad-hq/review-harvester/internal/domain"
	"github.com/samvad-hq/review-harvester/pkg/browser"
)

// Extractor pulls article links out of listing pages and articles out of
// article pages for one site. Concrete implementations live in site-specific
// files (e.g., kotaku.go).
type Extractor interface {
	// ExtractLinks yields candidate article URLs, absolute or relative. It may
	// scroll the listing page a bounded number of times to load more.
	ExtractLinks(ctx context.Context, page browser.Page) iter.Seq[string]
	// ExtractArticle reads a loaded article page. Missing fields produce a
	// skipped Result; only page-access failures are returned as errors.
	ExtractArticle(ctx context.Context, page browser.Page, url string) (Result, error)
}

// URLNormalizer is implemented by extractors whose listing links need
// rewriting into canonical absolute URLs. Extractors without it keep links
// as-is.
type URLNormalizer interface {
	NormalizeURL(raw string) string
}

// ExtractorRegistry resolves the extractor for a given source config.
type ExtractorRegistry interface {
	ExtractorFor(src Source) (Extractor, error)
}

// Result is the outcome of extracting one article page.
type Result struct {
	Article domain.Article
	// Reason is set when the page was skipped.
	Reason string
}

// Ok wraps a successfully extracted article.
func Ok(a domain.Article) Result { return Result{Article: a} }

// Skip reports a page without the required fields.
func Skip(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Skipped reports whether no article was extracted.
func (r Result) Skipped() bool { return r.Reason != "" }
