package sources

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samvad-hq/review-harvester/pkg/browser"
)

// feedExtractor reads article links from an RSS/Atom listing and extracts
// articles with selector rules from the source config.
type feedExtractor struct {
	article *SelectorExtractor
}

// NewFeedExtractor builds the extractor for feed-backed sources.
func NewFeedExtractor(src Source) (Extractor, error) {
	rules, err := rulesFromConfig(src)
	if err != nil {
		return nil, err
	}
	return &feedExtractor{
		article: &SelectorExtractor{rules: rules.withDefaults(), now: time.Now},
	}, nil
}

func (f *feedExtractor) ExtractLinks(ctx context.Context, page browser.Page) iter.Seq[string] {
	return func(yield func(string) bool) {
		raw, err := page.HTML(ctx)
		if err != nil {
			return
		}
		feed, err := gofeed.NewParser().ParseString(raw)
		if err != nil {
			return
		}
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			link := strings.TrimSpace(item.Link)
			if link == "" && len(item.Links) > 0 {
				link = strings.TrimSpace(item.Links[0])
			}
			if link == "" || f.article.excluded(link) {
				continue
			}
			if !yield(link) {
				return
			}
		}
	}
}

func (f *feedExtractor) NormalizeURL(raw string) string {
	return f.article.NormalizeURL(raw)
}

func (f *feedExtractor) ExtractArticle(ctx context.Context, page browser.Page, url string) (Result, error) {
	return f.article.ExtractArticle(ctx, page, url)
}
