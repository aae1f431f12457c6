package sources

import "time"

const (
	kotakuBaseURL      = "https://kotaku.com"
	kotakuLinkSelector = `a.block[cmp-ltrk="archive-posts"][href]`
	kotakuWaitTimeout  = 15 * time.Second
)

// NewKotakuExtractor builds the extractor for the Kotaku reviews archive.
func NewKotakuExtractor(src Source) (Extractor, error) {
	return newExtractor(Rules{
		SourceName:        src.Name,
		BaseURL:           firstNonEmpty(src.BaseURL, kotakuBaseURL),
		LinkSelector:      kotakuLinkSelector,
		WaitSelector:      kotakuLinkSelector,
		WaitTimeout:       kotakuWaitTimeout,
		ExcludeSubstrings: []string{"/author/"},
		MaxScrolls:        src.MaxScrolls,
		ScrollWait:        src.ScrollWait(),
		BodyContainer:     "div.entry-content",
		BodySelector:      "div.entry-content p",
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
