package sources

const (
	ignBaseURL      = "https://www.ign.com"
	ignLinkSelector = `a.item-body[data-cy='item-body']`
)

// NewIGNExtractor builds the extractor for IGN game reviews.
func NewIGNExtractor(src Source) (Extractor, error) {
	return newExtractor(Rules{
		SourceName:    src.Name,
		BaseURL:       firstNonEmpty(src.BaseURL, ignBaseURL),
		LinkSelector:  ignLinkSelector,
		MaxScrolls:    src.MaxScrolls,
		ScrollWait:    src.ScrollWait(),
		BodyContainer: `div[data-cy='article-content']`,
		BodySelector:  `div[data-cy='article-content'] p[data-cy='paragraph']`,
	})
}
