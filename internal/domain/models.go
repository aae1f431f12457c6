package domain

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Domain contains core models.

// ErrEmptyText is returned when an article would be built without body text.
var ErrEmptyText = errors.New("article text is empty")

// Article is one scraped review/article. Build it with NewArticle.
type Article struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Text        string `json:"text"`
	CreatedAt   string `json:"created_at"`
}

// NewArticle builds an Article stamped with the scrape time. An empty
// publishedAt falls back to the scrape time.
func NewArticle(source, title, url, publishedAt, text string, scrapedAt time.Time) (Article, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Article{}, ErrEmptyText
	}

	created := FormatTime(scrapedAt)
	publishedAt = strings.TrimSpace(publishedAt)
	if publishedAt == "" {
		publishedAt = created
	}

	return Article{
		ID:          HashURL(url),
		Source:      source,
		Title:       strings.TrimSpace(title),
		URL:         url,
		PublishedAt: publishedAt,
		Text:        text,
		CreatedAt:   created,
	}, nil
}

// HashURL derives the stable article id from its canonical URL.
func HashURL(u string) string {
	sum := sha1.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

// FormatTime renders t as an RFC 3339 UTC timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
