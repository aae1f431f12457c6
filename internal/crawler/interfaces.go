package crawler

import (
	"context"
	"time"

	"github.com/samvad-hq/review-harvester/internal/domain"
	"github.com/samvad-hq/review-harvester/internal/storage"
	"github.com/samvad-hq/review-harvester/pkg/publishers"
)

// SeenStore loads and persists the cross-run set of visited article URLs.
type SeenStore interface {
	Load(source string) (storage.URLSet, error)
	Persist(source string, urls storage.URLSet) error
}

// RecordSink is the per-day CSV output for a source.
type RecordSink interface {
	PathFor(source string, now time.Time) string
	LoadExistingURLs(path string) (storage.URLSet, error)
	Append(path string, articles []domain.Article) error
}

// EventPublisher publishes collected articles downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
