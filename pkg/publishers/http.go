package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/review-harvester/internal/logger"
	"github.com/samvad-hq/review-harvester/pkg/httpclient"
)

const maxErrorBody = 512

// httpPublisher posts each event as JSON to a webhook. Event attributes are
// sent as X-Source-ID and X-Run-ID headers.
type httpPublisher struct {
	id     string
	cfg    HTTPPublisherConfig
	client *resty.Client
	log    logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	hc := cfg.HTTP.normalize()
	if hc.URL == "" {
		return nil, fmt.Errorf("publisher %q missing http url", cfg.ID)
	}

	return &httpPublisher{
		id:     cfg.ID,
		cfg:    hc,
		client: httpclient.NewRestyHTTPClient(time.Duration(hc.TimeoutSeconds) * time.Second),
		log:    logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	attrs := evt.attributes()
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeaders(h.cfg.Headers).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Source-ID", attrs["source_id"]).
		SetHeader("X-Run-ID", attrs["run_id"]).
		SetBody(evt).
		Execute(h.cfg.Method, h.cfg.URL)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), errorBody(resp.Body()))
	}

	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"article_id":   evt.Article.ID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func errorBody(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
