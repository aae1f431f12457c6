package crawler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/review-harvester/internal/domain"
	"github.com/samvad-hq/review-harvester/internal/logger"
	"github.com/samvad-hq/review-harvester/internal/storage"
	"github.com/samvad-hq/review-harvester/pkg/browser"
	"github.com/samvad-hq/review-harvester/pkg/publishers"
	"github.com/samvad-hq/review-harvester/pkg/sources"
)

const (
	defaultListingTimeout = 30 * time.Second
	defaultArticleTimeout = 15 * time.Second
	publishTimeout        = 30 * time.Second
)

// Options tunes an Orchestrator.
type Options struct {
	ListingTimeout time.Duration
	ArticleTimeout time.Duration
	// Publisher receives every new article after persistence; nil disables fanout.
	Publisher EventPublisher
	Logger    logger.Logger
}

// Orchestrator runs one crawl of one source: listings, article visits, then
// CSV append and dedup persistence.
type Orchestrator struct {
	launcher       browser.Launcher
	store          SeenStore
	sink           RecordSink
	publisher      EventPublisher
	log            logger.Logger
	listingTimeout time.Duration
	articleTimeout time.Duration
	now            func() time.Time
	newRunID       func() string
}

// Report summarizes one orchestrator run.
type Report struct {
	RunID      string `json:"run_id"`
	SourceID   string `json:"source_id"`
	OutputPath string `json:"output_path"`
	Listings   int    `json:"listings"`
	Candidates int    `json:"candidates"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	New        int    `json:"new"`
	Published  int    `json:"published"`
	Cancelled  bool   `json:"cancelled"`
}

// NewOrchestrator wires an orchestrator around a browser launcher, dedup
// store and output sink.
func NewOrchestrator(launcher browser.Launcher, store SeenStore, sink RecordSink, opts Options) *Orchestrator {
	if opts.ListingTimeout <= 0 {
		opts.ListingTimeout = defaultListingTimeout
	}
	if opts.ArticleTimeout <= 0 {
		opts.ArticleTimeout = defaultArticleTimeout
	}
	return &Orchestrator{
		launcher:       launcher,
		store:          store,
		sink:           sink,
		publisher:      opts.Publisher,
		log:            logger.Ensure(opts.Logger),
		listingTimeout: opts.ListingTimeout,
		articleTimeout: opts.ArticleTimeout,
		now:            time.Now,
		newRunID:       uuid.NewString,
	}
}

// run holds the state of one Run call.
type run struct {
	src       sources.Source
	ext       sources.Extractor
	report    Report
	seen      storage.URLSet
	fileSeen  storage.URLSet
	collected []domain.Article
}

// Run crawls src with ext. Cancelling ctx stops further page visits; work
// already collected is still appended and persisted. Page failures are
// logged; persistence failures and an unusable browser are returned.
func (o *Orchestrator) Run(ctx context.Context, src sources.Source, ext sources.Extractor) (Report, error) {
	if o == nil || o.launcher == nil || o.store == nil || o.sink == nil {
		return Report{}, errors.New("orchestrator is not initialized")
	}
	if ext == nil {
		return Report{}, fmt.Errorf("no extractor for source %s", src.ID)
	}

	r := &run{src: src, ext: ext}
	r.report = Report{
		RunID:      o.newRunID(),
		SourceID:   src.ID,
		OutputPath: o.sink.PathFor(src.ID, o.now()),
	}

	var err error
	if r.fileSeen, err = o.sink.LoadExistingURLs(r.report.OutputPath); err != nil {
		return r.report, fmt.Errorf("load existing output for %s: %w", src.ID, err)
	}
	if r.seen, err = o.store.Load(src.ID); err != nil {
		return r.report, fmt.Errorf("load seen urls for %s: %w", src.ID, err)
	}

	o.log.InfoObj("crawl started", "crawl_start", map[string]any{
		"run_id":      r.report.RunID,
		"source_id":   src.ID,
		"output_path": r.report.OutputPath,
		"seen_urls":   r.seen.Len(),
		"file_urls":   r.fileSeen.Len(),
	})

	crawlErr := o.crawl(ctx, r)
	r.report.Cancelled = ctx.Err() != nil

	report, err := o.finish(ctx, r)
	if err != nil {
		return report, err
	}
	if crawlErr != nil {
		return report, fmt.Errorf("crawl %s: %w", src.ID, crawlErr)
	}
	return report, nil
}

// crawl drives the listing and article states. The browser is closed before
// it returns.
func (o *Orchestrator) crawl(ctx context.Context, r *run) error {
	b, err := o.launcher.Open(ctx)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer b.Close()

	listing, err := b.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("open listing page: %w", err)
	}
	defer listing.Close()

	for _, startURL := range r.src.StartURLs {
		if ctx.Err() != nil {
			return nil
		}
		if err := listing.Navigate(ctx, startURL, o.listingTimeout); err != nil {
			o.warnPage("listing navigation failed", r, startURL, err)
			continue
		}
		r.report.Listings++

		links := slices.Collect(r.ext.ExtractLinks(ctx, listing))
		r.report.Candidates += len(links)
		o.log.DebugObj("listing links extracted", "listing", map[string]any{
			"run_id":    r.report.RunID,
			"source_id": r.src.ID,
			"url":       startURL,
			"links":     len(links),
		})

		for _, link := range links {
			if ctx.Err() != nil {
				return nil
			}
			o.visit(ctx, b, r, normalize(r.ext, link))
		}
	}
	return nil
}

func (o *Orchestrator) visit(ctx context.Context, b browser.Browser, r *run, url string) {
	if url == "" {
		return
	}
	if r.seen.Has(url) || r.fileSeen.Has(url) {
		r.report.Duplicates++
		o.log.DebugObj("article already seen", "article_skip", map[string]any{
			"run_id":    r.report.RunID,
			"source_id": r.src.ID,
			"url":       url,
		})
		return
	}

	res, err := o.extract(ctx, b, r.ext, url)
	if err != nil {
		r.report.Skipped++
		o.warnPage("article failed", r, url, err)
		return
	}
	if res.Skipped() {
		r.report.Skipped++
		o.log.WarnObj("article skipped", "article_skip", map[string]any{
			"run_id":    r.report.RunID,
			"source_id": r.src.ID,
			"url":       url,
			"reason":    res.Reason,
		})
		return
	}

	r.seen.Add(url)
	r.fileSeen.Add(url)
	r.collected = append(r.collected, res.Article)
}

// extract visits url on a fresh page that is closed on every path.
func (o *Orchestrator) extract(ctx context.Context, b browser.Browser, ext sources.Extractor, url string) (sources.Result, error) {
	page, err := b.NewPage(ctx)
	if err != nil {
		return sources.Result{}, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, url, o.articleTimeout); err != nil {
		return sources.Result{}, err
	}
	return ext.ExtractArticle(ctx, page, url)
}

// finish appends collected articles, persists the dedup set and fans out.
func (o *Orchestrator) finish(ctx context.Context, r *run) (Report, error) {
	if err := o.sink.Append(r.report.OutputPath, r.collected); err != nil {
		return r.report, fmt.Errorf("append output for %s: %w", r.src.ID, err)
	}
	if err := o.store.Persist(r.src.ID, r.seen); err != nil {
		return r.report, fmt.Errorf("persist seen urls for %s: %w", r.src.ID, err)
	}
	r.report.New = len(r.collected)

	r.report.Published = o.publish(ctx, r)

	o.log.InfoObj("crawl completed", "crawl_result", r.report)
	return r.report, nil
}

func (o *Orchestrator) publish(ctx context.Context, r *run) int {
	if o.publisher == nil || len(r.collected) == 0 {
		return 0
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	var errs []error
	published := 0
	for _, article := range r.collected {
		evt := publishers.NewEvent(r.report.RunID, r.src.ID, r.src.Name, article)
		n, err := o.publisher.Publish(pubCtx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("article %s: %w", article.ID, err))
		}
		if n > 0 {
			published++
		}
	}
	if err := errors.Join(errs...); err != nil {
		o.log.WarnObj("publish failed", "publish_error", map[string]any{
			"run_id":    r.report.RunID,
			"source_id": r.src.ID,
			"failures":  len(errs),
			"error":     err.Error(),
		})
	}
	return published
}

func (o *Orchestrator) warnPage(msg string, r *run, url string, err error) {
	o.log.WarnObj(msg, "page_error", map[string]any{
		"run_id":    r.report.RunID,
		"source_id": r.src.ID,
		"url":       url,
		"kind":      string(browser.KindOf(err)),
		"timeout":   browser.IsTimeout(err),
		"error":     err.Error(),
	})
}

func normalize(ext sources.Extractor, link string) string {
	if n, ok := ext.(sources.URLNormalizer); ok {
		return n.NormalizeURL(link)
	}
	return link
}
