package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samvad-hq/review-harvester/internal/config"
	"github.com/samvad-hq/review-harvester/internal/crawler"
	"github.com/samvad-hq/review-harvester/internal/logger"
	"github.com/samvad-hq/review-harvester/internal/output"
	"github.com/samvad-hq/review-harvester/internal/storage"
	"github.com/samvad-hq/review-harvester/pkg/browser"
	"github.com/samvad-hq/review-harvester/pkg/publishers"
	"github.com/samvad-hq/review-harvester/pkg/sources"
)

const (
	EngineChrome = "chrome"
	EngineStatic = "static"
)

// Options selects what a Harvester crawls and where it prints summaries.
type Options struct {
	// SourceIDs limits the crawl to these sources; empty means every enabled source.
	SourceIDs []string
	// Out receives one summary line per crawled source; nil discards them.
	Out io.Writer
	// Launcher overrides the browser engine chosen by config.
	Launcher browser.Launcher
}

// Harvester represents the review harvester runtime. It manages the crawl loop,
// coordinating between sources, the crawler service, and publishers. It also
// handles storage initialization and cleanup.
type Harvester struct {
	cfg           *config.Config
	sources       []sources.Source
	fanout        *publishers.Fanout
	crawlService  *crawler.Service
	crawlInterval time.Duration
	log           logger.Logger
	store         storage.Store
	out           io.Writer
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	selected, err := sourceReg.Select(opts.SourceIDs)
	if err != nil {
		return nil, fmt.Errorf("select sources: %w", err)
	}
	sourceIDs := make([]string, 0, len(selected))
	for _, s := range selected {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"configured": len(sourceReg.All()),
		"selected":   sourceIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	launcher := opts.Launcher
	if launcher == nil {
		if launcher, err = newLauncher(cfg); err != nil {
			fanout.Close()
			return nil, err
		}
	}

	store, err := storage.NewStore(cfg.StorageType, storage.Options{Dir: cfg.MetaDir, Path: cfg.BBoltPath})
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":     cfg.StorageType,
		"meta_dir": cfg.MetaDir,
		"path":     cfg.BBoltPath,
	})

	sink, err := output.NewSink(cfg.OutputDir)
	if err != nil {
		fanout.Close()
		store.Close()
		return nil, fmt.Errorf("init output: %w", err)
	}

	orchOpts := crawler.Options{
		ListingTimeout: cfg.ListingTimeout,
		ArticleTimeout: cfg.ArticleTimeout,
		Logger:         log,
	}
	if fanout.Size() > 0 {
		orchOpts.Publisher = fanout
	}
	orch := crawler.NewOrchestrator(launcher, store, sink, orchOpts)

	return &Harvester{
		cfg:           cfg,
		sources:       selected,
		fanout:        fanout,
		crawlService:  crawler.NewService(sources.DefaultExtractorRegistry(), orch, log),
		crawlInterval: cfg.CrawlInterval,
		log:           log,
		store:         store,
		out:           opts.Out,
	}, nil
}

// buildFanout loads the optional publishers file; an empty path disables publishing.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

func newLauncher(cfg *config.Config) (browser.Launcher, error) {
	opts := browser.Options{
		Headless:       cfg.BrowserHeadless,
		UserAgent:      cfg.UserAgent,
		RequestTimeout: max(cfg.ListingTimeout, cfg.ArticleTimeout),
	}
	switch cfg.BrowserEngine {
	case EngineChrome:
		return browser.NewChromeLauncher(opts), nil
	case EngineStatic:
		return browser.NewStaticLauncher(nil, opts), nil
	default:
		return nil, fmt.Errorf("unsupported browser engine %q", cfg.BrowserEngine)
	}
}

// Run crawls the selected sources once, or repeatedly every crawl interval
// until ctx is cancelled. A failed pass ends the loop with its error.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.crawlService == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()

	if len(h.sources) == 0 {
		h.log.WarnObj("no sources enabled; nothing to crawl", "sources_file", h.cfg.SourcesFile)
		return nil
	}

	h.log.InfoObj("harvester starting", "harvester_state", map[string]any{
		"sources_count":    len(h.sources),
		"publishers_count": h.fanout.Size(),
		"crawl_interval":   h.crawlInterval.String(),
	})

	if err := h.runOnce(ctx); err != nil {
		return err
	}
	if h.crawlInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(h.crawlInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := h.runOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// runOnce performs a single crawl pass across the selected sources.
func (h *Harvester) runOnce(ctx context.Context) error {
	start := time.Now()
	reports, err := h.crawlService.Run(ctx, h.sources)
	for _, r := range reports {
		fmt.Fprintf(h.out, "%s: %d new reviews -> %s\n", r.SourceID, r.New, r.OutputPath)
	}
	if err != nil {
		return fmt.Errorf("crawl pass: %w", err)
	}

	total := 0
	for _, r := range reports {
		total += r.New
	}
	h.log.InfoObj("crawl pass completed", "crawl_meta", map[string]any{
		"sources_count": len(reports),
		"new_reviews":   total,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases storage and publisher clients, logging any errors encountered.
func (h *Harvester) close() {
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			h.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publisher close failed", "error", err.Error())
	}
}
