package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/review-harvester/internal/logger"
	"github.com/samvad-hq/review-harvester/pkg/sources"
)

// Runner crawls a single source.
type Runner interface {
	Run(ctx context.Context, src sources.Source, ext sources.Extractor) (Report, error)
}

// Service coordinates crawling across multiple sources.
type Service struct {
	registry sources.ExtractorRegistry
	runner   Runner
	log      logger.Logger
}

// NewService wires a crawler with the extractor registry and a runner
// (normally an *Orchestrator).
func NewService(reg sources.ExtractorRegistry, runner Runner, log logger.Logger) *Service {
	return &Service{
		registry: reg,
		runner:   runner,
		log:      logger.Ensure(log),
	}
}

// Run crawls srcs one after another. Every extractor is resolved before the
// first crawl starts. The first failing source stops the pass; reports for
// the sources already crawled are returned with the error.
func (s *Service) Run(ctx context.Context, srcs []sources.Source) ([]Report, error) {
	if s == nil || s.registry == nil || s.runner == nil {
		return nil, fmt.Errorf("crawler service is not initialized")
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no sources configured for crawling")
	}

	extractors, err := s.resolve(srcs)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(srcs))
	for i, src := range srcs {
		if ctx.Err() != nil {
			s.log.WarnObj("crawl pass interrupted", "crawl_interrupted", map[string]any{
				"remaining_sources": len(srcs) - i,
			})
			break
		}

		report, err := s.runner.Run(ctx, src, extractors[i])
		if err != nil {
			s.log.ErrorObj("source crawl failed", "source_error", map[string]any{
				"source_id": src.ID,
				"error":     err.Error(),
			})
			return reports, fmt.Errorf("source %s: %w", src.ID, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *Service) resolve(srcs []sources.Source) ([]sources.Extractor, error) {
	out := make([]sources.Extractor, len(srcs))
	var errs []error
	for i, src := range srcs {
		ext, err := s.registry.ExtractorFor(src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = ext
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
