package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samvad-hq/review-harvester/pkg/sources"
)

// fakeRegistry resolves every known source id to the same extractor.
type fakeRegistry struct {
	known map[string]bool
}

func (f *fakeRegistry) ExtractorFor(src sources.Source) (sources.Extractor, error) {
	if !f.known[src.ID] {
		return nil, errors.New("no extractor for " + src.ID)
	}
	return &fakeExtractor{}, nil
}

// fakeRunner records crawled sources and fails on one.
type fakeRunner struct {
	ran    []string
	failOn string
	cancel context.CancelFunc
}

func (f *fakeRunner) Run(_ context.Context, src sources.Source, _ sources.Extractor) (Report, error) {
	f.ran = append(f.ran, src.ID)
	if f.cancel != nil {
		f.cancel()
	}
	if src.ID == f.failOn {
		return Report{}, errors.New("persist failed")
	}
	return Report{SourceID: src.ID, New: 1}, nil
}

func TestServiceRunSequential(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewService(&fakeRegistry{known: map[string]bool{"a": true, "b": true}}, runner, nil)

	reports, err := svc.Run(context.Background(), []sources.Source{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 2 || strings.Join(runner.ran, ",") != "a,b" {
		t.Fatalf("unexpected run order %v reports %+v", runner.ran, reports)
	}
}

func TestServiceRunStopsAtFirstFailure(t *testing.T) {
	runner := &fakeRunner{failOn: "a"}
	svc := NewService(&fakeRegistry{known: map[string]bool{"a": true, "b": true}}, runner, nil)

	reports, err := svc.Run(context.Background(), []sources.Source{{ID: "a"}, {ID: "b"}})
	if err == nil || !strings.Contains(err.Error(), "source a") {
		t.Fatalf("expected error for source a, got %v", err)
	}
	if len(reports) != 0 || len(runner.ran) != 1 {
		t.Fatalf("crawl should stop after the failing source, ran %v", runner.ran)
	}
}

func TestServiceRunResolvesExtractorsBeforeCrawling(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewService(&fakeRegistry{known: map[string]bool{"a": true}}, runner, nil)

	if _, err := svc.Run(context.Background(), []sources.Source{{ID: "a"}, {ID: "missing"}}); err == nil {
		t.Fatalf("expected unresolved extractor error")
	}
	if len(runner.ran) != 0 {
		t.Fatalf("no source should be crawled when configuration is invalid, ran %v", runner.ran)
	}
}

func TestServiceRunStopsLaunchingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &fakeRunner{cancel: cancel}
	svc := NewService(&fakeRegistry{known: map[string]bool{"a": true, "b": true}}, runner, nil)

	reports, err := svc.Run(ctx, []sources.Source{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 1 || len(runner.ran) != 1 {
		t.Fatalf("expected only first source to run, ran %v", runner.ran)
	}
}

func TestServiceRunRejectsEmptySources(t *testing.T) {
	svc := NewService(&fakeRegistry{}, &fakeRunner{}, nil)
	if _, err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error when sources list empty")
	}
}
