package crawler

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/samvad-hq/review-harvester/internal/storage"
	"github.com/samvad-hq/review-harvester/pkg/browser"
	"github.com/samvad-hq/review-harvester/pkg/publishers"
	"github.com/samvad-hq/review-harvester/pkg/sources"
)

// fakeLauncher hands out pages that record navigations and closes.
type fakeLauncher struct {
	mu          sync.Mutex
	navErr      map[string]error
	openErr     error
	navigations []string
	pages       []*fakePage
	closed      bool
}

func (l *fakeLauncher) Open(context.Context) (browser.Browser, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	return &fakeBrowser{l: l}, nil
}

func (l *fakeLauncher) navigated(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range l.navigations {
		if n == url {
			return true
		}
	}
	return false
}

func (l *fakeLauncher) openPages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	open := 0
	for _, p := range l.pages {
		if !p.closed {
			open++
		}
	}
	return open
}

type fakeBrowser struct {
	l *fakeLauncher
}

func (b *fakeBrowser) NewPage(context.Context) (browser.Page, error) {
	b.l.mu.Lock()
	defer b.l.mu.Unlock()
	p := &fakePage{l: b.l}
	b.l.pages = append(b.l.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.l.mu.Lock()
	b.l.closed = true
	b.l.mu.Unlock()
	return nil
}

type fakePage struct {
	l      *fakeLauncher
	url    string
	closed bool
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.l.mu.Lock()
	defer p.l.mu.Unlock()
	p.l.navigations = append(p.l.navigations, url)
	if err := p.l.navErr[url]; err != nil {
		return err
	}
	p.url = url
	return nil
}

func (p *fakePage) URL() string                                             { return p.url }
func (p *fakePage) Count(context.Context, string) (int, error)              { return 0, nil }
func (p *fakePage) Attrs(context.Context, string, string) ([]string, error) { return nil, nil }
func (p *fakePage) Text(context.Context, string) (string, error)            { return "", nil }
func (p *fakePage) Texts(context.Context, string) ([]string, error)         { return nil, nil }
func (p *fakePage) HTML(context.Context) (string, error)                    { return "", nil }
func (p *fakePage) Scroll(context.Context) error                            { return nil }
func (p *fakePage) Wait(context.Context, time.Duration) error               { return nil }

func (p *fakePage) WaitSelector(context.Context, string, time.Duration) error { return nil }

func (p *fakePage) Close() error {
	p.l.mu.Lock()
	p.closed = true
	p.l.mu.Unlock()
	return nil
}

type articleOutcome struct {
	result sources.Result
	err    error
	// onExtract runs before the outcome is returned.
	onExtract func()
}

// fakeExtractor serves links per listing URL and outcomes per article URL.
type fakeExtractor struct {
	links    map[string][]string
	articles map[string]articleOutcome
	base     string
}

func (e *fakeExtractor) ExtractLinks(_ context.Context, page browser.Page) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range e.links[page.URL()] {
			if !yield(l) {
				return
			}
		}
	}
}

func (e *fakeExtractor) ExtractArticle(_ context.Context, _ browser.Page, url string) (sources.Result, error) {
	out, ok := e.articles[url]
	if !ok {
		return sources.Skip("no fixture for %s", url), nil
	}
	if out.onExtract != nil {
		out.onExtract()
	}
	return out.result, out.err
}

func (e *fakeExtractor) NormalizeURL(raw string) string {
	if e.base != "" && len(raw) > 0 && raw[0] == '/' {
		return e.base + raw
	}
	return raw
}

// fakeStore is an in-memory SeenStore.
type fakeStore struct {
	sets       map[string]storage.URLSet
	persisted  int
	persistErr error
}

func (s *fakeStore) Load(source string) (storage.URLSet, error) {
	out := storage.NewURLSet()
	for u := range s.sets[source] {
		out.Add(u)
	}
	return out, nil
}

func (s *fakeStore) Persist(source string, urls storage.URLSet) error {
	if s.persistErr != nil {
		return s.persistErr
	}
	if s.sets == nil {
		s.sets = make(map[string]storage.URLSet)
	}
	s.sets[source] = urls
	s.persisted++
	return nil
}

// fakePublisher records events and fails for one article id.
type fakePublisher struct {
	events  []publishers.Event
	failFor string
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if evt.Article.ID == f.failFor {
		return 0, errors.New("downstream unavailable")
	}
	return 1, nil
}
