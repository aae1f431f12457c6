package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/samvad-hq/review-harvester/internal/output"
	"github.com/samvad-hq/review-harvester/internal/storage"
	"github.com/samvad-hq/review-harvester/pkg/browser"
	"github.com/samvad-hq/review-harvester/pkg/sources"
)

const mockListing = `<html><body>
<a class="block" cmp-ltrk="archive-posts" href="/reviews/alpha">Alpha</a>
<a class="block" cmp-ltrk="archive-posts" href="/author/jane">Jane</a>
<a class="block" cmp-ltrk="archive-posts" href="/reviews/beta">Beta</a>
<a class="block" cmp-ltrk="archive-posts" href="/reviews/broken">Broken</a>
</body></html>`

func mockReview(title, body string) string {
	return `<html><head><meta property="article:published_time" content="2025-11-01T08:00:00Z"></head>
<body><h1>` + title + `</h1><div class="entry-content"><p>` + body + `</p></div></body></html>`
}

// mockSite serves a Kotaku-shaped archive and counts article hits.
func mockSite(t *testing.T) (string, func(string) int) {
	t.Helper()
	var mu sync.Mutex
	hits := map[string]int{}
	mux := http.NewServeMux()
	mux.HandleFunc("/reviews", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(mockListing))
	})
	mux.HandleFunc("/reviews/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/reviews/alpha":
			w.Write([]byte(mockReview("Alpha Review", "Good game.")))
		case "/reviews/beta":
			w.Write([]byte(mockReview("Beta Review", "Bad game.")))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL, func(path string) int {
		mu.Lock()
		defer mu.Unlock()
		return hits[path]
	}
}

func TestHarvestAgainstMockSiteIsIdempotent(t *testing.T) {
	base, hits := mockSite(t)
	src := sources.Source{
		ID:        "kotaku",
		Name:      "Kotaku-Reviews",
		Type:      sources.TypeKotakuReviews,
		StartURLs: []string{base + "/reviews"},
		BaseURL:   base,
	}

	store, err := storage.NewStore(storage.TypeFile, storage.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	sink, err := output.NewSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	orch := NewOrchestrator(browser.NewStaticLauncher(nil, browser.Options{}), store, sink, Options{})
	svc := NewService(sources.DefaultExtractorRegistry(), orch, nil)

	first, err := svc.Run(context.Background(), []sources.Source{src})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first[0].New != 2 || first[0].Skipped != 1 {
		t.Fatalf("unexpected first report %+v", first[0])
	}
	if hits("/author/jane") != 0 {
		t.Fatalf("author page should be filtered")
	}

	rows := readRows(t, first[0].OutputPath)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][3] != base+"/reviews/alpha" || rows[1][5] != "Good game." || rows[1][1] != "Kotaku-Reviews" {
		t.Fatalf("unexpected first row %#v", rows[1])
	}

	second, err := svc.Run(context.Background(), []sources.Source{src})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second[0].New != 0 || second[0].Duplicates != 2 {
		t.Fatalf("second run should collect nothing new: %+v", second[0])
	}
	if hits("/reviews/alpha") != 1 || hits("/reviews/beta") != 1 {
		t.Fatalf("seen articles were fetched again: alpha=%d beta=%d", hits("/reviews/alpha"), hits("/reviews/beta"))
	}
	if hits("/reviews/broken") != 2 {
		t.Fatalf("failed article should be retried on the next run, hits=%d", hits("/reviews/broken"))
	}
	if got := len(readRows(t, second[0].OutputPath)); got != 3 {
		t.Fatalf("output grew on idempotent run: %d rows", got)
	}
}
