package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/review-harvester/internal/config"
)

const ignListing = `<html><body>
<a class="item-body" data-cy="item-body" href="/articles/first-review">First</a>
<a class="item-body" data-cy="item-body" href="/articles/second-review">Second</a>
</body></html>`

func ignReview(title, text string) string {
	return `<html><body><h1>` + title + `</h1>
<div data-cy="article-content"><p data-cy="paragraph">` + text + `</p></div></body></html>`
}

func newMockIGN(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reviews/games", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ignListing))
	})
	mux.HandleFunc("/articles/first-review", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ignReview("First", "Solid.")))
	})
	mux.HandleFunc("/articles/second-review", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ignReview("Second", "Meh.")))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	sourcesFile := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: ign
    name: IGN-Reviews
    type: ign_reviews
    start_urls: ["` + base + `/reviews/games"]
    base_url: ` + base + `
  - id: disabled
    type: ign_reviews
    enabled: false
    start_urls: ["` + base + `/nowhere"]
`
	if err := os.WriteFile(sourcesFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources: %v", err)
	}
	return &config.Config{
		SourcesFile:    sourcesFile,
		OutputDir:      filepath.Join(dir, "raw"),
		MetaDir:        filepath.Join(dir, "meta"),
		StorageType:    "file",
		BrowserEngine:  EngineStatic,
		ListingTimeout: 2 * time.Second,
		ArticleTimeout: 2 * time.Second,
	}
}

func TestHarvesterRunOncePrintsCounts(t *testing.T) {
	cfg := testConfig(t, newMockIGN(t))
	var out bytes.Buffer

	h, err := NewHarvester(context.Background(), cfg, nil, Options{Out: &out})
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}
	if len(h.sources) != 1 {
		t.Fatalf("expected only enabled sources, got %d", len(h.sources))
	}
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "ign: 2 new reviews") {
		t.Fatalf("unexpected output %q", out.String())
	}

	seen, err := os.ReadFile(filepath.Join(cfg.MetaDir, "ign_seen_urls.txt"))
	if err != nil {
		t.Fatalf("read seen file: %v", err)
	}
	if strings.Count(string(seen), "\n") != 2 {
		t.Fatalf("unexpected seen file %q", seen)
	}
}

func TestHarvesterSelectsSourcesByID(t *testing.T) {
	cfg := testConfig(t, newMockIGN(t))

	h, err := NewHarvester(context.Background(), cfg, nil, Options{SourceIDs: []string{"disabled"}})
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}
	if len(h.sources) != 1 || h.sources[0].ID != "disabled" {
		t.Fatalf("explicit ids should select disabled sources too: %#v", h.sources)
	}
	h.close()

	if _, err := NewHarvester(context.Background(), cfg, nil, Options{SourceIDs: []string{"nope"}}); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestHarvesterRejectsUnknownEngine(t *testing.T) {
	cfg := testConfig(t, "https://unused.example")
	cfg.BrowserEngine = "lynx"
	if _, err := NewHarvester(context.Background(), cfg, nil, Options{}); err == nil {
		t.Fatalf("expected engine error")
	}
}
