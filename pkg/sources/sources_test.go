package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeFile(t, "sources.yaml", `
sources:
  - id: kotaku
    name: Kotaku-Reviews
    type: kotaku_reviews
    start_urls:
      - " https://kotaku.com/reviews "
    base_url: https://kotaku.com/
    max_scrolls: 500
  - id: ign
    type: IGN_Reviews
    start_urls: [https://www.ign.com/reviews/games]
    enabled: false
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if got := len(reg.All()); got != 2 {
		t.Fatalf("expected 2 sources, got %d", got)
	}

	k, ok := reg.ByID("KOTAKU")
	if !ok {
		t.Fatalf("expected case-insensitive lookup to find kotaku")
	}
	if k.StartURLs[0] != "https://kotaku.com/reviews" {
		t.Fatalf("start url not trimmed: %q", k.StartURLs[0])
	}
	if k.BaseURL != "https://kotaku.com" {
		t.Fatalf("unexpected base_url: %s", k.BaseURL)
	}
	if k.MaxScrolls != maxScrollsLimit {
		t.Fatalf("expected max_scrolls clamped to %d, got %d", maxScrollsLimit, k.MaxScrolls)
	}
	if k.ScrollWait() != time.Duration(defaultScrollWaitMs)*time.Millisecond {
		t.Fatalf("unexpected scroll wait %v", k.ScrollWait())
	}

	i, _ := reg.ByID("ign")
	if i.Name != "ign" || i.Type != TypeIGNReviews {
		t.Fatalf("unexpected defaults: name=%q type=%q", i.Name, i.Type)
	}

	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "kotaku" {
		t.Fatalf("unexpected enabled sources %#v", enabled)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeFile(t, "sources.json", `{"sources":[{"id":"blog","type":"css","start_urls":["https://blog.example/reviews"],"config":{"link_selector":"a.post","body_selector":"article p"}}]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	src, ok := reg.ByID("blog")
	if !ok {
		t.Fatalf("expected blog source")
	}
	if ConfigString(src, ConfigLinkSelectorKey, "") != "a.post" {
		t.Fatalf("config not decoded: %#v", src.Config)
	}
}

func TestLoadRegistryRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
sources:
  - {id: dup, type: css, start_urls: [https://a.example]}
  - {id: DUP, type: css, start_urls: [https://b.example]}
`,
		"missing start urls": `
sources:
  - {id: a, type: css}
`,
		"missing type": `
sources:
  - {id: a, start_urls: [https://a.example]}
`,
		"empty": `sources: []`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadRegistry(writeFile(t, "sources.yaml", content)); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestLoadRegistryReportsDecodeError(t *testing.T) {
	_, err := LoadRegistry(writeFile(t, "sources.yaml", "sources:\n  - id: a\n    type: [css\n"))
	if err == nil || !strings.Contains(err.Error(), "yaml: line") {
		t.Fatalf("expected yaml error with line number, got %v", err)
	}

	if _, err := ParseRegistry([]byte("sources: []"), ".toml"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
}

func TestRegistrySelect(t *testing.T) {
	reg, err := ParseRegistry([]byte(`
sources:
  - {id: a, type: css, start_urls: [https://a.example]}
  - {id: b, type: css, start_urls: [https://b.example]}
`), ".yaml")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}

	all, err := reg.Select(nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("Select(nil) = %d, %v", len(all), err)
	}
	one, err := reg.Select([]string{"b"})
	if err != nil || len(one) != 1 || one[0].ID != "b" {
		t.Fatalf("Select(b) = %#v, %v", one, err)
	}
	if _, err := reg.Select([]string{"zzz"}); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestConfigHelpers(t *testing.T) {
	src := Source{Config: map[string]any{
		"s":     "  v  ",
		"list":  []any{" /author/ ", "", "/tag/"},
		"csv":   "a, b,,c",
		"n":     1200,
		"f":     float64(7),
		"bogus": true,
	}}

	if got := ConfigString(src, "s", "x"); got != "v" {
		t.Fatalf("ConfigString = %q", got)
	}
	if got := ConfigString(src, "missing", "x"); got != "x" {
		t.Fatalf("ConfigString fallback = %q", got)
	}
	if got := ConfigStrings(src, "list"); len(got) != 2 || got[0] != "/author/" {
		t.Fatalf("ConfigStrings(list) = %#v", got)
	}
	if got := ConfigStrings(src, "csv"); len(got) != 3 || got[2] != "c" {
		t.Fatalf("ConfigStrings(csv) = %#v", got)
	}
	if ConfigInt(src, "n", 0) != 1200 || ConfigInt(src, "f", 0) != 7 || ConfigInt(src, "bogus", 3) != 3 {
		t.Fatalf("ConfigInt returned unexpected values")
	}
}

func TestExtractorRegistryResolution(t *testing.T) {
	reg := DefaultExtractorRegistry()

	if _, err := reg.ExtractorFor(Source{ID: "k", Name: "Kotaku", Type: TypeKotakuReviews}); err != nil {
		t.Fatalf("kotaku: %v", err)
	}
	if _, err := reg.ExtractorFor(Source{ID: "x", Type: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := reg.ExtractorFor(Source{ID: "c", Type: TypeCSS}); err == nil {
		t.Fatalf("expected css extractor to require selectors")
	}

	var called bool
	reg.RegisterID("special", func(src Source) (Extractor, error) {
		called = true
		return NewIGNExtractor(src)
	})
	if _, err := reg.ExtractorFor(Source{ID: "Special", Type: TypeKotakuReviews}); err != nil || !called {
		t.Fatalf("expected id factory to win, called=%v err=%v", called, err)
	}
}
