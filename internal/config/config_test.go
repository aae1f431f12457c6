package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BROWSER_ENGINE", "")
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListingTimeout != 30*time.Second || cfg.ArticleTimeout != 15*time.Second {
		t.Fatalf("unexpected timeouts listing=%v article=%v", cfg.ListingTimeout, cfg.ArticleTimeout)
	}
	if cfg.CrawlInterval != 0 {
		t.Fatalf("expected single-pass default, got %v", cfg.CrawlInterval)
	}
	if cfg.StorageType != "file" {
		t.Fatalf("storage_type = %q", cfg.StorageType)
	}
	if cfg.ChatAPIKey != "groq-key" {
		t.Fatalf("expected GROQ_API_KEY fallback, got %q", cfg.ChatAPIKey)
	}
	if cfg.ChatHistoryWindow != 5 {
		t.Fatalf("chat_history_window = %d", cfg.ChatHistoryWindow)
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("BROWSER_ENGINE", "Static")
	t.Setenv("ARTICLE_TIMEOUT_SECONDS", "7")
	t.Setenv("STORAGE_TYPE", "BBOLT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BrowserEngine != "static" {
		t.Fatalf("browser_engine = %q", cfg.BrowserEngine)
	}
	if cfg.ArticleTimeout != 7*time.Second {
		t.Fatalf("article timeout = %v", cfg.ArticleTimeout)
	}
	if cfg.StorageType != "bbolt" {
		t.Fatalf("storage_type = %q", cfg.StorageType)
	}
}

func TestFinalizeRejectsBadValues(t *testing.T) {
	base := Config{
		OutputDir:             "out",
		MetaDir:               "meta",
		BrowserEngine:         "chrome",
		ListingTimeoutSeconds: 30,
		ArticleTimeoutSeconds: 15,
	}

	cases := map[string]func(c *Config){
		"listing timeout": func(c *Config) { c.ListingTimeoutSeconds = 0 },
		"article timeout": func(c *Config) { c.ArticleTimeoutSeconds = -1 },
		"interval":        func(c *Config) { c.CrawlIntervalSeconds = -5 },
		"engine":          func(c *Config) { c.BrowserEngine = "firefox" },
		"output dir":      func(c *Config) { c.OutputDir = " " },
		"history window":  func(c *Config) { c.ChatHistoryWindow = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.finalize(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	ok := base
	if err := ok.finalize(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
