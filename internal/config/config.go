package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	OutputDir   string `mapstructure:"output_dir"`
	MetaDir     string `mapstructure:"meta_dir"`
	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	BrowserEngine         string        `mapstructure:"browser_engine"`
	BrowserHeadless       bool          `mapstructure:"browser_headless"`
	UserAgent             string        `mapstructure:"user_agent"`
	ListingTimeoutSeconds int64         `mapstructure:"listing_timeout_seconds"`
	ArticleTimeoutSeconds int64         `mapstructure:"article_timeout_seconds"`
	ListingTimeout        time.Duration `mapstructure:"-"`
	ArticleTimeout        time.Duration `mapstructure:"-"`

	CrawlIntervalSeconds int64         `mapstructure:"crawl_interval"`
	CrawlInterval        time.Duration `mapstructure:"-"`

	ChatAPIKey        string `mapstructure:"chat_api_key"`
	ChatBaseURL       string `mapstructure:"chat_base_url"`
	ChatModel         string `mapstructure:"chat_model"`
	ChatHistoryWindow int    `mapstructure:"chat_history_window"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "review-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("output_dir", "./data/raw")
	v.SetDefault("meta_dir", "./data/meta")
	v.SetDefault("storage_type", "file")
	v.SetDefault("bbolt_path", "./data/meta/seen.db")
	v.SetDefault("browser_engine", "chrome")
	v.SetDefault("browser_headless", true)
	v.SetDefault("user_agent", "")
	v.SetDefault("listing_timeout_seconds", 30)
	v.SetDefault("article_timeout_seconds", 15)
	v.SetDefault("crawl_interval", 0) // seconds; 0 runs a single pass
	v.SetDefault("chat_api_key", "")
	v.SetDefault("chat_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("chat_model", "llama-3.1-8b-instant")
	v.SetDefault("chat_history_window", 5)

	v.AutomaticEnv()
	// GROQ_API_KEY is accepted as an alias for the chat key.
	_ = v.BindEnv("chat_api_key", "CHAT_API_KEY", "GROQ_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize() error {
	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))
	c.BrowserEngine = strings.ToLower(strings.TrimSpace(c.BrowserEngine))

	if c.ListingTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid listing_timeout_seconds (must be positive seconds)")
	}
	if c.ArticleTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid article_timeout_seconds (must be positive seconds)")
	}
	c.ListingTimeout = time.Duration(c.ListingTimeoutSeconds) * time.Second
	c.ArticleTimeout = time.Duration(c.ArticleTimeoutSeconds) * time.Second

	if c.CrawlIntervalSeconds < 0 {
		return fmt.Errorf("invalid crawl_interval (must be zero or positive seconds)")
	}
	c.CrawlInterval = time.Duration(c.CrawlIntervalSeconds) * time.Second

	switch c.BrowserEngine {
	case "chrome", "static":
	default:
		return fmt.Errorf("unsupported browser_engine %q", c.BrowserEngine)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir is required")
	}
	if strings.TrimSpace(c.MetaDir) == "" {
		return fmt.Errorf("meta_dir is required")
	}

	if c.ChatHistoryWindow < 0 {
		return fmt.Errorf("invalid chat_history_window (must be zero or positive)")
	}
	return nil
}

// MarshalLogObject renders the config for structured logs. The chat API key
// is never written; only whether one is set.
func (c *Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("app_name", c.AppName)
	enc.AddString("app_env", c.Env)
	enc.AddString("log_level", c.LogLevel)
	enc.AddString("log_file", c.LogFile)
	enc.AddString("sources_file", c.SourcesFile)
	enc.AddString("publishers_file", c.PublishersFile)
	enc.AddString("output_dir", c.OutputDir)
	enc.AddString("meta_dir", c.MetaDir)
	enc.AddString("storage_type", c.StorageType)
	enc.AddString("bbolt_path", c.BBoltPath)
	enc.AddString("browser_engine", c.BrowserEngine)
	enc.AddBool("browser_headless", c.BrowserHeadless)
	enc.AddString("user_agent", c.UserAgent)
	enc.AddDuration("listing_timeout", c.ListingTimeout)
	enc.AddDuration("article_timeout", c.ArticleTimeout)
	enc.AddDuration("crawl_interval", c.CrawlInterval)
	enc.AddBool("chat_api_key_set", strings.TrimSpace(c.ChatAPIKey) != "")
	enc.AddString("chat_base_url", c.ChatBaseURL)
	enc.AddString("chat_model", c.ChatModel)
	enc.AddInt("chat_history_window", c.ChatHistoryWindow)
	return nil
}
