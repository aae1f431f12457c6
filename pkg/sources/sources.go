package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package sources contains the harvested source configs (YAML/JSON) and the
// per-site extractors.

const (
	defaultScrollWaitMs = 1500
	maxScrollsLimit     = 200
)

// Source is one site to harvest.
type Source struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// Type selects the extractor when no extractor is registered for ID.
	Type      string   `json:"type" yaml:"type"`
	StartURLs []string `json:"start_urls" yaml:"start_urls"`
	BaseURL   string   `json:"base_url" yaml:"base_url"`
	// MaxScrolls bounds the scroll-and-wait loop on listing pages.
	MaxScrolls   int            `json:"max_scrolls" yaml:"max_scrolls"`
	ScrollWaitMs int            `json:"scroll_wait_ms" yaml:"scroll_wait_ms"`
	Enabled      *bool          `json:"enabled" yaml:"enabled"`
	Config       map[string]any `json:"config" yaml:"config"`
}

// Registry materializes source definitions loaded from a config file.
type Registry struct {
	sources []Source
	idx     map[string]Source
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry decodes and validates registry content; ext picks the decoder
// ("" tries every known format).
func ParseRegistry(data []byte, ext string) (*Registry, error) {
	file, err := parseRegistryFile(data, ext)
	if err != nil {
		return nil, err
	}
	if len(file.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]Source, 0, len(file.Sources)),
		idx:     make(map[string]Source, len(file.Sources)),
	}
	for i := range file.Sources {
		src := sanitizeSource(file.Sources[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		key := strings.ToLower(src.ID)
		if _, exists := reg.idx[key]; exists {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		reg.sources = append(reg.sources, src)
		reg.idx[key] = src
	}
	return reg, nil
}

type unmarshalFn func([]byte, any) error

func parseRegistryFile(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file registryFile
		err := d.fn(data, &file)
		if err == nil {
			return file, nil
		}
		errs = append(errs, fmt.Errorf("decode %s sources: %w", d.name, err))
	}
	if len(errs) == 0 {
		return registryFile{}, fmt.Errorf("unsupported sources file extension %q", ext)
	}

	return registryFile{}, fmt.Errorf("sources file format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")

	urls := make([]string, 0, len(s.StartURLs))
	for _, u := range s.StartURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	s.StartURLs = urls

	if s.Name == "" {
		s.Name = s.ID
	}
	if s.MaxScrolls < 0 {
		s.MaxScrolls = 0
	}
	if s.MaxScrolls > maxScrollsLimit {
		s.MaxScrolls = maxScrollsLimit
	}
	if s.ScrollWaitMs <= 0 {
		s.ScrollWaitMs = defaultScrollWaitMs
	}
	if s.Enabled == nil {
		def := true
		s.Enabled = &def
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Type == "" {
		return fmt.Errorf("type is required for source %q", s.ID)
	}
	if len(s.StartURLs) == 0 {
		return fmt.Errorf("start_urls is required for source %q", s.ID)
	}
	return nil
}

// ByID returns the source with the given id (case-insensitive).
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	src, ok := r.idx[strings.ToLower(strings.TrimSpace(id))]
	return src, ok
}

// All returns every configured source in file order.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Enabled returns the enabled sources in file order.
func (r *Registry) Enabled() []Source {
	all := r.All()
	out := make([]Source, 0, len(all))
	for _, s := range all {
		if s.EnabledValue() {
			out = append(out, s)
		}
	}
	return out
}

// Select returns the sources named by ids, or every enabled source when ids
// is empty. Unknown ids are an error.
func (r *Registry) Select(ids []string) ([]Source, error) {
	if len(ids) == 0 {
		return r.Enabled(), nil
	}
	out := make([]Source, 0, len(ids))
	for _, id := range ids {
		src, ok := r.ByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", id)
		}
		out = append(out, src)
	}
	return out, nil
}

// EnabledValue returns the enabled flag defaulting to true.
func (s Source) EnabledValue() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// ScrollWait returns the pause after each listing scroll.
func (s Source) ScrollWait() time.Duration {
	if s.ScrollWaitMs <= 0 {
		return time.Duration(defaultScrollWaitMs) * time.Millisecond
	}
	return time.Duration(s.ScrollWaitMs) * time.Millisecond
}
