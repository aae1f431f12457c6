package sources

import (
	"fmt"
	"strings"
	"sync"
)

// Factory builds the extractor for one configured source.
type Factory func(src Source) (Extractor, error)

const (
	TypeKotakuReviews = "kotaku_reviews"
	TypeIGNReviews    = "ign_reviews"
	TypeCSS           = "css"
	TypeFeed          = "feed"
)

// FactoryRegistry implements ExtractorRegistry over extractor factories.
type FactoryRegistry struct {
	byID   map[string]Factory
	byType map[string]Factory
	mu     sync.RWMutex
}

// NewExtractorRegistry builds a registry resolving factories by source type.
func NewExtractorRegistry(typeFactories map[string]Factory) *FactoryRegistry {
	reg := &FactoryRegistry{
		byID:   make(map[string]Factory),
		byType: make(map[string]Factory),
	}
	for typ, f := range typeFactories {
		reg.RegisterType(typ, f)
	}
	return reg
}

// RegisterID binds a factory to one source id; it wins over type lookups.
func (r *FactoryRegistry) RegisterID(id string, f Factory) {
	key := strings.ToLower(strings.TrimSpace(id))
	if f == nil || key == "" {
		return
	}
	r.mu.Lock()
	r.byID[key] = f
	r.mu.Unlock()
}

// RegisterType binds a factory to a source type.
func (r *FactoryRegistry) RegisterType(typ string, f Factory) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if f == nil || key == "" {
		return
	}
	r.mu.Lock()
	r.byType[key] = f
	r.mu.Unlock()
}

// ExtractorFor selects the factory for src based on its id or type and builds
// the extractor.
func (r *FactoryRegistry) ExtractorFor(src Source) (Extractor, error) {
	if r == nil {
		return nil, fmt.Errorf("extractor registry is nil")
	}
	if strings.TrimSpace(src.ID) == "" {
		return nil, fmt.Errorf("source id is empty")
	}

	r.mu.RLock()
	f, ok := r.byID[strings.ToLower(strings.TrimSpace(src.ID))]
	if !ok {
		f, ok = r.byType[strings.ToLower(strings.TrimSpace(src.Type))]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no extractor registered for source %q (type %q)", src.ID, src.Type)
	}
	ext, err := f(src)
	if err != nil {
		return nil, fmt.Errorf("build extractor for source %q: %w", src.ID, err)
	}
	return ext, nil
}

// DefaultExtractorRegistry wires up the known extractor types.
func DefaultExtractorRegistry() *FactoryRegistry {
	return NewExtractorRegistry(map[string]Factory{
		TypeKotakuReviews: NewKotakuExtractor,
		TypeIGNReviews:    NewIGNExtractor,
		TypeCSS:           NewCSSExtractor,
		TypeFeed:          NewFeedExtractor,
	})
}
