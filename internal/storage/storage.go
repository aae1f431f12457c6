package storage

import (
	"fmt"
	"slices"
	"strings"
)

// Package storage persists the per-source set of URLs already harvested.

// Store loads and persists the seen-URL set of a source. Sets only grow:
// Persist always receives the full set and replaces the previous one whole.
type Store interface {
	Load(source string) (URLSet, error)
	Persist(source string, urls URLSet) error
	Close() error
}

// Options locates the backing data of concrete store implementations.
type Options struct {
	// Dir holds one seen-URL file per source (file backend).
	Dir string
	// Path is the database file (bbolt backend).
	Path string
}

const (
	TypeFile  = "file"
	TypeBBolt = "bbolt"
)

// NewStore creates the configured storage backend.
func NewStore(typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "none", "disabled":
		return noopStore{}, nil
	case "", TypeFile:
		if strings.TrimSpace(opts.Dir) == "" {
			return nil, fmt.Errorf("file storage requires a directory")
		}
		return newFileStore(opts.Dir)
	case TypeBBolt:
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.Path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// URLSet is an in-memory set of URLs.
type URLSet map[string]struct{}

// NewURLSet builds a set holding urls.
func NewURLSet(urls ...string) URLSet {
	s := make(URLSet, len(urls))
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add inserts u; blank values are ignored and repeated adds are no-ops.
func (s URLSet) Add(u string) {
	u = strings.TrimSpace(u)
	if u == "" {
		return
	}
	s[u] = struct{}{}
}

// Has reports whether u is in the set.
func (s URLSet) Has(u string) bool {
	_, ok := s[u]
	return ok
}

// Len returns the number of URLs held.
func (s URLSet) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s URLSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// storeKey is the lowercase per-source name used for files and buckets.
func storeKey(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}

type noopStore struct{}

func (noopStore) Close() error                 { return nil }
func (noopStore) Load(string) (URLSet, error)  { return URLSet{}, nil }
func (noopStore) Persist(string, URLSet) error { return nil }
