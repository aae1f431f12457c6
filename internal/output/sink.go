package output

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samvad-hq/review-harvester/internal/domain"
	"github.com/samvad-hq/review-harvester/internal/storage"
)

// Package output appends harvested articles to daily CSV files.

// Header is the fixed column order of every output file.
var Header = []string{"id", "source", "title", "url", "published_at", "text", "created_at"}

const urlColumn = 3

// Sink writes one CSV file per source per UTC day under Dir.
type Sink struct {
	Dir string
}

// NewSink prepares dir for output files.
func NewSink(dir string) (*Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Sink{Dir: dir}, nil
}

// PathFor returns the output file of source for the UTC date of now.
func (s *Sink) PathFor(source string, now time.Time) string {
	name := fmt.Sprintf("%s_%s.csv", strings.ToLower(strings.TrimSpace(source)), now.UTC().Format("2006-01-02"))
	return filepath.Join(s.Dir, name)
}

// EnsureHeader writes the header row when path is absent or empty. Files that
// already hold data are left untouched.
func (s *Sink) EnsureHeader(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat output file: %w", err)
	}
	if info.Size() > 0 {
		return f.Close()
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush header: %w", err)
	}
	return f.Close()
}

// LoadExistingURLs collects the url column of path. A missing file yields an
// empty set.
func (s *Sink) LoadExistingURLs(path string) (storage.URLSet, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.URLSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xEF\xBB\xBF" {
		_, _ = br.Discard(3)
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	urls := storage.URLSet{}
	for first := true; ; first = false {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read output file: %w", err)
		}
		if len(row) <= urlColumn || (first && row[urlColumn] == Header[urlColumn]) {
			continue
		}
		urls.Add(row[urlColumn])
	}
	return urls, nil
}

// Append writes one row per article in order. Empty input touches nothing.
func (s *Sink) Append(path string, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}
	if err := s.EnsureHeader(path); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}

	w := csv.NewWriter(f)
	for _, art := range articles {
		if err := w.Write(row(art)); err != nil {
			f.Close()
			return fmt.Errorf("write article %s: %w", art.URL, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush output file: %w", err)
	}
	return f.Close()
}

func row(a domain.Article) []string {
	return []string{a.ID, a.Source, a.Title, a.URL, a.PublishedAt, a.Text, a.CreatedAt}
}
