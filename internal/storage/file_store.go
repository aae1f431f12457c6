package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

const seenFileSuffix = "_seen_urls.txt"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fileStore keeps one sorted, newline-delimited URL file per source.
type fileStore struct {
	dir string
}

func newFileStore(dir string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

// PathFor returns the seen-URL file of source.
func (f *fileStore) PathFor(source string) string {
	return filepath.Join(f.dir, storeKey(source)+seenFileSuffix)
}

// Load reads the seen-URL file; a missing file yields an empty set.
func (f *fileStore) Load(source string) (URLSet, error) {
	raw, err := os.ReadFile(f.PathFor(source))
	if errors.Is(err, fs.ErrNotExist) {
		return URLSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seen urls for %s: %w", source, err)
	}

	raw = bytes.TrimPrefix(raw, utf8BOM)
	urls := URLSet{}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		urls.Add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan seen urls for %s: %w", source, err)
	}
	return urls, nil
}

// Persist rewrites the whole file through a temp file + rename, so readers see
// either the previous list or the new one.
func (f *fileStore) Persist(source string, urls URLSet) error {
	var buf strings.Builder
	for _, u := range urls.Sorted() {
		buf.WriteString(u)
		buf.WriteByte('\n')
	}

	if err := renameio.WriteFile(f.PathFor(source), []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write seen urls for %s: %w", source, err)
	}
	return nil
}

func (f *fileStore) Close() error { return nil }
