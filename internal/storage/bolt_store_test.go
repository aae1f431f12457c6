package storage

import (
	"path/filepath"
	"testing"
)

func TestBoltStorePersistsPerSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta", "seen.db")

	storeRaw, err := openBolt(path)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	empty, err := store.Load("Kotaku-Reviews")
	if err != nil || empty.Len() != 0 {
		t.Fatalf("expected empty set, got %v err=%v", empty, err)
	}

	if err := store.Persist("Kotaku-Reviews", NewURLSet("b", "a")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := store.Persist("IGN-Reviews", NewURLSet("z")); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := store.Load("kotaku-reviews")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sorted := got.Sorted(); len(sorted) != 2 || sorted[0] != "a" || sorted[1] != "b" {
		t.Fatalf("unexpected kotaku set %v", sorted)
	}
	if got.Has("z") {
		t.Fatalf("sources leaked into each other")
	}
}

func TestBoltStoreNeverForgets(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer storeRaw.Close()

	if err := storeRaw.Persist("src", NewURLSet("a", "b")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	// A smaller set must not shrink what is stored.
	if err := storeRaw.Persist("src", NewURLSet("c")); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := storeRaw.Load("src")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 urls, got %v", got.Sorted())
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Persist("x", NewURLSet("u")); err != nil {
		t.Fatalf("noop store Persist: %v", err)
	}
	got, err := store.Load("x")
	if err != nil || got.Len() != 0 {
		t.Fatalf("noop store Load = %v, %v", got, err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", Options{Dir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore(TypeBBolt, Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
}
