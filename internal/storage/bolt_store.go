package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const seenBucketPrefix = "seen:"

// boltStore implements a Store backed by BoltDB with one bucket per source.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Load returns every URL recorded for source.
func (b *boltStore) Load(source string) (URLSet, error) {
	urls := URLSet{}
	if b == nil || b.db == nil {
		return urls, nil
	}

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(source))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			urls.Add(string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load seen urls for %s: %w", source, err)
	}
	return urls, nil
}

// Persist writes the full set in a single transaction. Keys already present
// are left alone; nothing is deleted.
func (b *boltStore) Persist(source string, urls URLSet) error {
	if b == nil || b.db == nil {
		return nil
	}

	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName(source))
		if err != nil {
			return err
		}
		for _, u := range urls.Sorted() {
			key := []byte(u)
			if bucket.Get(key) != nil {
				continue
			}
			if err := bucket.Put(key, stamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist seen urls for %s: %w", source, err)
	}
	return nil
}

func bucketName(source string) []byte {
	return []byte(seenBucketPrefix + storeKey(source))
}
