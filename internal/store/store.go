// Package store persists package detail lookups in BoltDB so descriptions
// and versions survive restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mholden/brewdeck/internal/domain"
)

var bucketPackages = []byte("packages")

// InfoStore implements domain.InfoCache using BoltDB, with an in-memory
// cache for hot-path reads. With an empty directory it runs memory-only.
type InfoStore struct {
	db *bolt.DB
	mu sync.RWMutex

	cache map[string]domain.Package
}

// NewInfoStore opens (or creates) the cache under dir
func NewInfoStore(dir string) (*InfoStore, error) {
	s := &InfoStore{cache: make(map[string]domain.Package)}
	if dir == "" {
		// Memory-only mode (no persistence)
		return s, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dir, "brewdeck.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPackages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// key is name plus kind: the same name can exist as formula and cask
func key(ref domain.PackageRef) string {
	return ref.Name + "|" + ref.Kind.String()
}

// Get returns the cached package detail, promoting disk hits into memory
func (s *InfoStore) Get(ref domain.PackageRef) (domain.Package, bool) {
	k := key(ref)

	s.mu.RLock()
	pkg, ok := s.cache[k]
	s.mu.RUnlock()
	if ok {
		return pkg, true
	}
	if s.db == nil {
		return domain.Package{}, false
	}

	var raw []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketPackages).Get([]byte(k)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if raw == nil {
		return domain.Package{}, false
	}
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return domain.Package{}, false
	}

	s.mu.Lock()
	s.cache[k] = pkg
	s.mu.Unlock()
	return pkg, true
}

// Put stores a package detail record in memory and on disk
func (s *InfoStore) Put(pkg domain.Package) error {
	k := key(pkg.Ref)

	s.mu.Lock()
	s.cache[k] = pkg
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	raw, err := json.Marshal(pkg)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPackages).Put([]byte(k), raw)
	})
}

// Close releases the underlying database
func (s *InfoStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
