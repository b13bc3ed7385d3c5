package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"signage-service/ddd/domain/entity"
	"signage-service/ddd/domain/layout"
)

type cached struct {
	data    []byte
	etag    string
	version int64
}

// Store persists catalogs as JSON files under the media root and serves the
// marshaled bytes from memory with a strong content ETag.
type Store struct {
	layout layout.Layout

	mu    sync.RWMutex
	cache map[string]cached
}

func NewStore(lay layout.Layout) *Store {
	return &Store{layout: lay, cache: make(map[string]cached)}
}

// Put writes the catalog to disk and replaces the cached copy atomically
// with respect to readers.
func (s *Store) Put(c *entity.Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog %s: %w", c.Target, err)
	}
	path := s.layout.CatalogPath(c.Target)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog %s: %w", c.Target, err)
	}

	sum := sha256.Sum256(data)
	s.mu.Lock()
	s.cache[c.Target] = cached{data: data, etag: `"` + hex.EncodeToString(sum[:]) + `"`, version: c.Version}
	s.mu.Unlock()
	return nil
}

// Get returns the marshaled catalog and its ETag. A cold cache falls back
// to the on-disk file so restarts keep serving the last published state.
func (s *Store) Get(target string) ([]byte, string, bool) {
	s.mu.RLock()
	c, ok := s.cache[target]
	s.mu.RUnlock()
	if ok {
		return c.data, c.etag, true
	}

	data, err := os.ReadFile(s.layout.CatalogPath(target))
	if err != nil {
		return nil, "", false
	}
	var cat entity.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, "", false
	}
	sum := sha256.Sum256(data)
	c = cached{data: data, etag: `"` + hex.EncodeToString(sum[:]) + `"`, version: cat.Version}
	s.mu.Lock()
	s.cache[target] = c
	s.mu.Unlock()
	return c.data, c.etag, true
}

// Version reports the highest version across cached targets, zero when
// nothing has been published yet.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, c := range s.cache {
		if c.version > max {
			max = c.version
		}
	}
	return max
}
