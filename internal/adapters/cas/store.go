// Package cas implements the persistent build cache: a content-addressed
// record of completed rule executions.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.RuleCache using a flat JSON file keyed by
// (fingerprint, target).
type Store struct {
	path    string
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewStore creates a RuleCache backed by the file at the given path. A
// missing file starts an empty cache.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    filepath.Clean(path),
		entries: make(map[string]domain.CacheEntry),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read build cache")
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return zerr.Wrap(err, "failed to unmarshal build cache")
	}

	return nil
}

func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal build cache")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create directory for build cache")
	}

	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write build cache")
	}

	return nil
}

// Lookup returns the entry for the key, or nil if absent.
func (s *Store) Lookup(fingerprint, target string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[domain.CacheKey(fingerprint, target)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Record stores the entry. A second record for an already-successful key is
// a no-op; concurrent writers never share a key, so per-key mutation is
// conflict-free by construction.
func (s *Store) Record(entry domain.CacheEntry) error {
	s.mu.Lock()
	if existing, ok := s.entries[entry.Key()]; ok && existing.Status == domain.CacheSuccess {
		s.mu.Unlock()
		return nil
	}
	s.entries[entry.Key()] = entry
	s.mu.Unlock()

	return s.save()
}

// Invalidate removes the entry for the key, if present.
func (s *Store) Invalidate(fingerprint, target string) error {
	key := domain.CacheKey(fingerprint, target)

	s.mu.Lock()
	if _, ok := s.entries[key]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.entries, key)
	s.mu.Unlock()

	return s.save()
}
