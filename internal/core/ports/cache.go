package ports

import "go.trai.ch/buildrules/internal/core/domain"

// RuleCache is the persistent record of completed rule executions, keyed by
// (fingerprint, target). It is the only state that outlives an invocation.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type RuleCache interface {
	// Lookup returns the entry for the key, or nil if absent.
	Lookup(fingerprint, target string) (*domain.CacheEntry, error)

	// Record stores the entry. Recording over an already-successful key is
	// a no-op, not an error.
	Record(entry domain.CacheEntry) error

	// Invalidate removes the entry for the key, if present.
	Invalidate(fingerprint, target string) error
}

// CacheFactory opens the rule cache persisted at the configured path.
type CacheFactory func(path string) (RuleCache, error)
