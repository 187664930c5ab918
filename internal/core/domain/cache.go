package domain

import "time"

// CacheStatus is the recorded completion status of a cache entry.
type CacheStatus string

const (
	// CacheSuccess marks a rule execution that completed successfully.
	CacheSuccess CacheStatus = "success"
)

// CacheEntry records one completed rule execution. Entries are keyed by
// (fingerprint, target): identical spec closures on different targets
// produce distinct, target-specific artifacts.
type CacheEntry struct {
	Fingerprint string      `json:"fingerprint"`
	Target      string      `json:"target"`
	Status      CacheStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`

	// ArtifactRef locates the build artifact in the artifact store. An
	// entry whose ref no longer resolves is lazily invalidated on lookup.
	ArtifactRef string `json:"artifact_ref"`
}

// Key returns the composite cache key.
func (e CacheEntry) Key() string {
	return CacheKey(e.Fingerprint, e.Target)
}

// CacheKey builds the composite (fingerprint, target) key.
func CacheKey(fingerprint, target string) string {
	return fingerprint + "@" + target
}
