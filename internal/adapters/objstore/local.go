// Package objstore implements the artifact store: a local filesystem
// backend and a MinIO object-storage backend for shared installations.
package objstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
	"go.trai.ch/zerr"
)

// manifestName is the file recorded under each artifact ref. Its presence
// is what makes a ref resolvable.
const manifestName = "manifest.json"

// LocalStore implements ports.ArtifactStore on a local directory tree.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: filepath.Clean(root)}
}

// Exists reports whether the ref's manifest is present.
func (s *LocalStore) Exists(_ context.Context, ref string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, ref, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to stat artifact"), "ref", ref)
	}
	return true, nil
}

// Publish writes the manifest under the ref.
func (s *LocalStore) Publish(_ context.Context, ref string, manifest []byte) error {
	dir := filepath.Join(s.root, ref)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create artifact directory"), "ref", ref)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), manifest, 0o644); err != nil { //nolint:gosec // manifest is not sensitive
		return zerr.With(zerr.Wrap(err, "failed to write artifact manifest"), "ref", ref)
	}
	return nil
}

// Open selects the backend for the given configuration: object storage
// when an endpoint is set, the local tree otherwise.
func Open(cfg domain.ArtifactConfig) (ports.ArtifactStore, error) {
	if cfg.Endpoint != "" {
		return NewMinioStore(cfg)
	}
	return NewLocalStore(cfg.Root), nil
}
