package ports

import (
	"context"

	"go.trai.ch/buildrules/internal/core/domain"
)

// ArtifactStore resolves and publishes build artifacts by reference. The
// engine treats refs as opaque locations following the build tool's
// install-path convention.
//
//go:generate go run go.uber.org/mock/mockgen -source=artifact.go -destination=mocks/mock_artifact.go -package=mocks
type ArtifactStore interface {
	// Exists reports whether the artifact reference still resolves.
	Exists(ctx context.Context, ref string) (bool, error)

	// Publish records the manifest for a completed rule under the ref.
	Publish(ctx context.Context, ref string, manifest []byte) error
}

// ArtifactStoreFactory opens the artifact store selected by the
// invocation's configuration.
type ArtifactStoreFactory func(cfg domain.ArtifactConfig) (ArtifactStore, error)
