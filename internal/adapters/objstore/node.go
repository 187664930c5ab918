package objstore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/buildrules/internal/core/ports"
)

// NodeID is the unique identifier for the artifact store factory Graft node.
const NodeID graft.ID = "adapter.artifact_store"

func init() {
	graft.Register(graft.Node[ports.ArtifactStoreFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ArtifactStoreFactory, error) {
			return Open, nil
		},
	})
}
