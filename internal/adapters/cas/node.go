package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/buildrules/internal/core/ports"
)

// NodeID is the unique identifier for the rule cache factory Graft node.
// The cache path comes from the loaded configuration, so the node provides
// a factory rather than an opened store.
const NodeID graft.ID = "adapter.rule_cache"

func init() {
	graft.Register(graft.Node[ports.CacheFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.CacheFactory, error) {
			return func(path string) (ports.RuleCache, error) {
				return NewStore(path)
			}, nil
		},
	})
}
