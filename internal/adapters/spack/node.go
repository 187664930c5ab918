package spack

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/buildrules/internal/adapters/logger" //nolint:depguard // Wired in adapter wiring
	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
)

// NodeID is the unique identifier for the worker factory Graft node.
const NodeID graft.ID = "adapter.worker_factory"

func init() {
	graft.Register(graft.Node[ports.WorkerFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
		},
		Run: func(ctx context.Context) (ports.WorkerFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(target domain.Target, tool string) ports.Worker {
				return NewWorker(target, tool, log)
			}, nil
		},
	})
}
