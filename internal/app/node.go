package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/buildrules/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/buildrules/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/buildrules/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/buildrules/internal/adapters/objstore"  //nolint:depguard // Wired in app layer
	"go.trai.ch/buildrules/internal/adapters/spack"     //nolint:depguard // Wired in app layer
	"go.trai.ch/buildrules/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/buildrules/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			telemetry.NodeID,
			cas.NodeID,
			objstore.NodeID,
			spack.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}

	cacheFactory, err := graft.Dep[ports.CacheFactory](ctx)
	if err != nil {
		return nil, err
	}

	storeFactory, err := graft.Dep[ports.ArtifactStoreFactory](ctx)
	if err != nil {
		return nil, err
	}

	workerFactory, err := graft.Dep[ports.WorkerFactory](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, telemetry, cacheFactory, storeFactory, workerFactory), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    application,
		Logger: log,
	}, nil
}
