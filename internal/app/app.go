// Package app implements the application layer for buildrules.
package app

import (
	"context"
	"io"

	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
	"go.trai.ch/buildrules/internal/engine/dispatch"
	"go.trai.ch/buildrules/internal/engine/plan"
	"go.trai.ch/buildrules/internal/engine/scheduler"
	"go.trai.ch/buildrules/internal/ui/describe"
	"go.trai.ch/buildrules/internal/ui/report"
	"go.trai.ch/zerr"
)

// App represents the main application logic. Cache, artifact store and
// dispatcher are constructed per invocation from the loaded configuration,
// so the App holds their factories rather than instances.
type App struct {
	configLoader  ports.ConfigLoader
	logger        ports.Logger
	telemetry     ports.Telemetry
	cacheFactory  ports.CacheFactory
	storeFactory  ports.ArtifactStoreFactory
	workerFactory ports.WorkerFactory
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	telemetry ports.Telemetry,
	cacheFactory ports.CacheFactory,
	storeFactory ports.ArtifactStoreFactory,
	workerFactory ports.WorkerFactory,
) *App {
	return &App{
		configLoader:  loader,
		logger:        log,
		telemetry:     telemetry,
		cacheFactory:  cacheFactory,
		storeFactory:  storeFactory,
		workerFactory: workerFactory,
	}
}

// Describe resolves the plan for the configuration in confDir and renders
// it to out. Strictly read-only: no cache mutation, no worker contact.
func (a *App) Describe(ctx context.Context, confDir string, out io.Writer) error {
	inv, err := a.prepare(confDir)
	if err != nil {
		return err
	}

	p, err := inv.builder.Preview(ctx, inv.cfg.Graph)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve build plan")
	}

	return describe.NewRenderer(out).Render(p)
}

// Build resolves the plan and executes it against the configured targets,
// rendering the outcome table to out. Returns an error wrapping
// domain.ErrBuildExecutionFailed when any rule terminally failed.
func (a *App) Build(ctx context.Context, confDir string, out io.Writer) error {
	inv, err := a.prepare(confDir)
	if err != nil {
		return err
	}

	p, err := inv.builder.Build(ctx, inv.cfg.Graph)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve build plan")
	}

	dispatcher := dispatch.New(inv.cfg.Targets, inv.cfg.Tool, a.workerFactory, a.logger)
	if p.ExecuteCount() > 0 {
		dispatcher.Probe(ctx)
	}

	sched := scheduler.New(dispatcher, inv.cache, inv.store, a.telemetry, a.logger, scheduler.Options{
		Retries:   inv.cfg.Retries,
		StageRoot: inv.cfg.StageRoot,
	})

	rep, runErr := sched.Run(ctx, p)
	if closeErr := a.telemetry.Close(); closeErr != nil {
		a.logger.Warn("failed to close telemetry", "error", closeErr.Error())
	}

	if rep != nil {
		if err := report.NewRenderer(out).Render(rep); err != nil {
			return err
		}
	}

	return runErr
}

// invocation bundles the per-invocation components derived from one loaded
// configuration.
type invocation struct {
	cfg     *domain.Config
	cache   ports.RuleCache
	store   ports.ArtifactStore
	builder *plan.Builder
}

func (a *App) prepare(confDir string) (*invocation, error) {
	cfg, err := a.configLoader.Load(confDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	cache, err := a.cacheFactory(cfg.CachePath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open build cache")
	}
	store, err := a.storeFactory(cfg.Artifacts)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open artifact store")
	}

	return &invocation{
		cfg:     cfg,
		cache:   cache,
		store:   store,
		builder: plan.NewBuilder(cache, store),
	}, nil
}
