// Package dispatch maps plan rules onto per-target build workers, each
// with its own bounded concurrency slot pool and health state.
package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Dispatcher owns one worker handle and slot pool per named target.
type Dispatcher struct {
	logger  ports.Logger
	targets map[string]*targetState
}

type targetState struct {
	target domain.Target
	worker ports.Worker
	slots  *semaphore.Weighted

	mu      sync.RWMutex
	healthy bool
}

// New creates a Dispatcher for the declared targets, building one worker
// per target via the factory.
func New(
	targets []domain.Target,
	tool string,
	factory ports.WorkerFactory,
	logger ports.Logger,
) *Dispatcher {
	d := &Dispatcher{
		logger:  logger,
		targets: make(map[string]*targetState, len(targets)),
	}
	for _, t := range targets {
		d.targets[t.Name.String()] = &targetState{
			target:  t,
			worker:  factory(t, tool),
			slots:   semaphore.NewWeighted(int64(t.Concurrency)),
			healthy: true,
		}
	}
	return d
}

// Probe healthchecks every target concurrently. Unreachable targets are
// marked unhealthy so their rules fail fast; the invocation proceeds for
// the remaining targets.
func (d *Dispatcher) Probe(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for name, ts := range d.targets {
		g.Go(func() error {
			if err := ts.worker.Healthcheck(ctx); err != nil {
				ts.setHealthy(false)
				d.logger.Warn("target worker unreachable", "target", name, "error", err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Healthy reports the target's current health state.
func (d *Dispatcher) Healthy(target string) bool {
	ts, ok := d.targets[target]
	if !ok {
		return false
	}
	return ts.isHealthy()
}

// Submit hands the rule to its target's worker once a concurrency slot
// frees up, returning a handle for awaiting completion. Rules bound to an
// unhealthy target fail immediately with the target-unavailable error.
func (d *Dispatcher) Submit(
	ctx context.Context,
	rule *domain.BuildRule,
	stageDir string,
	stdout, stderr io.Writer,
) *Handle {
	h := &Handle{done: make(chan outcome, 1)}

	ts, ok := d.targets[rule.Target.String()]
	if !ok {
		h.complete("", zerr.With(
			zerr.Wrap(domain.ErrTargetUnavailable, "undeclared target"),
			"target", rule.Target.String(),
		))
		return h
	}

	go func() {
		if !ts.isHealthy() {
			h.complete("", zerr.With(
				zerr.Wrap(domain.ErrTargetUnavailable, "target marked unhealthy"),
				"target", rule.Target.String(),
			))
			return
		}

		if err := ts.slots.Acquire(ctx, 1); err != nil {
			h.complete("", zerr.Wrap(domain.ErrInvocationCancelled, "abandoned while waiting for a slot"))
			return
		}
		defer ts.slots.Release(1)

		ref, err := ts.worker.Run(ctx, rule, stageDir, stdout, stderr)
		if err != nil && errors.Is(err, domain.ErrTargetUnavailable) {
			ts.setHealthy(false)
			d.logger.Warn("marking target unhealthy", "target", rule.Target.String())
		}
		h.complete(ref, err)
	}()

	return h
}

func (ts *targetState) isHealthy() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.healthy
}

func (ts *targetState) setHealthy(v bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.healthy = v
}

type outcome struct {
	artifactRef string
	err         error
}

// Handle awaits the completion of one submitted rule.
type Handle struct {
	done chan outcome
}

func (h *Handle) complete(ref string, err error) {
	h.done <- outcome{artifactRef: ref, err: err}
}

// Await blocks until the rule finishes or the context is cancelled.
func (h *Handle) Await(ctx context.Context) (string, error) {
	select {
	case out := <-h.done:
		return out.artifactRef, out.err
	case <-ctx.Done():
		return "", zerr.Wrap(domain.ErrInvocationCancelled, "abandoned while awaiting completion")
	}
}
