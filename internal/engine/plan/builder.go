// Package plan resolves a validated rule graph into a dependency-ordered,
// cache-aware build plan.
package plan

import (
	"context"

	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
)

// Decision is one plan node: a rule plus whether the cache already
// satisfies it. Skipped rules stay in the plan so describe mode can show
// the elision and the engine can still unblock dependents.
type Decision struct {
	Rule domain.BuildRule
	Skip bool

	// Entry is the cache entry backing a skip decision.
	Entry *domain.CacheEntry
}

// Plan is the topologically ordered, cache-aware sequence of rules for one
// invocation. Order ties are broken by (target, spec), so identical inputs
// produce identical plans.
type Plan struct {
	Graph *domain.RuleGraph
	Rules []Decision
}

// SkipCount returns the number of rules elided by the cache.
func (p *Plan) SkipCount() int {
	n := 0
	for _, d := range p.Rules {
		if d.Skip {
			n++
		}
	}
	return n
}

// ExecuteCount returns the number of rules that will be executed.
func (p *Plan) ExecuteCount() int {
	return len(p.Rules) - p.SkipCount()
}

// Builder resolves plans against the build cache and artifact store.
type Builder struct {
	cache     ports.RuleCache
	artifacts ports.ArtifactStore
}

// NewBuilder creates a Builder.
func NewBuilder(cache ports.RuleCache, artifacts ports.ArtifactStore) *Builder {
	return &Builder{
		cache:     cache,
		artifacts: artifacts,
	}
}

// Build resolves the plan for a build invocation. Cache entries whose
// artifact no longer resolves are invalidated and the rule re-scheduled
// instead of failing the invocation.
func (b *Builder) Build(ctx context.Context, graph *domain.RuleGraph) (*Plan, error) {
	return b.resolve(ctx, graph, false)
}

// Preview resolves the plan read-only for describe mode: no cache
// mutation, no dispatcher contact.
func (b *Builder) Preview(ctx context.Context, graph *domain.RuleGraph) (*Plan, error) {
	return b.resolve(ctx, graph, true)
}

func (b *Builder) resolve(ctx context.Context, graph *domain.RuleGraph, readOnly bool) (*Plan, error) {
	if err := graph.Seal(); err != nil {
		return nil, err
	}

	p := &Plan{
		Graph: graph,
		Rules: make([]Decision, 0, graph.Count()),
	}

	for rule := range graph.Walk() {
		decision, err := b.decide(ctx, rule, readOnly)
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, decision)
	}

	return p, nil
}

func (b *Builder) decide(ctx context.Context, rule domain.BuildRule, readOnly bool) (Decision, error) {
	entry, err := b.cache.Lookup(rule.Fingerprint, rule.Target.String())
	if err != nil {
		return Decision{}, err
	}
	if entry == nil || entry.Status != domain.CacheSuccess {
		return Decision{Rule: rule}, nil
	}

	// A hit only counts while its artifact reference still resolves.
	ok, err := b.artifacts.Exists(ctx, entry.ArtifactRef)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Rule: rule, Skip: true, Entry: entry}, nil
	}

	// Artifact deleted externally: drop the stale entry and rebuild. In
	// read-only mode the invalidation is deferred to the next build.
	if !readOnly {
		if err := b.cache.Invalidate(rule.Fingerprint, rule.Target.String()); err != nil {
			return Decision{}, err
		}
	}
	return Decision{Rule: rule}, nil
}
