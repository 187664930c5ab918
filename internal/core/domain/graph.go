package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// RuleGraph is the dependency graph of build rules for one invocation.
// Rules live in a flat map; edges are rule-ID sets, so the structure stays
// acyclic by validation rather than by ownership.
type RuleGraph struct {
	rules      map[RuleID]BuildRule
	dependents map[RuleID][]RuleID
	order      []RuleID
	sealed     bool
}

// NewRuleGraph creates an empty graph.
func NewRuleGraph() *RuleGraph {
	return &RuleGraph{
		rules:      make(map[RuleID]BuildRule),
		dependents: make(map[RuleID][]RuleID),
	}
}

// AddRule adds a rule to the graph. A (spec, target) pair may only be
// declared once.
func (g *RuleGraph) AddRule(r *BuildRule) error {
	id := r.ID()
	if _, exists := g.rules[id]; exists {
		return zerr.With(zerr.Wrap(ErrDuplicateRule, id.String()), "rule", id.String())
	}
	g.rules[id] = *r
	return nil
}

// Get returns the rule with the given ID.
func (g *RuleGraph) Get(id RuleID) (BuildRule, bool) {
	r, ok := g.rules[id]
	return r, ok
}

// Count returns the number of rules in the graph.
func (g *RuleGraph) Count() int {
	return len(g.rules)
}

// Validate checks every dependency reference resolves and that the graph is
// acyclic, then fixes the execution order: a topological sort with ties
// broken by (target, spec) so identical configurations always produce the
// same plan.
func (g *RuleGraph) Validate() error {
	inDegree := make(map[RuleID]int, len(g.rules))
	dependents := make(map[RuleID][]RuleID, len(g.rules))

	for id, rule := range g.rules {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, dep := range rule.Dependencies {
			if _, ok := g.rules[dep]; !ok {
				return zerr.With(
					zerr.With(
						zerr.Wrap(ErrMissingDependency, id.String()+" depends on "+dep.String()),
						"rule", id.String(),
					),
					"dependency", dep.String(),
				)
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []RuleID
	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]RuleID, 0, len(g.rules))
	for len(ready) > 0 {
		slices.SortFunc(ready, compareRuleIDs)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(g.rules) {
		return g.cycleError(inDegree)
	}

	for id, deps := range dependents {
		slices.SortFunc(deps, compareRuleIDs)
		g.dependents[id] = deps
	}
	g.order = order
	return nil
}

// Seal validates the graph and computes every rule's fingerprint bottom-up.
// After Seal the graph and its rules are read-only.
func (g *RuleGraph) Seal() error {
	if g.sealed {
		return nil
	}
	if err := g.Validate(); err != nil {
		return err
	}

	// Walk in execution order so dependency fingerprints exist before they
	// are consumed.
	for _, id := range g.order {
		rule := g.rules[id]
		depFPs := make([]string, len(rule.Dependencies))
		for i, dep := range rule.Dependencies {
			depFPs[i] = g.rules[dep].Fingerprint
		}
		rule.Fingerprint = rule.fingerprint(depFPs)
		g.rules[id] = rule
	}

	g.sealed = true
	return nil
}

// Walk yields rules in the validated execution order.
func (g *RuleGraph) Walk() iter.Seq[BuildRule] {
	return func(yield func(BuildRule) bool) {
		for _, id := range g.order {
			if !yield(g.rules[id]) {
				return
			}
		}
	}
}

// Dependents returns the rules that directly depend on id, in stable order.
func (g *RuleGraph) Dependents(id RuleID) []RuleID {
	return g.dependents[id]
}

// TransitiveDependents returns every rule that directly or indirectly
// depends on id, in stable order. Used to propagate upstream failures.
func (g *RuleGraph) TransitiveDependents(id RuleID) []RuleID {
	seen := make(map[RuleID]bool)
	queue := slices.Clone(g.dependents[id])
	var out []RuleID
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, g.dependents[next]...)
	}
	slices.SortFunc(out, compareRuleIDs)
	return out
}

// cycleError reconstructs one cycle among the rules left with a nonzero
// in-degree and names it in the error metadata.
func (g *RuleGraph) cycleError(inDegree map[RuleID]int) error {
	remaining := make(map[RuleID]bool)
	for id, degree := range inDegree {
		if degree > 0 {
			remaining[id] = true
		}
	}

	// Every remaining rule sits on or downstream of a cycle; following
	// dependency edges inside the remaining set must revisit a rule.
	var start RuleID
	for id := range remaining {
		if start.String() == "" || compareRuleIDs(id, start) < 0 {
			start = id
		}
	}

	var path []RuleID
	index := make(map[RuleID]int)
	current := start
	for {
		if at, ok := index[current]; ok {
			cycle := path[at:]
			names := make([]string, 0, len(cycle)+1)
			for _, id := range cycle {
				names = append(names, id.String())
			}
			names = append(names, current.String())
			joined := strings.Join(names, " -> ")
			return zerr.With(zerr.Wrap(ErrCycleDetected, joined), "cycle", joined)
		}
		index[current] = len(path)
		path = append(path, current)

		rule := g.rules[current]
		advanced := false
		for _, dep := range rule.Dependencies {
			if remaining[dep] {
				current = dep
				advanced = true
				break
			}
		}
		if !advanced {
			// Cannot happen for rules inside the remaining set.
			return ErrCycleDetected
		}
	}
}

func compareRuleIDs(a, b RuleID) int {
	return strings.Compare(a.String(), b.String())
}
