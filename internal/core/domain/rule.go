// Package domain contains the core domain model for the build-rule
// orchestration engine: rules, the dependency graph, targets, execution
// states and the cache entry shape.
package domain

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// RuleID identifies one schedulable unit of work: a spec on a target.
// Its canonical form is "target/spec".
type RuleID struct {
	s InternedString
}

// MakeRuleID builds the canonical identifier for a (target, spec) pair.
func MakeRuleID(target, spec string) RuleID {
	return RuleID{s: NewInternedString(target + "/" + spec)}
}

// String returns the canonical "target/spec" form.
func (id RuleID) String() string {
	return id.s.String()
}

// MarshalText implements encoding.TextMarshaler.
func (id RuleID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// BuildRule is one unit of build work: a package spec bound to a named
// target, with its dependency edges and content fingerprint. Rules are
// immutable once the graph they belong to has been sealed.
type BuildRule struct {
	Spec   InternedString
	Target InternedString

	// Variants are additional spec qualifiers passed verbatim to the
	// package-building tool (compiler pins, build options).
	Variants []InternedString

	// Dependencies are the rule IDs this rule must wait for.
	Dependencies []RuleID

	// Fingerprint is a deterministic hash of the rule's own definition and
	// the sorted fingerprints of its direct dependencies, so any ancestor
	// change invalidates all descendants transitively. Populated by
	// RuleGraph.Seal.
	Fingerprint string
}

// ID returns the rule's canonical identifier.
func (r *BuildRule) ID() RuleID {
	return MakeRuleID(r.Target.String(), r.Spec.String())
}

// SpecString renders the full spec line handed to the build tool.
func (r *BuildRule) SpecString() string {
	s := r.Spec.String()
	for _, v := range r.Variants {
		s += " " + v.String()
	}
	return s
}

// fingerprint hashes the rule definition together with the fingerprints of
// its direct dependencies. depFingerprints must already be computed.
func (r *BuildRule) fingerprint(depFingerprints []string) string {
	h := xxhash.New()

	_, _ = h.WriteString(r.Spec.String())
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(r.Target.String())
	_, _ = h.Write([]byte{0})

	for _, v := range r.Variants {
		_, _ = h.WriteString(v.String())
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{0})

	// Sorted so the fingerprint does not depend on declaration order.
	sorted := slices.Clone(depFingerprints)
	slices.Sort(sorted)
	for _, fp := range sorted {
		_, _ = h.WriteString(fp)
		_, _ = h.Write([]byte{0})
	}

	return fmt.Sprintf("%016x", h.Sum64())
}
