package domain

import "go.trai.ch/zerr"

var (
	// ErrConfiguration is returned when the build configuration cannot be
	// parsed into a valid rule set. It is fatal to the whole invocation and
	// is raised before any scheduling begins.
	ErrConfiguration = zerr.New("invalid build configuration")

	// ErrDuplicateRule is returned when a (spec, target) pair is declared
	// more than once. Matches ErrConfiguration.
	ErrDuplicateRule = zerr.Wrap(ErrConfiguration, "rule declared more than once")

	// ErrMissingDependency is returned when a rule references a dependency
	// that is not declared anywhere in the configuration. Matches
	// ErrConfiguration.
	ErrMissingDependency = zerr.Wrap(ErrConfiguration, "missing dependency")

	// ErrUnknownTarget is returned when a spec is bound to a target that is
	// not declared. Matches ErrConfiguration.
	ErrUnknownTarget = zerr.Wrap(ErrConfiguration, "unknown target")

	// ErrCycleDetected is returned when the dependency graph contains a
	// cycle. The cycle path is named in the error message and attached as
	// metadata. Matches ErrConfiguration.
	ErrCycleDetected = zerr.Wrap(ErrConfiguration, "dependency cycle detected")

	// ErrTargetUnavailable is returned when a target's worker is unreachable.
	// Rules bound to that target fail fast without consuming retry budget.
	ErrTargetUnavailable = zerr.New("target unavailable")

	// ErrBuildToolFailure is returned when the package-building tool reports
	// a failed build. Retried up to the attempt budget, then terminal.
	ErrBuildToolFailure = zerr.New("build tool reported failure")

	// ErrUpstreamFailure marks a rule that was never executed because one of
	// its dependencies terminally failed.
	ErrUpstreamFailure = zerr.New("upstream dependency failed")

	// ErrInvocationCancelled marks rules abandoned by an abort request.
	ErrInvocationCancelled = zerr.New("invocation cancelled")

	// ErrBuildExecutionFailed is the aggregate error for an invocation in
	// which at least one rule reached a terminal Failed state.
	ErrBuildExecutionFailed = zerr.New("build finished with failed rules")
)
