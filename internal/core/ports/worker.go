package ports

import (
	"context"
	"io"

	"go.trai.ch/buildrules/internal/core/domain"
)

// Worker is the execution channel for one target. It is an opaque
// run/probe interface: the engine only relies on the process exit contract
// and the artifact-location convention of the underlying build tool.
//
//go:generate go run go.uber.org/mock/mockgen -source=worker.go -destination=mocks/mock_worker.go -package=mocks
type Worker interface {
	// Run invokes the package-building tool for the rule inside stageDir,
	// streaming tool output to stdout/stderr. On success it returns the
	// artifact reference where the result lives.
	//
	// Failures are classified: domain.ErrBuildToolFailure for a nonzero
	// tool exit, domain.ErrTargetUnavailable when the execution channel
	// itself is unreachable.
	Run(ctx context.Context, rule *domain.BuildRule, stageDir string, stdout, stderr io.Writer) (artifactRef string, err error)

	// Healthcheck probes the target's execution channel.
	Healthcheck(ctx context.Context) error
}

// WorkerFactory builds the worker bound to a target, invoking the given
// build-tool binary.
type WorkerFactory func(target domain.Target, tool string) Worker
