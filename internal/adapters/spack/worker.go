// Package spack provides the build worker that shells out to the
// package-building tool. The tool's process exit code and install-path
// convention are the whole contract; its internals are never introspected.
package spack

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path"
	"slices"
	"strings"
	"time"

	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
	"go.trai.ch/zerr"
)

const healthcheckTimeout = 10 * time.Second

// Worker implements ports.Worker for one target using os/exec. The
// target's runner prefix (ssh, container exec) is how an isolated build
// context is reached; an empty prefix executes locally.
type Worker struct {
	target domain.Target
	tool   string
	logger ports.Logger
}

// NewWorker creates a worker bound to the given target.
func NewWorker(target domain.Target, tool string, logger ports.Logger) *Worker {
	return &Worker{
		target: target,
		tool:   tool,
		logger: logger,
	}
}

// Run invokes the build tool for the rule inside stageDir. The returned
// artifact ref follows the install-path convention
// "<target>/<spec>/<fingerprint-prefix>".
func (w *Worker) Run(
	ctx context.Context,
	rule *domain.BuildRule,
	stageDir string,
	stdout, stderr io.Writer,
) (string, error) {
	args := w.command("install", rule.Spec.String())
	for _, v := range rule.Variants {
		args = append(args, v.String())
	}
	args = append(args, "target="+rule.Target.String())

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // command comes from validated configuration
	cmd.Dir = stageDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	w.logger.Info("invoking build tool",
		"rule", rule.ID().String(),
		"command", strings.Join(args, " "),
	)

	if err := cmd.Run(); err != nil {
		return "", w.classify(ctx, err)
	}

	return ArtifactRef(rule), nil
}

// Healthcheck probes the execution channel by asking the tool for its
// version through the target's runner.
func (w *Worker) Healthcheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()

	args := w.command("--version")
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // command comes from validated configuration
	if err := cmd.Run(); err != nil {
		return zerr.With(
			zerr.With(
				zerr.Wrap(domain.ErrTargetUnavailable, "healthcheck failed"),
				"target", w.target.Name.String(),
			),
			"probe_error", err.Error(),
		)
	}
	return nil
}

// command builds the full argv: runner prefix, then the tool invocation.
func (w *Worker) command(toolArgs ...string) []string {
	args := slices.Clone(w.target.Runner)
	args = append(args, w.tool)
	args = append(args, toolArgs...)
	return args
}

// classify maps process errors onto the engine's failure taxonomy: a tool
// exit is a build failure, anything else means the channel is unreachable.
func (w *Worker) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return zerr.Wrap(domain.ErrInvocationCancelled, "build interrupted")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return zerr.With(
			zerr.Wrap(domain.ErrBuildToolFailure, "command failed"),
			"exit_code", exitErr.ExitCode(),
		)
	}

	return zerr.With(
		zerr.With(
			zerr.Wrap(domain.ErrTargetUnavailable, "failed to reach build tool"),
			"target", w.target.Name.String(),
		),
		"exec_error", err.Error(),
	)
}

// ArtifactRef is the install-path convention shared with the artifact
// store: target, spec, then a short fingerprint so rebuilt definitions get
// fresh locations.
func ArtifactRef(rule *domain.BuildRule) string {
	fp := rule.Fingerprint
	if len(fp) > 8 {
		fp = fp[:8]
	}
	spec := strings.ReplaceAll(rule.Spec.String(), "/", "_")
	return path.Join(rule.Target.String(), spec, fp)
}
