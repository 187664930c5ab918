package spack_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/buildrules/internal/adapters/spack"
	"go.trai.ch/buildrules/internal/core/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(error, ...any) {}

// writeScript creates an executable stub standing in for the build tool.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func testRule(spec string, variants ...string) *domain.BuildRule {
	rule := &domain.BuildRule{
		Spec:        domain.NewInternedString(spec),
		Target:      domain.NewInternedString("t1"),
		Fingerprint: "0123456789abcdef",
	}
	for _, v := range variants {
		rule.Variants = append(rule.Variants, domain.NewInternedString(v))
	}
	return rule
}

func target(name string, runner ...string) domain.Target {
	return domain.Target{
		Name:        domain.NewInternedString(name),
		Concurrency: 1,
		Runner:      runner,
	}
}

func TestWorker_Run(t *testing.T) {
	tool := writeScript(t, `echo "$@"`)
	w := spack.NewWorker(target("t1"), tool, nopLogger{})

	var stdout, stderr bytes.Buffer
	ref, err := w.Run(context.Background(), testRule("hdf5@1.14", "+mpi"), t.TempDir(), &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "t1/hdf5@1.14/01234567", ref)
	assert.Equal(t, "install hdf5@1.14 +mpi target=t1\n", stdout.String())
}

func TestWorker_RunUsesStageDir(t *testing.T) {
	tool := writeScript(t, `pwd`)
	w := spack.NewWorker(target("t1"), tool, nopLogger{})
	stageDir := t.TempDir()

	var stdout bytes.Buffer
	_, err := w.Run(context.Background(), testRule("zlib"), stageDir, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(stageDir)
	require.NoError(t, err)
	assert.Equal(t, resolved+"\n", stdout.String())
}

func TestWorker_RunnerPrefix(t *testing.T) {
	// The runner stands in for an isolated execution channel (ssh, container
	// exec): it receives the full tool invocation as its argv.
	runner := writeScript(t, `echo "$@"`)
	w := spack.NewWorker(target("t1", runner), "spack", nopLogger{})

	var stdout bytes.Buffer
	_, err := w.Run(context.Background(), testRule("zlib"), t.TempDir(), &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "spack install zlib target=t1\n", stdout.String())
}

func TestWorker_ToolFailure(t *testing.T) {
	tool := writeScript(t, `echo "error: conflicting variants" >&2; exit 3`)
	w := spack.NewWorker(target("t1"), tool, nopLogger{})

	var stderr bytes.Buffer
	_, err := w.Run(context.Background(), testRule("zlib"), t.TempDir(), &bytes.Buffer{}, &stderr)
	require.ErrorIs(t, err, domain.ErrBuildToolFailure)
	assert.Contains(t, stderr.String(), "conflicting variants")
}

func TestWorker_UnreachableChannel(t *testing.T) {
	w := spack.NewWorker(target("t1"), filepath.Join(t.TempDir(), "missing"), nopLogger{})

	_, err := w.Run(context.Background(), testRule("zlib"), t.TempDir(), &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrTargetUnavailable)
}

func TestWorker_Cancellation(t *testing.T) {
	tool := writeScript(t, `exec sleep 10`)
	w := spack.NewWorker(target("t1"), tool, nopLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := w.Run(ctx, testRule("zlib"), t.TempDir(), &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrInvocationCancelled)
}

func TestWorker_Healthcheck(t *testing.T) {
	tool := writeScript(t, `test "$1" = "--version" && echo "0.23.1"`)
	w := spack.NewWorker(target("t1"), tool, nopLogger{})
	require.NoError(t, w.Healthcheck(context.Background()))

	broken := spack.NewWorker(target("t1"), filepath.Join(t.TempDir(), "missing"), nopLogger{})
	err := broken.Healthcheck(context.Background())
	require.ErrorIs(t, err, domain.ErrTargetUnavailable)
}

func TestArtifactRef(t *testing.T) {
	rule := testRule("py/numpy")
	assert.Equal(t, "t1/py_numpy/01234567", spack.ArtifactRef(rule))

	// Short fingerprints are kept whole.
	rule.Fingerprint = "abcd"
	assert.Equal(t, "t1/py_numpy/abcd", spack.ArtifactRef(rule))
}
