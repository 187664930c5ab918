package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/buildrules/internal/adapters/cas"
	"go.trai.ch/buildrules/internal/adapters/config"
	"go.trai.ch/buildrules/internal/adapters/objstore"
	"go.trai.ch/buildrules/internal/adapters/spack"
	"go.trai.ch/buildrules/internal/adapters/telemetry"
	"go.trai.ch/buildrules/internal/app"
	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(error, ...any) {}

func testProvider(context.Context) (*app.Components, error) {
	a := app.New(
		config.NewLoader(),
		nopLogger{},
		telemetry.NewNoOp(),
		func(path string) (ports.RuleCache, error) { return cas.NewStore(path) },
		objstore.Open,
		func(target domain.Target, tool string) ports.Worker {
			return spack.NewWorker(target, tool, nopLogger{})
		},
	)
	return &app.Components{App: a, Logger: nopLogger{}}, nil
}

func writeProject(t *testing.T, toolBody string) string {
	t.Helper()
	dir := t.TempDir()

	tool := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"+toolBody+"\n"), 0o755))

	content := `
version: "1"
tool: ` + tool + `
targets:
  - name: t1
specs:
  - name: zlib
    target: t1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.Filename), []byte(content), 0o600))
	return dir
}

func TestRun_Describe(t *testing.T) {
	dir := writeProject(t, "exit 0")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"spack", "describe", "-c", dir}, &stderr, testProvider)
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr.String())
}

func TestRun_BuildFailureExitCode(t *testing.T) {
	dir := writeProject(t, `if [ "$1" = "--version" ]; then exit 0; fi; exit 1`)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"spack", "build", "-c", dir}, &stderr, testProvider)
	assert.Equal(t, 1, code)
}

func TestRun_ProviderError(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), nil, &stderr, func(context.Context) (*app.Components, error) {
		return nil, assert.AnError
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"frobnicate"}, &stderr, testProvider)
	assert.Equal(t, 1, code)
}
