package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
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

// newApp wires an App against the real adapters, with a stub standing in
// for the build tool.
func newApp() *app.App {
	return app.New(
		config.NewLoader(),
		nopLogger{},
		telemetry.NewNoOp(),
		func(path string) (ports.RuleCache, error) { return cas.NewStore(path) },
		objstore.Open,
		func(target domain.Target, tool string) ports.Worker {
			return spack.NewWorker(target, tool, nopLogger{})
		},
	)
}

// setupProject writes a buildrules.yaml whose tool is a counting stub, so
// tests can assert how often the build tool was really invoked.
func setupProject(t *testing.T) (confDir, countFile string) {
	t.Helper()
	confDir = t.TempDir()
	countFile = filepath.Join(confDir, "invocations")

	tool := filepath.Join(confDir, "tool")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"install\" ]; then echo run >> " + countFile + "; fi\n" +
		"echo \"$@\"\n"
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))

	content := `
version: "1"
tool: ` + tool + `
targets:
  - name: t1
specs:
  - name: zlib
    target: t1
  - name: hdf5
    target: t1
    depends_on: ["zlib"]
`
	require.NoError(t, os.WriteFile(filepath.Join(confDir, config.Filename), []byte(content), 0o600))
	return confDir, countFile
}

func invocations(t *testing.T, countFile string) int {
	t.Helper()
	data, err := os.ReadFile(countFile)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(data), "run")
}

func TestApp_DescribeThenBuild(t *testing.T) {
	confDir, countFile := setupProject(t)
	a := newApp()
	ctx := context.Background()

	// Describe never invokes the tool.
	var out bytes.Buffer
	require.NoError(t, a.Describe(ctx, confDir, &out))
	assert.Contains(t, out.String(), "[build] t1/zlib")
	assert.Contains(t, out.String(), "[build] t1/hdf5")
	assert.Contains(t, out.String(), "2 to build, 0 satisfied by cache")
	assert.Zero(t, invocations(t, countFile))

	// First build runs both rules.
	out.Reset()
	require.NoError(t, a.Build(ctx, confDir, &out))
	assert.Contains(t, out.String(), "2 succeeded, 0 skipped, 0 failed")
	assert.Equal(t, 2, invocations(t, countFile))

	// A warm cache elides everything: zero further tool invocations.
	out.Reset()
	require.NoError(t, a.Build(ctx, confDir, &out))
	assert.Contains(t, out.String(), "0 succeeded, 2 skipped, 0 failed")
	assert.Equal(t, 2, invocations(t, countFile))

	out.Reset()
	require.NoError(t, a.Describe(ctx, confDir, &out))
	assert.Contains(t, out.String(), "[skip ] t1/zlib")
	assert.Contains(t, out.String(), "0 to build, 2 satisfied by cache")
}

func TestApp_DeletedArtifactForcesRebuild(t *testing.T) {
	confDir, countFile := setupProject(t)
	a := newApp()
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, a.Build(ctx, confDir, &out))
	require.Equal(t, 2, invocations(t, countFile))

	// Deleting the artifact tree externally invalidates the stale entries
	// lazily; both rules run again.
	require.NoError(t, os.RemoveAll(filepath.Join(confDir, ".buildrules", "artifacts")))

	out.Reset()
	require.NoError(t, a.Build(ctx, confDir, &out))
	assert.Contains(t, out.String(), "2 succeeded, 0 skipped, 0 failed")
	assert.Equal(t, 4, invocations(t, countFile))
}

func TestApp_FailingBuildReportsAndErrors(t *testing.T) {
	confDir := t.TempDir()
	tool := filepath.Join(confDir, "tool")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then exit 0; fi\n" +
		"exit 1\n"
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))

	content := `
version: "1"
tool: ` + tool + `
targets:
  - name: t1
specs:
  - name: zlib
    target: t1
  - name: hdf5
    target: t1
    depends_on: ["zlib"]
`
	require.NoError(t, os.WriteFile(filepath.Join(confDir, config.Filename), []byte(content), 0o600))

	var out bytes.Buffer
	err := newApp().Build(context.Background(), confDir, &out)
	require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)

	// The invocation drains and the table still covers every rule.
	assert.Contains(t, out.String(), "build-tool")
	assert.Contains(t, out.String(), "upstream-failure")
	assert.Contains(t, out.String(), "0 succeeded, 0 skipped, 2 failed")
}

func TestApp_ConfigurationErrorsSurfaceBeforeScheduling(t *testing.T) {
	confDir := t.TempDir()
	content := `
version: "1"
targets:
  - name: t1
specs:
  - name: a
    target: t1
    depends_on: ["b"]
  - name: b
    target: t1
    depends_on: ["a"]
`
	require.NoError(t, os.WriteFile(filepath.Join(confDir, config.Filename), []byte(content), 0o600))

	var out bytes.Buffer
	err := newApp().Build(context.Background(), confDir, &out)
	require.ErrorIs(t, err, domain.ErrCycleDetected)
	assert.Empty(t, out.String(), "no side effects before validation passes")
}
