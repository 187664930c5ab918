package telemetry_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/buildrules/internal/adapters/telemetry"
)

func TestNoOp(t *testing.T) {
	rec := telemetry.NewNoOp()

	ctx, vtx := rec.Record(context.Background(), "t1/zlib")
	require.NotNil(t, ctx)
	require.NotNil(t, vtx)

	// Writers accept output and discard it; completion hooks never panic.
	n, err := io.WriteString(vtx.Stdout(), "building")
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	_, err = io.WriteString(vtx.Stderr(), "warning")
	require.NoError(t, err)

	vtx.Cached()
	vtx.Complete(nil)
	vtx.Complete(assert.AnError)

	assert.NoError(t, rec.Close())
}
