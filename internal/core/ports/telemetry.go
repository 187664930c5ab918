package ports

import (
	"context"
	"io"
)

// Telemetry records per-rule progress for external observability. The
// engine emits one vertex per rule execution; presentation lives entirely
// behind this interface.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts recording a vertex with the given name.
	Record(ctx context.Context, name string) (context.Context, Vertex)

	// Close flushes and closes the recording session.
	Close() error
}

// Vertex is one recorded unit of work.
type Vertex interface {
	// Stdout returns the writer capturing the unit's standard output.
	Stdout() io.Writer

	// Stderr returns the writer capturing the unit's error output.
	Stderr() io.Writer

	// Complete marks the vertex finished, with err nil on success.
	Complete(err error)

	// Cached marks the vertex as satisfied by the cache.
	Cached()
}
