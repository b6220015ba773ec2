// Package telemetry selects the status-reporting backend.
package telemetry

import (
	"context"
	"io"

	"go.trai.ch/shinobi/internal/core/ports"
)

// NoOp is a telemetry backend that records nothing.
type NoOp struct{}

// NewNoOp creates a new NoOp backend.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Record returns a vertex that discards everything.
func (t *NoOp) Record(ctx context.Context, _ string) (context.Context, ports.Vertex) {
	v := &noopVertex{}
	return ports.ContextWithVertex(ctx, v), v
}

// Close does nothing.
func (t *NoOp) Close() error {
	return nil
}

type noopVertex struct{}

func (v *noopVertex) Stdout() io.Writer { return io.Discard }
func (v *noopVertex) Stderr() io.Writer { return io.Discard }
func (v *noopVertex) Complete(error)    {}
func (v *noopVertex) Cached()           {}
