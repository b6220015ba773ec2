package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/shinobi/internal/core/ports"
)

// NodeID is the unique identifier for the filesystem adapter node.
const NodeID graft.ID = "adapter.fs"

func init() {
	graft.Register(graft.Node[ports.FileSystem]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FileSystem, error) {
			return New(), nil
		},
	})
}
