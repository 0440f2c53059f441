package dex

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/dexer/internal/core/ports"
)

// NodeID is the unique identifier for the DEX reader Graft node.
const NodeID graft.ID = "adapter.dex_reader"

func init() {
	graft.Register(graft.Node[ports.DexReader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.DexReader, error) {
			return NewReader(), nil
		},
	})
}
