package linker

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/dexer/internal/adapters/fs"
	"go.trai.ch/dexer/internal/adapters/logger"
	"go.trai.ch/dexer/internal/core/ports"
)

// NodeID is the unique identifier for the upstream linker Graft node.
const NodeID graft.ID = "adapter.linker"

func init() {
	graft.Register(graft.Node[ports.UpstreamLinker]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.VerifierNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.UpstreamLinker, error) {
			verifier, err := graft.Dep[*fs.Verifier](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(verifier, log), nil
		},
	})
}
