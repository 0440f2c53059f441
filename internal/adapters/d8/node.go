package d8

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/dexer/internal/adapters/bootcp"
	"go.trai.ch/dexer/internal/adapters/logger"
	"go.trai.ch/dexer/internal/core/ports"
)

// NodeID is the unique identifier for the d8 converter Graft node.
const NodeID graft.ID = "adapter.d8"

func init() {
	graft.Register(graft.Node[*Converter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{bootcp.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Converter, error) {
			classpath, err := graft.Dep[ports.ClasspathFactory](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(classpath, log), nil
		},
	})
}
