package bootcp

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/dexer/internal/adapters/logger"
	"go.trai.ch/dexer/internal/core/ports"
)

// NodeID is the unique identifier for the classpath factory Graft node.
const NodeID graft.ID = "adapter.bootcp"

func init() {
	graft.Register(graft.Node[ports.ClasspathFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ClasspathFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(log, os.Getenv), nil
		},
	})
}
