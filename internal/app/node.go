package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/dexer/internal/adapters/cas"                //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/adapters/config"             //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/adapters/dex"                //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/adapters/fs"                 //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/adapters/linker"             //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/adapters/logger"             //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/adapters/project"            //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/dexer/internal/engine/pipeline"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			pipeline.NodeID,
			project.NodeID,
			linker.NodeID,
			fs.HasherNodeID,
			cas.NodeID,
			dex.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			progrock.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	pipe, err := graft.Dep[*pipeline.Pipeline](ctx)
	if err != nil {
		return nil, err
	}
	inspector, err := graft.Dep[ports.ProjectInspector](ctx)
	if err != nil {
		return nil, err
	}
	link, err := graft.Dep[ports.UpstreamLinker](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.BuildInfoStore](ctx)
	if err != nil {
		return nil, err
	}
	reader, err := graft.Dep[ports.DexReader](ctx)
	if err != nil {
		return nil, err
	}
	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(loader, pipe, inspector, link, hasher, store, reader, telemetry, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	return NewComponents(app, log, telemetry), nil
}
