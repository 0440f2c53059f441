package pipeline

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/dexer/internal/adapters/d8"                 //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/adapters/dexgen"             //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/adapters/fs"                 //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/adapters/linker"             //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/adapters/logger"             //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/adapters/marker"             //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/adapters/project"            //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine layer
	"go.trai.ch/dexer/internal/core/ports"
)

// NodeID is the unique identifier for the pipeline Graft node.
const NodeID graft.ID = "engine.pipeline"

func init() {
	graft.Register(graft.Node[*Pipeline]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			project.NodeID,
			fs.ResolverNodeID,
			linker.NodeID,
			dexgen.NodeID,
			d8.NodeID,
			marker.NodeID,
			fs.PublisherNodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: runNode,
	})
}

func runNode(ctx context.Context) (*Pipeline, error) {
	inspector, err := graft.Dep[ports.ProjectInspector](ctx)
	if err != nil {
		return nil, err
	}
	resolver, err := graft.Dep[ports.InputResolver](ctx)
	if err != nil {
		return nil, err
	}
	link, err := graft.Dep[ports.UpstreamLinker](ctx)
	if err != nil {
		return nil, err
	}
	native, err := graft.Dep[*dexgen.Converter](ctx)
	if err != nil {
		return nil, err
	}
	external, err := graft.Dep[*d8.Converter](ctx)
	if err != nil {
		return nil, err
	}
	extractor, err := graft.Dep[ports.MetadataExtractor](ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := graft.Dep[ports.Publisher](ctx)
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
	return New(inspector, resolver, link, native, external, extractor, publisher, telemetry, log), nil
}
