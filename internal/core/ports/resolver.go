package ports

import (
	"context"

	"go.trai.ch/dexer/internal/core/domain"
)

// InputResolver defines the interface for resolving compiled class inputs.
//
//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks -source=resolver.go
type InputResolver interface {
	// Resolve computes the ordered, deduplicated input set.
	// Explicit input paths take precedence over auto-detection against the project topology.
	Resolve(ctx context.Context, cfg domain.BuildConfiguration, project domain.Project) (domain.ResolvedInputSet, error)
}

// ProjectInspector discovers the module topology and the producers configured per module.
type ProjectInspector interface {
	// Inspect returns the root module followed by its sub-modules in declared order.
	Inspect(ctx context.Context, cfg domain.BuildConfiguration) (domain.Project, error)
}

// UpstreamLinker describes the ordering the host build must guarantee before dexer runs.
type UpstreamLinker interface {
	// Link returns every producer that could write into a resolved input location.
	Link(project domain.Project, variants []string) []domain.ProducerRef
	// Verify reports linked producers whose output is missing, which signals a host ordering problem.
	Verify(project domain.Project, set domain.ResolvedInputSet) []domain.ProducerRef
}
