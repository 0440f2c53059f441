package fs

import (
	"context"
	"path/filepath"
	"slices"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver implements ports.InputResolver against the static convention table.
type Resolver struct {
	walker *Walker
}

// NewResolver creates a new Resolver.
func NewResolver(walker *Walker) *Resolver {
	return &Resolver{walker: walker}
}

// Resolve computes the ordered, deduplicated input set.
func (r *Resolver) Resolve(
	ctx context.Context,
	cfg domain.BuildConfiguration,
	project domain.Project,
) (domain.ResolvedInputSet, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResolvedInputSet{}, err
	}

	if cfg.UsesExplicitInputs() {
		locs := make([]domain.InputLocation, 0, len(cfg.ExplicitInputPaths))
		for _, p := range cfg.ExplicitInputPaths {
			locs = appendUnique(locs, domain.InputLocation{Path: p, Origin: domain.OriginExplicit})
		}
		return domain.NewResolvedInputSet(locs, r.walker.Entries), nil
	}

	return domain.NewResolvedInputSet(Candidates(cfg, project), r.walker.Entries), nil
}

// Candidates returns the auto-detected locations: the convention table applied to the root
// module and then to every sub-module in declared order, guarded by producer presence.
// When nothing is detected the conventional fallback directory is returned.
func Candidates(cfg domain.BuildConfiguration, project domain.Project) []domain.InputLocation {
	table := domain.Conventions(cfg.Variants)

	var locs []domain.InputLocation
	for _, m := range project.Modules {
		for _, c := range table {
			if !m.HasProducer(c.Producer) {
				continue
			}
			locs = appendUnique(locs, domain.InputLocation{
				Path:     filepath.Join(m.Dir, filepath.FromSlash(c.OutputDir)),
				Origin:   domain.OriginConvention,
				Module:   m.Name,
				Producer: c.Producer,
			})
		}
	}

	if len(locs) == 0 {
		locs = append(locs, domain.InputLocation{
			Path:   filepath.Join(cfg.ProjectDir, filepath.FromSlash(domain.FallbackInputDir)),
			Origin: domain.OriginFallback,
		})
	}
	return locs
}

func appendUnique(locs []domain.InputLocation, loc domain.InputLocation) []domain.InputLocation {
	if slices.ContainsFunc(locs, func(l domain.InputLocation) bool { return l.Path == loc.Path }) {
		return locs
	}
	return append(locs, loc)
}
