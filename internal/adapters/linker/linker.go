// Package linker describes the upstream producers that must run before dexer.
package linker

import (
	"go.trai.ch/dexer/internal/adapters/fs"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
)

var _ ports.UpstreamLinker = (*Linker)(nil)

// Linker implements ports.UpstreamLinker.
type Linker struct {
	verifier *fs.Verifier
	logger   ports.Logger
}

// New creates a new Linker.
func New(verifier *fs.Verifier, log ports.Logger) *Linker {
	return &Linker{verifier: verifier, logger: log}
}

// Link returns every configured producer of the convention table plus the classes lifecycle
// task, for the root module and then every sub-module in declared order.
// Producers a module does not configure are skipped.
func (l *Linker) Link(project domain.Project, variants []string) []domain.ProducerRef {
	table := domain.Conventions(variants)

	var refs []domain.ProducerRef
	for _, m := range project.Modules {
		for _, c := range table {
			if m.HasProducer(c.Producer) {
				refs = append(refs, domain.ProducerRef{Module: m.Name, Task: c.Producer})
			}
		}
		if m.HasProducer(domain.ClassesLifecycleTask) {
			refs = append(refs, domain.ProducerRef{Module: m.Name, Task: domain.ClassesLifecycleTask})
		}
	}
	return refs
}

// Verify returns the producers whose conventional output directory is missing from the set.
// A missing directory means the producer has not run yet.
func (l *Linker) Verify(_ domain.Project, set domain.ResolvedInputSet) []domain.ProducerRef {
	var paths []string
	owners := make(map[string]domain.ProducerRef)
	for _, loc := range set.Locations() {
		if loc.Origin != domain.OriginConvention || loc.Producer == "" {
			continue
		}
		paths = append(paths, loc.Path)
		owners[loc.Path] = domain.ProducerRef{Module: loc.Module, Task: loc.Producer}
	}

	missing, err := l.verifier.Missing(paths)
	if err != nil {
		l.logger.Error(err)
		return nil
	}

	refs := make([]domain.ProducerRef, 0, len(missing))
	for _, p := range missing {
		ref := owners[p]
		l.logger.Warn("output of " + ref.Path() + " is missing; run it before dexer")
		refs = append(refs, ref)
	}
	return refs
}
