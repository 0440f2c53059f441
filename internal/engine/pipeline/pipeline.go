// Package pipeline runs the build stages: input resolution, then DEX conversion and marker
// extraction side by side over the same resolved input set.
package pipeline

import (
	"context"
	"errors"
	"strconv"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// StageError attributes a fatal error to the pipeline stage that produced it.
type StageError struct {
	Stage domain.Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Resolution is the outcome of the resolve stage.
type Resolution struct {
	Project domain.Project
	Inputs  domain.ResolvedInputSet
}

// Pipeline executes one build over a validated configuration.
type Pipeline struct {
	inspector  ports.ProjectInspector
	resolver   ports.InputResolver
	linker     ports.UpstreamLinker
	converters map[domain.Engine]ports.DexConverter
	extractor  ports.MetadataExtractor
	publisher  ports.Publisher
	telemetry  ports.Telemetry
	logger     ports.Logger
}

// New creates a Pipeline. native and external serve the native and d8 engines.
func New(
	inspector ports.ProjectInspector,
	resolver ports.InputResolver,
	linker ports.UpstreamLinker,
	native ports.DexConverter,
	external ports.DexConverter,
	extractor ports.MetadataExtractor,
	publisher ports.Publisher,
	telemetry ports.Telemetry,
	log ports.Logger,
) *Pipeline {
	return &Pipeline{
		inspector: inspector,
		resolver:  resolver,
		linker:    linker,
		converters: map[domain.Engine]ports.DexConverter{
			domain.EngineNative: native,
			domain.EngineD8:     external,
		},
		extractor: extractor,
		publisher: publisher,
		telemetry: telemetry,
		logger:    log,
	}
}

// Resolve inspects the project and resolves the input set.
// Linked producers whose output is missing are reported as warnings.
func (p *Pipeline) Resolve(ctx context.Context, cfg domain.BuildConfiguration) (Resolution, error) {
	var res Resolution
	err := p.stage(ctx, domain.StageResolve, func(ctx context.Context) error {
		project, err := p.inspector.Inspect(ctx, cfg)
		if err != nil {
			return err
		}
		set, err := p.resolver.Resolve(ctx, cfg, project)
		if err != nil {
			return err
		}
		if set, err = set.Load(ctx); err != nil {
			return err
		}
		p.linker.Verify(project, set)
		p.logger.Debug("resolved " + strconv.Itoa(set.Len()) + " input locations")
		res = Resolution{Project: project, Inputs: set}
		return nil
	})
	return res, err
}

// Run converts set and, when enabled, extracts the marked classes. Both outputs are staged
// and only published once every stage succeeded. An empty set is a successful no-op.
func (p *Pipeline) Run(ctx context.Context, cfg domain.BuildConfiguration, set domain.ResolvedInputSet) (domain.BuildResult, error) {
	result := domain.BuildResult{Inputs: set.Locations()}
	if set.IsEmpty() {
		p.logger.Info("no class inputs resolved; nothing to convert")
		return result, nil
	}

	converter, ok := p.converters[cfg.Engine]
	if !ok || converter == nil {
		err := domain.NewConfigError("engine", cfg.Engine, "no converter available")
		return domain.BuildResult{}, &StageError{Stage: domain.StageConvert, Err: err}
	}

	dexOut, err := p.publisher.Stage(cfg.OutputArtifactPath)
	if err != nil {
		return domain.BuildResult{}, &StageError{Stage: domain.StageConvert, Err: err}
	}
	staged := []ports.StagedFile{dexOut}

	var metaOut ports.StagedFile
	if cfg.DetectMarkedClasses {
		metaOut, err = p.publisher.Stage(cfg.MetadataFilePath)
		if err != nil {
			return domain.BuildResult{}, errors.Join(&StageError{Stage: domain.StageExtract, Err: err}, discard(staged))
		}
		staged = append(staged, metaOut)
	}

	var (
		report domain.ConversionReport
		meta   domain.PluginMetadata
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.stage(gctx, domain.StageConvert, func(ctx context.Context) error {
			var err error
			report, err = converter.Convert(ctx, cfg, set, dexOut)
			return err
		})
	})
	if metaOut != nil {
		g.Go(func() error {
			return p.stage(gctx, domain.StageExtract, func(ctx context.Context) error {
				var err error
				meta, err = p.extractor.Extract(ctx, cfg, set)
				if err != nil {
					return err
				}
				if _, err := metaOut.Write(meta.Bytes()); err != nil {
					return errors.Join(domain.ErrPublishFailed, zerr.With(err, "path", metaOut.Path()))
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BuildResult{}, errors.Join(err, discard(staged))
	}
	if err := ctx.Err(); err != nil {
		return domain.BuildResult{}, errors.Join(err, discard(staged))
	}

	// The metadata is committed first: a failed metadata commit leaves the DEX untouched.
	if metaOut != nil {
		if err := metaOut.Commit(); err != nil {
			return domain.BuildResult{}, errors.Join(&StageError{Stage: domain.StageExtract, Err: err}, discard(staged))
		}
		result.Metadata = &meta
		result.MetadataPath = metaOut.Path()
	}
	if err := dexOut.Commit(); err != nil {
		return domain.BuildResult{}, errors.Join(&StageError{Stage: domain.StageConvert, Err: err}, discard(staged))
	}
	result.Conversion = &report
	return result, nil
}

// stage runs fn under a telemetry vertex named after the stage.
func (p *Pipeline) stage(ctx context.Context, stage domain.Stage, fn func(context.Context) error) error {
	ctx, vertex := p.telemetry.Record(ctx, string(stage))
	err := fn(ctx)
	if err != nil {
		vertex.Log(domain.LogLevelError, err.Error())
	}
	vertex.Complete(err)
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func discard(files []ports.StagedFile) error {
	var errs []error
	for _, f := range files {
		if err := f.Discard(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
