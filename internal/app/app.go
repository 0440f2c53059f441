// Package app implements the application layer for dexer.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/dexer/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	pipeline     *pipeline.Pipeline
	inspector    ports.ProjectInspector
	linker       ports.UpstreamLinker
	hasher       ports.Hasher
	store        ports.BuildInfoStore
	reader       ports.DexReader
	telemetry    ports.Telemetry
	logger       ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	pipe *pipeline.Pipeline,
	inspector ports.ProjectInspector,
	linker ports.UpstreamLinker,
	hasher ports.Hasher,
	store ports.BuildInfoStore,
	reader ports.DexReader,
	telemetry ports.Telemetry,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		pipeline:     pipe,
		inspector:    inspector,
		linker:       linker,
		hasher:       hasher,
		store:        store,
		reader:       reader,
		telemetry:    telemetry,
		logger:       log,
	}
}

// Options selects the project, the configuration file and the command line overrides.
type Options struct {
	ProjectDir string
	// ConfigPath is empty for dexer.yaml in the project directory.
	ConfigPath string
	Overrides  domain.Settings
}

// Configure loads the configuration file, applies the overrides and validates the result.
func (a *App) Configure(opts Options) (domain.BuildConfiguration, error) {
	projectDir := opts.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}
	settings, err := a.configLoader.Load(projectDir, opts.ConfigPath)
	if err != nil {
		return domain.BuildConfiguration{}, zerr.Wrap(err, "failed to load configuration")
	}
	settings = settings.Merge(opts.Overrides)
	settings.ProjectDir = projectDir
	return domain.NewBuildConfiguration(settings)
}

// Build resolves the inputs and converts them, unless the previous build of the same inputs
// is still in place.
func (a *App) Build(ctx context.Context, opts Options) (domain.BuildResult, error) {
	cfg, err := a.Configure(opts)
	if err != nil {
		return domain.BuildResult{}, err
	}

	res, err := a.pipeline.Resolve(ctx, cfg)
	if err != nil {
		return domain.BuildResult{}, err
	}
	set := res.Inputs
	if set.IsEmpty() {
		return a.pipeline.Run(ctx, cfg, set)
	}

	inputHash, err := a.hasher.ComputeInputHash(cfg, set)
	if err != nil {
		return domain.BuildResult{}, &pipeline.StageError{Stage: domain.StageResolve, Err: err}
	}

	key := cfg.OutputArtifactPath
	if !cfg.NoCache {
		if info, ok := a.upToDate(cfg, key, inputHash); ok {
			_, vertex := a.telemetry.Record(ctx, string(domain.StageConvert))
			vertex.Cached()
			vertex.Complete(nil)
			a.logger.Info("dex output is up to date")

			result := domain.BuildResult{
				Inputs: set.Locations(),
				Conversion: &domain.ConversionReport{
					ClassCount: info.ClassCount,
					OutputPath: cfg.OutputArtifactPath,
					UpToDate:   true,
				},
			}
			if cfg.DetectMarkedClasses {
				result.MetadataPath = cfg.MetadataFilePath
			}
			return result, nil
		}
	}

	result, err := a.pipeline.Run(ctx, cfg, set)
	if err != nil {
		return domain.BuildResult{}, err
	}
	if err := a.record(cfg, key, inputHash, result); err != nil {
		return domain.BuildResult{}, err
	}
	a.logger.Info(fmt.Sprintf("converted %d classes into %s", result.Conversion.ClassCount, result.Conversion.OutputPath))
	return result, nil
}

// upToDate reports whether the stored build info matches the inputs and the outputs on disk.
func (a *App) upToDate(cfg domain.BuildConfiguration, key, inputHash string) (*domain.BuildInfo, bool) {
	info, err := a.store.Get(cfg.ProjectDir, key)
	if err != nil {
		a.logger.Warn("ignoring unreadable build info: " + err.Error())
		return nil, false
	}
	if info == nil || info.InputHash != inputHash {
		return nil, false
	}
	if !a.fileMatches(cfg.OutputArtifactPath, info.OutputHash) {
		a.logger.Debug("dex output changed since the last build")
		return nil, false
	}
	if cfg.DetectMarkedClasses && !a.fileMatches(cfg.MetadataFilePath, info.MetadataHash) {
		a.logger.Debug("plugin metadata changed since the last build")
		return nil, false
	}
	return info, true
}

func (a *App) fileMatches(path, want string) bool {
	got, err := a.hasher.ComputeFileHash(path)
	return err == nil && got == want
}

func (a *App) record(cfg domain.BuildConfiguration, key, inputHash string, result domain.BuildResult) error {
	outputHash, err := a.hasher.ComputeFileHash(cfg.OutputArtifactPath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to compute output hash"), "path", cfg.OutputArtifactPath)
	}
	info := domain.BuildInfo{
		Key:        key,
		InputHash:  inputHash,
		OutputHash: outputHash,
		ClassCount: result.Conversion.ClassCount,
		Timestamp:  time.Now(),
	}
	if result.Metadata != nil {
		info.MetadataHash, err = a.hasher.ComputeFileHash(result.MetadataPath)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to compute metadata hash"), "path", result.MetadataPath)
		}
	}
	if err := a.store.Put(cfg.ProjectDir, info); err != nil {
		return zerr.Wrap(err, "failed to store build info")
	}
	return nil
}

// Resolve returns the input locations a build would read, in order.
func (a *App) Resolve(ctx context.Context, opts Options) ([]domain.InputLocation, error) {
	cfg, err := a.Configure(opts)
	if err != nil {
		return nil, err
	}
	res, err := a.pipeline.Resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return res.Inputs.Locations(), nil
}

// Producers returns the upstream tasks the host build must run before dexer.
func (a *App) Producers(ctx context.Context, opts Options) ([]domain.ProducerRef, error) {
	cfg, err := a.Configure(opts)
	if err != nil {
		return nil, err
	}
	project, err := a.inspector.Inspect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a.linker.Link(project, cfg.Variants), nil
}

// Inspect summarizes the DEX artifact at path, or the configured output when path is empty.
func (a *App) Inspect(_ context.Context, opts Options, path string) (domain.DexSummary, error) {
	if path == "" {
		cfg, err := a.Configure(opts)
		if err != nil {
			return domain.DexSummary{}, err
		}
		path = cfg.OutputArtifactPath
	}
	return a.reader.Summarize(path)
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Outputs also removes the DEX artifact and the metadata file.
	Outputs bool
	// All removes the whole build info store instead of the record of the configured artifact.
	All bool
}

// Clean forgets the previous build of the configured artifact and, optionally, its outputs.
func (a *App) Clean(_ context.Context, opts Options, options CleanOptions) error {
	cfg, err := a.Configure(opts)
	if err != nil {
		return err
	}

	var errs error
	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.All {
		remove(filepath.Join(cfg.ProjectDir, domain.DefaultStorePath()), "build info store")
	} else if err := a.store.Delete(cfg.ProjectDir, cfg.OutputArtifactPath); err != nil {
		errs = errors.Join(errs, err)
	} else {
		a.logger.Info("removed build info for " + cfg.OutputArtifactPath)
	}
	if options.Outputs {
		remove(cfg.OutputArtifactPath, "dex output")
		remove(cfg.MetadataFilePath, "plugin metadata")
	}
	return errs
}

// Summary renders a one-line description of a build result.
func Summary(result domain.BuildResult) string {
	switch {
	case result.Empty():
		return "no class inputs found"
	case result.Conversion.UpToDate:
		return "up to date: " + result.Conversion.OutputPath
	default:
		return "wrote " + strconv.Itoa(result.Conversion.DexClassCount) + " classes to " + result.Conversion.OutputPath
	}
}
