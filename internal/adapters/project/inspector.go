// Package project discovers the module topology of a Gradle-style project.
package project

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ProjectInspector = (*Inspector)(nil)

var (
	settingsScripts = []string{"settings.gradle.kts", "settings.gradle"}
	buildScripts    = []string{"build.gradle.kts", "build.gradle"}
)

// Inspector implements ports.ProjectInspector by reading Gradle build scripts.
// Modules without a build script are probed on the file system instead: a producer is
// considered configured when its conventional output directory exists.
type Inspector struct {
	logger ports.Logger
}

// NewInspector creates a new Inspector.
func NewInspector(log ports.Logger) *Inspector {
	return &Inspector{logger: log}
}

// Inspect returns the root module followed by its sub-modules in declared order.
// Sub-modules come from the configuration when declared there, otherwise from the settings script.
func (i *Inspector) Inspect(ctx context.Context, cfg domain.BuildConfiguration) (domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return domain.Project{}, err
	}

	root, err := i.module("", cfg.ProjectDir, nil, cfg.Variants)
	if err != nil {
		return domain.Project{}, err
	}
	project := domain.Project{Modules: []domain.Module{root}}

	specs := cfg.Modules
	if len(specs) == 0 {
		declared, err := readSettings(cfg.ProjectDir)
		if err != nil {
			return domain.Project{}, err
		}
		for _, m := range declared {
			specs = append(specs, domain.ModuleSpec{Name: m.Name, Dir: filepath.FromSlash(m.Dir)})
		}
	}

	for _, spec := range specs {
		m, err := i.module(spec.Name, filepath.Join(cfg.ProjectDir, spec.Dir), spec.Producers, cfg.Variants)
		if err != nil {
			return domain.Project{}, err
		}
		project.Modules = append(project.Modules, m)
	}
	return project, nil
}

func (i *Inspector) module(name, dir string, producers, variants []string) (domain.Module, error) {
	m := domain.Module{Name: name, Dir: dir, Producers: producers}
	if producers != nil {
		return m, nil
	}

	script, ok, err := readFirst(dir, buildScripts)
	if err != nil {
		return domain.Module{}, err
	}
	if ok {
		m.Producers = ParsePlugins(script).Producers(variants)
		return m, nil
	}

	for _, c := range domain.Conventions(variants) {
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(c.OutputDir))); err == nil && info.IsDir() {
			m.Producers = append(m.Producers, c.Producer)
		}
	}
	if len(m.Producers) > 0 {
		i.logger.Debug("no build script in " + dir + ", producers probed from existing output directories")
	}
	return m, nil
}

func readSettings(dir string) ([]SettingsModule, error) {
	script, ok, err := readFirst(dir, settingsScripts)
	if err != nil || !ok {
		return nil, err
	}
	return ParseSettings(script), nil
}

func readFirst(dir string, names []string) (string, bool, error) {
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path) //nolint:gosec // path is derived from the project directory
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", false, zerr.With(zerr.Wrap(err, "failed to read build script"), "path", path)
		}
		return string(data), true, nil
	}
	return "", false, nil
}
