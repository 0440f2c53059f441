// Package config provides the configuration loader for dexer.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{logger: log}
}

// Load reads the settings of the project at projectDir.
// A relative path is resolved against projectDir.
func (l *Loader) Load(projectDir, path string) (domain.Settings, error) {
	explicit := path != ""
	if !explicit {
		path = domain.ConfigFileName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("no " + domain.ConfigFileName + " found, using defaults")
			return domain.Settings{ProjectDir: projectDir}, nil
		}
		return domain.Settings{}, errors.Join(domain.ErrConfigReadFailed, zerr.With(err, "path", path))
	}

	settings, err := Parse(data)
	if err != nil {
		return domain.Settings{}, zerr.With(err, "path", path)
	}
	settings.ProjectDir = projectDir
	return settings, nil
}

// Parse decodes configuration file content into settings. Unknown keys are rejected.
func Parse(data []byte) (domain.Settings, error) {
	var dexfile Dexfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dexfile); err != nil && !errors.Is(err, io.EOF) {
		return domain.Settings{}, errors.Join(domain.ErrConfigParseFailed, err)
	}
	return dexfile.toSettings(), nil
}

func (d Dexfile) toSettings() domain.Settings {
	s := domain.Settings{
		DetectMarkedClasses: d.DetectPluginClasses,
		MinPlatformVersion:  d.MinSdkVersion,
		Debuggable:          d.Debuggable,
		InputDirs:           d.InputDirs,
		OutputFile:          d.OutputFile,
		PluginClassFile:     d.PluginClassFile,
		PluginAnnotation:    d.PluginAnnotation,
		MultipleMatchPolicy: d.MultipleMatchPolicy,
		ArchiveMode:         d.ArchiveMode,
		Engine:              d.Engine,
		D8Path:              d.D8Path,
		AndroidSDK:          d.Android.SDK,
		CompileSDK:          d.Android.CompileSDK,
		BootClasspath:       d.Android.BootClasspath,
		Variants:            d.Variants,
	}
	for _, m := range d.Modules {
		s.Modules = append(s.Modules, domain.ModuleSpec{Name: m.Name, Dir: m.Dir, Producers: m.Producers})
	}
	return s
}
