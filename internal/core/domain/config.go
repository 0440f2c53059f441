package domain

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ArchiveMode selects how converted classes are packaged.
type ArchiveMode string

const (
	// ArchiveMerged writes every class into one DEX file.
	ArchiveMerged ArchiveMode = "merged"
	// ArchivePerClass writes one DEX file per class into a zip archive.
	ArchivePerClass ArchiveMode = "per-class"
)

// Engine selects the conversion backend.
type Engine string

const (
	// EngineNative converts classes in-process.
	EngineNative Engine = "native"
	// EngineD8 delegates conversion to an external d8 binary.
	EngineD8 Engine = "d8"
)

// MultipleMatchPolicy decides what happens when several classes carry the marker annotation.
type MultipleMatchPolicy string

const (
	// MatchAll records every match, one per line, in resolution order.
	MatchAll MultipleMatchPolicy = "all"
	// MatchFirst records only the first match in resolution order.
	MatchFirst MultipleMatchPolicy = "first"
	// MatchFail fails the invocation when more than one class matches.
	MatchFail MultipleMatchPolicy = "fail"
)

const (
	// DefaultMinPlatformVersion is the default minimum Android API level.
	DefaultMinPlatformVersion = 26
	// DefaultCompileSDK is the platform level whose android.jar is used as boot classpath.
	DefaultCompileSDK = 34
	// DefaultOutputFile is the default DEX artifact location, relative to the project.
	DefaultOutputFile = "build/outputs/dex/classes.dex"
	// DefaultPluginClassFile is the default metadata file location, relative to the project.
	DefaultPluginClassFile = "build/outputs/dex/plugin-class.txt"
	// DefaultMarkerAnnotation is the default marker annotation, in source form.
	DefaultMarkerAnnotation = "dexer.annotation.Plugin"
	// DefaultD8Path is the default external converter binary.
	DefaultD8Path = "d8"
	// FallbackInputDir is the default explicit input and the auto-detection fallback.
	FallbackInputDir = "build/classes"
)

// DefaultVariants are the build variants probed by auto-detection.
func DefaultVariants() []string {
	return []string{"debug", "release"}
}

var variantPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// ModuleSpec declares a sub-module explicitly, overriding topology discovery.
type ModuleSpec struct {
	// Name is the module identity, e.g. "lib".
	Name string
	// Dir is the module directory relative to the project. Defaults to Name.
	Dir string
	// Producers lists the configured producer tasks, e.g. "compileKotlin".
	// A nil slice means "probe the filesystem".
	Producers []string
}

// Settings holds partially specified configuration gathered from the config file and flags.
// Nil pointers and empty values mean "not set". InputDirs is the exception: nil means
// "not set" while a non-nil empty slice requests auto-detection.
type Settings struct {
	ProjectDir          string
	DetectMarkedClasses *bool
	MinPlatformVersion  *int
	Debuggable          *bool
	InputDirs           []string
	OutputFile          string
	PluginClassFile     string
	PluginAnnotation    string
	MultipleMatchPolicy string
	ArchiveMode         string
	Engine              string
	D8Path              string
	AndroidSDK          string
	CompileSDK          *int
	BootClasspath       []string
	Variants            []string
	Modules             []ModuleSpec
	NoCache             bool
}

// Merge returns s overridden by every value set in o.
func (s Settings) Merge(o Settings) Settings {
	if o.ProjectDir != "" {
		s.ProjectDir = o.ProjectDir
	}
	if o.DetectMarkedClasses != nil {
		s.DetectMarkedClasses = o.DetectMarkedClasses
	}
	if o.MinPlatformVersion != nil {
		s.MinPlatformVersion = o.MinPlatformVersion
	}
	if o.Debuggable != nil {
		s.Debuggable = o.Debuggable
	}
	if o.InputDirs != nil {
		s.InputDirs = o.InputDirs
	}
	if o.OutputFile != "" {
		s.OutputFile = o.OutputFile
	}
	if o.PluginClassFile != "" {
		s.PluginClassFile = o.PluginClassFile
	}
	if o.PluginAnnotation != "" {
		s.PluginAnnotation = o.PluginAnnotation
	}
	if o.MultipleMatchPolicy != "" {
		s.MultipleMatchPolicy = o.MultipleMatchPolicy
	}
	if o.ArchiveMode != "" {
		s.ArchiveMode = o.ArchiveMode
	}
	if o.Engine != "" {
		s.Engine = o.Engine
	}
	if o.D8Path != "" {
		s.D8Path = o.D8Path
	}
	if o.AndroidSDK != "" {
		s.AndroidSDK = o.AndroidSDK
	}
	if o.CompileSDK != nil {
		s.CompileSDK = o.CompileSDK
	}
	if len(o.BootClasspath) > 0 {
		s.BootClasspath = o.BootClasspath
	}
	if len(o.Variants) > 0 {
		s.Variants = o.Variants
	}
	if len(o.Modules) > 0 {
		s.Modules = o.Modules
	}
	s.NoCache = s.NoCache || o.NoCache
	return s
}

// BuildConfiguration is the validated, immutable configuration of one invocation.
// All paths are absolute. Construct it with NewBuildConfiguration.
type BuildConfiguration struct {
	ProjectDir          string
	MinPlatformVersion  int
	DebugInfoEnabled    bool
	DetectMarkedClasses bool
	ExplicitInputPaths  []string
	OutputArtifactPath  string
	MetadataFilePath    string
	MarkerAnnotation    string
	MultipleMatchPolicy MultipleMatchPolicy
	ArchiveMode         ArchiveMode
	Engine              Engine
	D8Path              string
	AndroidSDK          string
	CompileSDK          int
	BootClasspath       []string
	Variants            []string
	Modules             []ModuleSpec
	NoCache             bool
}

// NewBuildConfiguration applies defaults to s, validates it and resolves every path against
// the project directory. Validation happens before any I/O.
func NewBuildConfiguration(s Settings) (BuildConfiguration, error) {
	projectDir := s.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}
	absProject, err := filepath.Abs(projectDir)
	if err != nil {
		return BuildConfiguration{}, NewConfigError("projectDir", projectDir, err.Error())
	}

	cfg := BuildConfiguration{
		ProjectDir:          absProject,
		MinPlatformVersion:  DefaultMinPlatformVersion,
		DebugInfoEnabled:    true,
		MultipleMatchPolicy: MatchAll,
		ArchiveMode:         ArchiveMerged,
		Engine:              EngineNative,
		D8Path:              DefaultD8Path,
		CompileSDK:          DefaultCompileSDK,
		Variants:            DefaultVariants(),
		NoCache:             s.NoCache,
	}

	if s.MinPlatformVersion != nil {
		if *s.MinPlatformVersion < 1 {
			return BuildConfiguration{}, NewConfigError("minSdkVersion", *s.MinPlatformVersion, "must be a positive API level")
		}
		cfg.MinPlatformVersion = *s.MinPlatformVersion
	}
	if s.CompileSDK != nil {
		if *s.CompileSDK < 1 {
			return BuildConfiguration{}, NewConfigError("android.compileSdk", *s.CompileSDK, "must be a positive API level")
		}
		cfg.CompileSDK = *s.CompileSDK
	}
	if s.Debuggable != nil {
		cfg.DebugInfoEnabled = *s.Debuggable
	}
	if s.DetectMarkedClasses != nil {
		cfg.DetectMarkedClasses = *s.DetectMarkedClasses
	}

	inputDirs := s.InputDirs
	if inputDirs == nil {
		inputDirs = []string{FallbackInputDir}
	}
	if cfg.ExplicitInputPaths, err = absPaths(absProject, "inputDirs", inputDirs); err != nil {
		return BuildConfiguration{}, err
	}
	if cfg.BootClasspath, err = absPaths(absProject, "android.bootClasspath", s.BootClasspath); err != nil {
		return BuildConfiguration{}, err
	}

	cfg.OutputArtifactPath = absPath(absProject, orDefault(s.OutputFile, DefaultOutputFile))
	cfg.MetadataFilePath = absPath(absProject, orDefault(s.PluginClassFile, DefaultPluginClassFile))
	if cfg.OutputArtifactPath == cfg.MetadataFilePath {
		return BuildConfiguration{}, NewConfigError("pluginClassFile", s.PluginClassFile, "must differ from outputFile")
	}
	if strings.HasSuffix(s.OutputFile, "/") || strings.HasSuffix(s.OutputFile, string(filepath.Separator)) {
		return BuildConfiguration{}, NewConfigError("outputFile", s.OutputFile, "must name a file, not a directory")
	}

	if s.AndroidSDK != "" {
		cfg.AndroidSDK = absPath(absProject, s.AndroidSDK)
	}
	if s.D8Path != "" {
		cfg.D8Path = s.D8Path
	}

	cfg.MarkerAnnotation, err = NormalizeAnnotation(orDefault(s.PluginAnnotation, DefaultMarkerAnnotation))
	if err != nil {
		return BuildConfiguration{}, err
	}

	if s.MultipleMatchPolicy != "" {
		p := MultipleMatchPolicy(strings.ToLower(s.MultipleMatchPolicy))
		if !slices.Contains([]MultipleMatchPolicy{MatchAll, MatchFirst, MatchFail}, p) {
			return BuildConfiguration{}, NewConfigError("multipleMatchPolicy", s.MultipleMatchPolicy, "expected all, first or fail")
		}
		cfg.MultipleMatchPolicy = p
	}
	if s.ArchiveMode != "" {
		m := ArchiveMode(strings.ToLower(s.ArchiveMode))
		if m != ArchiveMerged && m != ArchivePerClass {
			return BuildConfiguration{}, NewConfigError("archiveMode", s.ArchiveMode, "expected merged or per-class")
		}
		cfg.ArchiveMode = m
	}
	if s.Engine != "" {
		e := Engine(strings.ToLower(s.Engine))
		if e != EngineNative && e != EngineD8 {
			return BuildConfiguration{}, NewConfigError("engine", s.Engine, "expected native or d8")
		}
		cfg.Engine = e
	}

	if len(s.Variants) > 0 {
		variants := make([]string, 0, len(s.Variants))
		for _, v := range s.Variants {
			if !variantPattern.MatchString(v) {
				return BuildConfiguration{}, NewConfigError("variants", v, "variant names must be alphanumeric")
			}
			if !slices.Contains(variants, v) {
				variants = append(variants, v)
			}
		}
		cfg.Variants = variants
	}

	modules, err := normalizeModules(s.Modules)
	if err != nil {
		return BuildConfiguration{}, err
	}
	cfg.Modules = modules

	return cfg, nil
}

// UsesExplicitInputs reports whether auto-detection is bypassed.
func (c BuildConfiguration) UsesExplicitInputs() bool {
	return len(c.ExplicitInputPaths) > 0
}

// NormalizeAnnotation converts a dotted class name or a type descriptor into a descriptor,
// e.g. "a.b.Plugin" becomes "La/b/Plugin;".
func NormalizeAnnotation(name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") && !strings.Contains(name, ".") {
		if len(name) > 2 {
			return name, nil
		}
	} else if name != "" && !strings.ContainsAny(name, "/;[ ") &&
		!strings.HasPrefix(name, ".") && !strings.HasSuffix(name, ".") && !strings.Contains(name, "..") {
		return "L" + strings.ReplaceAll(name, ".", "/") + ";", nil
	}
	return "", NewConfigError("pluginAnnotation", name, "expected a qualified class name or a type descriptor")
}

func normalizeModules(specs []ModuleSpec) ([]ModuleSpec, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(specs))
	out := make([]ModuleSpec, 0, len(specs))
	for _, m := range specs {
		name := strings.Trim(strings.TrimSpace(m.Name), ":")
		if name == "" {
			return nil, NewConfigError("modules.name", m.Name, "module name must not be empty")
		}
		if seen[name] {
			return nil, NewConfigError("modules.name", m.Name, "duplicate module")
		}
		seen[name] = true
		dir := m.Dir
		if dir == "" {
			dir = strings.ReplaceAll(name, ":", string(filepath.Separator))
		}
		if filepath.IsAbs(dir) {
			return nil, NewConfigError("modules.dir", m.Dir, "module directory must be relative to the project")
		}
		var producers []string
		if m.Producers != nil {
			producers = slices.Clone(m.Producers)
		}
		out = append(out, ModuleSpec{Name: name, Dir: filepath.Clean(dir), Producers: producers})
	}
	return out, nil
}

func absPaths(root, field string, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return nil, NewConfigError(field, p, "path must not be empty")
		}
		abs := absPath(root, p)
		if !slices.Contains(out, abs) {
			out = append(out, abs)
		}
	}
	return out, nil
}

func absPath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
