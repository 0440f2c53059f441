package config

// Dexfile represents the structure of the dexer.yaml configuration file.
type Dexfile struct {
	DetectPluginClasses *bool       `yaml:"detectPluginClasses"`
	MinSdkVersion       *int        `yaml:"minSdkVersion"`
	Debuggable          *bool       `yaml:"debuggable"`
	InputDirs           []string    `yaml:"inputDirs"`
	OutputFile          string      `yaml:"outputFile"`
	PluginClassFile     string      `yaml:"pluginClassFile"`
	PluginAnnotation    string      `yaml:"pluginAnnotation"`
	MultipleMatchPolicy string      `yaml:"multipleMatchPolicy"`
	ArchiveMode         string      `yaml:"archiveMode"`
	Engine              string      `yaml:"engine"`
	D8Path              string      `yaml:"d8Path"`
	Android             AndroidDTO  `yaml:"android"`
	Variants            []string    `yaml:"variants"`
	Modules             []ModuleDTO `yaml:"modules"`
}

// AndroidDTO represents the platform toolchain section.
type AndroidDTO struct {
	SDK           string   `yaml:"sdk"`
	CompileSDK    *int     `yaml:"compileSdk"`
	BootClasspath []string `yaml:"bootClasspath"`
}

// ModuleDTO represents an explicitly declared sub-module.
type ModuleDTO struct {
	Name      string   `yaml:"name"`
	Dir       string   `yaml:"dir"`
	Producers []string `yaml:"producers"`
}
