package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/dexer/internal/adapters/project"
)

func TestParseSettings_KotlinDSL(t *testing.T) {
	script := `
rootProject.name = "host"
include(":app")
include(
    ":feature:login",
    ":lib", // shared code
)
// include(":disabled")
includeBuild("build-logic")
`
	modules := project.ParseSettings(script)

	assert.Equal(t, []project.SettingsModule{
		{Name: "app", Dir: "app"},
		{Name: "feature:login", Dir: "feature/login"},
		{Name: "lib", Dir: "lib"},
	}, modules)
}

func TestParseSettings_Groovy(t *testing.T) {
	script := `
include ':core', ':plugins:api'
/* include ':old' */
include ':core'
project(':plugins:api').projectDir = new File(settingsDir, 'api')
`
	modules := project.ParseSettings(script)

	assert.Equal(t, []project.SettingsModule{
		{Name: "core", Dir: "core"},
		{Name: "plugins:api", Dir: "api"},
	}, modules)
}

func TestParseSettings_ProjectDirFile(t *testing.T) {
	script := `include("lib")
project(":lib").projectDir = file("libraries/lib")`

	assert.Equal(t, []project.SettingsModule{{Name: "lib", Dir: "libraries/lib"}}, project.ParseSettings(script))
}

func TestParseSettings_Empty(t *testing.T) {
	assert.Empty(t, project.ParseSettings(`rootProject.name = "single"`))
}
