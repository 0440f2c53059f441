package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/config"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_InputDirs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"unset", "minSdkVersion: 24\n", nil},
		{"empty requests detection", "inputDirs: []\n", []string{}},
		{"listed", "inputDirs: [out]\n", []string{"out"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "dexer.yaml", tt.content)

			s, err := config.NewLoader(mocks.NewMockLogger(gomock.NewController(t))).Load(dir, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.InputDirs)
		})
	}
}

func TestLoad_Success(t *testing.T) {
	content := `
detectPluginClasses: true
minSdkVersion: 21
debuggable: false
inputDirs: ["out/a", "out/b"]
outputFile: dist/app.dex
pluginClassFile: dist/plugins.txt
pluginAnnotation: com.acme.Entry
multipleMatchPolicy: first
archiveMode: per-class
engine: d8
d8Path: /opt/build-tools/d8
android:
  sdk: /opt/android
  compileSdk: 33
  bootClasspath: ["libs/android.jar"]
variants: ["free", "paid"]
modules:
  - name: lib
    dir: libs/lib
    producers: ["compileJava"]
`
	dir := t.TempDir()
	writeConfig(t, dir, "dexer.yaml", content)

	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	s, err := loader.Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, dir, s.ProjectDir)
	require.NotNil(t, s.DetectMarkedClasses)
	assert.True(t, *s.DetectMarkedClasses)
	require.NotNil(t, s.MinPlatformVersion)
	assert.Equal(t, 21, *s.MinPlatformVersion)
	require.NotNil(t, s.Debuggable)
	assert.False(t, *s.Debuggable)
	assert.Equal(t, []string{"out/a", "out/b"}, s.InputDirs)
	assert.Equal(t, "dist/app.dex", s.OutputFile)
	assert.Equal(t, "dist/plugins.txt", s.PluginClassFile)
	assert.Equal(t, "com.acme.Entry", s.PluginAnnotation)
	assert.Equal(t, "first", s.MultipleMatchPolicy)
	assert.Equal(t, "per-class", s.ArchiveMode)
	assert.Equal(t, "d8", s.Engine)
	assert.Equal(t, "/opt/build-tools/d8", s.D8Path)
	assert.Equal(t, "/opt/android", s.AndroidSDK)
	require.NotNil(t, s.CompileSDK)
	assert.Equal(t, 33, *s.CompileSDK)
	assert.Equal(t, []string{"libs/android.jar"}, s.BootClasspath)
	assert.Equal(t, []string{"free", "paid"}, s.Variants)
	assert.Equal(t, []domain.ModuleSpec{{Name: "lib", Dir: "libs/lib", Producers: []string{"compileJava"}}}, s.Modules)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	dir := t.TempDir()

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).Times(1)

	s, err := config.NewLoader(log).Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, domain.Settings{ProjectDir: dir}, s)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := t.TempDir()

	ctrl := gomock.NewController(t)
	_, err := config.NewLoader(mocks.NewMockLogger(ctrl)).Load(dir, "custom.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigReadFailed)
}

func TestLoad_ExplicitRelativePath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "ci.yaml", "minSdkVersion: 19\n")

	ctrl := gomock.NewController(t)
	s, err := config.NewLoader(mocks.NewMockLogger(ctrl)).Load(dir, "ci.yaml")
	require.NoError(t, err)
	require.NotNil(t, s.MinPlatformVersion)
	assert.Equal(t, 19, *s.MinPlatformVersion)
}

func TestParse_Empty(t *testing.T) {
	s, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Settings{}, s)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := config.Parse([]byte("minSdk: 21\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

func TestParse_InvalidType(t *testing.T) {
	_, err := config.Parse([]byte("minSdkVersion: [1, 2]\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

func TestParse_FeedsValidation(t *testing.T) {
	s, err := config.Parse([]byte("minSdkVersion: -3\n"))
	require.NoError(t, err)

	s.ProjectDir = t.TempDir()
	_, err = domain.NewBuildConfiguration(s)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
