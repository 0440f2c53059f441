package linker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/fs"
	"go.trai.ch/dexer/internal/adapters/linker"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func paths(refs []domain.ProducerRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Path())
	}
	return out
}

func TestLinker_Link(t *testing.T) {
	project := domain.Project{Modules: []domain.Module{
		{Producers: []string{"classes", "compileJava", "compileKotlin"}},
		{Name: "lib", Producers: []string{"compileReleaseJavaWithJavac", "compileDebugJavaWithJavac"}},
		{Name: "docs"},
	}}

	ctrl := gomock.NewController(t)
	l := linker.New(fs.NewVerifier(), mocks.NewMockLogger(ctrl))

	assert.Equal(t, []string{
		":compileKotlin",
		":compileJava",
		":classes",
		":lib:compileDebugJavaWithJavac",
		":lib:compileReleaseJavaWithJavac",
	}, paths(l.Link(project, []string{"debug", "release"})))
}

func TestLinker_LinkToleratesAbsentProducers(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := linker.New(fs.NewVerifier(), mocks.NewMockLogger(ctrl))

	assert.Empty(t, l.Link(domain.Project{Modules: []domain.Module{{}}}, nil))
}

func TestLinker_Verify(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build/classes/kotlin/main"), 0o750))

	project := domain.Project{Modules: []domain.Module{{Dir: root, Producers: []string{"compileKotlin", "compileJava"}}}}
	cfg, err := domain.NewBuildConfiguration(domain.Settings{ProjectDir: root})
	require.NoError(t, err)
	set, err := fs.NewResolver(fs.NewWalker()).Resolve(context.Background(), cfg, project)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)

	missing := linker.New(fs.NewVerifier(), log).Verify(project, set)
	assert.Equal(t, []string{":compileJava"}, paths(missing))
}
