package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/fs"
	"go.trai.ch/dexer/internal/core/domain"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte{0xCA, 0xFE, 0xBA, 0xBE}, 0o600))
}

func config(t *testing.T, root string, s domain.Settings) domain.BuildConfiguration {
	t.Helper()
	s.ProjectDir = root
	cfg, err := domain.NewBuildConfiguration(s)
	require.NoError(t, err)
	return cfg
}

func binaryNames(t *testing.T, set domain.ResolvedInputSet) []string {
	t.Helper()
	var names []string
	for e, err := range set.Entries() {
		require.NoError(t, err)
		names = append(names, e.BinaryName)
	}
	return names
}

func TestResolver_ExplicitPrecedence(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "out/a/com/x/Foo.class"))
	touch(t, filepath.Join(root, "out/a/com/x/notes.txt"))
	touch(t, filepath.Join(root, "build/classes/kotlin/main/Ignored.class"))

	cfg := config(t, root, domain.Settings{InputDirs: []string{"out/a"}})
	project := domain.Project{Modules: []domain.Module{{Dir: root, Producers: []string{"compileKotlin"}}}}

	set, err := fs.NewResolver(fs.NewWalker()).Resolve(context.Background(), cfg, project)
	require.NoError(t, err)

	require.Len(t, set.Locations(), 1)
	assert.Equal(t, domain.OriginExplicit, set.Locations()[0].Origin)
	assert.Equal(t, []string{"com/x/Foo"}, binaryNames(t, set))
}

func TestResolver_ConventionOrder(t *testing.T) {
	root := t.TempDir()
	project := domain.Project{Modules: []domain.Module{
		{Dir: root, Producers: []string{"compileJava", "compileKotlin", "compileReleaseKotlin"}},
		{Name: "lib", Dir: filepath.Join(root, "lib"), Producers: []string{"compileDebugJavaWithJavac"}},
		{Name: "empty", Dir: filepath.Join(root, "empty")},
	}}

	cfg := config(t, root, domain.Settings{InputDirs: []string{}})
	set, err := fs.NewResolver(fs.NewWalker()).Resolve(context.Background(), cfg, project)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "build/classes/kotlin/main"),
		filepath.Join(root, "build/classes/java/main"),
		filepath.Join(root, "build/tmp/kotlin-classes/release"),
		filepath.Join(root, "lib/build/intermediates/javac/debug/classes"),
	}, set.Paths())

	locs := set.Locations()
	assert.Equal(t, "compileKotlin", locs[0].Producer)
	assert.Equal(t, "lib", locs[3].Module)
	assert.Equal(t, domain.OriginConvention, locs[3].Origin)
}

func TestResolver_Fallback(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "build/classes/b/B.class"))
	touch(t, filepath.Join(root, "build/classes/a/A.class"))

	cfg := config(t, root, domain.Settings{InputDirs: []string{}})
	set, err := fs.NewResolver(fs.NewWalker()).Resolve(context.Background(), cfg, domain.Project{
		Modules: []domain.Module{{Dir: root}},
	})
	require.NoError(t, err)

	require.Len(t, set.Locations(), 1)
	assert.Equal(t, domain.OriginFallback, set.Locations()[0].Origin)
	assert.Equal(t, []string{"a/A", "b/B"}, binaryNames(t, set))
}

func TestResolver_DefaultInputDir(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "build/classes/java/main/com/x/Foo.class"))
	touch(t, filepath.Join(root, "build/classes/kotlin/main/com/x/Bar.class"))
	project := domain.Project{Modules: []domain.Module{{Dir: root, Producers: []string{"compileKotlin"}}}}

	set, err := fs.NewResolver(fs.NewWalker()).Resolve(context.Background(), config(t, root, domain.Settings{}), project)
	require.NoError(t, err)

	require.Len(t, set.Locations(), 1)
	assert.Equal(t, domain.OriginExplicit, set.Locations()[0].Origin)
	assert.Equal(t, filepath.Join(root, "build/classes"), set.Locations()[0].Path)
}

func TestResolver_EmptyIsValid(t *testing.T) {
	root := t.TempDir()

	cfg := config(t, root, domain.Settings{InputDirs: []string{"does/not/exist"}})
	set, err := fs.NewResolver(fs.NewWalker()).Resolve(context.Background(), cfg, domain.Project{})
	require.NoError(t, err)

	assert.True(t, set.IsEmpty())
}

func TestResolver_DeterministicAcrossRuns(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"z/Z.class", "a/A.class", "m/M.class", "a/b/C.class"} {
		touch(t, filepath.Join(root, "out", name))
	}
	cfg := config(t, root, domain.Settings{InputDirs: []string{"out"}})
	r := fs.NewResolver(fs.NewWalker())

	first, err := r.Resolve(context.Background(), cfg, domain.Project{})
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), cfg, domain.Project{})
	require.NoError(t, err)

	assert.Equal(t, binaryNames(t, first), binaryNames(t, second))
	assert.Equal(t, []string{"a/A", "a/b/C", "m/M", "z/Z"}, binaryNames(t, first))
}

func TestResolver_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fs.NewResolver(fs.NewWalker()).Resolve(ctx, config(t, t.TempDir(), domain.Settings{}), domain.Project{})
	assert.ErrorIs(t, err, context.Canceled)
}
