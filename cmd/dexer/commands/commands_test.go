package commands_test

import (
	"bytes"
	"context"
	"io"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/cmd/dexer/commands"
	"go.trai.ch/dexer/internal/adapters/fs"
	"go.trai.ch/dexer/internal/adapters/telemetry"
	"go.trai.ch/dexer/internal/app"
	"go.trai.ch/dexer/internal/build"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports/mocks"
	"go.trai.ch/dexer/internal/engine/pipeline"
	"go.uber.org/mock/gomock"
)

type mockSet struct {
	loader    *mocks.MockConfigLoader
	inspector *mocks.MockProjectInspector
	resolver  *mocks.MockInputResolver
	linker    *mocks.MockUpstreamLinker
	converter *mocks.MockDexConverter
	extractor *mocks.MockMetadataExtractor
	hasher    *mocks.MockHasher
	store     *mocks.MockBuildInfoStore
	reader    *mocks.MockDexReader
}

// newCLI returns a CLI over mocked adapters, writing command output to the returned buffer.
func newCLI(t *testing.T, args ...string) (*commands.CLI, *mockSet, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &mockSet{
		loader:    mocks.NewMockConfigLoader(ctrl),
		inspector: mocks.NewMockProjectInspector(ctrl),
		resolver:  mocks.NewMockInputResolver(ctrl),
		linker:    mocks.NewMockUpstreamLinker(ctrl),
		converter: mocks.NewMockDexConverter(ctrl),
		extractor: mocks.NewMockMetadataExtractor(ctrl),
		hasher:    mocks.NewMockHasher(ctrl),
		store:     mocks.NewMockBuildInfoStore(ctrl),
		reader:    mocks.NewMockDexReader(ctrl),
	}
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	noop := telemetry.NewNoop()
	pipe := pipeline.New(m.inspector, m.resolver, m.linker, m.converter, m.converter, m.extractor,
		fs.NewAtomicPublisher(), noop, log)
	cli := commands.New(app.New(m.loader, pipe, m.inspector, m.linker, m.hasher, m.store, m.reader, noop, log))

	var out bytes.Buffer
	cli.SetOutput(&out, io.Discard)
	cli.SetArgs(args)
	return cli, m, &out
}

func singleClass(dir string) domain.ResolvedInputSet {
	return domain.NewResolvedInputSet([]domain.InputLocation{{Path: dir, Origin: domain.OriginExplicit}}, func(domain.InputLocation) iter.Seq2[domain.ClassEntry, error] {
		return func(yield func(domain.ClassEntry, error) bool) {
			yield(domain.ClassEntry{Location: dir, RelPath: "com/x/A.class", BinaryName: "com/x/A"}, nil)
		}
	})
}

func TestBuild_FlagsOverrideConfiguration(t *testing.T) {
	dir := t.TempDir()
	cli, m, out := newCLI(t, "build", "-C", dir, "--min-sdk", "21", "--debuggable=false", "--input", "a", "--input", "b", "--no-cache")

	m.loader.EXPECT().Load(dir, "").Return(domain.Settings{}, nil)
	m.inspector.EXPECT().Inspect(gomock.Any(), gomock.Any()).Return(domain.Project{}, nil)
	m.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cfg domain.BuildConfiguration, _ domain.Project) (domain.ResolvedInputSet, error) {
			assert.Equal(t, []string{dir + "/a", dir + "/b"}, cfg.ExplicitInputPaths)
			return singleClass(dir), nil
		})
	m.linker.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)
	m.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Any()).Return("in", nil)
	m.converter.EXPECT().Convert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cfg domain.BuildConfiguration, _ domain.ResolvedInputSet, w io.Writer) (domain.ConversionReport, error) {
			assert.Equal(t, 21, cfg.MinPlatformVersion)
			assert.False(t, cfg.DebugInfoEnabled)
			assert.True(t, cfg.NoCache)
			_, err := io.WriteString(w, "dex")
			return domain.ConversionReport{ClassCount: 1, DexClassCount: 1, OutputPath: cfg.OutputArtifactPath}, err
		})
	m.hasher.EXPECT().ComputeFileHash(gomock.Any()).Return("out", nil)
	m.store.EXPECT().Put(dir, gomock.Any()).Return(nil)

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "wrote 1 classes to "+dir+"/build/outputs/dex/classes.dex")
}

func TestBuild_DetectInputsFlag(t *testing.T) {
	dir := t.TempDir()
	cli, m, out := newCLI(t, "build", "-C", dir, "--detect-inputs")

	m.loader.EXPECT().Load(dir, "").Return(domain.Settings{InputDirs: []string{"out"}}, nil)
	m.inspector.EXPECT().Inspect(gomock.Any(), gomock.Any()).Return(domain.Project{}, nil)
	m.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cfg domain.BuildConfiguration, _ domain.Project) (domain.ResolvedInputSet, error) {
			assert.False(t, cfg.UsesExplicitInputs())
			return domain.ResolvedInputSet{}, nil
		})
	m.linker.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "no class inputs found\n", out.String())
}

func TestBuild_ConfigFlag(t *testing.T) {
	dir := t.TempDir()
	cli, m, _ := newCLI(t, "build", "-C", dir, "-c", "ci.yaml")

	m.loader.EXPECT().Load(dir, "ci.yaml").Return(domain.Settings{}, domain.ErrConfigReadFailed)

	err := cli.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrConfigReadFailed)
}

func TestResolve_PrintsLocations(t *testing.T) {
	dir := t.TempDir()
	cli, m, out := newCLI(t, "resolve", "-C", dir)

	m.loader.EXPECT().Load(dir, "").Return(domain.Settings{}, nil)
	m.inspector.EXPECT().Inspect(gomock.Any(), gomock.Any()).Return(domain.Project{}, nil)
	m.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(singleClass(dir+"/out"), nil)
	m.linker.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "explicit\t"+dir+"/out\n", out.String())
}

func TestProducers_PrintsTaskPaths(t *testing.T) {
	dir := t.TempDir()
	cli, m, out := newCLI(t, "producers", "-C", dir)

	m.loader.EXPECT().Load(dir, "").Return(domain.Settings{}, nil)
	m.inspector.EXPECT().Inspect(gomock.Any(), gomock.Any()).Return(domain.Project{}, nil)
	m.linker.EXPECT().Link(gomock.Any(), gomock.Any()).Return([]domain.ProducerRef{
		{Task: "compileKotlin"},
		{Module: "lib", Task: "compileJava"},
	})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, ":compileKotlin\n:lib:compileJava\n", out.String())
}

func TestInspect_PrintsSummary(t *testing.T) {
	cli, m, out := newCLI(t, "inspect", "--classes", "/tmp/classes.dex")

	m.reader.EXPECT().Summarize("/tmp/classes.dex").Return(domain.DexSummary{
		Path:           "/tmp/classes.dex",
		Version:        "038",
		Files:          1,
		Classes:        []string{"Lcom/x/A;"},
		ChecksumValid:  true,
		SignatureValid: false,
	}, nil)

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "version:   038\n")
	assert.Contains(t, out.String(), "checksum:  valid\n")
	assert.Contains(t, out.String(), "signature: INVALID\n")
	assert.Contains(t, out.String(), "  Lcom/x/A;\n")
}

func TestVersion(t *testing.T) {
	cli, _, out := newCLI(t, "version")

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, build.Version+"\n", out.String())
}

func TestVerboseHook(t *testing.T) {
	cli, _, _ := newCLI(t, "-v", "version")

	var verbose bool
	cli.SetVerboseHook(func(v bool) { verbose = v })
	require.NoError(t, cli.Execute(context.Background()))
	assert.True(t, verbose)
}

func TestVersionFlag(t *testing.T) {
	cli, _, out := newCLI(t, "--version")

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), build.Version)
}

func TestVerboseShorthandOnSubcommand(t *testing.T) {
	dir := t.TempDir()
	cli, m, out := newCLI(t, "resolve", "-v", "-C", dir)
	m.loader.EXPECT().Load(dir, "").Return(domain.Settings{}, nil)
	m.inspector.EXPECT().Inspect(gomock.Any(), gomock.Any()).Return(domain.Project{}, nil)
	m.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.ResolvedInputSet{}, nil)
	m.linker.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)

	var verbose bool
	cli.SetVerboseHook(func(v bool) { verbose = v })
	require.NoError(t, cli.Execute(context.Background()))
	assert.True(t, verbose)
	assert.Empty(t, out.String())
}
