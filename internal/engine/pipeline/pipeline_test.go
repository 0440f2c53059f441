package pipeline_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/fs"
	"go.trai.ch/dexer/internal/adapters/telemetry"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/dexer/internal/core/ports/mocks"
	"go.trai.ch/dexer/internal/engine/pipeline"
	"go.uber.org/mock/gomock"
)

type harness struct {
	inspector *mocks.MockProjectInspector
	resolver  *mocks.MockInputResolver
	linker    *mocks.MockUpstreamLinker
	native    *mocks.MockDexConverter
	external  *mocks.MockDexConverter
	extractor *mocks.MockMetadataExtractor
	pipeline  *pipeline.Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithPublisher(t, fs.NewAtomicPublisher())
}

func newHarnessWithPublisher(t *testing.T, publisher ports.Publisher) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		inspector: mocks.NewMockProjectInspector(ctrl),
		resolver:  mocks.NewMockInputResolver(ctrl),
		linker:    mocks.NewMockUpstreamLinker(ctrl),
		native:    mocks.NewMockDexConverter(ctrl),
		external:  mocks.NewMockDexConverter(ctrl),
		extractor: mocks.NewMockMetadataExtractor(ctrl),
	}
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()

	h.pipeline = pipeline.New(h.inspector, h.resolver, h.linker, h.native, h.external, h.extractor,
		publisher, telemetry.NewNoop(), log)
	return h
}

func inputs(names ...string) domain.ResolvedInputSet {
	return domain.NewResolvedInputSet([]domain.InputLocation{{Path: "/in"}}, func(domain.InputLocation) iter.Seq2[domain.ClassEntry, error] {
		return func(yield func(domain.ClassEntry, error) bool) {
			for _, n := range names {
				if !yield(domain.ClassEntry{Location: "/in", RelPath: n + ".class", BinaryName: n}, nil) {
					return
				}
			}
		}
	})
}

func config(t *testing.T, s domain.Settings) domain.BuildConfiguration {
	t.Helper()
	s.ProjectDir = t.TempDir()
	cfg, err := domain.NewBuildConfiguration(s)
	require.NoError(t, err)
	return cfg
}

func detect() domain.Settings {
	enabled := true
	return domain.Settings{DetectMarkedClasses: &enabled}
}

func writeDex(content string) func(context.Context, domain.BuildConfiguration, domain.ResolvedInputSet, io.Writer) (domain.ConversionReport, error) {
	return func(_ context.Context, cfg domain.BuildConfiguration, _ domain.ResolvedInputSet, w io.Writer) (domain.ConversionReport, error) {
		if _, err := io.WriteString(w, content); err != nil {
			return domain.ConversionReport{}, err
		}
		return domain.ConversionReport{ClassCount: 1, DexClassCount: 1, OutputPath: cfg.OutputArtifactPath}, nil
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	return string(data)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestResolve(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, domain.Settings{})
	project := domain.Project{Modules: []domain.Module{{Dir: cfg.ProjectDir}}}
	set := inputs("com/x/A")

	h.inspector.EXPECT().Inspect(gomock.Any(), cfg).Return(project, nil)
	h.resolver.EXPECT().Resolve(gomock.Any(), cfg, project).Return(set, nil)
	h.linker.EXPECT().Verify(project, gomock.Cond(func(got domain.ResolvedInputSet) bool {
		return got.Loaded() && slices.Equal(got.Paths(), set.Paths())
	})).Return(nil)

	res, err := h.pipeline.Resolve(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, project, res.Project)
	assert.Equal(t, set.Paths(), res.Inputs.Paths())
	assert.True(t, res.Inputs.Loaded())
}

func TestResolve_StageError(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, domain.Settings{})
	h.inspector.EXPECT().Inspect(gomock.Any(), cfg).Return(domain.Project{}, domain.ErrInputReadFailed)

	_, err := h.pipeline.Resolve(context.Background(), cfg)
	require.ErrorIs(t, err, domain.ErrInputReadFailed)
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageResolve, stageErr.Stage)
}

func TestRun_PublishesBothOutputs(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, detect())
	set := inputs("com/x/A", "com/x/B")

	h.native.EXPECT().Convert(gomock.Any(), cfg, gomock.Any(), gomock.Any()).DoAndReturn(writeDex("dex"))
	h.extractor.EXPECT().Extract(gomock.Any(), cfg, gomock.Any()).Return(domain.PluginMetadata{Classes: []string{"com.x.B"}}, nil)

	result, err := h.pipeline.Run(context.Background(), cfg, set)
	require.NoError(t, err)

	assert.Equal(t, "dex", readFile(t, cfg.OutputArtifactPath))
	assert.Equal(t, "com.x.B\n", readFile(t, cfg.MetadataFilePath))
	require.NotNil(t, result.Conversion)
	assert.Equal(t, cfg.OutputArtifactPath, result.Conversion.OutputPath)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, []string{"com.x.B"}, result.Metadata.Classes)
	assert.Equal(t, cfg.MetadataFilePath, result.MetadataPath)
	assertNoTempFiles(t, filepath.Dir(cfg.OutputArtifactPath))
}

func TestRun_EmptyInputsIsNoOp(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, detect())

	result, err := h.pipeline.Run(context.Background(), cfg, inputs())
	require.NoError(t, err)

	assert.True(t, result.Empty())
	assert.NoFileExists(t, cfg.OutputArtifactPath)
	assert.NoFileExists(t, cfg.MetadataFilePath)
}

func TestRun_ConversionFailurePublishesNothing(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, detect())
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.OutputArtifactPath), 0o750))
	require.NoError(t, os.WriteFile(cfg.OutputArtifactPath, []byte("previous"), 0o600))

	failure := domain.NewConversionError(domain.ClassEntry{RelPath: "com/x/B.class"}, domain.ErrMalformedClass)
	h.native.EXPECT().Convert(gomock.Any(), cfg, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.BuildConfiguration, _ domain.ResolvedInputSet, w io.Writer) (domain.ConversionReport, error) {
			_, _ = io.WriteString(w, "partial")
			return domain.ConversionReport{}, failure
		})
	h.extractor.EXPECT().Extract(gomock.Any(), cfg, gomock.Any()).Return(domain.PluginMetadata{}, nil).MaxTimes(1)

	_, err := h.pipeline.Run(context.Background(), cfg, inputs("com/x/A", "com/x/B"))
	require.ErrorIs(t, err, domain.ErrConversionFailed)
	require.ErrorIs(t, err, domain.ErrMalformedClass)
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageConvert, stageErr.Stage)

	assert.Equal(t, "previous", readFile(t, cfg.OutputArtifactPath))
	assert.NoFileExists(t, cfg.MetadataFilePath)
	assertNoTempFiles(t, filepath.Dir(cfg.OutputArtifactPath))
}

func TestRun_ExtractionFailurePublishesNothing(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, detect())

	h.native.EXPECT().Convert(gomock.Any(), cfg, gomock.Any(), gomock.Any()).DoAndReturn(writeDex("dex"))
	h.extractor.EXPECT().Extract(gomock.Any(), cfg, gomock.Any()).Return(domain.PluginMetadata{}, domain.ErrAmbiguousMarker)

	_, err := h.pipeline.Run(context.Background(), cfg, inputs("com/x/A"))
	require.ErrorIs(t, err, domain.ErrAmbiguousMarker)
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)

	assert.NoFileExists(t, cfg.OutputArtifactPath)
	assert.NoFileExists(t, cfg.MetadataFilePath)
}

func TestRun_DetectionDisabledLeavesMetadataUntouched(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, domain.Settings{})
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.MetadataFilePath), 0o750))
	require.NoError(t, os.WriteFile(cfg.MetadataFilePath, []byte("com.x.Stale\n"), 0o600))

	h.native.EXPECT().Convert(gomock.Any(), cfg, gomock.Any(), gomock.Any()).DoAndReturn(writeDex("dex"))

	result, err := h.pipeline.Run(context.Background(), cfg, inputs("com/x/A"))
	require.NoError(t, err)

	assert.Nil(t, result.Metadata)
	assert.Equal(t, "com.x.Stale\n", readFile(t, cfg.MetadataFilePath))
}

func TestRun_SelectsExternalEngine(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, domain.Settings{Engine: "d8"})

	h.external.EXPECT().Convert(gomock.Any(), cfg, gomock.Any(), gomock.Any()).DoAndReturn(writeDex("d8"))

	_, err := h.pipeline.Run(context.Background(), cfg, inputs("com/x/A"))
	require.NoError(t, err)
	assert.Equal(t, "d8", readFile(t, cfg.OutputArtifactPath))
}

func TestRun_CanceledPublishesNothing(t *testing.T) {
	h := newHarness(t)
	cfg := config(t, domain.Settings{})
	ctx, cancel := context.WithCancel(context.Background())

	h.native.EXPECT().Convert(gomock.Any(), cfg, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.BuildConfiguration, _ domain.ResolvedInputSet, w io.Writer) (domain.ConversionReport, error) {
			_, _ = io.WriteString(w, "dex")
			cancel()
			return domain.ConversionReport{}, nil
		})

	_, err := h.pipeline.Run(ctx, cfg, inputs("com/x/A"))
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, cfg.OutputArtifactPath)
}

func TestRun_MetadataCommitFailureKeepsPreviousDex(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	h := newHarnessWithPublisher(t, publisher)
	cfg := config(t, detect())
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.OutputArtifactPath), 0o750))
	require.NoError(t, os.WriteFile(cfg.OutputArtifactPath, []byte("previous"), 0o600))

	metaOut := mocks.NewMockStagedFile(ctrl)
	metaOut.EXPECT().Path().Return(cfg.MetadataFilePath).AnyTimes()
	metaOut.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) { return len(p), nil })
	metaOut.EXPECT().Commit().Return(domain.ErrPublishFailed)
	metaOut.EXPECT().Discard().Return(nil).AnyTimes()

	publisher.EXPECT().Stage(cfg.OutputArtifactPath).DoAndReturn(fs.NewAtomicPublisher().Stage)
	publisher.EXPECT().Stage(cfg.MetadataFilePath).Return(metaOut, nil)
	h.native.EXPECT().Convert(gomock.Any(), cfg, gomock.Any(), gomock.Any()).DoAndReturn(writeDex("dex"))
	h.extractor.EXPECT().Extract(gomock.Any(), cfg, gomock.Any()).Return(domain.PluginMetadata{Classes: []string{"com.x.A"}}, nil)

	_, err := h.pipeline.Run(context.Background(), cfg, inputs("com/x/A"))
	require.ErrorIs(t, err, domain.ErrPublishFailed)
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageExtract, stageErr.Stage)

	assert.Equal(t, "previous", readFile(t, cfg.OutputArtifactPath))
	assertNoTempFiles(t, filepath.Dir(cfg.OutputArtifactPath))
}
