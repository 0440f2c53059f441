package d8_test

import (
	"archive/zip"
	"bytes"
	"context"
	"iter"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/d8"
	"go.trai.ch/dexer/internal/adapters/dalvik"
	"go.trai.ch/dexer/internal/adapters/dex"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// fakeD8 records its arguments and copies $FAKE_DEX to $FAKE_NAME below --output.
const fakeD8 = `#!/bin/sh
printf '%s\n' "$@" > "$ARGS_FILE"
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
mkdir -p "$(dirname "$out/$FAKE_NAME")"
cp "$FAKE_DEX" "$out/$FAKE_NAME"
`

const failingD8 = `#!/bin/sh
echo "Error: com/x/Foo.class: invalid" >&2
exit 3
`

type fixture struct {
	cfg  domain.BuildConfiguration
	args string
}

func setup(t *testing.T, script, outputName string, s domain.Settings) fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()

	tool := filepath.Join(dir, "d8")
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o700)) //nolint:gosec // test script must be executable

	data, err := dex.Write([]*dalvik.Class{{Type: "Lcom/x/Foo;", Super: "Ljava/lang/Object;", Access: 0x0001}}, dex.Options{MinAPI: 26})
	require.NoError(t, err)
	fake := filepath.Join(dir, "fake.dex")
	require.NoError(t, os.WriteFile(fake, data, 0o600))

	args := filepath.Join(dir, "args")
	t.Setenv("FAKE_DEX", fake)
	t.Setenv("FAKE_NAME", outputName)
	t.Setenv("ARGS_FILE", args)

	s.ProjectDir = dir
	s.D8Path = tool
	cfg, err := domain.NewBuildConfiguration(s)
	require.NoError(t, err)
	return fixture{cfg: cfg, args: args}
}

func classEntry(rel, name string) domain.ClassEntry {
	b := classfile.NewBuilder(name, "java/lang/Object", classfile.AccPublic|classfile.AccSuper)
	return domain.ClassEntry{Location: "/in", RelPath: rel, BinaryName: domain.BinaryNameFromPath(rel), Bytes: b.Bytes()}
}

func inputs(names ...string) domain.ResolvedInputSet {
	entries := make([]domain.ClassEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, classEntry(n+".class", n))
	}
	return entrySet(entries...)
}

func entrySet(entries ...domain.ClassEntry) domain.ResolvedInputSet {
	return domain.NewResolvedInputSet([]domain.InputLocation{{Path: "/in"}}, func(domain.InputLocation) iter.Seq2[domain.ClassEntry, error] {
		return func(yield func(domain.ClassEntry, error) bool) {
			for _, e := range entries {
				if !yield(e, nil) {
					return
				}
			}
		}
	})
}

func converter(ctrl *gomock.Controller, libs ...string) *d8.Converter {
	boot := mocks.NewMockClasspathProvider(ctrl)
	boot.EXPECT().Entries().Return(libs).AnyTimes()
	boot.EXPECT().Close().Return(nil)
	factory := mocks.NewMockClasspathFactory(ctrl)
	factory.EXPECT().OpenBoot(gomock.Any()).Return(boot, nil)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return d8.New(factory, log)
}

func TestConverter_Merged(t *testing.T) {
	f := setup(t, fakeD8, "classes.dex", domain.Settings{})
	ctrl := gomock.NewController(t)

	var buf bytes.Buffer
	report, err := converter(ctrl, "/sdk/android.jar").Convert(context.Background(), f.cfg, inputs("com/x/Foo", "com/x/Bar"), &buf)
	require.NoError(t, err)

	parsed, err := dex.Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Lcom/x/Foo;"}, parsed.ClassNames())
	assert.Equal(t, 2, report.ClassCount)
	assert.Equal(t, 1, report.DexClassCount)
	assert.Equal(t, "038", report.DexVersion)

	args, err := os.ReadFile(f.args)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(args)), "\n")
	assert.Equal(t, []string{"--min-api", "26", "--debug", "--lib", "/sdk/android.jar", "--output"}, lines[:6])
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], "classes.jar"))
}

func TestConverter_PerClass(t *testing.T) {
	f := setup(t, fakeD8, "com/x/Foo.dex", domain.Settings{ArchiveMode: "per-class"})
	ctrl := gomock.NewController(t)

	var buf bytes.Buffer
	report, err := converter(ctrl).Convert(context.Background(), f.cfg, inputs("com/x/Foo"), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DexClassCount)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "com/x/Foo.dex", zr.File[0].Name)

	args, err := os.ReadFile(f.args)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--file-per-class-file\n")
}

func TestConverter_MergedRejectsMultiDex(t *testing.T) {
	f := setup(t, fakeD8, "classes2.dex", domain.Settings{})
	ctrl := gomock.NewController(t)

	_, err := converter(ctrl).Convert(context.Background(), f.cfg, inputs("com/x/Foo"), &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrExternalConverterFailed)
	require.ErrorIs(t, err, domain.ErrConversionFailed)
}

func TestConverter_ProcessFailure(t *testing.T) {
	f := setup(t, failingD8, "classes.dex", domain.Settings{})
	ctrl := gomock.NewController(t)

	_, err := converter(ctrl).Convert(context.Background(), f.cfg, inputs("com/x/Foo"), &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrExternalConverterFailed)
	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
}

func TestConverter_DuplicateEntry(t *testing.T) {
	f := setup(t, fakeD8, "classes.dex", domain.Settings{})
	ctrl := gomock.NewController(t)

	_, err := converter(ctrl).Convert(context.Background(), f.cfg, inputs("com/x/Foo", "com/x/Foo"), &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrDuplicateClass)
}

func TestConverter_DuplicateAcrossNestedRoots(t *testing.T) {
	f := setup(t, fakeD8, "classes.dex", domain.Settings{})
	ctrl := gomock.NewController(t)

	set := entrySet(
		classEntry("java/main/com/x/Foo.class", "com/x/Foo"),
		classEntry("kotlin/main/com/x/Foo.class", "com/x/Foo"),
	)
	_, err := converter(ctrl).Convert(context.Background(), f.cfg, set, &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrDuplicateClass)
	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "kotlin/main/com/x/Foo.class", convErr.Entry)
}

func TestConverter_MissingTool(t *testing.T) {
	f := setup(t, fakeD8, "classes.dex", domain.Settings{})
	f.cfg.D8Path = filepath.Join(t.TempDir(), "no-such-d8")
	ctrl := gomock.NewController(t)

	_, err := converter(ctrl).Convert(context.Background(), f.cfg, inputs("com/x/Foo"), &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrExternalConverterFailed)
}
