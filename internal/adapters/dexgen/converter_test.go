package dexgen_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/bootcp"
	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dex"
	"go.trai.ch/dexer/internal/adapters/dexgen"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/dexer/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const metafactory = "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;" +
	"Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;"

func entry(b *classfile.Builder, name string) domain.ClassEntry {
	return domain.ClassEntry{Location: "/in", RelPath: name + ".class", BinaryName: name, Bytes: b.Bytes()}
}

func plain(name, super string) domain.ClassEntry {
	b := classfile.NewBuilder(name, super, classfile.AccPublic|classfile.AccSuper)
	code := classfile.NewAssembler().Op(classfile.Iconst0).Op(classfile.Ireturn).Bytes()
	b.AddMethod(classfile.AccPublic|classfile.AccStatic, "zero", "()I", &classfile.Code{MaxStack: 1, Bytecode: code})
	return entry(b, name)
}

// lambdaEntry returns a class whose static run() creates a Runnable from a lambda.
func lambdaEntry() domain.ClassEntry {
	b := classfile.NewBuilder("com/x/Main", "java/lang/Object", classfile.AccPublic|classfile.AccSuper)
	bsm := b.MethodHandle(classfile.RefInvokeStatic, b.Method("java/lang/invoke/LambdaMetafactory", "metafactory", metafactory))
	impl := b.MethodHandle(classfile.RefInvokeStatic, b.Method("com/x/Main", "lambda$run$0", "()V"))
	site := b.InvokeDynamic(b.Bootstrap(bsm, b.MethodType("()V"), impl, b.MethodType("()V")), "run", "()Ljava/lang/Runnable;")

	b.AddMethod(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic, "lambda$run$0", "()V",
		&classfile.Code{Bytecode: classfile.NewAssembler().Op(classfile.Return).Bytes()})
	b.AddMethod(classfile.AccPublic|classfile.AccStatic, "run", "()Ljava/lang/Runnable;",
		&classfile.Code{MaxStack: 1, Bytecode: classfile.NewAssembler().Invokedynamic(site).Op(classfile.Areturn).Bytes()})
	return entry(b, "com/x/Main")
}

func inputs(entries ...domain.ClassEntry) domain.ResolvedInputSet {
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

func config(t *testing.T, s domain.Settings) domain.BuildConfiguration {
	t.Helper()
	s.ProjectDir = t.TempDir()
	cfg, err := domain.NewBuildConfiguration(s)
	require.NoError(t, err)
	return cfg
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func emptyClasspath(ctrl *gomock.Controller) *mocks.MockClasspathFactory {
	f := mocks.NewMockClasspathFactory(ctrl)
	f.EXPECT().OpenBoot(gomock.Any()).Return(bootcp.Empty(), nil).AnyTimes()
	f.EXPECT().OpenEmpty().Return(bootcp.Empty()).AnyTimes()
	return f
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return log
}

func convert(t *testing.T, cfg domain.BuildConfiguration, set domain.ResolvedInputSet) ([]byte, domain.ConversionReport) {
	t.Helper()
	ctrl := gomock.NewController(t)
	var buf bytes.Buffer
	report, err := dexgen.New(emptyClasspath(ctrl), quietLogger(ctrl)).Convert(context.Background(), cfg, set, &buf)
	require.NoError(t, err)
	return buf.Bytes(), report
}

func TestConvert_Merged(t *testing.T) {
	cfg := config(t, domain.Settings{})
	data, report := convert(t, cfg, inputs(plain("com/x/Foo", "java/lang/Object"), plain("com/x/Bar", "com/x/Foo")))

	f, err := dex.Parse(data)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Lcom/x/Bar;", "Lcom/x/Foo;"}, f.ClassNames())
	assert.Equal(t, "Lcom/x/Foo;", f.ClassNames()[0])
	assert.True(t, f.ChecksumValid)
	assert.True(t, f.SignatureValid)

	assert.Equal(t, 2, report.ClassCount)
	assert.Equal(t, 2, report.DexClassCount)
	assert.Equal(t, "038", report.DexVersion)
	assert.Equal(t, cfg.OutputArtifactPath, report.OutputPath)
}

func TestConvert_Lambda(t *testing.T) {
	data, report := convert(t, config(t, domain.Settings{}), inputs(lambdaEntry()))

	f, err := dex.Parse(data)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Lcom/x/Main;", "Lcom/x/Main$$ExternalSyntheticLambda0;"}, f.ClassNames())
	assert.Equal(t, 1, report.ClassCount)
	assert.Equal(t, 2, report.DexClassCount)
	assert.Equal(t, 1, report.Rewrites["lambda"])
}

func TestConvert_PerClassArchive(t *testing.T) {
	cfg := config(t, domain.Settings{ArchiveMode: "per-class"})
	data, report := convert(t, cfg, inputs(lambdaEntry(), plain("com/x/Foo", "java/lang/Object")))
	assert.Equal(t, 3, report.DexClassCount)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "com/x/Main.dex", zr.File[0].Name)
	assert.Equal(t, "com/x/Foo.dex", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	main, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	f, err := dex.Parse(main)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Lcom/x/Main;", "Lcom/x/Main$$ExternalSyntheticLambda0;"}, f.ClassNames())
}

func TestConvert_Reproducible(t *testing.T) {
	cfg := config(t, domain.Settings{})
	set := inputs(lambdaEntry(), plain("com/x/Foo", "java/lang/Object"))

	first, _ := convert(t, cfg, set)
	second, _ := convert(t, cfg, set)
	assert.Equal(t, first, second)
}

func TestConvert_DebugInfoDoesNotChangeClasses(t *testing.T) {
	set := inputs(lambdaEntry(), plain("com/x/Foo", "java/lang/Object"))
	debug, _ := convert(t, config(t, domain.Settings{Debuggable: boolPtr(true)}), set)
	release, _ := convert(t, config(t, domain.Settings{Debuggable: boolPtr(false)}), set)

	withDebug, err := dex.Parse(debug)
	require.NoError(t, err)
	without, err := dex.Parse(release)
	require.NoError(t, err)
	assert.Equal(t, withDebug.Classes, without.Classes)
}

func TestConvert_VersionFollowsMinSdk(t *testing.T) {
	_, report := convert(t, config(t, domain.Settings{MinPlatformVersion: intPtr(21)}), inputs(plain("com/x/Foo", "java/lang/Object")))
	assert.Equal(t, "035", report.DexVersion)
}

func TestConvert_DuplicateClass(t *testing.T) {
	first := plain("com/x/Foo", "java/lang/Object")
	second := plain("com/x/Foo", "java/lang/Object")
	second.Location = "/other"

	ctrl := gomock.NewController(t)
	_, err := dexgen.New(emptyClasspath(ctrl), quietLogger(ctrl)).
		Convert(context.Background(), config(t, domain.Settings{}), inputs(first, second), io.Discard)

	require.ErrorIs(t, err, domain.ErrDuplicateClass)
	require.ErrorIs(t, err, domain.ErrConversionFailed)
	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "/other", convErr.Location)
	assert.Equal(t, "com/x/Foo", convErr.Class)
}

func TestConvert_MalformedClass(t *testing.T) {
	bad := domain.ClassEntry{Location: "/in", RelPath: "com/x/Bad.class", BinaryName: "com/x/Bad", Bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE}}

	ctrl := gomock.NewController(t)
	_, err := dexgen.New(emptyClasspath(ctrl), quietLogger(ctrl)).
		Convert(context.Background(), config(t, domain.Settings{}), inputs(bad), io.Discard)

	require.ErrorIs(t, err, domain.ErrMalformedClass)
	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "com/x/Bad.class", convErr.Entry)
}

func TestConvert_MissingReturnType(t *testing.T) {
	b := classfile.NewBuilder("com/x/NoRet", "java/lang/Object", classfile.AccPublic|classfile.AccAbstract)
	b.AddMethod(classfile.AccPublic|classfile.AccAbstract, "m", "()", nil)

	ctrl := gomock.NewController(t)
	_, err := dexgen.New(emptyClasspath(ctrl), quietLogger(ctrl)).
		Convert(context.Background(), config(t, domain.Settings{}), inputs(entry(b, "com/x/NoRet")), io.Discard)

	require.ErrorIs(t, err, domain.ErrMalformedClass)
	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "com/x/NoRet.class", convErr.Entry)
}

func TestConvert_ZeroArgumentStaticCall(t *testing.T) {
	b := classfile.NewBuilder("com/x/Calls", "java/lang/Object", classfile.AccPublic|classfile.AccSuper)
	callee := b.Method("com/x/Calls", "b", "()V")
	b.AddMethod(classfile.AccStatic, "a", "()V",
		&classfile.Code{Bytecode: classfile.NewAssembler().Index(classfile.Invokestatic, callee).Op(classfile.Return).Bytes()})
	b.AddMethod(classfile.AccStatic, "b", "()V",
		&classfile.Code{Bytecode: classfile.NewAssembler().Op(classfile.Return).Bytes()})

	data, report := convert(t, config(t, domain.Settings{}), inputs(entry(b, "com/x/Calls")))
	f, err := dex.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lcom/x/Calls;"}, f.ClassNames())
	assert.Equal(t, 1, report.DexClassCount)
}

func TestConvert_UnsupportedConstruct(t *testing.T) {
	b := classfile.NewBuilder("com/x/Jsr", "java/lang/Object", classfile.AccPublic)
	code := classfile.NewAssembler().Op(classfile.Jsr, 0, 3).Op(classfile.Return).Bytes()
	b.AddMethod(classfile.AccStatic, "m", "()V", &classfile.Code{MaxStack: 1, Bytecode: code})

	ctrl := gomock.NewController(t)
	_, err := dexgen.New(emptyClasspath(ctrl), quietLogger(ctrl)).
		Convert(context.Background(), config(t, domain.Settings{}), inputs(entry(b, "com/x/Jsr")), io.Discard)

	require.ErrorIs(t, err, domain.ErrUnsupportedConstruct)
	require.ErrorIs(t, err, domain.ErrConversionFailed)
}

func TestConvert_CleanupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	boot := mocks.NewMockClasspathProvider(ctrl)
	boot.EXPECT().Lookup(gomock.Any()).Return(ports.ClassHeader{}, false, nil).AnyTimes()
	boot.EXPECT().Close().Return(errors.New("close failed"))
	factory := mocks.NewMockClasspathFactory(ctrl)
	factory.EXPECT().OpenBoot(gomock.Any()).Return(boot, nil)
	factory.EXPECT().OpenEmpty().Return(bootcp.Empty())

	report, err := dexgen.New(factory, quietLogger(ctrl)).
		Convert(context.Background(), config(t, domain.Settings{}), inputs(plain("com/x/Foo", "java/lang/Object")), io.Discard)
	require.ErrorIs(t, err, domain.ErrResourceCleanup)
	assert.Zero(t, report.DexClassCount)
}

func TestConvert_CleanupFailureDoesNotMaskConversionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	boot := mocks.NewMockClasspathProvider(ctrl)
	boot.EXPECT().Close().Return(errors.New("close failed"))
	factory := mocks.NewMockClasspathFactory(ctrl)
	factory.EXPECT().OpenBoot(gomock.Any()).Return(boot, nil)
	factory.EXPECT().OpenEmpty().Return(bootcp.Empty())

	bad := domain.ClassEntry{RelPath: "Bad.class", BinaryName: "Bad", Bytes: []byte{1, 2, 3}}
	_, err := dexgen.New(factory, quietLogger(ctrl)).
		Convert(context.Background(), config(t, domain.Settings{}), inputs(bad), io.Discard)

	require.ErrorIs(t, err, domain.ErrConversionFailed)
	require.ErrorIs(t, err, domain.ErrResourceCleanup)
}

func TestConvert_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctrl := gomock.NewController(t)
	_, err := dexgen.New(emptyClasspath(ctrl), quietLogger(ctrl)).
		Convert(ctx, config(t, domain.Settings{}), inputs(plain("com/x/Foo", "java/lang/Object")), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}
