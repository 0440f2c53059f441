package dex_test

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/dalvik"
	"go.trai.ch/dexer/internal/adapters/dex"
	"go.trai.ch/dexer/internal/core/domain"
)

const (
	object   = "Ljava/lang/Object;"
	str      = "Ljava/lang/String;"
	baseType = "Lcom/x/B;"
	subType  = "Lcom/x/A;"
)

func mref(class, name, desc string) dalvik.MethodRef {
	proto, err := dalvik.ParseProto(desc)
	if err != nil {
		panic(err)
	}
	return dalvik.MethodRef{Class: class, Name: name, Proto: proto}
}

func constructor(class, super string) *dalvik.Method {
	b := &dalvik.Body{Registers: 1, Ins: 1}
	e := dalvik.NewEmitter(b)
	e.Invoke(dalvik.OpInvokeDirectRange, 0, 1, mref(super, "<init>", "()V"))
	e.ReturnVoid()
	return &dalvik.Method{Ref: mref(class, "<init>", "()V"), Access: 0x0001 | dalvik.AccConstructor, Code: b}
}

// program returns a subclass listed before its superclass, with debug information,
// static values and annotations.
func program() []*dalvik.Class {
	run := &dalvik.Body{Registers: 2, Ins: 1, Params: nil}
	e := dalvik.NewEmitter(run)
	start := e.Here()
	run.Positions = append(run.Positions, dalvik.Position{Label: start, Line: 10})
	e.ConstString(0, "hi")
	live := e.Here()
	run.Positions = append(run.Positions, dalvik.Position{Label: live, Line: 11})
	e.ReturnVoid()
	end := e.Here()
	run.Locals = append(run.Locals, dalvik.LocalVar{Reg: 0, Name: "s", Type: str, Start: live, End: end})

	twice := &dalvik.Body{Registers: 1, Ins: 1, Params: []string{"n"}}
	dalvik.NewEmitter(twice).Return(dalvik.KindSingle, 0)

	sub := &dalvik.Class{
		Type:       subType,
		Super:      baseType,
		Interfaces: []string{"Ljava/lang/Runnable;"},
		Access:     0x0001,
		SourceFile: "A.java",
		Fields: []*dalvik.Field{
			{Ref: dalvik.FieldRef{Class: subType, Name: "COUNT", Type: "I"}, Access: 0x0019,
				Initial: &dalvik.EncodedValue{Kind: dalvik.ValueInt, Int: 7}},
			{Ref: dalvik.FieldRef{Class: subType, Name: "NAME", Type: str}, Access: 0x0019,
				Initial: &dalvik.EncodedValue{Kind: dalvik.ValueString, Str: "x"}},
			{Ref: dalvik.FieldRef{Class: subType, Name: "value", Type: "J"}, Access: 0x0002},
		},
		Methods: []*dalvik.Method{
			constructor(subType, baseType),
			{Ref: mref(subType, "run", "()V"), Access: 0x0001, Code: run},
			{Ref: mref(subType, "twice", "(I)I"), Access: 0x0009, Code: twice},
		},
	}
	base := &dalvik.Class{
		Type:   baseType,
		Super:  object,
		Access: 0x0401,
		Annotations: []dalvik.Annotation{{
			Visibility: dalvik.VisibilityRuntime,
			Type:       "Ldexer/annotation/Plugin;",
			Elements:   []dalvik.AnnotationElement{{Name: "value", Value: dalvik.EncodedValue{Kind: dalvik.ValueString, Str: "demo"}}},
		}},
		Methods: []*dalvik.Method{
			constructor(baseType, object),
			{Ref: mref(baseType, "name", "()Ljava/lang/String;"), Access: 0x0401},
		},
	}
	return []*dalvik.Class{sub, base}
}

func write(t *testing.T, opts dex.Options) []byte {
	t.Helper()
	data, err := dex.Write(program(), opts)
	require.NoError(t, err)
	return data
}

func TestWrite_HeaderIsValid(t *testing.T) {
	data := write(t, dex.Options{MinAPI: 26, Debug: true})

	require.Zero(t, len(data)%4)
	f, err := dex.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "038", f.Version)
	assert.True(t, f.ChecksumValid)
	assert.True(t, f.SignatureValid)
	assert.Equal(t, []string{baseType, subType}, f.ClassNames())
}

func TestWrite_ClassDefinitions(t *testing.T) {
	f, err := dex.Parse(write(t, dex.Options{MinAPI: 21}))
	require.NoError(t, err)
	require.Len(t, f.Classes, 2)

	base, sub := f.Classes[0], f.Classes[1]
	assert.Equal(t, object, base.Super)
	assert.Equal(t, uint32(0x0401), base.Access)
	assert.Empty(t, base.SourceFile)
	assert.Equal(t, []string{"<init>:()V", "name:()Ljava/lang/String;"}, base.Methods)

	assert.Equal(t, baseType, sub.Super)
	assert.Equal(t, []string{"Ljava/lang/Runnable;"}, sub.Interfaces)
	assert.Equal(t, "A.java", sub.SourceFile)
	assert.ElementsMatch(t, []string{"<init>:()V", "twice:(I)I", "run:()V"}, sub.Methods)
	assert.True(t, slices.IsSortedFunc(f.Strings, func(a, b string) int {
		return bytes.Compare([]byte(a), []byte(b))
	}))
}

func TestWrite_IsReproducible(t *testing.T) {
	classes := program()
	first, err := dex.Write(classes, dex.Options{MinAPI: 26, Debug: true})
	require.NoError(t, err)

	reversed := program()
	slices.Reverse(reversed)
	second, err := dex.Write(reversed, dex.Options{MinAPI: 26, Debug: true})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWrite_DebugInfoOnlyAddsDebugItems(t *testing.T) {
	withDebug, err := dex.Parse(write(t, dex.Options{MinAPI: 26, Debug: true}))
	require.NoError(t, err)
	without, err := dex.Parse(write(t, dex.Options{MinAPI: 26}))
	require.NoError(t, err)

	assert.Equal(t, withDebug.Classes, without.Classes)
	assert.Contains(t, withDebug.Strings, "n")
	assert.Contains(t, withDebug.Strings, "s")
	assert.NotContains(t, without.Strings, "n")
	assert.NotContains(t, without.Strings, "s")
}

func TestWrite_VersionFollowsMinAPI(t *testing.T) {
	for api, want := range map[int]string{14: "035", 23: "035", 24: "037", 25: "037", 26: "038", 27: "038", 28: "039", 34: "039"} {
		f, err := dex.Parse(write(t, dex.Options{MinAPI: api}))
		require.NoError(t, err)
		assert.Equal(t, want, f.Version, "min api %d", api)
	}
}

func TestWrite_DuplicateClass(t *testing.T) {
	classes := program()
	classes = append(classes, &dalvik.Class{Type: subType, Super: object})

	_, err := dex.Write(classes, dex.Options{MinAPI: 26})
	assert.ErrorIs(t, err, domain.ErrDuplicateClass)
}

func TestWrite_RejectsUndesugaredCallSite(t *testing.T) {
	b := &dalvik.Body{Registers: 1}
	b.Insns = []dalvik.Insn{{Op: dalvik.OpInvokeCustom, Site: &dalvik.CallSite{Name: "run"}}}
	c := &dalvik.Class{Type: subType, Super: object, Methods: []*dalvik.Method{
		{Ref: mref(subType, "make", "()V"), Access: 0x0009, Code: b},
	}}

	_, err := dex.Write([]*dalvik.Class{c}, dex.Options{MinAPI: 26})
	assert.ErrorIs(t, err, domain.ErrUnsupportedConstruct)
}

func TestParse_DetectsCorruption(t *testing.T) {
	data := write(t, dex.Options{MinAPI: 26})
	data[len(data)-1] ^= 0xff

	f, err := dex.Parse(data)
	require.NoError(t, err)
	assert.False(t, f.ChecksumValid)
	assert.False(t, f.SignatureValid)
}

func TestParse_NotADex(t *testing.T) {
	_, err := dex.Parse([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	assert.ErrorIs(t, err, domain.ErrNotADexFile)
}

func TestReader_SummarizeMerged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.dex")
	require.NoError(t, os.WriteFile(path, write(t, dex.Options{MinAPI: 24}), 0o600))

	summary, err := dex.NewReader().Summarize(path)
	require.NoError(t, err)
	assert.Equal(t, domain.DexSummary{
		Path:           path,
		Version:        "037",
		Files:          1,
		Classes:        []string{baseType, subType},
		ChecksumValid:  true,
		SignatureValid: true,
	}, summary)
}

func TestReader_SummarizeArchive(t *testing.T) {
	var entries []dex.Entry
	for _, c := range program() {
		data, err := dex.Write([]*dalvik.Class{c}, dex.Options{MinAPI: 26})
		require.NoError(t, err)
		entries = append(entries, dex.Entry{Name: c.Type[1:len(c.Type)-1] + ".dex", Data: data})
	}
	var buf bytes.Buffer
	require.NoError(t, dex.WriteArchive(&buf, entries))
	path := filepath.Join(t.TempDir(), "classes.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	summary, err := dex.NewReader().Summarize(path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Files)
	assert.Equal(t, []string{subType, baseType}, summary.Classes)
	assert.True(t, summary.ChecksumValid)
	assert.True(t, summary.SignatureValid)
}

func TestWriteArchive_IsReproducible(t *testing.T) {
	entries := []dex.Entry{{Name: "com/x/A.dex", Data: write(t, dex.Options{MinAPI: 26})}}
	var first, second bytes.Buffer
	require.NoError(t, dex.WriteArchive(&first, entries))
	require.NoError(t, dex.WriteArchive(&second, entries))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestReader_SummarizeRejectsOtherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world, not a dex"), 0o600))

	_, err := dex.NewReader().Summarize(path)
	assert.ErrorIs(t, err, domain.ErrNotADexFile)
}
