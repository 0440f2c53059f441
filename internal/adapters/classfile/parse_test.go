package classfile_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/core/domain"
)

func sampleClass() []byte {
	b := classfile.NewBuilder("com/x/Foo", "java/lang/Object", classfile.AccPublic|classfile.AccSuper)
	b.AddInterface("java/lang/Runnable")
	b.SetSourceFile("Foo.java")
	b.AddAnnotation(classfile.Annotation{
		Type: "Ldexer/annotation/Plugin;",
		Elements: []classfile.Element{
			{Name: "name", Value: classfile.ElementValue{Tag: 's', Const: "demo"}},
			{Name: "order", Value: classfile.ElementValue{Tag: 'I', Const: int32(3)}},
		},
	}, false)
	b.AddField(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "LIMIT", "J", b.Long(1<<40))

	initRef := b.Method("java/lang/Object", "<init>", "()V")
	code := classfile.NewAssembler().
		Op(classfile.Aload, 0).
		Index(classfile.Invokespecial, initRef).
		Op(classfile.Return).
		Bytes()
	b.AddMethod(classfile.AccPublic, "<init>", "()V", &classfile.Code{
		MaxStack: 1, MaxLocals: 1, Bytecode: code,
		Lines:  []classfile.LineNumber{{PC: 0, Line: 7}},
		Locals: []classfile.LocalVariable{{StartPC: 0, Length: len(code), Name: "this", Descriptor: "Lcom/x/Foo;"}},
	})
	b.AddMethod(classfile.AccPublic|classfile.AccAbstract, "run", "()V", nil)
	return b.Bytes()
}

func TestParse_Structure(t *testing.T) {
	c, err := classfile.Parse(sampleClass())
	require.NoError(t, err)

	assert.Equal(t, "com/x/Foo", c.Name)
	assert.Equal(t, "java/lang/Object", c.SuperName)
	assert.Equal(t, []string{"java/lang/Runnable"}, c.Interfaces)
	assert.Equal(t, "Foo.java", c.SourceFile)
	assert.Equal(t, uint16(52), c.MajorVersion)
	assert.False(t, c.IsInterface())

	require.Len(t, c.Fields, 1)
	assert.Equal(t, int64(1<<40), c.Fields[0].Constant)
	assert.True(t, c.Fields[0].IsStatic())

	init := c.Method("<init>", "()V")
	require.NotNil(t, init)
	require.NotNil(t, init.Code)
	assert.Equal(t, []classfile.LineNumber{{PC: 0, Line: 7}}, init.Code.Lines)
	require.Len(t, init.Code.Locals, 1)
	assert.Equal(t, "this", init.Code.Locals[0].Name)
	assert.Nil(t, c.Method("run", "()V").Code)
}

func TestParse_Annotations(t *testing.T) {
	c, err := classfile.Parse(sampleClass())
	require.NoError(t, err)

	assert.Empty(t, c.Visible)
	require.Len(t, c.Invisible, 1)
	a := c.Invisible[0]
	assert.Equal(t, "Ldexer/annotation/Plugin;", a.Type)
	require.Len(t, a.Elements, 2)
	assert.Equal(t, "demo", a.Elements[0].Value.Const)
	assert.Equal(t, int32(3), a.Elements[1].Value.Const)
	assert.Len(t, c.Annotations(), 1)
}

func TestParseHeader(t *testing.T) {
	c, err := classfile.ParseHeader(sampleClass())
	require.NoError(t, err)
	assert.Equal(t, "com/x/Foo", c.Name)
	assert.Equal(t, []string{"java/lang/Runnable"}, c.Interfaces)
	assert.Empty(t, c.Methods)
}

func TestParse_Malformed(t *testing.T) {
	data := sampleClass()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte{0xCA, 0xFE, 0xBA, 0xBF, 0, 0, 0, 52}},
		{"truncated", data[:len(data)/2]},
		{"trailing", append(append([]byte(nil), data...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classfile.Parse(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedClass))
		})
	}
}

func TestParse_ModifiedUTF8(t *testing.T) {
	b := classfile.NewBuilder("com/x/Str", "java/lang/Object", classfile.AccPublic)
	b.AddField(classfile.AccStatic|classfile.AccFinal, "S", "Ljava/lang/String;", b.String("a\x00é😀"))

	c, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "a\x00é😀", c.Fields[0].Constant)
}

func TestParse_InvalidModifiedUTF8(t *testing.T) {
	b := classfile.NewBuilder("com/x/Str", "java/lang/Object", classfile.AccPublic)
	b.AddField(classfile.AccStatic|classfile.AccFinal, "S", "Ljava/lang/String;", b.String("dexer~marker"))
	data := b.Bytes()
	i := bytes.Index(data, []byte("dexer~marker"))
	require.GreaterOrEqual(t, i, 0)
	data[i+len("dexer")] = 0xFF

	c, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "dexer\uFFFDmarker", c.Fields[0].Constant)
}

func TestParseMethodDescriptor(t *testing.T) {
	params, ret, err := classfile.ParseMethodDescriptor("(IJ[Ljava/lang/String;D)Z")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "J", "[Ljava/lang/String;", "D"}, params)
	assert.Equal(t, "Z", ret)
	assert.Equal(t, 6, classfile.ArgSlots(params))

	for _, bad := range []string{"", "I", "(I", "(Q)V", "(L;)V", "()"} {
		_, _, err := classfile.ParseMethodDescriptor(bad)
		assert.Error(t, err, bad)
	}
}
