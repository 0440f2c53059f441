package dalvik_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dalvik"
	"go.trai.ch/dexer/internal/core/domain"
)

type fixedIndexer struct {
	str uint32
}

func (f fixedIndexer) StringIndex(string) uint32         { return f.str }
func (fixedIndexer) TypeIndex(string) uint32             { return 2 }
func (fixedIndexer) FieldIndex(dalvik.FieldRef) uint32   { return 3 }
func (fixedIndexer) MethodIndex(dalvik.MethodRef) uint32 { return 4 }

func parse(t *testing.T, b *classfile.Builder) *classfile.Class {
	t.Helper()
	c, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	return c
}

func ops(body *dalvik.Body) []dalvik.Opcode {
	var out []dalvik.Opcode
	for _, in := range body.Insns {
		if in.Op != dalvik.OpLabel {
			out = append(out, in.Op)
		}
	}
	return out
}

func translate(t *testing.T, b *classfile.Builder, name, desc string) (*dalvik.Body, error) {
	t.Helper()
	c := parse(t, b)
	m := c.Method(name, desc)
	require.NotNil(t, m)
	return dalvik.TranslateMethod(c, m)
}

func TestTranslate_StaticAdd(t *testing.T) {
	b := classfile.NewBuilder("com/x/Math", "java/lang/Object", classfile.AccPublic)
	code := classfile.NewAssembler().
		Op(classfile.Iload0).Op(classfile.Iload0 + 1).Op(classfile.Iadd).Op(classfile.Ireturn).Bytes()
	b.AddMethod(classfile.AccPublic|classfile.AccStatic, "add", "(II)I",
		&classfile.Code{MaxStack: 2, MaxLocals: 2, Bytecode: code})

	body, err := translate(t, b, "add", "(II)I")
	require.NoError(t, err)

	assert.Equal(t, 10, body.Registers)
	assert.Equal(t, 2, body.Ins)
	assert.Equal(t, []dalvik.Opcode{
		dalvik.OpMove16, dalvik.OpMove16,
		dalvik.OpMove16, dalvik.OpMove16,
		dalvik.OpAddInt, dalvik.OpReturn,
	}, ops(body))

	asm, err := dalvik.Assemble(body, fixedIndexer{str: 1})
	require.NoError(t, err)
	require.Len(t, asm.Insns, 15)
	assert.Equal(t, []uint16{0x0003, 4, 8}, asm.Insns[0:3])
	assert.Equal(t, []uint16{0x0690, 0x0706}, asm.Insns[12:14])
	assert.Equal(t, uint16(0x060f), asm.Insns[14])
	assert.Equal(t, 0, asm.Outs)
}

func TestTranslate_InvokeAndConstructor(t *testing.T) {
	b := classfile.NewBuilder("com/x/Foo", "java/lang/Object", classfile.AccPublic)
	sb := b.Class("java/lang/StringBuilder")
	initSB := b.Method("java/lang/StringBuilder", "<init>", "()V")
	toString := b.Method("java/lang/StringBuilder", "toString", "()Ljava/lang/String;")
	code := classfile.NewAssembler().
		Index(classfile.New, sb).
		Op(classfile.Dup).
		Index(classfile.Invokespecial, initSB).
		Index(classfile.Invokevirtual, toString).
		Op(classfile.Areturn).
		Bytes()
	b.AddMethod(classfile.AccPublic|classfile.AccStatic, "make", "()Ljava/lang/String;",
		&classfile.Code{MaxStack: 2, MaxLocals: 0, Bytecode: code})

	body, err := translate(t, b, "make", "()Ljava/lang/String;")
	require.NoError(t, err)
	assert.Equal(t, []dalvik.Opcode{
		dalvik.OpNewInstance,
		dalvik.OpMoveObject16,
		dalvik.OpInvokeDirectRange,
		dalvik.OpInvokeVirtualRange,
		dalvik.OpMoveResultObject,
		dalvik.OpReturnObject,
	}, ops(body))

	asm, err := dalvik.Assemble(body, fixedIndexer{str: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, asm.Outs)
}

func TestTranslate_ZeroArgumentCalls(t *testing.T) {
	b := classfile.NewBuilder("com/x/Calls", "java/lang/Object", classfile.AccPublic)
	callee := b.Method("com/x/Calls", "b", "()V")
	nanoTime := b.Method("java/lang/System", "nanoTime", "()J")
	code := classfile.NewAssembler().
		Index(classfile.Invokestatic, callee).
		Index(classfile.Invokestatic, nanoTime).
		Op(classfile.Pop2).
		Op(classfile.Return).
		Bytes()
	b.AddMethod(classfile.AccStatic, "a", "()V", &classfile.Code{MaxStack: 2, Bytecode: code})

	body, err := translate(t, b, "a", "()V")
	require.NoError(t, err)
	got := ops(body)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []dalvik.Opcode{dalvik.OpInvokeStaticRange, dalvik.OpInvokeStaticRange}, got[:2])
}

func TestTranslate_TryCatch(t *testing.T) {
	b := classfile.NewBuilder("com/x/Safe", "java/lang/Object", classfile.AccPublic)
	run := b.InterfaceMethod("java/lang/Runnable", "run", "()V")
	code := classfile.NewAssembler().
		Op(classfile.Aload, 0).
		Invokeinterface(run, 1).
		Op(classfile.Return).
		Op(classfile.Astore, 1).
		Op(classfile.Return).
		Bytes()
	b.AddMethod(classfile.AccStatic, "call", "(Ljava/lang/Runnable;)V", &classfile.Code{
		MaxStack: 1, MaxLocals: 2, Bytecode: code,
		Handlers: []classfile.ExceptionHandler{
			{StartPC: 0, EndPC: 7, HandlerPC: 8, CatchType: "java/lang/RuntimeException"},
			{StartPC: 0, EndPC: 7, HandlerPC: 8, CatchType: "java/lang/RuntimeException"},
		},
	})

	body, err := translate(t, b, "call", "(Ljava/lang/Runnable;)V")
	require.NoError(t, err)
	require.Len(t, body.Tries, 1)
	require.Len(t, body.Tries[0].Catches, 1)
	assert.Equal(t, "Ljava/lang/RuntimeException;", body.Tries[0].Catches[0].Type)
	assert.Contains(t, ops(body), dalvik.OpMoveException)

	asm, err := dalvik.Assemble(body, fixedIndexer{str: 1})
	require.NoError(t, err)
	require.Len(t, asm.Tries, 1)
	assert.Equal(t, -1, asm.Tries[0].CatchAll)
	assert.Equal(t, uint32(2), asm.Tries[0].Catches[0].Type)
}

func TestTranslate_Synchronized(t *testing.T) {
	b := classfile.NewBuilder("com/x/Lock", "java/lang/Object", classfile.AccPublic)
	b.AddMethod(classfile.AccPublic|classfile.AccSynchronized, "touch", "()V", &classfile.Code{
		MaxStack: 0, MaxLocals: 1, Bytecode: []byte{classfile.Return},
	})

	c := parse(t, b)
	m, err := dalvik.ConvertMethod(c, c.Method("touch", "()V"))
	require.NoError(t, err)

	assert.Equal(t, dalvik.AccDeclaredSynchronized, m.Access&dalvik.AccDeclaredSynchronized)
	assert.Zero(t, m.Access&uint32(classfile.AccSynchronized))
	got := ops(m.Code)
	assert.Contains(t, got, dalvik.OpMonitorEnter)
	assert.Contains(t, got, dalvik.OpMonitorExit)
	require.Len(t, m.Code.Tries, 1)
	assert.NotZero(t, m.Code.Tries[0].CatchAll)
}

func TestTranslate_Switch(t *testing.T) {
	b := classfile.NewBuilder("com/x/Sw", "java/lang/Object", classfile.AccPublic)
	code := []byte{
		classfile.Iload0,
		classfile.Lookupswitch, 0, 0,
		0, 0, 0, 27, // default -> pc 28
		0, 0, 0, 2, // npairs
		0, 0, 0, 1, 0, 0, 0, 27,
		0, 0, 0, 9, 0, 0, 0, 27,
		classfile.Iconst0, classfile.Ireturn,
	}
	b.AddMethod(classfile.AccStatic, "pick", "(I)I", &classfile.Code{MaxStack: 1, MaxLocals: 1, Bytecode: code})

	body, err := translate(t, b, "pick", "(I)I")
	require.NoError(t, err)
	assert.Contains(t, ops(body), dalvik.OpSparseSwitch)

	asm, err := dalvik.Assemble(body, fixedIndexer{str: 1})
	require.NoError(t, err)
	var payload int
	for i := range asm.Insns {
		if asm.Insns[i] == 0x0200 && i%2 == 0 {
			payload = i
		}
	}
	require.NotZero(t, payload)
	assert.Equal(t, uint16(2), asm.Insns[payload+1])
}

func TestTranslate_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		code *classfile.Code
	}{
		{"jsr", &classfile.Code{MaxStack: 1, MaxLocals: 1, Bytecode: []byte{classfile.Jsr, 0, 3, classfile.Return}}},
		{"too many registers", &classfile.Code{MaxStack: 1, MaxLocals: 300, Bytecode: []byte{classfile.Return}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classfile.NewBuilder("com/x/Bad", "java/lang/Object", classfile.AccPublic)
			b.AddMethod(classfile.AccStatic, "m", "()V", tt.code)
			_, err := translate(t, b, "m", "()V")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnsupportedConstruct))
		})
	}
}

func TestAssemble_RejectsCallSites(t *testing.T) {
	b := classfile.NewBuilder("com/x/Indy", "java/lang/Object", classfile.AccPublic)
	handle := b.MethodHandle(classfile.RefInvokeStatic,
		b.Method("com/x/Boot", "bootstrap", "()Ljava/lang/invoke/CallSite;"))
	site := b.InvokeDynamic(b.Bootstrap(handle), "call", "()V")
	code := classfile.NewAssembler().Invokedynamic(site).Op(classfile.Return).Bytes()
	b.AddMethod(classfile.AccStatic, "m", "()V", &classfile.Code{MaxStack: 0, MaxLocals: 0, Bytecode: code})

	body, err := translate(t, b, "m", "()V")
	require.NoError(t, err)
	assert.Contains(t, ops(body), dalvik.OpInvokeCustom)

	_, err = dalvik.Assemble(body, fixedIndexer{str: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedConstruct))
}

func TestAssemble_JumboString(t *testing.T) {
	body := &dalvik.Body{Registers: 1}
	e := dalvik.NewEmitter(body)
	e.ConstString(0, "big")
	e.ReturnVoid()

	asm, err := dalvik.Assemble(body, fixedIndexer{str: 70000})
	require.NoError(t, err)
	assert.Equal(t, uint16(dalvik.OpConstStringJumbo), asm.Insns[0]&0xff)
	assert.Equal(t, uint16(70000&0xffff), asm.Insns[1])
	assert.Equal(t, uint16(1), asm.Insns[2])
	assert.Equal(t, dalvik.OpConstString, body.Insns[0].Op)
}

func TestConvertClass(t *testing.T) {
	b := classfile.NewBuilder("com/x/Consts", "java/lang/Object", classfile.AccPublic|classfile.AccSuper)
	b.AddField(classfile.AccStatic|classfile.AccFinal, "FLAG", "Z", b.Integer(1))
	b.AddField(classfile.AccStatic|classfile.AccFinal, "NAME", "Ljava/lang/String;", b.String("x"))
	b.AddAnnotation(classfile.Annotation{Type: "Lcom/x/Keep;"}, true)
	b.AddAnnotation(classfile.Annotation{Type: "Lcom/x/Hidden;"}, false)

	c, err := dalvik.ConvertClass(parse(t, b))
	require.NoError(t, err)
	assert.Equal(t, "Lcom/x/Consts;", c.Type)
	assert.Equal(t, "Ljava/lang/Object;", c.Super)
	assert.Zero(t, c.Access&uint32(classfile.AccSuper))
	require.Len(t, c.Fields, 2)
	assert.Equal(t, dalvik.ValueBoolean, c.Fields[0].Initial.Kind)
	assert.Equal(t, int64(1), c.Fields[0].Initial.Int)
	assert.Equal(t, "x", c.Fields[1].Initial.Str)
	require.Len(t, c.Annotations, 1)
	assert.Equal(t, "Lcom/x/Keep;", c.Annotations[0].Type)
}
