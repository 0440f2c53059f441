package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/classfile"
)

func TestDecode_ShortFormsAndBranches(t *testing.T) {
	code := classfile.NewAssembler().
		Op(classfile.Iload0+1).
		Jump(classfile.Ifeq, "out").
		Op(classfile.Bipush, 0xff).
		Op(classfile.Istore0 + 2).
		Op(classfile.Iinc, 2, 5).
		Label("out").
		Op(classfile.Return).
		Bytes()

	insns, err := classfile.Decode(code)
	require.NoError(t, err)
	require.Len(t, insns, 6)

	assert.Equal(t, classfile.Iload, insns[0].Opcode)
	assert.Equal(t, 1, insns[0].Local)
	assert.Equal(t, classfile.Ifeq, insns[1].Opcode)
	assert.Equal(t, insns[5].PC, insns[1].Target)
	assert.Equal(t, int32(-1), insns[2].Const)
	assert.Equal(t, classfile.Istore, insns[3].Opcode)
	assert.Equal(t, 2, insns[3].Local)
	assert.Equal(t, int32(5), insns[4].Const)
}

func TestDecode_Switches(t *testing.T) {
	// tableswitch at pc 1 is padded to offset 4.
	code := []byte{
		classfile.Iload0,
		classfile.Tableswitch, 0, 0,
		0, 0, 0, 23, // default
		0, 0, 0, 1, // low
		0, 0, 0, 2, // high
		0, 0, 0, 23,
		0, 0, 0, 23,
		classfile.Return, classfile.Return, classfile.Return, classfile.Return,
	}
	insns, err := classfile.Decode(code)
	require.NoError(t, err)
	sw := insns[1].Switch
	require.NotNil(t, sw)
	assert.Equal(t, []int32{1, 2}, sw.Keys)
	assert.Equal(t, []int{24, 24}, sw.Targets)
	assert.Equal(t, 24, sw.Default)
	assert.Equal(t, 24, insns[1].Next)
}

func TestDecode_Wide(t *testing.T) {
	insns, err := classfile.Decode([]byte{classfile.Wide, classfile.Iinc, 0x01, 0x00, 0xff, 0xfe})
	require.NoError(t, err)
	require.Len(t, insns, 1)
	assert.Equal(t, classfile.Iinc, insns[0].Opcode)
	assert.Equal(t, 256, insns[0].Local)
	assert.Equal(t, int32(-2), insns[0].Const)
}

func TestDecode_Errors(t *testing.T) {
	_, err := classfile.Decode([]byte{0xfe})
	require.Error(t, err)
	_, err = classfile.Decode([]byte{classfile.Sipush, 0x01})
	require.Error(t, err)
}
