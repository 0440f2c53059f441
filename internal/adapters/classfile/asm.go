package classfile

import "encoding/binary"

// Assembler emits bytecode with symbolic branch labels.
type Assembler struct {
	code   []byte
	labels map[string]int
	fixups []fixup
}

type fixup struct {
	at, base int
	label    string
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[string]int)}
}

// PC returns the offset of the next instruction.
func (a *Assembler) PC() int {
	return len(a.code)
}

// Op emits an opcode followed by raw operand bytes.
func (a *Assembler) Op(op byte, operands ...byte) *Assembler {
	a.code = append(a.code, op)
	a.code = append(a.code, operands...)
	return a
}

// Index emits an opcode with a two-byte constant pool index.
func (a *Assembler) Index(op byte, idx uint16) *Assembler {
	return a.Op(op, byte(idx>>8), byte(idx))
}

// Invokeinterface emits invokeinterface with its argument slot count.
func (a *Assembler) Invokeinterface(idx uint16, count byte) *Assembler {
	return a.Op(Invokeinterface, byte(idx>>8), byte(idx), count, 0)
}

// Invokedynamic emits invokedynamic.
func (a *Assembler) Invokedynamic(idx uint16) *Assembler {
	return a.Op(Invokedynamic, byte(idx>>8), byte(idx), 0, 0)
}

// Label binds name to the current offset.
func (a *Assembler) Label(name string) *Assembler {
	a.labels[name] = len(a.code)
	return a
}

// Jump emits a branch with a 16-bit offset to label.
func (a *Assembler) Jump(op byte, label string) *Assembler {
	base := len(a.code)
	a.code = append(a.code, op, 0, 0)
	a.fixups = append(a.fixups, fixup{at: base + 1, base: base, label: label})
	return a
}

// Bytes resolves labels and returns the bytecode. Unknown labels resolve to offset zero.
func (a *Assembler) Bytes() []byte {
	out := append([]byte(nil), a.code...)
	for _, f := range a.fixups {
		binary.BigEndian.PutUint16(out[f.at:], uint16(int16(a.labels[f.label]-f.base)))
	}
	return out
}
