package dalvik

import "go.trai.ch/dexer/internal/adapters/classfile"

// Label names a position in a Body; zero is no label.
type Label int

// Insn is one instruction of the register-based intermediate form. The meaning of
// A, B and C follows the instruction format: destination first, then sources.
// Range invokes keep the first register in A and the register count in B.
type Insn struct {
	Op      Opcode
	A, B, C int
	Lit     int64
	// Ref is a StringRef, TypeRef, FieldRef or MethodRef.
	Ref    any
	Target Label
	Switch *SwitchTable
	Site   *CallSite
}

// SwitchTable holds the keys and targets of packed-switch and sparse-switch.
// Keys are ascending; packed tables have consecutive keys.
type SwitchTable struct {
	Keys    []int32
	Targets []Label
}

// CallSite is an invokedynamic call site awaiting desugaring.
type CallSite struct {
	Bootstrap classfile.MethodHandle
	Arguments []classfile.Value
	Name      string
	Proto     Proto
	// Owner is the internal name of the class containing the call site.
	Owner string
}

// Try covers [Start, End) with ordered handlers and an optional catch-all.
type Try struct {
	Start, End Label
	Catches    []Catch
	CatchAll   Label
}

// Catch pairs an exception type descriptor with its handler.
type Catch struct {
	Type    string
	Handler Label
}

// Position maps a label to a source line.
type Position struct {
	Label Label
	Line  int
}

// LocalVar is a named local variable live in Reg over [Start, End).
type LocalVar struct {
	Reg        int
	Name, Type string
	Start, End Label
}

// Body is a method body in register form.
type Body struct {
	Registers int
	Ins       int
	Insns     []Insn
	Tries     []Try
	Positions []Position
	Locals    []LocalVar
	// Params holds debug parameter names, excluding the receiver; empty for unnamed.
	Params []string
	labels int
}

// NewLabel allocates a fresh label.
func (b *Body) NewLabel() Label {
	b.labels++
	return Label(b.labels)
}

// Kind classifies a register value for move, return and field opcodes.
type Kind uint8

const (
	// KindSingle is a 32-bit primitive.
	KindSingle Kind = iota
	// KindWide is a long or double occupying a register pair.
	KindWide
	// KindObject is a reference.
	KindObject
)

// KindOf returns the register kind of a type descriptor.
func KindOf(desc string) Kind {
	switch {
	case desc == "J" || desc == "D":
		return KindWide
	case classfile.IsReference(desc):
		return KindObject
	default:
		return KindSingle
	}
}

// Width returns the register count of the kind.
func (k Kind) Width() int {
	if k == KindWide {
		return 2
	}
	return 1
}
