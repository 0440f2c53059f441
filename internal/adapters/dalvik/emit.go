package dalvik

// TempRegs is the number of scratch registers reserved at v0 by every translated body.
// They stage operands of instructions whose formats only address v0 to v15.
const TempRegs = 4

const (
	tmpSrc = 0
	tmpDst = 2
)

// Emitter appends instructions to a Body, picking the narrowest valid encoding
// and routing operands through the scratch registers when needed.
type Emitter struct {
	body *Body
}

// NewEmitter returns an emitter writing to body.
func NewEmitter(body *Body) *Emitter {
	return &Emitter{body: body}
}

// Body returns the body being written.
func (e *Emitter) Body() *Body {
	return e.body
}

// Emit appends a raw instruction.
func (e *Emitter) Emit(in Insn) {
	e.body.Insns = append(e.body.Insns, in)
}

// Mark binds l to the current position.
func (e *Emitter) Mark(l Label) {
	e.Emit(Insn{Op: OpLabel, Target: l})
}

// Here allocates a label bound to the current position.
func (e *Emitter) Here() Label {
	l := e.body.NewLabel()
	e.Mark(l)
	return l
}

func fits4(regs ...int) bool {
	for _, r := range regs {
		if r > 15 {
			return false
		}
	}
	return true
}

var moveOps = [...]Opcode{KindSingle: OpMove16, KindWide: OpMoveWide16, KindObject: OpMoveObject16}

// Move copies a value between registers.
func (e *Emitter) Move(k Kind, dst, src int) {
	if dst == src {
		return
	}
	e.Emit(Insn{Op: moveOps[k], A: dst, B: src})
}

var moveResultOps = [...]Opcode{KindSingle: OpMoveResult, KindWide: OpMoveResultWide, KindObject: OpMoveResultObject}

// MoveResult stores the result of the preceding invoke.
func (e *Emitter) MoveResult(k Kind, dst int) {
	e.Emit(Insn{Op: moveResultOps[k], A: dst})
}

var returnOps = [...]Opcode{KindSingle: OpReturn, KindWide: OpReturnWide, KindObject: OpReturnObject}

// Return returns the value in reg.
func (e *Emitter) Return(k Kind, reg int) {
	e.Emit(Insn{Op: returnOps[k], A: reg})
}

// ReturnVoid returns from a void method.
func (e *Emitter) ReturnVoid() {
	e.Emit(Insn{Op: OpReturnVoid})
}

// Const loads a 32-bit constant.
func (e *Emitter) Const(dst int, v int32) {
	switch {
	case v == int32(int16(v)):
		e.Emit(Insn{Op: OpConst16, A: dst, Lit: int64(v)})
	case v&0xffff == 0:
		e.Emit(Insn{Op: OpConstHigh16, A: dst, Lit: int64(v)})
	default:
		e.Emit(Insn{Op: OpConst, A: dst, Lit: int64(v)})
	}
}

// ConstWide loads a 64-bit constant into a register pair.
func (e *Emitter) ConstWide(dst int, v int64) {
	switch {
	case v == int64(int16(v)):
		e.Emit(Insn{Op: OpConstWide16, A: dst, Lit: v})
	case v == int64(int32(v)):
		e.Emit(Insn{Op: OpConstWide32, A: dst, Lit: v})
	case v&0xffffffffffff == 0:
		e.Emit(Insn{Op: OpConstWideHigh16, A: dst, Lit: v})
	default:
		e.Emit(Insn{Op: OpConstWide, A: dst, Lit: v})
	}
}

// ConstString loads a string constant.
func (e *Emitter) ConstString(dst int, s string) {
	e.Emit(Insn{Op: OpConstString, A: dst, Ref: StringRef(s)})
}

// ConstClass loads a class literal.
func (e *Emitter) ConstClass(dst int, desc string) {
	e.Emit(Insn{Op: OpConstClass, A: dst, Ref: TypeRef(desc)})
}

// Unop applies a 12x operation, dst and src may be the same register.
func (e *Emitter) Unop(op Opcode, dk Kind, dst int, sk Kind, src int) {
	if fits4(dst+dk.Width()-1, src+sk.Width()-1) {
		e.Emit(Insn{Op: op, A: dst, B: src})
		return
	}
	e.Move(sk, tmpSrc, src)
	e.Emit(Insn{Op: op, A: tmpDst, B: tmpSrc})
	e.Move(dk, dst, tmpDst)
}

// Binop applies a 23x operation.
func (e *Emitter) Binop(op Opcode, dst, a, b int) {
	e.Emit(Insn{Op: op, A: dst, B: a, C: b})
}

// AddLit adds a literal to an int register.
func (e *Emitter) AddLit(dst, src int, lit int32) {
	if lit == int32(int8(lit)) {
		e.Emit(Insn{Op: OpAddIntLit8, A: dst, B: src, Lit: int64(lit)})
		return
	}
	if lit == int32(int16(lit)) && fits4(dst, src) {
		e.Emit(Insn{Op: OpAddIntLit16, A: dst, B: src, Lit: int64(lit)})
		return
	}
	e.Const(tmpSrc, lit)
	e.Binop(OpAddInt, dst, src, tmpSrc)
}

// IfZ branches when reg compares to zero.
func (e *Emitter) IfZ(op Opcode, reg int, target Label) {
	e.Emit(Insn{Op: op, A: reg, Target: target})
}

// IfCmp branches on the comparison of two registers of kind k.
func (e *Emitter) IfCmp(op Opcode, k Kind, a, b int, target Label) {
	if !fits4(a, b) {
		e.Move(k, tmpSrc, a)
		e.Move(k, tmpDst, b)
		a, b = tmpSrc, tmpDst
	}
	e.Emit(Insn{Op: op, A: a, B: b, Target: target})
}

// Goto branches unconditionally.
func (e *Emitter) Goto(target Label) {
	e.Emit(Insn{Op: OpGoto32, Target: target})
}

// MemberOffset returns the variant offset of the typed get/put opcode families:
// plain, wide, object, boolean, byte, char, short.
func MemberOffset(desc string) Opcode {
	switch desc {
	case "J", "D":
		return 1
	case "Z":
		return 3
	case "B":
		return 4
	case "C":
		return 5
	case "S":
		return 6
	}
	if KindOf(desc) == KindObject {
		return 2
	}
	return 0
}

// Iget reads an instance field into dst.
func (e *Emitter) Iget(dst, obj int, f FieldRef) {
	op := OpIget + MemberOffset(f.Type)
	k := KindOf(f.Type)
	if fits4(dst+k.Width()-1, obj) {
		e.Emit(Insn{Op: op, A: dst, B: obj, Ref: f})
		return
	}
	e.Move(KindObject, tmpSrc, obj)
	e.Emit(Insn{Op: op, A: tmpDst, B: tmpSrc, Ref: f})
	e.Move(k, dst, tmpDst)
}

// Iput writes val into an instance field.
func (e *Emitter) Iput(val, obj int, f FieldRef) {
	op := OpIput + MemberOffset(f.Type)
	k := KindOf(f.Type)
	if !fits4(val+k.Width()-1, obj) {
		e.Move(k, tmpDst, val)
		e.Move(KindObject, tmpSrc, obj)
		val, obj = tmpDst, tmpSrc
	}
	e.Emit(Insn{Op: op, A: val, B: obj, Ref: f})
}

// Sget reads a static field.
func (e *Emitter) Sget(dst int, f FieldRef) {
	e.Emit(Insn{Op: OpSget + MemberOffset(f.Type), A: dst, Ref: f})
}

// Sput writes a static field.
func (e *Emitter) Sput(src int, f FieldRef) {
	e.Emit(Insn{Op: OpSput + MemberOffset(f.Type), A: src, Ref: f})
}

func (e *Emitter) op22c(op Opcode, dk Kind, dst int, sk Kind, src int, ref any) {
	if fits4(dst+dk.Width()-1, src) {
		e.Emit(Insn{Op: op, A: dst, B: src, Ref: ref})
		return
	}
	e.Move(sk, tmpSrc, src)
	e.Emit(Insn{Op: op, A: tmpDst, B: tmpSrc, Ref: ref})
	e.Move(dk, dst, tmpDst)
}

// InstanceOf stores whether obj is an instance of desc.
func (e *Emitter) InstanceOf(dst, obj int, desc string) {
	e.op22c(OpInstanceOf, KindSingle, dst, KindObject, obj, TypeRef(desc))
}

// NewArray allocates an array of type desc with the length in size.
func (e *Emitter) NewArray(dst, size int, desc string) {
	e.op22c(OpNewArray, KindObject, dst, KindSingle, size, TypeRef(desc))
}

// ArrayLength stores the length of the array in arr.
func (e *Emitter) ArrayLength(dst, arr int) {
	e.Unop(OpArrayLength, KindSingle, dst, KindObject, arr)
}

// NewInstance allocates an uninitialized instance.
func (e *Emitter) NewInstance(dst int, desc string) {
	e.Emit(Insn{Op: OpNewInstance, A: dst, Ref: TypeRef(desc)})
}

// CheckCast checks the reference in reg against desc.
func (e *Emitter) CheckCast(reg int, desc string) {
	e.Emit(Insn{Op: OpCheckCast, A: reg, Ref: TypeRef(desc)})
}

// Invoke calls m with count argument registers starting at first.
func (e *Emitter) Invoke(op Opcode, first, count int, m MethodRef) {
	if count == 0 {
		first = 0
	}
	e.Emit(Insn{Op: op, A: first, B: count, Ref: m})
}

// Op11x emits a single-register instruction such as throw or monitor-enter.
func (e *Emitter) Op11x(op Opcode, reg int) {
	e.Emit(Insn{Op: op, A: reg})
}
