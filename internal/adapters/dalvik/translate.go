package dalvik

import (
	"math"
	"slices"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/zerr"
)

// MaxFrameRegisters bounds the temps, locals and operand stack of a translated method,
// since most register operands are eight bits wide.
const MaxFrameRegisters = 256

type translator struct {
	class  *classfile.Class
	method *classfile.Method
	code   *classfile.Code
	proto  Proto
	insns  []classfile.Instruction
	frames []*frame

	body *Body
	e    *Emitter

	labels   map[int]Label
	handlers map[int]Label
	end      Label
	syncExit Label

	lock      int
	localBase int
	stackBase int
}

// TranslateMethod converts the bytecode of m, declared in c, into a register body.
func TranslateMethod(c *classfile.Class, m *classfile.Method) (*Body, error) {
	if m.Code == nil {
		return nil, nil
	}
	proto, err := ParseProto(m.Descriptor)
	if err != nil {
		return nil, err
	}
	insns, err := classfile.Decode(m.Code.Bytecode)
	if err != nil {
		return nil, err
	}
	if len(insns) == 0 {
		return nil, malformed("empty code attribute")
	}
	t := &translator{
		class:    c,
		method:   m,
		code:     m.Code,
		proto:    proto,
		insns:    insns,
		body:     &Body{},
		labels:   make(map[int]Label, len(insns)+1),
		handlers: make(map[int]Label),
		lock:     -1,
	}
	t.e = NewEmitter(t.body)
	a, err := t.analyze()
	if err != nil {
		return nil, err
	}
	t.frames = a.frames
	if err := t.layout(); err != nil {
		return nil, err
	}
	if err := t.emit(); err != nil {
		return nil, err
	}
	t.tries()
	t.debug()
	return t.body, nil
}

func (t *translator) synchronized() bool {
	return t.method.AccessFlags&classfile.AccSynchronized != 0
}

func (t *translator) layout() error {
	lock := 0
	if t.synchronized() {
		lock = 1
		t.lock = TempRegs
	}
	t.localBase = TempRegs + lock
	t.stackBase = t.localBase + int(t.code.MaxLocals)
	frameRegs := t.stackBase + int(t.code.MaxStack)
	if frameRegs > MaxFrameRegisters {
		return zerr.With(unsupported("method needs more than 256 registers"), "registers", frameRegs)
	}
	ins := t.proto.ArgUnits()
	if !t.method.IsStatic() {
		ins++
	}
	t.body.Registers = frameRegs + ins
	t.body.Ins = ins

	for _, in := range t.insns {
		t.labels[in.PC] = t.body.NewLabel()
	}
	t.end = t.body.NewLabel()
	t.labels[len(t.code.Bytecode)] = t.end
	for _, h := range t.code.Handlers {
		if _, ok := t.handlers[h.HandlerPC]; ok {
			continue
		}
		if idx := t.index(h.HandlerPC); idx < 0 || t.frames[idx] == nil {
			continue
		}
		t.handlers[h.HandlerPC] = t.body.NewLabel()
	}
	if t.synchronized() {
		t.syncExit = t.body.NewLabel()
	}
	return nil
}

func (t *translator) index(pc int) int {
	i, ok := slices.BinarySearchFunc(t.insns, pc, func(in classfile.Instruction, pc int) int { return in.PC - pc })
	if !ok {
		return -1
	}
	return i
}

func (t *translator) local(n int) int { return t.localBase + n }

func (t *translator) stack(n int) int { return t.stackBase + n }

func (t *translator) prologue() {
	insBase := t.body.Registers - t.body.Ins
	n := 0
	if !t.method.IsStatic() {
		t.e.Move(KindObject, t.local(0), insBase)
		n = 1
	}
	for _, p := range t.proto.Params {
		k := KindOf(p)
		t.e.Move(k, t.local(n), insBase+n)
		n += k.Width()
	}
	if t.lock >= 0 {
		if t.method.IsStatic() {
			t.e.ConstClass(t.lock, classfile.TypeDescriptor(t.class.Name))
		} else {
			t.e.Move(KindObject, t.lock, t.local(0))
		}
		t.e.Op11x(OpMonitorEnter, t.lock)
	}
}

func fallsThrough(op byte) bool {
	switch op {
	case classfile.Goto, classfile.GotoW, classfile.Tableswitch, classfile.Lookupswitch, classfile.Athrow:
		return false
	}
	return op < classfile.Ireturn || op > classfile.Return
}

func (t *translator) emit() error {
	t.prologue()
	for i, in := range t.insns {
		f := t.frames[i]
		if h, ok := t.handlers[in.PC]; ok {
			if i > 0 && t.frames[i-1] != nil && fallsThrough(t.insns[i-1].Opcode) {
				t.e.Goto(t.labels[in.PC])
			}
			t.e.Mark(h)
			t.e.Op11x(OpMoveException, t.stack(0))
		}
		t.e.Mark(t.labels[in.PC])
		if f == nil {
			continue
		}
		if err := t.translate(in, f); err != nil {
			return zerr.With(err, "pc", in.PC)
		}
	}
	t.e.Mark(t.end)
	if t.lock >= 0 {
		t.e.Mark(t.syncExit)
		t.e.Op11x(OpMoveException, 0)
		t.e.Op11x(OpMonitorExit, t.lock)
		t.e.Op11x(OpThrow, 0)
	}
	return nil
}

func kindOfSlot(s slot) (Kind, error) {
	switch s.kind {
	case slotSingle:
		return KindSingle, nil
	case slotRef:
		return KindObject, nil
	case slotWideLo:
		return KindWide, nil
	default:
		return 0, malformed("stack value of unknown type")
	}
}

var arithBase = [4]Opcode{OpAddInt, OpAddLong, OpAddFloat, OpAddDouble}

var bitOps = map[byte]Opcode{
	classfile.Ishl: OpShlInt, classfile.Lshl: OpShlLong,
	classfile.Ishr: OpShrInt, classfile.Lshr: OpShrLong,
	classfile.Iushr: OpUshrInt, classfile.Lushr: OpUshrLong,
	classfile.Iand: OpAndInt, classfile.Land: OpAndLong,
	classfile.Ior: OpOrInt, classfile.Lor: OpOrLong,
	classfile.Ixor: OpXorInt, classfile.Lxor: OpXorLong,
}

var arrayOffsets = map[byte]Opcode{
	classfile.Iaload: 0, classfile.Laload: 1, classfile.Faload: 0, classfile.Daload: 1,
	classfile.Aaload: 2, classfile.Baload: 4, classfile.Caload: 5, classfile.Saload: 6,
}

func (t *translator) member(idx uint16) (classfile.MemberRef, error) {
	return t.class.Pool.Member(idx)
}

func fieldRef(ref classfile.MemberRef) FieldRef {
	return FieldRef{Class: classfile.TypeDescriptor(ref.Class), Name: ref.Name, Type: ref.Descriptor}
}

func (t *translator) translate(in classfile.Instruction, f *frame) error {
	e := t.e
	sp := len(f.stack)
	s := t.stack
	op := in.Opcode

	switch {
	case op == classfile.Nop:
	case op == classfile.AconstNull:
		e.Const(s(sp), 0)
	case op >= classfile.IconstM1 && op <= classfile.Iconst5:
		e.Const(s(sp), int32(op)-int32(classfile.Iconst0))
	case op == classfile.Lconst0 || op == classfile.Lconst1:
		e.ConstWide(s(sp), int64(op-classfile.Lconst0))
	case op >= classfile.Fconst0 && op <= classfile.Fconst2:
		e.Const(s(sp), int32(math.Float32bits(float32(op-classfile.Fconst0))))
	case op == classfile.Dconst0 || op == classfile.Dconst1:
		e.ConstWide(s(sp), int64(math.Float64bits(float64(op-classfile.Dconst0))))
	case op == classfile.Bipush || op == classfile.Sipush:
		e.Const(s(sp), in.Const)
	case op == classfile.Ldc || op == classfile.LdcW || op == classfile.Ldc2W:
		v, err := t.class.Pool.Loadable(in.Index)
		if err != nil {
			return err
		}
		switch v := v.(type) {
		case int32:
			e.Const(s(sp), v)
		case float32:
			e.Const(s(sp), int32(math.Float32bits(v)))
		case int64:
			e.ConstWide(s(sp), v)
		case float64:
			e.ConstWide(s(sp), int64(math.Float64bits(v)))
		case string:
			e.ConstString(s(sp), v)
		case classfile.Type:
			e.ConstClass(s(sp), classfile.TypeDescriptor(string(v)))
		default:
			return unsupported("ldc of a method handle, method type or dynamic constant")
		}
	case op == classfile.Iload || op == classfile.Fload:
		e.Move(KindSingle, s(sp), t.local(in.Local))
	case op == classfile.Lload || op == classfile.Dload:
		e.Move(KindWide, s(sp), t.local(in.Local))
	case op == classfile.Aload:
		e.Move(KindObject, s(sp), t.local(in.Local))
	case op == classfile.Istore || op == classfile.Fstore:
		e.Move(KindSingle, t.local(in.Local), s(sp-1))
	case op == classfile.Lstore || op == classfile.Dstore:
		e.Move(KindWide, t.local(in.Local), s(sp-2))
	case op == classfile.Astore:
		e.Move(KindObject, t.local(in.Local), s(sp-1))
	case op >= classfile.Iaload && op <= classfile.Saload:
		off := arrayOffsets[op]
		if op == classfile.Baload && f.stack[sp-2].desc == "[Z" {
			off = 3
		}
		e.Binop(OpAget+off, s(sp-2), s(sp-2), s(sp-1))
	case op >= classfile.Iastore && op <= classfile.Sastore:
		off := arrayOffsets[op-classfile.Iastore+classfile.Iaload]
		if op == classfile.Lastore || op == classfile.Dastore {
			e.Emit(Insn{Op: OpAput + off, A: s(sp - 2), B: s(sp - 4), C: s(sp - 3)})
			break
		}
		if op == classfile.Bastore && f.stack[sp-3].desc == "[Z" {
			off = 3
		}
		e.Emit(Insn{Op: OpAput + off, A: s(sp - 1), B: s(sp - 3), C: s(sp - 2)})
	case op == classfile.Pop || op == classfile.Pop2:
	case op >= classfile.Dup && op <= classfile.Swap:
		return t.shuffle(op, f)
	case op >= classfile.Iadd && op <= classfile.Drem:
		typ := (op - classfile.Iadd) % 4
		dop := arithBase[typ] + Opcode((op-classfile.Iadd)/4)
		if typ == 1 || typ == 3 {
			e.Binop(dop, s(sp-4), s(sp-4), s(sp-2))
		} else {
			e.Binop(dop, s(sp-2), s(sp-2), s(sp-1))
		}
	case op >= classfile.Ineg && op <= classfile.Dneg:
		dop := [4]Opcode{OpNegInt, OpNegLong, OpNegFloat, OpNegDouble}[op-classfile.Ineg]
		k := KindSingle
		if op == classfile.Lneg || op == classfile.Dneg {
			k = KindWide
		}
		r := s(sp - k.Width())
		e.Unop(dop, k, r, k, r)
	case op >= classfile.Ishl && op <= classfile.Lxor:
		dop := bitOps[op]
		switch {
		case (op-classfile.Ishl)%2 == 0:
			e.Binop(dop, s(sp-2), s(sp-2), s(sp-1))
		case op <= classfile.Lushr:
			e.Binop(dop, s(sp-3), s(sp-3), s(sp-1))
		default:
			e.Binop(dop, s(sp-4), s(sp-4), s(sp-2))
		}
	case op == classfile.Iinc:
		e.AddLit(t.local(in.Local), t.local(in.Local), in.Const)
	case op >= classfile.I2l && op <= classfile.I2s:
		from, to := conversion(op)
		r := s(sp - from.Width())
		e.Unop(OpIntToLong+Opcode(op-classfile.I2l), to, r, from, r)
	case op == classfile.Lcmp:
		e.Binop(OpCmpLong, s(sp-4), s(sp-4), s(sp-2))
	case op == classfile.Fcmpl || op == classfile.Fcmpg:
		e.Binop(OpCmplFloat+Opcode(op-classfile.Fcmpl), s(sp-2), s(sp-2), s(sp-1))
	case op == classfile.Dcmpl || op == classfile.Dcmpg:
		e.Binop(OpCmplDouble+Opcode(op-classfile.Dcmpl), s(sp-4), s(sp-4), s(sp-2))
	case op >= classfile.Ifeq && op <= classfile.Ifle:
		e.IfZ(OpIfEqz+Opcode(op-classfile.Ifeq), s(sp-1), t.labels[in.Target])
	case op >= classfile.IfIcmpeq && op <= classfile.IfIcmple:
		e.IfCmp(OpIfEq+Opcode(op-classfile.IfIcmpeq), KindSingle, s(sp-2), s(sp-1), t.labels[in.Target])
	case op == classfile.IfAcmpeq || op == classfile.IfAcmpne:
		e.IfCmp(OpIfEq+Opcode(op-classfile.IfAcmpeq), KindObject, s(sp-2), s(sp-1), t.labels[in.Target])
	case op == classfile.Ifnull:
		e.IfZ(OpIfEqz, s(sp-1), t.labels[in.Target])
	case op == classfile.Ifnonnull:
		e.IfZ(OpIfNez, s(sp-1), t.labels[in.Target])
	case op == classfile.Goto || op == classfile.GotoW:
		e.Goto(t.labels[in.Target])
	case op == classfile.Tableswitch || op == classfile.Lookupswitch:
		t.switchInsn(in, s(sp-1))
	case op >= classfile.Ireturn && op <= classfile.Return:
		if t.lock >= 0 {
			e.Op11x(OpMonitorExit, t.lock)
		}
		switch op {
		case classfile.Ireturn, classfile.Freturn:
			e.Return(KindSingle, s(sp-1))
		case classfile.Lreturn, classfile.Dreturn:
			e.Return(KindWide, s(sp-2))
		case classfile.Areturn:
			e.Return(KindObject, s(sp-1))
		default:
			e.ReturnVoid()
		}
	case op == classfile.Getstatic || op == classfile.Putstatic || op == classfile.Getfield || op == classfile.Putfield:
		ref, err := t.member(in.Index)
		if err != nil {
			return err
		}
		fr := fieldRef(ref)
		w := classfile.Slots(ref.Descriptor)
		switch op {
		case classfile.Getstatic:
			e.Sget(s(sp), fr)
		case classfile.Putstatic:
			e.Sput(s(sp-w), fr)
		case classfile.Getfield:
			e.Iget(s(sp-1), s(sp-1), fr)
		default:
			e.Iput(s(sp-w), s(sp-w-1), fr)
		}
	case op >= classfile.Invokevirtual && op <= classfile.Invokeinterface:
		return t.invoke(in, sp)
	case op == classfile.Invokedynamic:
		return t.invokeDynamic(in, sp)
	case op == classfile.New:
		name, err := t.class.Pool.ClassName(in.Index)
		if err != nil {
			return err
		}
		e.NewInstance(s(sp), classfile.TypeDescriptor(name))
	case op == classfile.Newarray:
		desc := newArrayDesc(in.Const)
		if desc == "" {
			return malformed("invalid newarray type")
		}
		e.NewArray(s(sp-1), s(sp-1), desc)
	case op == classfile.Anewarray:
		name, err := t.class.Pool.ClassName(in.Index)
		if err != nil {
			return err
		}
		e.NewArray(s(sp-1), s(sp-1), "["+classfile.TypeDescriptor(name))
	case op == classfile.Arraylength:
		e.ArrayLength(s(sp-1), s(sp-1))
	case op == classfile.Athrow:
		e.Op11x(OpThrow, s(sp-1))
	case op == classfile.Checkcast || op == classfile.Instanceof:
		name, err := t.class.Pool.ClassName(in.Index)
		if err != nil {
			return err
		}
		if op == classfile.Checkcast {
			e.CheckCast(s(sp-1), classfile.TypeDescriptor(name))
		} else {
			e.InstanceOf(s(sp-1), s(sp-1), classfile.TypeDescriptor(name))
		}
	case op == classfile.Monitorenter:
		e.Op11x(OpMonitorEnter, s(sp-1))
	case op == classfile.Monitorexit:
		e.Op11x(OpMonitorExit, s(sp-1))
	default:
		return unsupportedOpcode(op)
	}
	return nil
}

func (t *translator) shuffle(op byte, f *frame) error {
	e := t.e
	sp := len(f.stack)
	k, pattern := shuffle(op)
	base := sp - k
	src := f.stack[base:]

	if op == classfile.Dup || (op == classfile.Dup2 && src[0].kind == slotWideLo) {
		kind, err := kindOfSlot(src[0])
		if err != nil {
			return err
		}
		e.Move(kind, t.stack(sp), t.stack(base))
		return nil
	}
	for i := 0; i < k; i++ {
		kind, err := kindOfSlot(src[i])
		if err != nil {
			return err
		}
		e.Move(kind, i, t.stack(base+i))
		i += kind.Width() - 1
	}
	for j := 0; j < len(pattern); j++ {
		u := pattern[j]
		kind, err := kindOfSlot(src[u])
		if err != nil {
			return err
		}
		e.Move(kind, t.stack(base+j), u)
		j += kind.Width() - 1
	}
	return nil
}

func (t *translator) switchInsn(in classfile.Instruction, reg int) {
	sw := in.Switch
	if len(sw.Keys) > 0 {
		table := &SwitchTable{Keys: sw.Keys, Targets: make([]Label, len(sw.Targets))}
		for i, pc := range sw.Targets {
			table.Targets[i] = t.labels[pc]
		}
		op := OpSparseSwitch
		if int64(sw.Keys[len(sw.Keys)-1])-int64(sw.Keys[0]) == int64(len(sw.Keys)-1) {
			op = OpPackedSwitch
		}
		t.e.Emit(Insn{Op: op, A: reg, Switch: table})
	}
	t.e.Goto(t.labels[sw.Default])
}

func (t *translator) isPrivate(name, desc string) bool {
	m := t.class.Method(name, desc)
	return m != nil && m.AccessFlags&classfile.AccPrivate != 0
}

func (t *translator) invoke(in classfile.Instruction, sp int) error {
	ref, err := t.member(in.Index)
	if err != nil {
		return err
	}
	proto, err := ParseProto(ref.Descriptor)
	if err != nil {
		return err
	}
	units := proto.ArgUnits()
	var op Opcode
	own := ref.Class == t.class.Name
	switch in.Opcode {
	case classfile.Invokestatic:
		op = OpInvokeStaticRange
	case classfile.Invokespecial:
		op = OpInvokeSuperRange
		if ref.Name == "<init>" || own {
			op = OpInvokeDirectRange
		}
	case classfile.Invokeinterface:
		op = OpInvokeInterfaceRange
		if own && t.isPrivate(ref.Name, ref.Descriptor) {
			op = OpInvokeDirectRange
		}
	default:
		op = OpInvokeVirtualRange
		if own && t.isPrivate(ref.Name, ref.Descriptor) {
			op = OpInvokeDirectRange
		}
	}
	if in.Opcode != classfile.Invokestatic {
		units++
	}
	if units > sp {
		return malformed("operand stack underflow")
	}
	first := t.stack(sp - units)
	t.e.Invoke(op, first, units, MethodRef{Class: classfile.TypeDescriptor(ref.Class), Name: ref.Name, Proto: proto})
	if proto.Return != "V" {
		t.e.MoveResult(KindOf(proto.Return), first)
	}
	return nil
}

func (t *translator) invokeDynamic(in classfile.Instruction, sp int) error {
	site, err := t.class.Pool.InvokeDynamic(in.Index)
	if err != nil {
		return err
	}
	if int(site.Bootstrap) >= len(t.class.Bootstrap) {
		return malformed("bootstrap method index out of range")
	}
	bm := t.class.Bootstrap[site.Bootstrap]
	proto, err := ParseProto(site.Descriptor)
	if err != nil {
		return err
	}
	units := proto.ArgUnits()
	if units > sp {
		return malformed("operand stack underflow")
	}
	first := t.stack(sp - units)
	t.e.Emit(Insn{Op: OpInvokeCustom, A: first, B: units, Site: &CallSite{
		Bootstrap: bm.Handle,
		Arguments: bm.Arguments,
		Name:      site.Name,
		Proto:     proto,
		Owner:     t.class.Name,
	}})
	if proto.Return != "V" {
		t.e.MoveResult(KindOf(proto.Return), first)
	}
	return nil
}

func (t *translator) tries() {
	handlers := make([]classfile.ExceptionHandler, 0, len(t.code.Handlers))
	for _, h := range t.code.Handlers {
		if _, ok := t.handlers[h.HandlerPC]; ok {
			handlers = append(handlers, h)
		}
	}
	bounds := make([]int, 0, 2*len(handlers)+2)
	for _, h := range handlers {
		bounds = append(bounds, h.StartPC, h.EndPC)
	}
	if t.lock >= 0 {
		bounds = append(bounds, 0, len(t.code.Bytecode))
	}
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)

	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		try := Try{Start: t.labels[lo], End: t.labels[hi]}
		if try.Start == 0 || try.End == 0 {
			continue
		}
		seen := make(map[string]bool)
		for _, h := range handlers {
			if h.StartPC > lo || hi > h.EndPC || try.CatchAll != 0 {
				continue
			}
			if h.CatchType == "" {
				try.CatchAll = t.handlers[h.HandlerPC]
				continue
			}
			desc := classfile.TypeDescriptor(h.CatchType)
			if seen[desc] {
				continue
			}
			seen[desc] = true
			try.Catches = append(try.Catches, Catch{Type: desc, Handler: t.handlers[h.HandlerPC]})
		}
		if t.lock >= 0 && try.CatchAll == 0 {
			try.CatchAll = t.syncExit
		}
		if len(try.Catches) == 0 && try.CatchAll == 0 {
			continue
		}
		if n := len(t.body.Tries); n > 0 {
			prev := &t.body.Tries[n-1]
			if prev.End == try.Start && prev.CatchAll == try.CatchAll && slices.Equal(prev.Catches, try.Catches) {
				prev.End = try.End
				continue
			}
		}
		t.body.Tries = append(t.body.Tries, try)
	}
}

func (t *translator) debug() {
	lines := slices.Clone(t.code.Lines)
	slices.SortStableFunc(lines, func(a, b classfile.LineNumber) int { return a.PC - b.PC })
	for _, l := range lines {
		if lbl, ok := t.labels[l.PC]; ok {
			t.body.Positions = append(t.body.Positions, Position{Label: lbl, Line: l.Line})
		}
	}
	for _, lv := range t.code.Locals {
		start, ok1 := t.labels[lv.StartPC]
		end, ok2 := t.labels[lv.StartPC+lv.Length]
		if !ok1 || !ok2 || lv.Index >= int(t.code.MaxLocals) {
			continue
		}
		t.body.Locals = append(t.body.Locals, LocalVar{
			Reg: t.local(lv.Index), Name: lv.Name, Type: lv.Descriptor, Start: start, End: end,
		})
	}
	slot := 0
	if !t.method.IsStatic() {
		slot = 1
	}
	for i, p := range t.proto.Params {
		name := ""
		for _, lv := range t.code.Locals {
			if lv.StartPC == 0 && lv.Index == slot {
				name = lv.Name
				break
			}
		}
		if name == "" && i < len(t.method.Parameters) {
			name = t.method.Parameters[i]
		}
		t.body.Params = append(t.body.Params, name)
		slot += classfile.Slots(p)
	}
}
