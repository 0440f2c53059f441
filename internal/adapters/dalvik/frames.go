package dalvik

import (
	"slices"
	"strings"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/zerr"
)

type slotKind uint8

const (
	slotTop slotKind = iota
	slotSingle
	slotRef
	slotWideLo
	slotWideHi
)

// slot describes one JVM stack or local unit. Desc is known for references when
// every path agrees on it.
type slot struct {
	kind slotKind
	desc string
}

type frame struct {
	locals []slot
	stack  []slot
}

func (f *frame) clone() *frame {
	return &frame{locals: slices.Clone(f.locals), stack: slices.Clone(f.stack)}
}

func (f *frame) push(desc string) {
	switch KindOf(desc) {
	case KindWide:
		f.stack = append(f.stack, slot{kind: slotWideLo}, slot{kind: slotWideHi})
	case KindObject:
		f.stack = append(f.stack, slot{kind: slotRef, desc: desc})
	default:
		f.stack = append(f.stack, slot{kind: slotSingle})
	}
}

func (f *frame) pop(n int) ([]slot, bool) {
	if n > len(f.stack) {
		return nil, false
	}
	out := f.stack[len(f.stack)-n:]
	f.stack = f.stack[:len(f.stack)-n]
	return slices.Clone(out), true
}

func (f *frame) setLocal(n int, s []slot) bool {
	if n+len(s) > len(f.locals) {
		return false
	}
	if n > 0 && f.locals[n-1].kind == slotWideLo {
		f.locals[n-1] = slot{}
	}
	if n+len(s) < len(f.locals) && f.locals[n+len(s)].kind == slotWideHi {
		f.locals[n+len(s)] = slot{}
	}
	copy(f.locals[n:], s)
	return true
}

func mergeSlot(a, b slot) slot {
	if a == b {
		return a
	}
	if a.kind == b.kind && a.kind == slotRef {
		return slot{kind: slotRef}
	}
	if a.kind == b.kind {
		return slot{kind: a.kind}
	}
	return slot{}
}

// merge folds other into f and reports whether f changed.
func (f *frame) merge(other *frame) (bool, error) {
	if len(f.stack) != len(other.stack) {
		return false, malformed("inconsistent stack depth at merge point")
	}
	changed := false
	for i := range f.stack {
		m := mergeSlot(f.stack[i], other.stack[i])
		if m != f.stack[i] {
			f.stack[i] = m
			changed = true
		}
	}
	for i := range f.locals {
		m := mergeSlot(f.locals[i], other.locals[i])
		if m != f.locals[i] {
			f.locals[i] = m
			changed = true
		}
	}
	return changed, nil
}

// analysis holds the entry frame of every reachable instruction.
type analysis struct {
	insns  []classfile.Instruction
	byPC   map[int]int
	frames []*frame
}

func elementDesc(arrayDesc string) string {
	if strings.HasPrefix(arrayDesc, "[") {
		return arrayDesc[1:]
	}
	return ""
}

func newArrayDesc(atype int32) string {
	switch atype {
	case 4:
		return "[Z"
	case 5:
		return "[C"
	case 6:
		return "[F"
	case 7:
		return "[D"
	case 8:
		return "[B"
	case 9:
		return "[S"
	case 10:
		return "[I"
	case 11:
		return "[J"
	}
	return ""
}

func (t *translator) analyze() (*analysis, error) {
	a := &analysis{insns: t.insns, byPC: make(map[int]int, len(t.insns)), frames: make([]*frame, len(t.insns))}
	for i, in := range t.insns {
		a.byPC[in.PC] = i
	}

	entry := &frame{locals: make([]slot, t.code.MaxLocals)}
	n := 0
	if !t.method.IsStatic() {
		desc := classfile.TypeDescriptor(t.class.Name)
		if len(entry.locals) == 0 {
			return nil, malformed("max_locals too small for receiver")
		}
		entry.locals[0] = slot{kind: slotRef, desc: desc}
		n = 1
	}
	for _, p := range t.proto.Params {
		var s []slot
		switch KindOf(p) {
		case KindWide:
			s = []slot{{kind: slotWideLo}, {kind: slotWideHi}}
		case KindObject:
			s = []slot{{kind: slotRef, desc: p}}
		default:
			s = []slot{{kind: slotSingle}}
		}
		if !entry.setLocal(n, s) {
			return nil, malformed("max_locals too small for parameters")
		}
		n += len(s)
	}

	work := []int{0}
	a.frames[0] = entry
	enqueue := func(pc int, f *frame) error {
		idx, ok := a.byPC[pc]
		if !ok {
			return zerr.With(malformed("branch into the middle of an instruction"), "pc", pc)
		}
		if a.frames[idx] == nil {
			a.frames[idx] = f.clone()
			work = append(work, idx)
			return nil
		}
		changed, err := a.frames[idx].merge(f)
		if err != nil {
			return zerr.With(err, "pc", pc)
		}
		if changed {
			work = append(work, idx)
		}
		return nil
	}

	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]
		in := t.insns[idx]
		before := a.frames[idx]

		for _, h := range t.code.Handlers {
			if in.PC >= h.StartPC && in.PC < h.EndPC {
				hf := &frame{locals: slices.Clone(before.locals)}
				exc := "Ljava/lang/Throwable;"
				if h.CatchType != "" {
					exc = classfile.TypeDescriptor(h.CatchType)
				}
				hf.stack = []slot{{kind: slotRef, desc: exc}}
				if err := enqueue(h.HandlerPC, hf); err != nil {
					return nil, err
				}
			}
		}

		after := before.clone()
		succ, err := t.step(after, in)
		if err != nil {
			return nil, zerr.With(err, "pc", in.PC)
		}
		for _, pc := range succ {
			if err := enqueue(pc, after); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// step applies the stack effect of in to f and returns the successor offsets.
func (t *translator) step(f *frame, in classfile.Instruction) ([]int, error) {
	underflow := malformed("operand stack underflow")
	next := []int{in.Next}
	op := in.Opcode

	switch {
	case op == classfile.Nop:
	case op == classfile.AconstNull:
		f.stack = append(f.stack, slot{kind: slotRef})
	case op >= classfile.IconstM1 && op <= classfile.Iconst5, op == classfile.Bipush, op == classfile.Sipush,
		op >= classfile.Fconst0 && op <= classfile.Fconst2:
		f.push("I")
	case op == classfile.Lconst0, op == classfile.Lconst1, op == classfile.Dconst0, op == classfile.Dconst1:
		f.push("J")
	case op == classfile.Ldc, op == classfile.LdcW, op == classfile.Ldc2W:
		v, err := t.class.Pool.Loadable(in.Index)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case int64, float64:
			f.push("J")
		case string:
			f.push("Ljava/lang/String;")
		case classfile.Type:
			f.push("Ljava/lang/Class;")
		case classfile.MethodType:
			f.push("Ljava/lang/invoke/MethodType;")
		case classfile.MethodHandle:
			f.push("Ljava/lang/invoke/MethodHandle;")
		case classfile.Dynamic:
			f.push(v.Descriptor)
		default:
			f.push("I")
		}
	case op >= classfile.Iload && op <= classfile.Aload:
		w := 1
		if op == classfile.Lload || op == classfile.Dload {
			w = 2
		}
		if in.Local+w > len(f.locals) {
			return nil, malformed("local variable index out of range")
		}
		switch op {
		case classfile.Aload:
			s := f.locals[in.Local]
			if s.kind != slotRef {
				s = slot{kind: slotRef}
			}
			f.stack = append(f.stack, s)
		case classfile.Lload, classfile.Dload:
			f.push("J")
		default:
			f.push("I")
		}
	case op >= classfile.Istore && op <= classfile.Astore:
		w := 1
		if op == classfile.Lstore || op == classfile.Dstore {
			w = 2
		}
		s, ok := f.pop(w)
		if !ok {
			return nil, underflow
		}
		if !f.setLocal(in.Local, s) {
			return nil, malformed("local variable index out of range")
		}
	case op >= classfile.Iaload && op <= classfile.Saload:
		s, ok := f.pop(2)
		if !ok {
			return nil, underflow
		}
		switch op {
		case classfile.Laload, classfile.Daload:
			f.push("J")
		case classfile.Aaload:
			f.stack = append(f.stack, slot{kind: slotRef, desc: elementDesc(s[0].desc)})
		default:
			f.push("I")
		}
	case op >= classfile.Iastore && op <= classfile.Sastore:
		n := 3
		if op == classfile.Lastore || op == classfile.Dastore {
			n = 4
		}
		if _, ok := f.pop(n); !ok {
			return nil, underflow
		}
	case op == classfile.Pop:
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
	case op == classfile.Pop2:
		if _, ok := f.pop(2); !ok {
			return nil, underflow
		}
	case op >= classfile.Dup && op <= classfile.Swap:
		k, pattern := shuffle(op)
		s, ok := f.pop(k)
		if !ok {
			return nil, underflow
		}
		for _, i := range pattern {
			f.stack = append(f.stack, s[i])
		}
	case op >= classfile.Iadd && op <= classfile.Dneg:
		typ := (op - classfile.Iadd) % 4
		unary := op >= classfile.Ineg
		w := 1
		if typ == 1 || typ == 3 {
			w = 2
		}
		n := 2 * w
		if unary {
			n = w
		}
		if _, ok := f.pop(n); !ok {
			return nil, underflow
		}
		if w == 2 {
			f.push("J")
		} else {
			f.push("I")
		}
	case op >= classfile.Ishl && op <= classfile.Lxor:
		long := (op-classfile.Ishl)%2 == 1
		n := 2
		if long {
			n = 4
			if op <= classfile.Lushr {
				n = 3
			}
		}
		if _, ok := f.pop(n); !ok {
			return nil, underflow
		}
		if long {
			f.push("J")
		} else {
			f.push("I")
		}
	case op == classfile.Iinc:
		if in.Local >= len(f.locals) {
			return nil, malformed("local variable index out of range")
		}
		f.locals[in.Local] = slot{kind: slotSingle}
	case op >= classfile.I2l && op <= classfile.I2s:
		from, to := conversion(op)
		if _, ok := f.pop(from.Width()); !ok {
			return nil, underflow
		}
		if to == KindWide {
			f.push("J")
		} else {
			f.push("I")
		}
	case op >= classfile.Lcmp && op <= classfile.Dcmpg:
		n := 2
		if op == classfile.Lcmp || op >= classfile.Dcmpl {
			n = 4
		}
		if _, ok := f.pop(n); !ok {
			return nil, underflow
		}
		f.push("I")
	case op >= classfile.Ifeq && op <= classfile.Ifle, op == classfile.Ifnull, op == classfile.Ifnonnull:
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
		next = append(next, in.Target)
	case op >= classfile.IfIcmpeq && op <= classfile.IfAcmpne:
		if _, ok := f.pop(2); !ok {
			return nil, underflow
		}
		next = append(next, in.Target)
	case op == classfile.Goto, op == classfile.GotoW:
		next = []int{in.Target}
	case op == classfile.Tableswitch, op == classfile.Lookupswitch:
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
		next = append([]int{in.Switch.Default}, in.Switch.Targets...)
	case op >= classfile.Ireturn && op <= classfile.Return, op == classfile.Athrow:
		next = nil
	case op == classfile.Getstatic, op == classfile.Putstatic, op == classfile.Getfield, op == classfile.Putfield:
		ref, err := t.class.Pool.Member(in.Index)
		if err != nil {
			return nil, err
		}
		w := classfile.Slots(ref.Descriptor)
		switch op {
		case classfile.Getstatic:
			f.push(ref.Descriptor)
		case classfile.Putstatic:
			if _, ok := f.pop(w); !ok {
				return nil, underflow
			}
		case classfile.Getfield:
			if _, ok := f.pop(1); !ok {
				return nil, underflow
			}
			f.push(ref.Descriptor)
		default:
			if _, ok := f.pop(w+1); !ok {
				return nil, underflow
			}
		}
	case op >= classfile.Invokevirtual && op <= classfile.Invokedynamic:
		var desc string
		receiver := 1
		if op == classfile.Invokedynamic {
			site, err := t.class.Pool.InvokeDynamic(in.Index)
			if err != nil {
				return nil, err
			}
			desc, receiver = site.Descriptor, 0
		} else {
			ref, err := t.class.Pool.Member(in.Index)
			if err != nil {
				return nil, err
			}
			desc = ref.Descriptor
			if op == classfile.Invokestatic {
				receiver = 0
			}
		}
		params, ret, err := classfile.ParseMethodDescriptor(desc)
		if err != nil {
			return nil, err
		}
		if _, ok := f.pop(classfile.ArgSlots(params)+receiver); !ok {
			return nil, underflow
		}
		if ret != "V" {
			f.push(ret)
		}
	case op == classfile.New:
		name, err := t.class.Pool.ClassName(in.Index)
		if err != nil {
			return nil, err
		}
		f.stack = append(f.stack, slot{kind: slotRef, desc: classfile.TypeDescriptor(name)})
	case op == classfile.Newarray:
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
		f.stack = append(f.stack, slot{kind: slotRef, desc: newArrayDesc(in.Const)})
	case op == classfile.Anewarray:
		name, err := t.class.Pool.ClassName(in.Index)
		if err != nil {
			return nil, err
		}
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
		f.stack = append(f.stack, slot{kind: slotRef, desc: "[" + classfile.TypeDescriptor(name)})
	case op == classfile.Arraylength, op == classfile.Instanceof:
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
		f.push("I")
	case op == classfile.Checkcast:
		name, err := t.class.Pool.ClassName(in.Index)
		if err != nil {
			return nil, err
		}
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
		f.stack = append(f.stack, slot{kind: slotRef, desc: classfile.TypeDescriptor(name)})
	case op == classfile.Monitorenter, op == classfile.Monitorexit:
		if _, ok := f.pop(1); !ok {
			return nil, underflow
		}
	default:
		return nil, unsupportedOpcode(op)
	}
	if len(f.stack) > int(t.code.MaxStack) {
		return nil, malformed("operand stack overflow")
	}
	return next, nil
}

// shuffle describes the stack manipulation opcodes: how many units they consume
// and which of those units, deepest first, they push back.
func shuffle(op byte) (int, []int) {
	switch op {
	case classfile.Dup:
		return 1, []int{0, 0}
	case classfile.DupX1:
		return 2, []int{1, 0, 1}
	case classfile.DupX2:
		return 3, []int{2, 0, 1, 2}
	case classfile.Dup2:
		return 2, []int{0, 1, 0, 1}
	case classfile.Dup2X1:
		return 3, []int{1, 2, 0, 1, 2}
	case classfile.Dup2X2:
		return 4, []int{2, 3, 0, 1, 2, 3}
	default:
		return 2, []int{1, 0}
	}
}

// conversion returns the source and destination kinds of a primitive conversion opcode.
func conversion(op byte) (Kind, Kind) {
	switch op {
	case classfile.I2l, classfile.I2d, classfile.F2l, classfile.F2d:
		return KindSingle, KindWide
	case classfile.L2i, classfile.L2f, classfile.D2i, classfile.D2f:
		return KindWide, KindSingle
	case classfile.L2d, classfile.D2l:
		return KindWide, KindWide
	default:
		return KindSingle, KindSingle
	}
}
