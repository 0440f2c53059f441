package dalvik

import (
	"go.trai.ch/zerr"
)

// Indexer resolves symbolic references to DEX id indices.
type Indexer interface {
	StringIndex(s string) uint32
	TypeIndex(desc string) uint32
	FieldIndex(f FieldRef) uint32
	MethodIndex(m MethodRef) uint32
}

// Code is an assembled method body.
type Code struct {
	Registers int
	Ins       int
	Outs      int
	Insns     []uint16
	Tries     []TryBlock
	// Addr holds the code unit address of every label.
	Addr map[Label]int
}

// TryBlock is an assembled try range. CatchAll is -1 when absent.
type TryBlock struct {
	Start    int
	Count    int
	Catches  []CatchAddr
	CatchAll int
}

// CatchAddr pairs a type index with a handler address.
type CatchAddr struct {
	Type uint32
	Addr int
}

type placed struct {
	insn *Insn
	op   Opcode
	addr int
	f    format
	// payload is the address of the switch payload.
	payload int
}

// Assemble lays out and encodes a body.
func Assemble(b *Body, ix Indexer) (*Code, error) {
	code := &Code{Registers: b.Registers, Ins: b.Ins, Addr: make(map[Label]int)}
	items := make([]placed, 0, len(b.Insns))
	addr := 0
	for i := range b.Insns {
		in := &b.Insns[i]
		switch in.Op {
		case OpLabel:
			code.Addr[in.Target] = addr
			continue
		case OpInvokeCustom:
			return nil, zerr.With(unsupported("invokedynamic call site could not be desugared"), "bootstrap", in.Site.Bootstrap.Ref.Name)
		}
		op := in.Op
		f, ok := formats[op]
		if !ok {
			return nil, zerr.With(unsupported("opcode has no encoding"), "opcode", int(op))
		}
		if op == OpConstString && ix.StringIndex(string(in.Ref.(StringRef))) > 0xffff {
			op, f = OpConstStringJumbo, fmt31c
		}
		if op.IsInvoke() && in.B > code.Outs {
			code.Outs = in.B
		}
		items = append(items, placed{insn: in, op: op, addr: addr, f: f})
		addr += f.units()
	}
	for i := range items {
		p := &items[i]
		if p.insn.Switch == nil {
			continue
		}
		if addr%2 != 0 {
			addr++
		}
		p.payload = addr
		n := len(p.insn.Switch.Keys)
		if p.op == OpPackedSwitch {
			addr += 4 + 2*n
		} else {
			addr += 2 + 4*n
		}
	}

	out := make([]uint16, addr)
	for _, p := range items {
		if err := encode(out, p, code.Addr, ix); err != nil {
			return nil, zerr.With(err, "address", p.addr)
		}
		if p.insn.Switch != nil {
			if err := encodePayload(out, p, code.Addr); err != nil {
				return nil, err
			}
		}
	}
	code.Insns = out

	for _, t := range b.Tries {
		start, end := code.Addr[t.Start], code.Addr[t.End]
		if end <= start {
			continue
		}
		tb := TryBlock{Start: start, Count: end - start, CatchAll: -1}
		for _, c := range t.Catches {
			tb.Catches = append(tb.Catches, CatchAddr{Type: ix.TypeIndex(c.Type), Addr: code.Addr[c.Handler]})
		}
		if t.CatchAll != 0 {
			tb.CatchAll = code.Addr[t.CatchAll]
		}
		code.Tries = append(code.Tries, tb)
	}
	return code, nil
}

func refIndex(in *Insn, ix Indexer) uint32 {
	switch r := in.Ref.(type) {
	case StringRef:
		return ix.StringIndex(string(r))
	case TypeRef:
		return ix.TypeIndex(string(r))
	case FieldRef:
		return ix.FieldIndex(r)
	case MethodRef:
		return ix.MethodIndex(r)
	}
	return 0
}

func checkReg(r, bits int) error {
	if r < 0 || r >= 1<<bits {
		return zerr.With(zerr.With(unsupported("register out of range for instruction format"), "register", r), "bits", bits)
	}
	return nil
}

func branch(addrs map[Label]int, l Label, from int) (int, error) {
	to, ok := addrs[l]
	if !ok {
		return 0, malformed("branch to unbound label")
	}
	return to - from, nil
}

func encode(out []uint16, p placed, addrs map[Label]int, ix Indexer) error {
	in := p.insn
	op := uint16(p.op)
	u := out[p.addr:]
	switch p.f {
	case fmt10x:
		u[0] = op
	case fmt11x:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		u[0] = op | uint16(in.A)<<8
	case fmt12x:
		if err := firstErr(checkReg(in.A, 4), checkReg(in.B, 4)); err != nil {
			return err
		}
		u[0] = op | uint16(in.A)<<8 | uint16(in.B)<<12
	case fmt21c:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		idx := refIndex(in, ix)
		if idx > 0xffff {
			return unsupported("index too large for instruction format")
		}
		u[0], u[1] = op|uint16(in.A)<<8, uint16(idx)
	case fmt21h:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		shift := 16
		if p.op == OpConstWideHigh16 {
			shift = 48
		}
		u[0], u[1] = op|uint16(in.A)<<8, uint16(uint64(in.Lit)>>shift)
	case fmt21s:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		u[0], u[1] = op|uint16(in.A)<<8, uint16(int16(in.Lit))
	case fmt21t:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		off, err := branch(addrs, in.Target, p.addr)
		if err != nil {
			return err
		}
		if off != int(int16(off)) {
			return unsupported("branch offset exceeds 16 bits")
		}
		u[0], u[1] = op|uint16(in.A)<<8, uint16(int16(off))
	case fmt22b:
		if err := firstErr(checkReg(in.A, 8), checkReg(in.B, 8)); err != nil {
			return err
		}
		u[0], u[1] = op|uint16(in.A)<<8, uint16(in.B)|uint16(uint8(int8(in.Lit)))<<8
	case fmt22c:
		if err := firstErr(checkReg(in.A, 4), checkReg(in.B, 4)); err != nil {
			return err
		}
		idx := refIndex(in, ix)
		if idx > 0xffff {
			return unsupported("index too large for instruction format")
		}
		u[0], u[1] = op|uint16(in.A)<<8|uint16(in.B)<<12, uint16(idx)
	case fmt22s:
		if err := firstErr(checkReg(in.A, 4), checkReg(in.B, 4)); err != nil {
			return err
		}
		u[0], u[1] = op|uint16(in.A)<<8|uint16(in.B)<<12, uint16(int16(in.Lit))
	case fmt22t:
		if err := firstErr(checkReg(in.A, 4), checkReg(in.B, 4)); err != nil {
			return err
		}
		off, err := branch(addrs, in.Target, p.addr)
		if err != nil {
			return err
		}
		if off != int(int16(off)) {
			return unsupported("branch offset exceeds 16 bits")
		}
		u[0], u[1] = op|uint16(in.A)<<8|uint16(in.B)<<12, uint16(int16(off))
	case fmt23x:
		if err := firstErr(checkReg(in.A, 8), checkReg(in.B, 8), checkReg(in.C, 8)); err != nil {
			return err
		}
		u[0], u[1] = op|uint16(in.A)<<8, uint16(in.B)|uint16(in.C)<<8
	case fmt30t:
		off, err := branch(addrs, in.Target, p.addr)
		if err != nil {
			return err
		}
		u[0], u[1], u[2] = op, uint16(uint32(off)), uint16(uint32(off)>>16)
	case fmt31c:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		idx := refIndex(in, ix)
		u[0], u[1], u[2] = op|uint16(in.A)<<8, uint16(idx), uint16(idx>>16)
	case fmt31i:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		v := uint32(int32(in.Lit))
		u[0], u[1], u[2] = op|uint16(in.A)<<8, uint16(v), uint16(v>>16)
	case fmt31t:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		off := uint32(p.payload - p.addr)
		u[0], u[1], u[2] = op|uint16(in.A)<<8, uint16(off), uint16(off>>16)
	case fmt32x:
		if err := firstErr(checkReg(in.A, 16), checkReg(in.B, 16)); err != nil {
			return err
		}
		u[0], u[1], u[2] = op, uint16(in.A), uint16(in.B)
	case fmt3rc:
		if err := firstErr(checkReg(in.A, 16), checkReg(in.B, 8)); err != nil {
			return err
		}
		u[0], u[1], u[2] = op|uint16(in.B)<<8, uint16(refIndex(in, ix)), uint16(in.A)
	case fmt51l:
		if err := checkReg(in.A, 8); err != nil {
			return err
		}
		v := uint64(in.Lit)
		u[0] = op | uint16(in.A)<<8
		for i := range 4 {
			u[1+i] = uint16(v >> (16 * i))
		}
	}
	return nil
}

func encodePayload(out []uint16, p placed, addrs map[Label]int) error {
	sw := p.insn.Switch
	u := out[p.payload:]
	n := len(sw.Keys)
	put32 := func(at int, v uint32) {
		u[at], u[at+1] = uint16(v), uint16(v>>16)
	}
	var targets int
	if p.op == OpPackedSwitch {
		u[0], u[1] = 0x0100, uint16(n)
		put32(2, uint32(sw.Keys[0]))
		targets = 4
	} else {
		u[0], u[1] = 0x0200, uint16(n)
		for i, k := range sw.Keys {
			put32(2+2*i, uint32(k))
		}
		targets = 2 + 2*n
	}
	for i, l := range sw.Targets {
		off, err := branch(addrs, l, p.addr)
		if err != nil {
			return err
		}
		put32(targets+2*i, uint32(int32(off)))
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
