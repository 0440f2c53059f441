package desugar

import (
	"strconv"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dalvik"
	"go.trai.ch/zerr"
)

const (
	lambdaMetafactory = "java/lang/invoke/LambdaMetafactory"

	flagSerializable = 1
	flagMarkers      = 2
	flagBridges      = 4
)

// lambdaSite is a decoded LambdaMetafactory call site.
type lambdaSite struct {
	name     string
	iface    string
	captures []string
	sam      dalvik.Proto
	inst     dalvik.Proto
	impl     classfile.MethodHandle
	markers  []string
	bridges  []dalvik.Proto
}

func parseLambda(site *dalvik.CallSite) (*lambdaSite, bool, error) {
	bsm := site.Bootstrap.Ref
	if bsm.Class != lambdaMetafactory || (bsm.Name != "metafactory" && bsm.Name != "altMetafactory") {
		return nil, false, nil
	}
	args := site.Arguments
	if len(args) < 3 {
		return nil, false, unsupported("lambda bootstrap with missing arguments")
	}
	samType, ok1 := args[0].(classfile.MethodType)
	impl, ok2 := args[1].(classfile.MethodHandle)
	instType, ok3 := args[2].(classfile.MethodType)
	if !ok1 || !ok2 || !ok3 {
		return nil, false, unsupported("lambda bootstrap with unexpected argument types")
	}
	sam, err := dalvik.ParseProto(string(samType))
	if err != nil {
		return nil, false, err
	}
	inst, err := dalvik.ParseProto(string(instType))
	if err != nil {
		return nil, false, err
	}
	l := &lambdaSite{
		name:     site.Name,
		iface:    site.Proto.Return,
		captures: site.Proto.Params,
		sam:      sam,
		inst:     inst,
		impl:     impl,
	}
	if bsm.Name == "altMetafactory" {
		if err := l.parseAlt(args[3:]); err != nil {
			return nil, false, err
		}
	}
	return l, true, nil
}

func (l *lambdaSite) parseAlt(args []classfile.Value) error {
	next := func() (classfile.Value, error) {
		if len(args) == 0 {
			return nil, unsupported("truncated altMetafactory arguments")
		}
		v := args[0]
		args = args[1:]
		return v, nil
	}
	count := func() (int, error) {
		v, err := next()
		if err != nil {
			return 0, err
		}
		n, ok := v.(int32)
		if !ok || n < 0 {
			return 0, unsupported("invalid altMetafactory count")
		}
		return int(n), nil
	}
	flags, err := count()
	if err != nil {
		return err
	}
	if flags&flagMarkers != 0 {
		n, err := count()
		if err != nil {
			return err
		}
		for range n {
			v, err := next()
			if err != nil {
				return err
			}
			t, ok := v.(classfile.Type)
			if !ok {
				return unsupported("invalid lambda marker interface")
			}
			l.markers = append(l.markers, classfile.TypeDescriptor(string(t)))
		}
	}
	if flags&flagBridges != 0 {
		n, err := count()
		if err != nil {
			return err
		}
		for range n {
			v, err := next()
			if err != nil {
				return err
			}
			mt, ok := v.(classfile.MethodType)
			if !ok {
				return unsupported("invalid lambda bridge type")
			}
			p, err := dalvik.ParseProto(string(mt))
			if err != nil {
				return err
			}
			l.bridges = append(l.bridges, p)
		}
	}
	if flags&flagSerializable != 0 {
		l.markers = append(l.markers, "Ljava/io/Serializable;")
	}
	return nil
}

func (r *run) lambdas() error {
	return r.bodies(func(c *dalvik.Class, m *dalvik.Method) error {
		return rewrite(m.Code, func(e *dalvik.Emitter, in dalvik.Insn) (bool, error) {
			if in.Op != dalvik.OpInvokeCustom {
				return false, nil
			}
			l, ok, err := parseLambda(in.Site)
			if err != nil || !ok {
				return false, err
			}
			create, err := r.lambdaClass(c, l)
			if err != nil {
				return false, err
			}
			e.Invoke(dalvik.OpInvokeStaticRange, in.A, in.B, create)
			r.count(KindLambda)
			return true, nil
		})
	})
}

// lambdaClass creates the class implementing one call site and returns its factory method.
func (r *run) lambdaClass(outer *dalvik.Class, l *lambdaSite) (dalvik.MethodRef, error) {
	implRef, err := dalvik.ParseProto(l.impl.Ref.Descriptor)
	if err != nil {
		return dalvik.MethodRef{}, err
	}
	target := dalvik.MethodRef{
		Class: classfile.TypeDescriptor(l.impl.Ref.Class),
		Name:  l.impl.Ref.Name,
		Proto: implRef,
	}
	op, err := r.exposeImpl(outer, l.impl, target)
	if err != nil {
		return dalvik.MethodRef{}, err
	}

	typ := r.syntheticType(outer.Type, "Lambda")
	c := &dalvik.Class{
		Type:       typ,
		Super:      objectType,
		Interfaces: append([]string{l.iface}, l.markers...),
		Access:     accFinal | accSynthetic,
	}
	fields := make([]dalvik.FieldRef, len(l.captures))
	for i, t := range l.captures {
		fields[i] = dalvik.FieldRef{Class: typ, Name: "f$" + strconv.Itoa(i), Type: t}
		c.Fields = append(c.Fields, &dalvik.Field{Ref: fields[i], Access: accPublic | accFinal | accSynthetic})
	}

	captureUnits := classfile.ArgSlots(l.captures)
	initProto := dalvik.Proto{Return: "V", Params: l.captures}

	initBody := newSynthBody(0, 1+captureUnits)
	this := initBody.arg(0)
	initBody.Invoke(dalvik.OpInvokeDirectRange, this, 1, objectInit)
	for i, reg := range initBody.args(append([]string{typ}, l.captures...))[1:] {
		initBody.Iput(reg, this, fields[i])
	}
	initBody.ReturnVoid()
	c.Methods = append(c.Methods, initBody.method(typ, "<init>", initProto, accPublic|accSynthetic|dalvik.AccConstructor))

	createProto := dalvik.Proto{Return: l.iface, Params: l.captures}
	create := newSynthBody(1, captureUnits)
	obj := create.local(0)
	create.NewInstance(obj, typ)
	create.Invoke(dalvik.OpInvokeDirectRange, obj, 1+captureUnits, dalvik.MethodRef{Class: typ, Name: "<init>", Proto: initProto})
	create.Return(dalvik.KindObject, obj)
	c.Methods = append(c.Methods, create.method(typ, "create", createProto, accPublic|accStatic|accSynthetic))

	protos := append([]dalvik.Proto{l.sam}, l.bridges...)
	seen := make(map[string]bool, len(protos))
	for _, p := range protos {
		if seen[p.Descriptor()] {
			continue
		}
		seen[p.Descriptor()] = true
		m, err := lambdaMethod(typ, l, fields, p, target, op)
		if err != nil {
			return dalvik.MethodRef{}, err
		}
		c.Methods = append(c.Methods, m)
	}

	r.addClass(c, outer.Type)
	return dalvik.MethodRef{Class: typ, Name: "create", Proto: createProto}, nil
}

// lambdaMethod implements the functional method with prototype p by calling target.
func lambdaMethod(typ string, l *lambdaSite, fields []dalvik.FieldRef, p dalvik.Proto, target dalvik.MethodRef, op dalvik.Opcode) (*dalvik.Method, error) {
	ctor := l.impl.Kind == classfile.RefNewInvokeSpecial
	want := target.Proto.Params
	if !ctor && l.impl.Kind != classfile.RefInvokeStatic {
		want = append([]string{target.Class}, want...)
	}
	if len(l.captures)+len(p.Params) != len(want) {
		return nil, zerr.With(unsupported("lambda arity does not match its implementation"), "method", target.Key())
	}

	pre := 0
	if ctor {
		pre = 1
	}
	argUnits := classfile.ArgSlots(want)
	s := newSynthBody(pre+argUnits+2, 1+p.ArgUnits())
	this := s.arg(0)
	params := s.args(append([]string{typ}, p.Params...))[1:]

	base := s.local(0)
	pos := base
	if ctor {
		s.NewInstance(base, target.Class)
		pos++
	}
	for i, w := range want {
		if i < len(l.captures) {
			f := fields[i]
			s.Iget(pos, this, f)
			s.adapt(pos, w, pos, f.Type, f.Type)
		} else {
			j := i - len(l.captures)
			via := p.Params[j]
			if j < len(l.inst.Params) {
				via = l.inst.Params[j]
			}
			s.adapt(pos, w, params[j], p.Params[j], via)
		}
		pos += classfile.Slots(w)
	}
	s.Invoke(op, base, pos-base, target)

	res := pos
	switch {
	case ctor:
		s.adapt(res, objectOr(p.Return), base, target.Class, target.Class)
		s.ret(p.Return, res)
	case target.Proto.Return == "V":
		switch dalvik.KindOf(p.Return) {
		case dalvik.KindWide:
			s.ConstWide(res, 0)
		default:
			if p.Return != "V" {
				s.Const(res, 0)
			}
		}
		s.ret(p.Return, res)
	default:
		s.MoveResult(dalvik.KindOf(target.Proto.Return), res)
		if p.Return != "V" {
			s.adapt(res, p.Return, res, target.Proto.Return, l.inst.Return)
		}
		s.ret(p.Return, res)
	}
	return s.method(typ, l.name, p, accPublic|accFinal|accSynthetic), nil
}

func objectOr(desc string) string {
	if desc == "V" {
		return objectType
	}
	return desc
}

// exposeImpl makes a private implementation method reachable from the synthetic class in
// the same package and returns the invoke opcode that calls it.
func (r *run) exposeImpl(outer *dalvik.Class, h classfile.MethodHandle, target dalvik.MethodRef) (dalvik.Opcode, error) {
	owner := r.program[target.Class]
	var m *dalvik.Method
	if owner != nil {
		m = owner.FindMethod(target.Name, target.Proto)
	}
	if m != nil && m.Access&accPrivate != 0 {
		m.Access &^= accPrivate
		if owner.IsInterface() {
			m.Access |= accPublic
		}
		if !m.IsDirect() {
			r.redirectDirectCalls(owner, target)
		}
	}

	switch h.Kind {
	case classfile.RefInvokeStatic:
		return dalvik.OpInvokeStaticRange, nil
	case classfile.RefInvokeVirtual:
		return dalvik.OpInvokeVirtualRange, nil
	case classfile.RefInvokeInterface:
		return dalvik.OpInvokeInterfaceRange, nil
	case classfile.RefNewInvokeSpecial:
		return dalvik.OpInvokeDirectRange, nil
	case classfile.RefInvokeSpecial:
		if owner == nil || owner.Type != outer.Type {
			return 0, zerr.With(unsupported("lambda calling a super method"), "method", target.Key())
		}
		if owner.IsInterface() {
			return dalvik.OpInvokeInterfaceRange, nil
		}
		return dalvik.OpInvokeVirtualRange, nil
	}
	return 0, zerr.With(unsupported("lambda implementation handle kind"), "kind", h.Kind)
}

// redirectDirectCalls switches invoke-direct calls to a formerly private method of owner
// to virtual dispatch.
func (r *run) redirectDirectCalls(owner *dalvik.Class, target dalvik.MethodRef) {
	op := dalvik.OpInvokeVirtualRange
	if owner.IsInterface() {
		op = dalvik.OpInvokeInterfaceRange
	}
	key := target.Key()
	for _, m := range owner.Methods {
		if m.Code == nil {
			continue
		}
		for i := range m.Code.Insns {
			in := &m.Code.Insns[i]
			if ref, ok := in.Ref.(dalvik.MethodRef); ok && in.Op == dalvik.OpInvokeDirectRange && ref.Key() == key {
				in.Op = op
			}
		}
	}
}
