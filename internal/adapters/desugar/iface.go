package desugar

import (
	"maps"
	"slices"
	"strings"

	"go.trai.ch/dexer/internal/adapters/dalvik"
)

const (
	defaultPrefix = "$default$"
	privatePrefix = "$private$"
)

// companionType returns the descriptor of the class holding the code of interface iface.
func companionType(iface string) string {
	return strings.TrimSuffix(iface, ";") + "$-CC;"
}

// defaultImpl is an interface default method and its companion implementation.
type defaultImpl struct {
	iface string
	impl  dalvik.MethodRef
}

// companions tracks the methods moved out of program interfaces.
type companions struct {
	moved    map[string]dalvik.MethodRef
	defaults map[string]map[string]dalvik.MethodRef
}

func (r *run) interfaces() error {
	cc := &companions{
		moved:    make(map[string]dalvik.MethodRef),
		defaults: make(map[string]map[string]dalvik.MethodRef),
	}
	for _, c := range slices.Clone(r.classes) {
		if c.IsInterface() {
			r.companion(c, cc)
		}
	}
	if err := r.bodies(func(_ *dalvik.Class, m *dalvik.Method) error {
		return rewrite(m.Code, func(e *dalvik.Emitter, in dalvik.Insn) (bool, error) {
			return r.redirect(e, in, cc), nil
		})
	}); err != nil {
		return err
	}
	r.forwarders(cc)
	return nil
}

// companion moves static, private and default method code of iface into its companion class.
func (r *run) companion(iface *dalvik.Class, cc *companions) {
	typ := companionType(iface.Type)
	c := &dalvik.Class{Type: typ, Super: objectType, Access: accPublic | accFinal | accSynthetic}
	defaults := make(map[string]dalvik.MethodRef)
	kept := iface.Methods[:0]
	for _, m := range iface.Methods {
		key := m.Ref.Key()
		switch {
		case m.Ref.Name == "<clinit>" || m.Code == nil:
			kept = append(kept, m)
		case m.IsStatic():
			m.Ref.Class = typ
			m.Access = m.Access&^accPrivate | accPublic
			cc.moved[key] = m.Ref
			c.Methods = append(c.Methods, m)
			r.count(KindInterfaceStatic)
		case m.Access&accPrivate != 0:
			moved := staticCopy(m, typ, privatePrefix, iface.Type)
			cc.moved[key] = moved.Ref
			c.Methods = append(c.Methods, moved)
			r.count(KindInterfacePrivate)
		default:
			moved := staticCopy(m, typ, defaultPrefix, iface.Type)
			defaults[m.Ref.Name+m.Ref.Proto.Descriptor()] = moved.Ref
			cc.moved[key] = moved.Ref
			c.Methods = append(c.Methods, moved)
			m.Code = nil
			m.Access |= accAbstract
			kept = append(kept, m)
			r.count(KindInterfaceDefault)
		}
	}
	iface.Methods = kept
	cc.defaults[iface.Type] = defaults
	if len(c.Methods) > 0 {
		r.addClass(c, iface.Type)
	}
}

// staticCopy turns an instance method into a static companion method taking the receiver first.
func staticCopy(m *dalvik.Method, owner, prefix, receiver string) *dalvik.Method {
	body := m.Code
	if len(body.Params) > 0 {
		body.Params = append([]string{""}, body.Params...)
	}
	return &dalvik.Method{
		Ref: dalvik.MethodRef{
			Class: owner,
			Name:  prefix + m.Ref.Name,
			Proto: m.Ref.Proto.Prepend(receiver),
		},
		Access:      m.Access&^(accPrivate|accFinal) | accPublic | accStatic | accSynthetic,
		Code:        body,
		Annotations: m.Annotations,
	}
}

// redirect rewrites one call into moved interface code. It reports whether in was replaced.
func (r *run) redirect(e *dalvik.Emitter, in dalvik.Insn, cc *companions) bool {
	if !in.Op.IsInvoke() {
		return false
	}
	ref, ok := in.Ref.(dalvik.MethodRef)
	if !ok {
		return false
	}
	if in.Op == dalvik.OpInvokeSuperRange {
		if impl, ok := r.findDefault(ref.Class, ref.Name+ref.Proto.Descriptor(), cc); ok {
			e.Invoke(dalvik.OpInvokeStaticRange, in.A, in.B, impl.impl)
			return true
		}
	}
	moved, ok := cc.moved[ref.Key()]
	if !ok {
		if in.Op == dalvik.OpInvokeStaticRange || in.Op == dalvik.OpInvokeSuperRange {
			r.warnLibraryInterface(ref)
		}
		return false
	}
	if in.Op == dalvik.OpInvokeInterfaceRange && strings.HasPrefix(moved.Name, defaultPrefix) {
		return false
	}
	e.Invoke(dalvik.OpInvokeStaticRange, in.A, in.B, moved)
	return true
}

func (r *run) warnLibraryInterface(ref dalvik.MethodRef) {
	if _, ok := r.program[ref.Class]; ok {
		return
	}
	h, ok, err := r.lookup(ref.Class)
	if err != nil || !ok || !h.IsInterface() {
		return
	}
	r.warn("interface method " + ref.Key() + " is called directly but library interfaces only support it from API 24")
}

// findDefault resolves the default method sig visible through interface iface.
// Declarations in sub-interfaces win over those of their super-interfaces.
func (r *run) findDefault(iface, sig string, cc *companions) (defaultImpl, bool) {
	if impl, ok := cc.defaults[iface][sig]; ok {
		return defaultImpl{iface: iface, impl: impl}, true
	}
	c, ok := r.program[iface]
	if !ok || !c.IsInterface() {
		return defaultImpl{}, false
	}
	for _, m := range c.Methods {
		if m.Ref.Name+m.Ref.Proto.Descriptor() == sig {
			return defaultImpl{}, false
		}
	}
	for _, super := range c.Interfaces {
		if d, ok := r.findDefault(super, sig, cc); ok {
			return d, true
		}
	}
	return defaultImpl{}, false
}

// visibleDefaults collects the defaults inherited through the direct interfaces of c,
// keyed by name and descriptor.
func (r *run) visibleDefaults(c *dalvik.Class, cc *companions) map[string]defaultImpl {
	found := make(map[string]defaultImpl)
	seen := make(map[string]bool)
	var visit func(iface string)
	visit = func(iface string) {
		if seen[iface] {
			return
		}
		seen[iface] = true
		ic, ok := r.program[iface]
		if !ok {
			return
		}
		for _, super := range ic.Interfaces {
			visit(super)
		}
		for _, m := range ic.Methods {
			if m.IsStatic() || m.Ref.Name == "<clinit>" {
				continue
			}
			sig := m.Ref.Name + m.Ref.Proto.Descriptor()
			prev, exists := found[sig]
			if exists && !r.extends(iface, prev.iface) {
				continue
			}
			if impl, ok := cc.defaults[iface][sig]; ok {
				found[sig] = defaultImpl{iface: iface, impl: impl}
			} else if exists {
				delete(found, sig)
			}
		}
	}
	for _, iface := range c.Interfaces {
		visit(iface)
	}
	return found
}

// extends reports whether interface sub inherits from interface super.
func (r *run) extends(sub, super string) bool {
	c, ok := r.program[sub]
	if !ok {
		return false
	}
	for _, i := range c.Interfaces {
		if i == super || r.extends(i, super) {
			return true
		}
	}
	return false
}

// forwarders adds, to every program class, the methods that delegate inherited defaults to
// their companion implementation. Superclasses are handled first so that subclasses reuse
// their forwarders.
func (r *run) forwarders(cc *companions) {
	done := make(map[string]bool)
	var visit func(c *dalvik.Class)
	visit = func(c *dalvik.Class) {
		if done[c.Type] {
			return
		}
		done[c.Type] = true
		if super, ok := r.program[c.Super]; ok {
			visit(super)
		}
		if c.IsInterface() {
			return
		}
		defaults := r.visibleDefaults(c, cc)
		for _, sig := range slices.Sorted(maps.Keys(defaults)) {
			d := defaults[sig]
			name, proto := d.impl.Name[len(defaultPrefix):], dropReceiver(d.impl.Proto)
			if r.implemented(c, name, proto) {
				continue
			}
			c.Methods = append(c.Methods, forwarder(c.Type, name, proto, d.impl))
			r.count(KindInterfaceDefault)
		}
	}
	for _, c := range slices.Clone(r.classes) {
		visit(c)
	}
}

// implemented reports whether c or a superclass declares the method, walking library
// superclasses through the classpath.
func (r *run) implemented(c *dalvik.Class, name string, proto dalvik.Proto) bool {
	for cur := c; cur != nil; {
		if m := cur.FindMethod(name, proto); m != nil {
			return true
		}
		next, ok := r.program[cur.Super]
		if !ok {
			if cur.Super != "" && cur.Super != objectType {
				if _, found, err := r.lookup(cur.Super); err == nil && !found {
					r.warn("type " + cur.Super + " was not found; it is required for default interface method desugaring")
				}
			}
			return false
		}
		cur = next
	}
	return false
}

func dropReceiver(p dalvik.Proto) dalvik.Proto {
	return dalvik.Proto{Return: p.Return, Params: p.Params[1:]}
}

// forwarder builds a public method of owner that calls the companion implementation.
func forwarder(owner, name string, proto dalvik.Proto, impl dalvik.MethodRef) *dalvik.Method {
	s := newSynthBody(2, 1+proto.ArgUnits())
	s.Invoke(dalvik.OpInvokeStaticRange, s.arg(0), 1+proto.ArgUnits(), impl)
	if proto.Return != "V" {
		s.MoveResult(dalvik.KindOf(proto.Return), s.local(0))
	}
	s.ret(proto.Return, s.local(0))
	return s.method(owner, name, proto, accPublic|accSynthetic)
}
