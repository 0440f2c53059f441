package desugar

import (
	"go.trai.ch/dexer/internal/adapters/dalvik"
)

const throwableType = "Ljava/lang/Throwable;"

// backport replaces a library method introduced at api with a synthetic static helper.
type backport struct {
	api  int
	kind Kind
	// gen writes the helper body; regs holds the first register of every parameter.
	gen func(s *synthBody, regs []int)
}

func methodKey(class, name, ret string, params ...string) string {
	return dalvik.MethodRef{Class: class, Name: name, Proto: dalvik.Proto{Return: ret, Params: params}}.Key()
}

var backports = map[string]backport{
	methodKey("Ljava/lang/Integer;", "compare", "I", "I", "I"):   {19, KindBackport, compareInts},
	methodKey("Ljava/lang/Long;", "compare", "I", "J", "J"):      {19, KindBackport, compareLongs},
	methodKey("Ljava/lang/Boolean;", "compare", "I", "Z", "Z"):   {19, KindBackport, subtract},
	methodKey("Ljava/lang/Character;", "compare", "I", "C", "C"): {19, KindBackport, subtract},
	methodKey("Ljava/lang/Short;", "compare", "I", "S", "S"):     {19, KindBackport, subtract},
	methodKey("Ljava/lang/Byte;", "compare", "I", "B", "B"):      {19, KindBackport, subtract},

	methodKey("Ljava/util/Objects;", "requireNonNull", objectType, objectType): {19, KindBackport, requireNonNull},
	methodKey("Ljava/util/Objects;", "equals", "Z", objectType, objectType):    {19, KindBackport, objectsEquals},
	methodKey("Ljava/util/Objects;", "hashCode", "I", objectType):              {19, KindBackport, objectsHashCode},
	methodKey("Ljava/util/Objects;", "isNull", "Z", objectType):                {24, KindBackport, isNull(dalvik.OpIfEqz)},
	methodKey("Ljava/util/Objects;", "nonNull", "Z", objectType):               {24, KindBackport, isNull(dalvik.OpIfNez)},

	methodKey("Ljava/lang/Long;", "hashCode", "I", "J"):      {24, KindBackport, longHashCode},
	methodKey("Ljava/lang/Integer;", "hashCode", "I", "I"):   {24, KindBackport, identity},
	methodKey("Ljava/lang/Short;", "hashCode", "I", "S"):     {24, KindBackport, identity},
	methodKey("Ljava/lang/Character;", "hashCode", "I", "C"): {24, KindBackport, identity},
	methodKey("Ljava/lang/Byte;", "hashCode", "I", "B"):      {24, KindBackport, identity},
	methodKey("Ljava/lang/Boolean;", "hashCode", "I", "Z"):   {24, KindBackport, booleanHashCode},
	methodKey("Ljava/lang/Integer;", "sum", "I", "I", "I"):   {24, KindBackport, binop(dalvik.OpAddInt)},
	methodKey("Ljava/lang/Integer;", "max", "I", "I", "I"):   {24, KindBackport, pick(dalvik.OpIfGe)},
	methodKey("Ljava/lang/Integer;", "min", "I", "I", "I"):   {24, KindBackport, pick(dalvik.OpIfLe)},

	methodKey(throwableType, "addSuppressed", "V", throwableType): {19, KindTwrSuppressed, addSuppressed},
	methodKey(throwableType, "getSuppressed", "["+throwableType):  {19, KindTwrSuppressed, getSuppressed},
}

func (r *run) backports() error {
	helpers := make(map[string]dalvik.MethodRef)
	return r.bodies(func(c *dalvik.Class, m *dalvik.Method) error {
		return rewrite(m.Code, func(e *dalvik.Emitter, in dalvik.Insn) (bool, error) {
			if in.Op != dalvik.OpInvokeStaticRange && in.Op != dalvik.OpInvokeVirtualRange {
				return false, nil
			}
			target, ok := in.Ref.(dalvik.MethodRef)
			if !ok {
				return false, nil
			}
			bp, ok := backports[target.Key()]
			if !ok || !r.d.plan.below(bp.api) || !r.d.plan.Applies(bp.kind) {
				return false, nil
			}
			if (in.Op == dalvik.OpInvokeVirtualRange) != (bp.kind == KindTwrSuppressed) {
				return false, nil
			}
			key := c.Type + target.Key()
			helper, ok := helpers[key]
			if !ok {
				helper = r.backportClass(c, target, bp)
				helpers[key] = helper
			}
			e.Invoke(dalvik.OpInvokeStaticRange, in.A, in.B, helper)
			r.count(bp.kind)
			return true, nil
		})
	})
}

// backportClass creates the helper class for one library method used by outer.
func (r *run) backportClass(outer *dalvik.Class, target dalvik.MethodRef, bp backport) dalvik.MethodRef {
	proto := target.Proto
	if bp.kind == KindTwrSuppressed {
		proto = proto.Prepend(target.Class)
	}
	typ := r.syntheticType(outer.Type, "Backport")
	s := newSynthBody(0, proto.ArgUnits())
	bp.gen(s, s.args(proto.Params))
	c := &dalvik.Class{
		Type:    typ,
		Super:   objectType,
		Access:  accFinal | accSynthetic,
		Methods: []*dalvik.Method{s.method(typ, "m", proto, accPublic|accStatic|accSynthetic)},
	}
	r.addClass(c, outer.Type)
	return c.Methods[0].Ref
}

func compareInts(s *synthBody, regs []int) {
	lt, eq := s.Body().NewLabel(), s.Body().NewLabel()
	s.IfCmp(dalvik.OpIfLt, dalvik.KindSingle, regs[0], regs[1], lt)
	s.IfCmp(dalvik.OpIfEq, dalvik.KindSingle, regs[0], regs[1], eq)
	s.Const(0, 1)
	s.Return(dalvik.KindSingle, 0)
	s.Mark(lt)
	s.Const(0, -1)
	s.Return(dalvik.KindSingle, 0)
	s.Mark(eq)
	s.Const(0, 0)
	s.Return(dalvik.KindSingle, 0)
}

func compareLongs(s *synthBody, regs []int) {
	s.Binop(dalvik.OpCmpLong, 0, regs[0], regs[1])
	s.Return(dalvik.KindSingle, 0)
}

// subtract compares values whose difference cannot overflow an int.
func subtract(s *synthBody, regs []int) {
	s.Binop(dalvik.OpSubInt, 0, regs[0], regs[1])
	s.Return(dalvik.KindSingle, 0)
}

func binop(op dalvik.Opcode) func(*synthBody, []int) {
	return func(s *synthBody, regs []int) {
		s.Binop(op, 0, regs[0], regs[1])
		s.Return(dalvik.KindSingle, 0)
	}
}

// pick returns the first argument when the comparison holds, else the second.
func pick(op dalvik.Opcode) func(*synthBody, []int) {
	return func(s *synthBody, regs []int) {
		first := s.Body().NewLabel()
		s.IfCmp(op, dalvik.KindSingle, regs[0], regs[1], first)
		s.Return(dalvik.KindSingle, regs[1])
		s.Mark(first)
		s.Return(dalvik.KindSingle, regs[0])
	}
}

func identity(s *synthBody, regs []int) {
	s.Return(dalvik.KindSingle, regs[0])
}

func requireNonNull(s *synthBody, regs []int) {
	s.Invoke(dalvik.OpInvokeVirtualRange, regs[0], 1, dalvik.MethodRef{
		Class: objectType, Name: "getClass", Proto: dalvik.Proto{Return: "Ljava/lang/Class;"},
	})
	s.Return(dalvik.KindObject, regs[0])
}

func objectsEquals(s *synthBody, regs []int) {
	same, null := s.Body().NewLabel(), s.Body().NewLabel()
	s.IfCmp(dalvik.OpIfEq, dalvik.KindObject, regs[0], regs[1], same)
	s.IfZ(dalvik.OpIfEqz, regs[0], null)
	s.Invoke(dalvik.OpInvokeVirtualRange, regs[0], 2, dalvik.MethodRef{
		Class: objectType, Name: "equals", Proto: dalvik.Proto{Return: "Z", Params: []string{objectType}},
	})
	s.MoveResult(dalvik.KindSingle, 0)
	s.Return(dalvik.KindSingle, 0)
	s.Mark(same)
	s.Const(0, 1)
	s.Return(dalvik.KindSingle, 0)
	s.Mark(null)
	s.Const(0, 0)
	s.Return(dalvik.KindSingle, 0)
}

func objectsHashCode(s *synthBody, regs []int) {
	null := s.Body().NewLabel()
	s.IfZ(dalvik.OpIfEqz, regs[0], null)
	s.Invoke(dalvik.OpInvokeVirtualRange, regs[0], 1, dalvik.MethodRef{
		Class: objectType, Name: "hashCode", Proto: dalvik.Proto{Return: "I"},
	})
	s.MoveResult(dalvik.KindSingle, 0)
	s.Return(dalvik.KindSingle, 0)
	s.Mark(null)
	s.Const(0, 0)
	s.Return(dalvik.KindSingle, 0)
}

// isNull returns 1 when the branch op on the argument is taken.
func isNull(op dalvik.Opcode) func(*synthBody, []int) {
	return func(s *synthBody, regs []int) {
		taken := s.Body().NewLabel()
		s.IfZ(op, regs[0], taken)
		s.Const(0, 0)
		s.Return(dalvik.KindSingle, 0)
		s.Mark(taken)
		s.Const(0, 1)
		s.Return(dalvik.KindSingle, 0)
	}
}

func longHashCode(s *synthBody, regs []int) {
	s.Const(2, 32)
	s.Binop(dalvik.OpUshrLong, 0, regs[0], 2)
	s.Binop(dalvik.OpXorLong, 0, 0, regs[0])
	s.Unop(dalvik.OpLongToInt, dalvik.KindSingle, 0, dalvik.KindWide, 0)
	s.Return(dalvik.KindSingle, 0)
}

func booleanHashCode(s *synthBody, regs []int) {
	f := s.Body().NewLabel()
	s.IfZ(dalvik.OpIfEqz, regs[0], f)
	s.Const(0, 1231)
	s.Return(dalvik.KindSingle, 0)
	s.Mark(f)
	s.Const(0, 1237)
	s.Return(dalvik.KindSingle, 0)
}

func addSuppressed(s *synthBody, _ []int) {
	s.ReturnVoid()
}

func getSuppressed(s *synthBody, _ []int) {
	s.Const(0, 0)
	s.NewArray(0, 0, "["+throwableType)
	s.Return(dalvik.KindObject, 0)
}
