package desugar

import (
	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dalvik"
)

const (
	accPublic    = uint32(classfile.AccPublic)
	accPrivate   = uint32(classfile.AccPrivate)
	accStatic    = uint32(classfile.AccStatic)
	accFinal     = uint32(classfile.AccFinal)
	accAbstract  = uint32(classfile.AccAbstract)
	accSynthetic = uint32(classfile.AccSynthetic)

	objectType = "Ljava/lang/Object;"
)

var objectInit = dalvik.MethodRef{Class: objectType, Name: "<init>", Proto: dalvik.Proto{Return: "V"}}

// synthBody is a method body under construction. Scratch registers come first, then
// locals, then the incoming arguments.
type synthBody struct {
	*dalvik.Emitter
	locals int
	ins    int
}

func newSynthBody(locals, ins int) *synthBody {
	b := &dalvik.Body{Registers: dalvik.TempRegs + locals + ins, Ins: ins}
	return &synthBody{Emitter: dalvik.NewEmitter(b), locals: locals, ins: ins}
}

// local returns the register of local unit n.
func (s *synthBody) local(n int) int {
	return dalvik.TempRegs + n
}

// arg returns the register of incoming argument unit n.
func (s *synthBody) arg(n int) int {
	return dalvik.TempRegs + s.locals + n
}

// args returns the first register of every parameter, receiver first when present.
func (s *synthBody) args(params []string) []int {
	regs := make([]int, len(params))
	n := 0
	for i, p := range params {
		regs[i] = s.arg(n)
		n += classfile.Slots(p)
	}
	return regs
}

// ret returns the value in reg, or nothing for a void prototype.
func (s *synthBody) ret(desc string, reg int) {
	if desc == "V" {
		s.ReturnVoid()
		return
	}
	s.Return(dalvik.KindOf(desc), reg)
}

var boxes = map[string]string{
	"Z": "Ljava/lang/Boolean;",
	"B": "Ljava/lang/Byte;",
	"C": "Ljava/lang/Character;",
	"S": "Ljava/lang/Short;",
	"I": "Ljava/lang/Integer;",
	"J": "Ljava/lang/Long;",
	"F": "Ljava/lang/Float;",
	"D": "Ljava/lang/Double;",
}

var unboxNames = map[string]string{
	"Z": "booleanValue",
	"B": "byteValue",
	"C": "charValue",
	"S": "shortValue",
	"I": "intValue",
	"J": "longValue",
	"F": "floatValue",
	"D": "doubleValue",
}

// unboxed returns the primitive wrapped by a box type, or "".
func unboxed(desc string) string {
	for prim, box := range boxes {
		if box == desc {
			return prim
		}
	}
	return ""
}

func widenKey(desc string) string {
	switch desc {
	case "B", "S", "C", "Z":
		return "I"
	}
	return desc
}

var widenings = map[[2]string]dalvik.Opcode{
	{"I", "J"}: dalvik.OpIntToLong,
	{"I", "F"}: dalvik.OpIntToFloat,
	{"I", "D"}: dalvik.OpIntToDouble,
	{"J", "F"}: dalvik.OpLongToFloat,
	{"J", "D"}: dalvik.OpLongToDouble,
	{"F", "D"}: dalvik.OpFloatToDouble,
}

// widen converts the primitive in reg from one type to a wider one in place.
func (s *synthBody) widen(reg int, from, to string) {
	op, ok := widenings[[2]string{widenKey(from), widenKey(to)}]
	if !ok {
		return
	}
	s.Unop(op, dalvik.KindOf(to), reg, dalvik.KindOf(from), reg)
}

// adapt converts the value of type from in src into type to in dst, boxing, unboxing,
// casting and widening as the lambda metafactory does. via is the instantiated type the
// value is known to have, used to pick the box when unboxing.
// dst must have room for to; src and dst may be the same register.
func (s *synthBody) adapt(dst int, to string, src int, from, via string) {
	switch {
	case from == to:
		s.Move(dalvik.KindOf(to), dst, src)
	case classfile.IsReference(from) && classfile.IsReference(to):
		s.Move(dalvik.KindObject, dst, src)
		if to != objectType {
			s.CheckCast(dst, to)
		}
	case !classfile.IsReference(from) && classfile.IsReference(to):
		box := boxes[from]
		k := dalvik.KindOf(from)
		s.Move(k, 0, src)
		s.Invoke(dalvik.OpInvokeStaticRange, 0, k.Width(), dalvik.MethodRef{
			Class: box, Name: "valueOf", Proto: dalvik.Proto{Return: box, Params: []string{from}},
		})
		s.MoveResult(dalvik.KindObject, dst)
	case classfile.IsReference(from):
		prim := unboxed(via)
		if prim == "" {
			prim = unboxed(from)
		}
		if prim == "" {
			prim = to
		}
		box := boxes[prim]
		s.Move(dalvik.KindObject, 0, src)
		if from != box {
			s.CheckCast(0, box)
		}
		s.Invoke(dalvik.OpInvokeVirtualRange, 0, 1, dalvik.MethodRef{
			Class: box, Name: unboxNames[prim], Proto: dalvik.Proto{Return: prim},
		})
		s.MoveResult(dalvik.KindOf(prim), dst)
		s.widen(dst, prim, to)
	default:
		s.Move(dalvik.KindOf(from), dst, src)
		s.widen(dst, from, to)
	}
}

// method packages the body as a method of owner.
func (s *synthBody) method(owner, name string, proto dalvik.Proto, access uint32) *dalvik.Method {
	return &dalvik.Method{
		Ref:    dalvik.MethodRef{Class: owner, Name: name, Proto: proto},
		Access: access,
		Code:   s.Body(),
	}
}
