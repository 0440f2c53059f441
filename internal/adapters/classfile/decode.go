package classfile

import (
	"encoding/binary"

	"go.trai.ch/zerr"
)

// Instruction is one decoded bytecode instruction. Wide forms are folded into the
// plain opcode with Local and Const widened.
type Instruction struct {
	PC     int
	Opcode byte
	// Index is a constant pool index.
	Index uint16
	// Local is a local variable slot.
	Local int
	// Const is an immediate: bipush/sipush value, iinc increment, newarray type,
	// invokeinterface count or multianewarray dimensions.
	Const int32
	// Target is the absolute branch target.
	Target int
	// Switch holds tableswitch and lookupswitch operands.
	Switch *Switch
	// Next is the offset of the following instruction.
	Next int
}

// Switch holds the decoded operands of a switch instruction. Keys are ascending.
type Switch struct {
	Default int
	Keys    []int32
	Targets []int
}

// Decode splits bytecode into instructions.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(code); {
		in, err := decodeOne(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		pc = in.Next
	}
	return out, nil
}

func truncated(pc int) error {
	return malformed(zerr.With(zerr.New("truncated instruction"), "pc", pc))
}

func decodeOne(code []byte, pc int) (Instruction, error) {
	op := code[pc]
	in := Instruction{PC: pc, Opcode: op}
	n := operandLengths[op]
	if n == -2 {
		return in, malformed(zerr.With(zerr.With(zerr.New("undefined opcode"), "pc", pc), "opcode", op))
	}
	if n >= 0 {
		if pc+1+int(n) > len(code) {
			return in, truncated(pc)
		}
		operands := code[pc+1 : pc+1+int(n)]
		in.Next = pc + 1 + int(n)
		decodeFixed(&in, operands)
		return in, nil
	}
	switch op {
	case Wide:
		if pc+4 > len(code) {
			return in, truncated(pc)
		}
		in.Opcode = code[pc+1]
		in.Local = int(binary.BigEndian.Uint16(code[pc+2:]))
		in.Next = pc + 4
		if in.Opcode == Iinc {
			if pc+6 > len(code) {
				return in, truncated(pc)
			}
			in.Const = int32(int16(binary.BigEndian.Uint16(code[pc+4:])))
			in.Next = pc + 6
		}
		return in, nil
	case Tableswitch, Lookupswitch:
		p := (pc + 4) &^ 3
		s := &Switch{}
		word := func() (int32, bool) {
			if p+4 > len(code) {
				return 0, false
			}
			v := int32(binary.BigEndian.Uint32(code[p:]))
			p += 4
			return v, true
		}
		def, ok := word()
		if !ok {
			return in, truncated(pc)
		}
		s.Default = pc + int(def)
		if op == Tableswitch {
			low, ok1 := word()
			high, ok2 := word()
			if !ok1 || !ok2 || high < low {
				return in, truncated(pc)
			}
			for k := int64(low); k <= int64(high); k++ {
				off, ok := word()
				if !ok {
					return in, truncated(pc)
				}
				s.Keys = append(s.Keys, int32(k))
				s.Targets = append(s.Targets, pc+int(off))
			}
		} else {
			count, ok := word()
			if !ok || count < 0 {
				return in, truncated(pc)
			}
			for range count {
				key, ok1 := word()
				off, ok2 := word()
				if !ok1 || !ok2 {
					return in, truncated(pc)
				}
				s.Keys = append(s.Keys, key)
				s.Targets = append(s.Targets, pc+int(off))
			}
		}
		in.Switch = s
		in.Next = p
		return in, nil
	}
	return in, truncated(pc)
}

func decodeFixed(in *Instruction, b []byte) {
	op := in.Opcode
	switch {
	case op >= Iload0 && op <= Aload3:
		in.Opcode = Iload + (op-Iload0)/4
		in.Local = int(op-Iload0) % 4
	case op >= Istore0 && op <= Astore3:
		in.Opcode = Istore + (op-Istore0)/4
		in.Local = int(op-Istore0) % 4
	}
	switch op {
	case Bipush:
		in.Const = int32(int8(b[0]))
	case Sipush:
		in.Const = int32(int16(binary.BigEndian.Uint16(b)))
	case Ldc:
		in.Index = uint16(b[0])
	case Newarray:
		in.Const = int32(b[0])
	case Iload, Lload, Fload, Dload, Aload, Istore, Lstore, Fstore, Dstore, Astore, Ret:
		in.Local = int(b[0])
	case Iinc:
		in.Local = int(b[0])
		in.Const = int32(int8(b[1]))
	case Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle, IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple,
		IfAcmpeq, IfAcmpne, Goto, Jsr, Ifnull, Ifnonnull:
		in.Target = in.PC + int(int16(binary.BigEndian.Uint16(b)))
	case GotoW, JsrW:
		in.Target = in.PC + int(int32(binary.BigEndian.Uint32(b)))
	case Invokeinterface:
		in.Index = binary.BigEndian.Uint16(b)
		in.Const = int32(b[2])
	case Invokedynamic:
		in.Index = binary.BigEndian.Uint16(b)
	case Multianewarray:
		in.Index = binary.BigEndian.Uint16(b)
		in.Const = int32(b[2])
	default:
		if len(b) == 2 {
			in.Index = binary.BigEndian.Uint16(b)
		}
	}
}
