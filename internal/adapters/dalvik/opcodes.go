package dalvik

// Opcode is a Dalvik opcode; values above 0xff are pseudo instructions.
type Opcode uint16

// Dalvik opcodes emitted by the translator.
const (
	OpNop                  Opcode = 0x00
	OpMove                 Opcode = 0x01
	OpMove16               Opcode = 0x03
	OpMoveWide             Opcode = 0x04
	OpMoveWide16           Opcode = 0x06
	OpMoveObject           Opcode = 0x07
	OpMoveObject16         Opcode = 0x09
	OpMoveResult           Opcode = 0x0a
	OpMoveResultWide       Opcode = 0x0b
	OpMoveResultObject     Opcode = 0x0c
	OpMoveException        Opcode = 0x0d
	OpReturnVoid           Opcode = 0x0e
	OpReturn               Opcode = 0x0f
	OpReturnWide           Opcode = 0x10
	OpReturnObject         Opcode = 0x11
	OpConst16              Opcode = 0x13
	OpConst                Opcode = 0x14
	OpConstHigh16          Opcode = 0x15
	OpConstWide16          Opcode = 0x16
	OpConstWide32          Opcode = 0x17
	OpConstWide            Opcode = 0x18
	OpConstWideHigh16      Opcode = 0x19
	OpConstString          Opcode = 0x1a
	OpConstStringJumbo     Opcode = 0x1b
	OpConstClass           Opcode = 0x1c
	OpMonitorEnter         Opcode = 0x1d
	OpMonitorExit          Opcode = 0x1e
	OpCheckCast            Opcode = 0x1f
	OpInstanceOf           Opcode = 0x20
	OpArrayLength          Opcode = 0x21
	OpNewInstance          Opcode = 0x22
	OpNewArray             Opcode = 0x23
	OpThrow                Opcode = 0x27
	OpGoto32               Opcode = 0x2a
	OpPackedSwitch         Opcode = 0x2b
	OpSparseSwitch         Opcode = 0x2c
	OpCmplFloat            Opcode = 0x2d
	OpCmpgFloat            Opcode = 0x2e
	OpCmplDouble           Opcode = 0x2f
	OpCmpgDouble           Opcode = 0x30
	OpCmpLong              Opcode = 0x31
	OpIfEq                 Opcode = 0x32
	OpIfNe                 Opcode = 0x33
	OpIfLt                 Opcode = 0x34
	OpIfGe                 Opcode = 0x35
	OpIfGt                 Opcode = 0x36
	OpIfLe                 Opcode = 0x37
	OpIfEqz                Opcode = 0x38
	OpIfNez                Opcode = 0x39
	OpIfLtz                Opcode = 0x3a
	OpIfGez                Opcode = 0x3b
	OpIfGtz                Opcode = 0x3c
	OpIfLez                Opcode = 0x3d
	OpAget                 Opcode = 0x44
	OpAgetWide             Opcode = 0x45
	OpAgetObject           Opcode = 0x46
	OpAgetBoolean          Opcode = 0x47
	OpAgetByte             Opcode = 0x48
	OpAgetChar             Opcode = 0x49
	OpAgetShort            Opcode = 0x4a
	OpAput                 Opcode = 0x4b
	OpAputWide             Opcode = 0x4c
	OpAputObject           Opcode = 0x4d
	OpAputBoolean          Opcode = 0x4e
	OpAputByte             Opcode = 0x4f
	OpAputChar             Opcode = 0x50
	OpAputShort            Opcode = 0x51
	OpIget                 Opcode = 0x52
	OpIput                 Opcode = 0x59
	OpSget                 Opcode = 0x60
	OpSput                 Opcode = 0x67
	OpInvokeVirtualRange   Opcode = 0x74
	OpInvokeSuperRange     Opcode = 0x75
	OpInvokeDirectRange    Opcode = 0x76
	OpInvokeStaticRange    Opcode = 0x77
	OpInvokeInterfaceRange Opcode = 0x78
	OpNegInt               Opcode = 0x7b
	OpNotInt               Opcode = 0x7c
	OpNegLong              Opcode = 0x7d
	OpNotLong              Opcode = 0x7e
	OpNegFloat             Opcode = 0x7f
	OpNegDouble            Opcode = 0x80
	OpIntToLong            Opcode = 0x81
	OpIntToFloat           Opcode = 0x82
	OpIntToDouble          Opcode = 0x83
	OpLongToInt            Opcode = 0x84
	OpLongToFloat          Opcode = 0x85
	OpLongToDouble         Opcode = 0x86
	OpFloatToInt           Opcode = 0x87
	OpFloatToLong          Opcode = 0x88
	OpFloatToDouble        Opcode = 0x89
	OpDoubleToInt          Opcode = 0x8a
	OpDoubleToLong         Opcode = 0x8b
	OpDoubleToFloat        Opcode = 0x8c
	OpIntToByte            Opcode = 0x8d
	OpIntToChar            Opcode = 0x8e
	OpIntToShort           Opcode = 0x8f
	OpAddInt               Opcode = 0x90
	OpSubInt               Opcode = 0x91
	OpMulInt               Opcode = 0x92
	OpDivInt               Opcode = 0x93
	OpRemInt               Opcode = 0x94
	OpAndInt               Opcode = 0x95
	OpOrInt                Opcode = 0x96
	OpXorInt               Opcode = 0x97
	OpShlInt               Opcode = 0x98
	OpShrInt               Opcode = 0x99
	OpUshrInt              Opcode = 0x9a
	OpAddLong              Opcode = 0x9b
	OpSubLong              Opcode = 0x9c
	OpMulLong              Opcode = 0x9d
	OpDivLong              Opcode = 0x9e
	OpRemLong              Opcode = 0x9f
	OpAndLong              Opcode = 0xa0
	OpOrLong               Opcode = 0xa1
	OpXorLong              Opcode = 0xa2
	OpShlLong              Opcode = 0xa3
	OpShrLong              Opcode = 0xa4
	OpUshrLong             Opcode = 0xa5
	OpAddFloat             Opcode = 0xa6
	OpSubFloat             Opcode = 0xa7
	OpMulFloat             Opcode = 0xa8
	OpDivFloat             Opcode = 0xa9
	OpRemFloat             Opcode = 0xaa
	OpAddDouble            Opcode = 0xab
	OpSubDouble            Opcode = 0xac
	OpMulDouble            Opcode = 0xad
	OpDivDouble            Opcode = 0xae
	OpRemDouble            Opcode = 0xaf
	OpAddIntLit16          Opcode = 0xd0
	OpAddIntLit8           Opcode = 0xd8

	// OpLabel marks a branch target; it occupies no code units.
	OpLabel Opcode = 0x100
	// OpInvokeCustom is an unresolved invokedynamic call site that desugaring must replace.
	OpInvokeCustom Opcode = 0x101
)

type format uint8

const (
	fmtNone format = iota
	fmt10x
	fmt11x
	fmt12x
	fmt21c
	fmt21h
	fmt21s
	fmt21t
	fmt22b
	fmt22c
	fmt22s
	fmt22t
	fmt23x
	fmt30t
	fmt31c
	fmt31i
	fmt31t
	fmt32x
	fmt3rc
	fmt51l
)

// units returns the size of the format in 16-bit code units.
func (f format) units() int {
	switch f {
	case fmtNone:
		return 0
	case fmt10x, fmt11x, fmt12x:
		return 1
	case fmt21c, fmt21h, fmt21s, fmt21t, fmt22b, fmt22c, fmt22s, fmt22t, fmt23x:
		return 2
	case fmt51l:
		return 5
	default:
		return 3
	}
}

var formats = func() map[Opcode]format {
	m := map[Opcode]format{
		OpNop: fmt10x, OpReturnVoid: fmt10x,
		OpMove: fmt12x, OpMoveWide: fmt12x, OpMoveObject: fmt12x,
		OpMove16: fmt32x, OpMoveWide16: fmt32x, OpMoveObject16: fmt32x,
		OpMoveResult: fmt11x, OpMoveResultWide: fmt11x, OpMoveResultObject: fmt11x, OpMoveException: fmt11x,
		OpReturn: fmt11x, OpReturnWide: fmt11x, OpReturnObject: fmt11x,
		OpMonitorEnter: fmt11x, OpMonitorExit: fmt11x, OpThrow: fmt11x,
		OpConst16: fmt21s, OpConstWide16: fmt21s,
		OpConst: fmt31i, OpConstWide32: fmt31i,
		OpConstHigh16: fmt21h, OpConstWideHigh16: fmt21h,
		OpConstWide:        fmt51l,
		OpConstString:      fmt21c,
		OpConstStringJumbo: fmt31c,
		OpConstClass:       fmt21c, OpCheckCast: fmt21c, OpNewInstance: fmt21c,
		OpInstanceOf: fmt22c, OpNewArray: fmt22c,
		OpArrayLength: fmt12x,
		OpGoto32:      fmt30t,
		OpPackedSwitch: fmt31t, OpSparseSwitch: fmt31t,
		OpAddIntLit16: fmt22s,
		OpAddIntLit8:  fmt22b,
	}
	for op := OpCmplFloat; op <= OpCmpLong; op++ {
		m[op] = fmt23x
	}
	for op := OpIfEq; op <= OpIfLe; op++ {
		m[op] = fmt22t
	}
	for op := OpIfEqz; op <= OpIfLez; op++ {
		m[op] = fmt21t
	}
	for op := OpAget; op <= OpAputShort; op++ {
		m[op] = fmt23x
	}
	for op := OpIget; op < OpSget; op++ {
		m[op] = fmt22c
	}
	for op := OpSget; op < OpSput+7; op++ {
		m[op] = fmt21c
	}
	for op := OpInvokeVirtualRange; op <= OpInvokeInterfaceRange; op++ {
		m[op] = fmt3rc
	}
	for op := OpNegInt; op <= OpIntToShort; op++ {
		m[op] = fmt12x
	}
	for op := OpAddInt; op <= OpRemDouble; op++ {
		m[op] = fmt23x
	}
	return m
}()

// IsInvoke reports whether op is one of the range invoke opcodes.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokeVirtualRange && op <= OpInvokeInterfaceRange
}

// IsBranch reports whether op transfers control to Insn.Target.
func (op Opcode) IsBranch() bool {
	return op == OpGoto32 || (op >= OpIfEq && op <= OpIfLez)
}
