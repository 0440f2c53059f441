package classfile

// JVM opcodes.
const (
	Nop             byte = 0x00
	AconstNull      byte = 0x01
	IconstM1        byte = 0x02
	Iconst0         byte = 0x03
	Iconst5         byte = 0x08
	Lconst0         byte = 0x09
	Lconst1         byte = 0x0a
	Fconst0         byte = 0x0b
	Fconst2         byte = 0x0d
	Dconst0         byte = 0x0e
	Dconst1         byte = 0x0f
	Bipush          byte = 0x10
	Sipush          byte = 0x11
	Ldc             byte = 0x12
	LdcW            byte = 0x13
	Ldc2W           byte = 0x14
	Iload           byte = 0x15
	Lload           byte = 0x16
	Fload           byte = 0x17
	Dload           byte = 0x18
	Aload           byte = 0x19
	Iload0          byte = 0x1a
	Aload3          byte = 0x2d
	Iaload          byte = 0x2e
	Laload          byte = 0x2f
	Faload          byte = 0x30
	Daload          byte = 0x31
	Aaload          byte = 0x32
	Baload          byte = 0x33
	Caload          byte = 0x34
	Saload          byte = 0x35
	Istore          byte = 0x36
	Lstore          byte = 0x37
	Fstore          byte = 0x38
	Dstore          byte = 0x39
	Astore          byte = 0x3a
	Istore0         byte = 0x3b
	Astore3         byte = 0x4e
	Iastore         byte = 0x4f
	Lastore         byte = 0x50
	Fastore         byte = 0x51
	Dastore         byte = 0x52
	Aastore         byte = 0x53
	Bastore         byte = 0x54
	Castore         byte = 0x55
	Sastore         byte = 0x56
	Pop             byte = 0x57
	Pop2            byte = 0x58
	Dup             byte = 0x59
	DupX1           byte = 0x5a
	DupX2           byte = 0x5b
	Dup2            byte = 0x5c
	Dup2X1          byte = 0x5d
	Dup2X2          byte = 0x5e
	Swap            byte = 0x5f
	Iadd            byte = 0x60
	Ladd            byte = 0x61
	Fadd            byte = 0x62
	Dadd            byte = 0x63
	Isub            byte = 0x64
	Lsub            byte = 0x65
	Fsub            byte = 0x66
	Dsub            byte = 0x67
	Imul            byte = 0x68
	Lmul            byte = 0x69
	Fmul            byte = 0x6a
	Dmul            byte = 0x6b
	Idiv            byte = 0x6c
	Ldiv            byte = 0x6d
	Fdiv            byte = 0x6e
	Ddiv            byte = 0x6f
	Irem            byte = 0x70
	Lrem            byte = 0x71
	Frem            byte = 0x72
	Drem            byte = 0x73
	Ineg            byte = 0x74
	Lneg            byte = 0x75
	Fneg            byte = 0x76
	Dneg            byte = 0x77
	Ishl            byte = 0x78
	Lshl            byte = 0x79
	Ishr            byte = 0x7a
	Lshr            byte = 0x7b
	Iushr           byte = 0x7c
	Lushr           byte = 0x7d
	Iand            byte = 0x7e
	Land            byte = 0x7f
	Ior             byte = 0x80
	Lor             byte = 0x81
	Ixor            byte = 0x82
	Lxor            byte = 0x83
	Iinc            byte = 0x84
	I2l             byte = 0x85
	I2f             byte = 0x86
	I2d             byte = 0x87
	L2i             byte = 0x88
	L2f             byte = 0x89
	L2d             byte = 0x8a
	F2i             byte = 0x8b
	F2l             byte = 0x8c
	F2d             byte = 0x8d
	D2i             byte = 0x8e
	D2l             byte = 0x8f
	D2f             byte = 0x90
	I2b             byte = 0x91
	I2c             byte = 0x92
	I2s             byte = 0x93
	Lcmp            byte = 0x94
	Fcmpl           byte = 0x95
	Fcmpg           byte = 0x96
	Dcmpl           byte = 0x97
	Dcmpg           byte = 0x98
	Ifeq            byte = 0x99
	Ifne            byte = 0x9a
	Iflt            byte = 0x9b
	Ifge            byte = 0x9c
	Ifgt            byte = 0x9d
	Ifle            byte = 0x9e
	IfIcmpeq        byte = 0x9f
	IfIcmpne        byte = 0xa0
	IfIcmplt        byte = 0xa1
	IfIcmpge        byte = 0xa2
	IfIcmpgt        byte = 0xa3
	IfIcmple        byte = 0xa4
	IfAcmpeq        byte = 0xa5
	IfAcmpne        byte = 0xa6
	Goto            byte = 0xa7
	Jsr             byte = 0xa8
	Ret             byte = 0xa9
	Tableswitch     byte = 0xaa
	Lookupswitch    byte = 0xab
	Ireturn         byte = 0xac
	Lreturn         byte = 0xad
	Freturn         byte = 0xae
	Dreturn         byte = 0xaf
	Areturn         byte = 0xb0
	Return          byte = 0xb1
	Getstatic       byte = 0xb2
	Putstatic       byte = 0xb3
	Getfield        byte = 0xb4
	Putfield        byte = 0xb5
	Invokevirtual   byte = 0xb6
	Invokespecial   byte = 0xb7
	Invokestatic    byte = 0xb8
	Invokeinterface byte = 0xb9
	Invokedynamic   byte = 0xba
	New             byte = 0xbb
	Newarray        byte = 0xbc
	Anewarray       byte = 0xbd
	Arraylength     byte = 0xbe
	Athrow          byte = 0xbf
	Checkcast       byte = 0xc0
	Instanceof      byte = 0xc1
	Monitorenter    byte = 0xc2
	Monitorexit     byte = 0xc3
	Wide            byte = 0xc4
	Multianewarray  byte = 0xc5
	Ifnull          byte = 0xc6
	Ifnonnull       byte = 0xc7
	GotoW           byte = 0xc8
	JsrW            byte = 0xc9
)

// operandLengths holds the operand byte count of fixed-length opcodes; -1 marks variable length
// and -2 an undefined opcode.
var operandLengths = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -2
	}
	for op := 0x00; op <= 0xc9; op++ {
		t[op] = 0
	}
	for _, op := range []byte{Bipush, Ldc, Iload, Lload, Fload, Dload, Aload, Istore, Lstore, Fstore, Dstore, Astore, Ret, Newarray} {
		t[op] = 1
	}
	for _, op := range []byte{
		Sipush, LdcW, Ldc2W, Iinc,
		Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle,
		IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple, IfAcmpeq, IfAcmpne,
		Goto, Jsr, Getstatic, Putstatic, Getfield, Putfield,
		Invokevirtual, Invokespecial, Invokestatic, New, Anewarray, Checkcast, Instanceof, Ifnull, Ifnonnull,
	} {
		t[op] = 2
	}
	t[Multianewarray] = 3
	t[Invokeinterface] = 4
	t[Invokedynamic] = 4
	t[GotoW] = 4
	t[JsrW] = 4
	t[Tableswitch] = -1
	t[Lookupswitch] = -1
	t[Wide] = -1
	return t
}()
