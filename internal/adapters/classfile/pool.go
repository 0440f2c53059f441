package classfile

import (
	"math"

	"go.trai.ch/zerr"
)

// Constant is one constant pool slot.
type Constant struct {
	Tag byte
	// Str holds Utf8 content.
	Str string
	// A and B hold the raw index operands; A also holds the method handle reference kind.
	A, B uint16
	// Bits holds the raw value of numeric constants.
	Bits uint64
}

// MemberRef is a resolved field or method reference.
type MemberRef struct {
	Class      string
	Name       string
	Descriptor string
	Interface  bool
}

// MethodHandle is a resolved CONSTANT_MethodHandle.
type MethodHandle struct {
	Kind byte
	Ref  MemberRef
}

// InvokeDynamic is a resolved CONSTANT_InvokeDynamic.
type InvokeDynamic struct {
	Bootstrap  uint16
	Name       string
	Descriptor string
}

// Value is a loadable constant: int32, int64, float32, float64, string, a Type, a
// MethodType, a MethodHandle or a Dynamic.
type Value any

// Type is a class literal constant holding an internal name or array descriptor.
type Type string

// MethodType is a method type constant holding a method descriptor.
type MethodType string

// Dynamic is a dynamically computed constant.
type Dynamic InvokeDynamic

// Pool is a parsed constant pool; index 0 is unused.
type Pool struct {
	entries []Constant
}

// Len returns the constant_pool_count.
func (p *Pool) Len() int {
	return len(p.entries)
}

func (p *Pool) entry(i uint16, tags ...byte) (Constant, error) {
	if int(i) <= 0 || int(i) >= len(p.entries) {
		return Constant{}, malformed(zerr.With(zerr.New("constant pool index out of range"), "index", i))
	}
	c := p.entries[i]
	for _, t := range tags {
		if c.Tag == t {
			return c, nil
		}
	}
	return Constant{}, malformed(zerr.With(zerr.With(zerr.New("unexpected constant pool tag"), "index", i), "tag", c.Tag))
}

// UTF8 returns the content of a Utf8 constant.
func (p *Pool) UTF8(i uint16) (string, error) {
	c, err := p.entry(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Str, nil
}

// ClassName returns the internal name referenced by a Class constant.
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.entry(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.UTF8(c.A)
}

// NameAndType returns the name and descriptor of a NameAndType constant.
func (p *Pool) NameAndType(i uint16) (name, desc string, err error) {
	c, err := p.entry(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.UTF8(c.A); err != nil {
		return "", "", err
	}
	desc, err = p.UTF8(c.B)
	return name, desc, err
}

// Member resolves a Fieldref, Methodref or InterfaceMethodref constant.
func (p *Pool) Member(i uint16) (MemberRef, error) {
	c, err := p.entry(i, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return MemberRef{}, err
	}
	owner, err := p.ClassName(c.A)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := p.NameAndType(c.B)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Class: owner, Name: name, Descriptor: desc, Interface: c.Tag == TagInterfaceMethodref}, nil
}

// MethodHandle resolves a MethodHandle constant.
func (p *Pool) MethodHandle(i uint16) (MethodHandle, error) {
	c, err := p.entry(i, TagMethodHandle)
	if err != nil {
		return MethodHandle{}, err
	}
	ref, err := p.Member(c.B)
	if err != nil {
		return MethodHandle{}, err
	}
	return MethodHandle{Kind: byte(c.A), Ref: ref}, nil
}

// InvokeDynamic resolves an InvokeDynamic constant.
func (p *Pool) InvokeDynamic(i uint16) (InvokeDynamic, error) {
	c, err := p.entry(i, TagInvokeDynamic)
	if err != nil {
		return InvokeDynamic{}, err
	}
	name, desc, err := p.NameAndType(c.B)
	if err != nil {
		return InvokeDynamic{}, err
	}
	return InvokeDynamic{Bootstrap: c.A, Name: name, Descriptor: desc}, nil
}

// Loadable resolves a constant usable by ldc or as a bootstrap argument.
func (p *Pool) Loadable(i uint16) (Value, error) {
	c, err := p.entry(i, TagInteger, TagFloat, TagLong, TagDouble, TagString, TagClass,
		TagMethodType, TagMethodHandle, TagDynamic)
	if err != nil {
		return nil, err
	}
	switch c.Tag {
	case TagInteger:
		return int32(uint32(c.Bits)), nil
	case TagFloat:
		return math.Float32frombits(uint32(c.Bits)), nil
	case TagLong:
		return int64(c.Bits), nil
	case TagDouble:
		return math.Float64frombits(c.Bits), nil
	case TagString:
		return p.UTF8(c.A)
	case TagClass:
		name, err := p.UTF8(c.A)
		return Type(name), err
	case TagMethodType:
		desc, err := p.UTF8(c.A)
		return MethodType(desc), err
	case TagMethodHandle:
		return p.MethodHandle(i)
	default:
		name, desc, err := p.NameAndType(c.B)
		return Dynamic{Bootstrap: c.A, Name: name, Descriptor: desc}, err
	}
}
