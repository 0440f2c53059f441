package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// Builder assembles a class file. Constant pool entries are interned, so the index
// helpers can be called repeatedly while writing bytecode.
type Builder struct {
	pool       bytes.Buffer
	poolCount  uint16
	index      map[string]uint16
	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     [][]byte
	methods    [][]byte
	attrs      [][]byte
	bootstrap  [][]byte
	visible    []Annotation
	invisible  []Annotation
}

// NewBuilder starts a class with the given internal name, super class and access flags.
// An empty super name produces a class without super class.
func NewBuilder(name, super string, access uint16) *Builder {
	b := &Builder{index: make(map[string]uint16), poolCount: 1, access: access}
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

func (b *Builder) intern(key string, wide bool, write func(w *bytes.Buffer)) uint16 {
	if i, ok := b.index[key]; ok {
		return i
	}
	i := b.poolCount
	write(&b.pool)
	b.poolCount++
	if wide {
		b.poolCount++
	}
	b.index[key] = i
	return i
}

func put2(w *bytes.Buffer, v uint16) {
	_ = binary.Write(w, binary.BigEndian, v)
}

func put4(w *bytes.Buffer, v uint32) {
	_ = binary.Write(w, binary.BigEndian, v)
}

// Utf8 interns a Utf8 constant.
func (b *Builder) Utf8(s string) uint16 {
	return b.intern("u:"+s, false, func(w *bytes.Buffer) {
		enc := encodeMUTF8(s)
		w.WriteByte(TagUtf8)
		put2(w, uint16(len(enc)))
		w.Write(enc)
	})
}

func (b *Builder) ref1(tag byte, key string, a uint16) uint16 {
	return b.intern(fmt.Sprintf("%d:%s", tag, key), false, func(w *bytes.Buffer) {
		w.WriteByte(tag)
		put2(w, a)
	})
}

func (b *Builder) ref2(tag byte, a, c uint16) uint16 {
	return b.intern(fmt.Sprintf("%d:%d:%d", tag, a, c), false, func(w *bytes.Buffer) {
		w.WriteByte(tag)
		put2(w, a)
		put2(w, c)
	})
}

// Class interns a Class constant.
func (b *Builder) Class(name string) uint16 {
	return b.ref1(TagClass, name, b.Utf8(name))
}

// String interns a String constant.
func (b *Builder) String(s string) uint16 {
	return b.ref1(TagString, s, b.Utf8(s))
}

// MethodType interns a MethodType constant.
func (b *Builder) MethodType(desc string) uint16 {
	return b.ref1(TagMethodType, desc, b.Utf8(desc))
}

// Integer interns an Integer constant.
func (b *Builder) Integer(v int32) uint16 {
	return b.intern(fmt.Sprintf("i:%d", v), false, func(w *bytes.Buffer) {
		w.WriteByte(TagInteger)
		put4(w, uint32(v))
	})
}

// Float interns a Float constant.
func (b *Builder) Float(v float32) uint16 {
	bits := math.Float32bits(v)
	return b.intern(fmt.Sprintf("f:%d", bits), false, func(w *bytes.Buffer) {
		w.WriteByte(TagFloat)
		put4(w, bits)
	})
}

// Long interns a Long constant.
func (b *Builder) Long(v int64) uint16 {
	return b.intern(fmt.Sprintf("j:%d", v), true, func(w *bytes.Buffer) {
		w.WriteByte(TagLong)
		put4(w, uint32(uint64(v)>>32))
		put4(w, uint32(v))
	})
}

// Double interns a Double constant.
func (b *Builder) Double(v float64) uint16 {
	bits := math.Float64bits(v)
	return b.intern(fmt.Sprintf("d:%d", bits), true, func(w *bytes.Buffer) {
		w.WriteByte(TagDouble)
		put4(w, uint32(bits>>32))
		put4(w, uint32(bits))
	})
}

// NameAndType interns a NameAndType constant.
func (b *Builder) NameAndType(name, desc string) uint16 {
	return b.ref2(TagNameAndType, b.Utf8(name), b.Utf8(desc))
}

// Field interns a Fieldref constant.
func (b *Builder) Field(owner, name, desc string) uint16 {
	return b.ref2(TagFieldref, b.Class(owner), b.NameAndType(name, desc))
}

// Method interns a Methodref constant.
func (b *Builder) Method(owner, name, desc string) uint16 {
	return b.ref2(TagMethodref, b.Class(owner), b.NameAndType(name, desc))
}

// InterfaceMethod interns an InterfaceMethodref constant.
func (b *Builder) InterfaceMethod(owner, name, desc string) uint16 {
	return b.ref2(TagInterfaceMethodref, b.Class(owner), b.NameAndType(name, desc))
}

// MethodHandle interns a MethodHandle constant for a member reference index.
func (b *Builder) MethodHandle(kind byte, ref uint16) uint16 {
	return b.intern(fmt.Sprintf("h:%d:%d", kind, ref), false, func(w *bytes.Buffer) {
		w.WriteByte(TagMethodHandle)
		w.WriteByte(kind)
		put2(w, ref)
	})
}

// Bootstrap appends a BootstrapMethods row and returns its index.
func (b *Builder) Bootstrap(handle uint16, args ...uint16) uint16 {
	var w bytes.Buffer
	put2(&w, handle)
	put2(&w, uint16(len(args)))
	for _, a := range args {
		put2(&w, a)
	}
	b.bootstrap = append(b.bootstrap, w.Bytes())
	return uint16(len(b.bootstrap) - 1)
}

// InvokeDynamic interns an InvokeDynamic constant.
func (b *Builder) InvokeDynamic(bootstrap uint16, name, desc string) uint16 {
	return b.ref2(TagInvokeDynamic, bootstrap, b.NameAndType(name, desc))
}

// AddInterface declares an implemented interface.
func (b *Builder) AddInterface(name string) *Builder {
	b.interfaces = append(b.interfaces, b.Class(name))
	return b
}

// SetSourceFile records the SourceFile attribute.
func (b *Builder) SetSourceFile(name string) *Builder {
	var w bytes.Buffer
	put2(&w, b.Utf8(name))
	b.attrs = append(b.attrs, b.attribute("SourceFile", w.Bytes()))
	return b
}

// AddAnnotation attaches a class annotation with the given retention.
func (b *Builder) AddAnnotation(a Annotation, visible bool) *Builder {
	if visible {
		b.visible = append(b.visible, a)
	} else {
		b.invisible = append(b.invisible, a)
	}
	return b
}

// AddField declares a field. A zero constant index means no ConstantValue attribute.
func (b *Builder) AddField(access uint16, name, desc string, constant uint16, annotations ...Annotation) *Builder {
	var w bytes.Buffer
	put2(&w, access)
	put2(&w, b.Utf8(name))
	put2(&w, b.Utf8(desc))
	var attrs [][]byte
	if constant != 0 {
		var cv bytes.Buffer
		put2(&cv, constant)
		attrs = append(attrs, b.attribute("ConstantValue", cv.Bytes()))
	}
	if len(annotations) > 0 {
		attrs = append(attrs, b.attribute("RuntimeVisibleAnnotations", b.annotations(annotations)))
	}
	writeAttrs(&w, attrs)
	b.fields = append(b.fields, w.Bytes())
	return b
}

// AddMethod declares a method. Code may be nil for abstract and native methods.
func (b *Builder) AddMethod(access uint16, name, desc string, code *Code, annotations ...Annotation) *Builder {
	var w bytes.Buffer
	put2(&w, access)
	put2(&w, b.Utf8(name))
	put2(&w, b.Utf8(desc))
	var attrs [][]byte
	if code != nil {
		attrs = append(attrs, b.code(code))
	}
	if len(annotations) > 0 {
		attrs = append(attrs, b.attribute("RuntimeVisibleAnnotations", b.annotations(annotations)))
	}
	writeAttrs(&w, attrs)
	b.methods = append(b.methods, w.Bytes())
	return b
}

func (b *Builder) code(c *Code) []byte {
	var w bytes.Buffer
	put2(&w, c.MaxStack)
	put2(&w, c.MaxLocals)
	put4(&w, uint32(len(c.Bytecode)))
	w.Write(c.Bytecode)
	put2(&w, uint16(len(c.Handlers)))
	for _, h := range c.Handlers {
		put2(&w, uint16(h.StartPC))
		put2(&w, uint16(h.EndPC))
		put2(&w, uint16(h.HandlerPC))
		var catchType uint16
		if h.CatchType != "" {
			catchType = b.Class(h.CatchType)
		}
		put2(&w, catchType)
	}
	var attrs [][]byte
	if len(c.Lines) > 0 {
		var lw bytes.Buffer
		put2(&lw, uint16(len(c.Lines)))
		for _, l := range c.Lines {
			put2(&lw, uint16(l.PC))
			put2(&lw, uint16(l.Line))
		}
		attrs = append(attrs, b.attribute("LineNumberTable", lw.Bytes()))
	}
	if len(c.Locals) > 0 {
		var vw bytes.Buffer
		put2(&vw, uint16(len(c.Locals)))
		for _, lv := range c.Locals {
			put2(&vw, uint16(lv.StartPC))
			put2(&vw, uint16(lv.Length))
			put2(&vw, b.Utf8(lv.Name))
			put2(&vw, b.Utf8(lv.Descriptor))
			put2(&vw, uint16(lv.Index))
		}
		attrs = append(attrs, b.attribute("LocalVariableTable", vw.Bytes()))
	}
	writeAttrs(&w, attrs)
	return b.attribute("Code", w.Bytes())
}

func (b *Builder) annotations(list []Annotation) []byte {
	var w bytes.Buffer
	put2(&w, uint16(len(list)))
	for _, a := range list {
		b.annotation(&w, a)
	}
	return w.Bytes()
}

func (b *Builder) annotation(w *bytes.Buffer, a Annotation) {
	put2(w, b.Utf8(a.Type))
	put2(w, uint16(len(a.Elements)))
	for _, e := range a.Elements {
		put2(w, b.Utf8(e.Name))
		b.elementValue(w, e.Value)
	}
}

func (b *Builder) elementValue(w *bytes.Buffer, v ElementValue) {
	w.WriteByte(v.Tag)
	switch v.Tag {
	case 'B', 'C', 'I', 'S', 'Z':
		put2(w, b.Integer(v.Const.(int32)))
	case 'J':
		put2(w, b.Long(v.Const.(int64)))
	case 'F':
		put2(w, b.Float(v.Const.(float32)))
	case 'D':
		put2(w, b.Double(v.Const.(float64)))
	case 's':
		put2(w, b.Utf8(v.Const.(string)))
	case 'e':
		put2(w, b.Utf8(v.EnumType))
		put2(w, b.Utf8(v.EnumName))
	case 'c':
		put2(w, b.Utf8(v.Class))
	case '@':
		b.annotation(w, *v.Annotation)
	case '[':
		put2(w, uint16(len(v.Array)))
		for _, e := range v.Array {
			b.elementValue(w, e)
		}
	}
}

func (b *Builder) attribute(name string, body []byte) []byte {
	var w bytes.Buffer
	put2(&w, b.Utf8(name))
	put4(&w, uint32(len(body)))
	w.Write(body)
	return w.Bytes()
}

func writeAttrs(w *bytes.Buffer, attrs [][]byte) {
	put2(w, uint16(len(attrs)))
	for _, a := range attrs {
		w.Write(a)
	}
}

// Bytes serializes the class file using major version 52.
func (b *Builder) Bytes() []byte {
	attrs := append([][]byte(nil), b.attrs...)
	if len(b.visible) > 0 {
		attrs = append(attrs, b.attribute("RuntimeVisibleAnnotations", b.annotations(b.visible)))
	}
	if len(b.invisible) > 0 {
		attrs = append(attrs, b.attribute("RuntimeInvisibleAnnotations", b.annotations(b.invisible)))
	}
	if len(b.bootstrap) > 0 {
		var bw bytes.Buffer
		put2(&bw, uint16(len(b.bootstrap)))
		for _, row := range b.bootstrap {
			bw.Write(row)
		}
		attrs = append(attrs, b.attribute("BootstrapMethods", bw.Bytes()))
	}

	var w bytes.Buffer
	put4(&w, magic)
	put2(&w, 0)
	put2(&w, 52)
	put2(&w, b.poolCount)
	w.Write(b.pool.Bytes())
	put2(&w, b.access)
	put2(&w, b.this)
	put2(&w, b.super)
	put2(&w, uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		put2(&w, i)
	}
	put2(&w, uint16(len(b.fields)))
	for _, f := range b.fields {
		w.Write(f)
	}
	put2(&w, uint16(len(b.methods)))
	for _, m := range b.methods {
		w.Write(m)
	}
	writeAttrs(&w, attrs)
	return w.Bytes()
}

func encodeMUTF8(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xc0|byte(u>>6), 0x80|byte(u&0x3f))
		default:
			out = append(out, 0xe0|byte(u>>12), 0x80|byte(u>>6&0x3f), 0x80|byte(u&0x3f))
		}
	}
	return out
}
