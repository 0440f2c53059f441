package classfile

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
	"unicode/utf8"

	"go.trai.ch/zerr"
)

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(msg string) {
	if r.err == nil {
		r.err = malformed(zerr.With(zerr.New(msg), "offset", r.off))
	}
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail("unexpected end of class file")
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u1() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Parse decodes a complete class file.
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}
	c, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	fieldCount := int(r.u2())
	for range fieldCount {
		f, err := parseField(r, c.Pool)
		if err != nil {
			return nil, err
		}
		c.Fields = append(c.Fields, f)
	}
	methodCount := int(r.u2())
	for range methodCount {
		m, err := parseMethod(r, c.Pool)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}
	if err := parseAttributes(r, c.Pool, func(name string, body *reader) error {
		var err error
		switch name {
		case "SourceFile":
			c.SourceFile, err = c.Pool.UTF8(body.u2())
		case "RuntimeVisibleAnnotations":
			c.Visible, err = parseAnnotations(body, c.Pool)
		case "RuntimeInvisibleAnnotations":
			c.Invisible, err = parseAnnotations(body, c.Pool)
		case "BootstrapMethods":
			c.Bootstrap, err = parseBootstrap(body, c.Pool)
		}
		return err
	}); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(data) {
		r.fail("trailing bytes after class file")
		return nil, r.err
	}
	return c, nil
}

// ParseHeader decodes the constant pool, access flags, names and interfaces only.
// Fields, methods and attributes are not read.
func ParseHeader(data []byte) (*Class, error) {
	return parseHeader(&reader{data: data})
}

func parseHeader(r *reader) (*Class, error) {
	if r.u4() != magic {
		r.fail("bad magic number")
		return nil, r.err
	}
	c := &Class{}
	c.MinorVersion = r.u2()
	c.MajorVersion = r.u2()
	pool, err := parsePool(r)
	if err != nil {
		return nil, err
	}
	c.Pool = pool
	c.AccessFlags = r.u2()
	this := r.u2()
	super := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if c.Name, err = pool.ClassName(this); err != nil {
		return nil, err
	}
	if super != 0 {
		if c.SuperName, err = pool.ClassName(super); err != nil {
			return nil, err
		}
	}
	n := int(r.u2())
	for range n {
		name, err := pool.ClassName(r.u2())
		if r.err != nil {
			return nil, r.err
		}
		if err != nil {
			return nil, err
		}
		c.Interfaces = append(c.Interfaces, name)
	}
	return c, r.err
}

func parsePool(r *reader) (*Pool, error) {
	count := int(r.u2())
	p := &Pool{entries: make([]Constant, count)}
	for i := 1; i < count; i++ {
		tag := r.u1()
		c := Constant{Tag: tag}
		switch tag {
		case TagUtf8:
			n := int(r.u2())
			c.Str = decodeMUTF8(r.bytes(n))
		case TagInteger, TagFloat:
			c.Bits = uint64(r.u4())
		case TagLong, TagDouble:
			hi := uint64(r.u4())
			c.Bits = hi<<32 | uint64(r.u4())
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.u2()
			c.B = r.u2()
		case TagMethodHandle:
			c.A = uint16(r.u1())
			c.B = r.u2()
		default:
			r.fail("unknown constant pool tag")
		}
		if r.err != nil {
			return nil, r.err
		}
		p.entries[i] = c
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}
	return p, nil
}

// decodeMUTF8 decodes the modified UTF-8 used by class files.
func decodeMUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0 && i+1 < len(b):
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0 && i+2 < len(b):
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			units = append(units, uint16(utf8.RuneError))
			i++
		}
	}
	return string(utf16.Decode(units))
}

func parseAttributes(r *reader, pool *Pool, visit func(name string, body *reader) error) error {
	n := int(r.u2())
	for range n {
		nameIdx := r.u2()
		length := int(r.u4())
		data := r.bytes(length)
		if r.err != nil {
			return r.err
		}
		name, err := pool.UTF8(nameIdx)
		if err != nil {
			return err
		}
		body := &reader{data: data}
		if err := visit(name, body); err != nil {
			return err
		}
		if body.err != nil {
			return body.err
		}
	}
	return nil
}

func parseField(r *reader, pool *Pool) (*Field, error) {
	f := &Field{AccessFlags: r.u2()}
	nameIdx, descIdx := r.u2(), r.u2()
	if r.err != nil {
		return nil, r.err
	}
	var err error
	if f.Name, err = pool.UTF8(nameIdx); err != nil {
		return nil, err
	}
	if f.Descriptor, err = pool.UTF8(descIdx); err != nil {
		return nil, err
	}
	err = parseAttributes(r, pool, func(name string, body *reader) error {
		var err error
		switch name {
		case "ConstantValue":
			f.Constant, err = pool.Loadable(body.u2())
		case "RuntimeVisibleAnnotations":
			f.Visible, err = parseAnnotations(body, pool)
		}
		return err
	})
	return f, err
}

func parseMethod(r *reader, pool *Pool) (*Method, error) {
	m := &Method{AccessFlags: r.u2()}
	nameIdx, descIdx := r.u2(), r.u2()
	if r.err != nil {
		return nil, r.err
	}
	var err error
	if m.Name, err = pool.UTF8(nameIdx); err != nil {
		return nil, err
	}
	if m.Descriptor, err = pool.UTF8(descIdx); err != nil {
		return nil, err
	}
	err = parseAttributes(r, pool, func(name string, body *reader) error {
		var err error
		switch name {
		case "Code":
			m.Code, err = parseCode(body, pool)
		case "Exceptions":
			n := int(body.u2())
			for range n {
				var ex string
				if ex, err = pool.ClassName(body.u2()); err != nil {
					return err
				}
				m.Exceptions = append(m.Exceptions, ex)
			}
		case "RuntimeVisibleAnnotations":
			m.Visible, err = parseAnnotations(body, pool)
		case "MethodParameters":
			n := int(body.u1())
			for range n {
				idx := body.u2()
				body.u2()
				var pname string
				if idx != 0 {
					if pname, err = pool.UTF8(idx); err != nil {
						return err
					}
				}
				m.Parameters = append(m.Parameters, pname)
			}
		}
		return err
	})
	return m, err
}

func parseCode(r *reader, pool *Pool) (*Code, error) {
	c := &Code{MaxStack: r.u2(), MaxLocals: r.u2()}
	n := int(r.u4())
	c.Bytecode = r.bytes(n)
	handlers := int(r.u2())
	for range handlers {
		h := ExceptionHandler{StartPC: int(r.u2()), EndPC: int(r.u2()), HandlerPC: int(r.u2())}
		catchIdx := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		if catchIdx != 0 {
			var err error
			if h.CatchType, err = pool.ClassName(catchIdx); err != nil {
				return nil, err
			}
		}
		c.Handlers = append(c.Handlers, h)
	}
	if r.err != nil {
		return nil, r.err
	}
	err := parseAttributes(r, pool, func(name string, body *reader) error {
		switch name {
		case "LineNumberTable":
			n := int(body.u2())
			for range n {
				c.Lines = append(c.Lines, LineNumber{PC: int(body.u2()), Line: int(body.u2())})
			}
		case "LocalVariableTable":
			n := int(body.u2())
			for range n {
				lv := LocalVariable{StartPC: int(body.u2()), Length: int(body.u2())}
				nameIdx, descIdx := body.u2(), body.u2()
				lv.Index = int(body.u2())
				if body.err != nil {
					return body.err
				}
				var err error
				if lv.Name, err = pool.UTF8(nameIdx); err != nil {
					return err
				}
				if lv.Descriptor, err = pool.UTF8(descIdx); err != nil {
					return err
				}
				c.Locals = append(c.Locals, lv)
			}
		}
		return nil
	})
	return c, err
}

func parseBootstrap(r *reader, pool *Pool) ([]BootstrapMethod, error) {
	n := int(r.u2())
	out := make([]BootstrapMethod, 0, n)
	for range n {
		h, err := pool.MethodHandle(r.u2())
		if err != nil {
			return nil, err
		}
		bm := BootstrapMethod{Handle: h}
		argc := int(r.u2())
		for range argc {
			v, err := pool.Loadable(r.u2())
			if err != nil {
				return nil, err
			}
			bm.Arguments = append(bm.Arguments, v)
		}
		out = append(out, bm)
	}
	return out, r.err
}

func parseAnnotations(r *reader, pool *Pool) ([]Annotation, error) {
	n := int(r.u2())
	out := make([]Annotation, 0, n)
	for range n {
		a, err := parseAnnotation(r, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, r.err
}

func parseAnnotation(r *reader, pool *Pool) (Annotation, error) {
	typ, err := pool.UTF8(r.u2())
	if err != nil {
		return Annotation{}, err
	}
	a := Annotation{Type: typ}
	n := int(r.u2())
	for range n {
		name, err := pool.UTF8(r.u2())
		if err != nil {
			return Annotation{}, err
		}
		v, err := parseElementValue(r, pool)
		if err != nil {
			return Annotation{}, err
		}
		a.Elements = append(a.Elements, Element{Name: name, Value: v})
	}
	return a, r.err
}

func parseElementValue(r *reader, pool *Pool) (ElementValue, error) {
	v := ElementValue{Tag: r.u1()}
	if r.err != nil {
		return v, r.err
	}
	var err error
	switch v.Tag {
	case 'B', 'C', 'I', 'S', 'Z':
		var c Constant
		if c, err = pool.entry(r.u2(), TagInteger); err == nil {
			v.Const = int32(uint32(c.Bits))
		}
	case 'J':
		var c Constant
		if c, err = pool.entry(r.u2(), TagLong); err == nil {
			v.Const = int64(c.Bits)
		}
	case 'F':
		var c Constant
		if c, err = pool.entry(r.u2(), TagFloat); err == nil {
			v.Const = math.Float32frombits(uint32(c.Bits))
		}
	case 'D':
		var c Constant
		if c, err = pool.entry(r.u2(), TagDouble); err == nil {
			v.Const = math.Float64frombits(c.Bits)
		}
	case 's':
		v.Const, err = pool.UTF8(r.u2())
	case 'e':
		if v.EnumType, err = pool.UTF8(r.u2()); err == nil {
			v.EnumName, err = pool.UTF8(r.u2())
		}
	case 'c':
		v.Class, err = pool.UTF8(r.u2())
	case '@':
		var a Annotation
		if a, err = parseAnnotation(r, pool); err == nil {
			v.Annotation = &a
		}
	case '[':
		n := int(r.u2())
		for range n {
			var e ElementValue
			if e, err = parseElementValue(r, pool); err != nil {
				break
			}
			v.Array = append(v.Array, e)
		}
	default:
		r.fail("unknown element value tag")
	}
	if err != nil {
		return v, err
	}
	return v, r.err
}
