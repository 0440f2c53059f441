package dalvik

import "math"

// DEX access flags beyond the JVM set.
const (
	AccConstructor          uint32 = 0x10000
	AccDeclaredSynchronized uint32 = 0x20000
)

// Annotation visibilities.
const (
	VisibilityBuild   byte = 0x00
	VisibilityRuntime byte = 0x01
	VisibilitySystem  byte = 0x02
)

// Class is one class definition in the program model shared by desugaring and the DEX writer.
type Class struct {
	// Type is the class descriptor, e.g. "Lcom/x/Foo;".
	Type string
	// Super is the super class descriptor; empty only for java.lang.Object.
	Super       string
	Interfaces  []string
	Access      uint32
	SourceFile  string
	Annotations []Annotation
	Fields      []*Field
	Methods     []*Method
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.Access&0x0200 != 0
}

// FindMethod returns the declared method with the given name and prototype.
func (c *Class) FindMethod(name string, proto Proto) *Method {
	for _, m := range c.Methods {
		if m.Ref.Name == name && m.Ref.Proto.Descriptor() == proto.Descriptor() {
			return m
		}
	}
	return nil
}

// Field is a declared field.
type Field struct {
	Ref    FieldRef
	Access uint32
	// Initial is the static initial value, nil for none.
	Initial     *EncodedValue
	Annotations []Annotation
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool {
	return f.Access&0x0008 != 0
}

// Method is a declared method.
type Method struct {
	Ref    MethodRef
	Access uint32
	// Code is nil for abstract and native methods.
	Code        *Body
	Annotations []Annotation
}

// IsDirect reports whether the method belongs in the direct method list:
// static, private or a constructor.
func (m *Method) IsDirect() bool {
	return m.Access&(0x0008|0x0002|AccConstructor) != 0
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool {
	return m.Access&0x0008 != 0
}

// Annotation is an annotation attached to a class, field or method.
type Annotation struct {
	Visibility byte
	Type       string
	Elements   []AnnotationElement
}

// AnnotationElement is a named annotation value.
type AnnotationElement struct {
	Name  string
	Value EncodedValue
}

// ValueKind is the DEX encoded_value type.
type ValueKind byte

// Encoded value kinds.
const (
	ValueByte       ValueKind = 0x00
	ValueShort      ValueKind = 0x02
	ValueChar       ValueKind = 0x03
	ValueInt        ValueKind = 0x04
	ValueLong       ValueKind = 0x06
	ValueFloat      ValueKind = 0x10
	ValueDouble     ValueKind = 0x11
	ValueString     ValueKind = 0x17
	ValueType       ValueKind = 0x18
	ValueField      ValueKind = 0x19
	ValueMethod     ValueKind = 0x1a
	ValueEnum       ValueKind = 0x1b
	ValueArray      ValueKind = 0x1c
	ValueAnnotation ValueKind = 0x1d
	ValueNull       ValueKind = 0x1e
	ValueBoolean    ValueKind = 0x1f
)

// EncodedValue is a constant used by static initial values and annotations.
type EncodedValue struct {
	Kind ValueKind
	// Int holds integral and boolean values.
	Int int64
	// Float holds float and double values.
	Float float64
	// Str holds string values and type descriptors.
	Str        string
	Field      FieldRef
	Method     MethodRef
	Array      []EncodedValue
	Annotation *Annotation
}

// IsDefault reports whether the value equals the zero value of its type,
// which static initial value arrays may omit at the tail.
func (v EncodedValue) IsDefault() bool {
	switch v.Kind {
	case ValueByte, ValueShort, ValueChar, ValueInt, ValueLong, ValueBoolean:
		return v.Int == 0
	case ValueFloat, ValueDouble:
		return v.Float == 0 && !math.Signbit(v.Float)
	case ValueNull:
		return true
	default:
		return false
	}
}
