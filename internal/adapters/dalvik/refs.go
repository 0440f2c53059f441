package dalvik

import (
	"strings"

	"go.trai.ch/dexer/internal/adapters/classfile"
)

// Proto is a method prototype made of type descriptors.
type Proto struct {
	Return string
	Params []string
}

// ParseProto converts a JVM method descriptor into a Proto.
func ParseProto(desc string) (Proto, error) {
	params, ret, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return Proto{}, err
	}
	return Proto{Return: ret, Params: params}, nil
}

// Descriptor renders the prototype as a JVM method descriptor.
func (p Proto) Descriptor() string {
	return classfile.MethodDescriptor(p.Params, p.Return)
}

// Shorty returns the DEX short-form descriptor.
func (p Proto) Shorty() string {
	var b strings.Builder
	b.WriteByte(shortyChar(p.Return))
	for _, param := range p.Params {
		b.WriteByte(shortyChar(param))
	}
	return b.String()
}

// ArgUnits counts the registers taken by the parameters.
func (p Proto) ArgUnits() int {
	return classfile.ArgSlots(p.Params)
}

func shortyChar(desc string) byte {
	if classfile.IsReference(desc) {
		return 'L'
	}
	return desc[0]
}

// Prepend returns a copy of the prototype with desc inserted as first parameter.
func (p Proto) Prepend(desc string) Proto {
	params := make([]string, 0, len(p.Params)+1)
	params = append(params, desc)
	return Proto{Return: p.Return, Params: append(params, p.Params...)}
}

// MethodRef identifies a method by defining class descriptor, name and prototype.
type MethodRef struct {
	Class string
	Name  string
	Proto Proto
}

// Key returns a stable identity string for maps and sorting.
func (m MethodRef) Key() string {
	return m.Class + "->" + m.Name + m.Proto.Descriptor()
}

func (m MethodRef) String() string {
	return m.Key()
}

// FieldRef identifies a field by defining class descriptor, name and type descriptor.
type FieldRef struct {
	Class string
	Name  string
	Type  string
}

// Key returns a stable identity string for maps and sorting.
func (f FieldRef) Key() string {
	return f.Class + "->" + f.Name + ":" + f.Type
}

func (f FieldRef) String() string {
	return f.Key()
}

// TypeRef is a type descriptor operand of const-class, check-cast, instance-of,
// new-instance and new-array.
type TypeRef string

// StringRef is the operand of const-string.
type StringRef string
