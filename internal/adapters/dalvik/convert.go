package dalvik

import (
	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/zerr"
)

const classAccessMask = uint32(classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected |
	classfile.AccStatic | classfile.AccFinal | classfile.AccInterface | classfile.AccAbstract |
	classfile.AccSynthetic | classfile.AccAnnotation | classfile.AccEnum)

// ConvertClass translates a parsed class file into the program model.
func ConvertClass(c *classfile.Class) (*Class, error) {
	if c.IsModule() {
		return nil, unsupported("module descriptors have no dex representation")
	}
	out := &Class{
		Type:        classfile.TypeDescriptor(c.Name),
		Access:      uint32(c.AccessFlags) & classAccessMask,
		SourceFile:  c.SourceFile,
		Annotations: annotations(c.Visible),
	}
	if c.SuperName != "" {
		out.Super = classfile.TypeDescriptor(c.SuperName)
	}
	for _, i := range c.Interfaces {
		out.Interfaces = append(out.Interfaces, classfile.TypeDescriptor(i))
	}
	for _, f := range c.Fields {
		field := &Field{
			Ref:         FieldRef{Class: out.Type, Name: f.Name, Type: f.Descriptor},
			Access:      uint32(f.AccessFlags),
			Annotations: annotations(f.Visible),
		}
		if f.IsStatic() && f.Constant != nil {
			v, err := constantValue(f.Descriptor, f.Constant)
			if err != nil {
				return nil, zerr.With(err, "field", f.Name)
			}
			field.Initial = &v
		}
		out.Fields = append(out.Fields, field)
	}
	for _, m := range c.Methods {
		method, err := ConvertMethod(c, m)
		if err != nil {
			return nil, zerr.With(err, "method", m.Name+m.Descriptor)
		}
		out.Methods = append(out.Methods, method)
	}
	return out, nil
}

// ConvertMethod translates one method, including its body.
func ConvertMethod(c *classfile.Class, m *classfile.Method) (*Method, error) {
	proto, err := ParseProto(m.Descriptor)
	if err != nil {
		return nil, err
	}
	access := uint32(m.AccessFlags)
	if m.IsConstructor() {
		access |= AccConstructor
	}
	if access&uint32(classfile.AccSynchronized) != 0 && access&uint32(classfile.AccNative) == 0 {
		access = access&^uint32(classfile.AccSynchronized) | AccDeclaredSynchronized
	}
	body, err := TranslateMethod(c, m)
	if err != nil {
		return nil, err
	}
	return &Method{
		Ref:         MethodRef{Class: classfile.TypeDescriptor(c.Name), Name: m.Name, Proto: proto},
		Access:      access,
		Code:        body,
		Annotations: annotations(m.Visible),
	}, nil
}

func constantValue(desc string, v classfile.Value) (EncodedValue, error) {
	switch v := v.(type) {
	case int32:
		switch desc {
		case "Z":
			b := int64(0)
			if v != 0 {
				b = 1
			}
			return EncodedValue{Kind: ValueBoolean, Int: b}, nil
		case "B":
			return EncodedValue{Kind: ValueByte, Int: int64(int8(v))}, nil
		case "S":
			return EncodedValue{Kind: ValueShort, Int: int64(int16(v))}, nil
		case "C":
			return EncodedValue{Kind: ValueChar, Int: int64(uint16(v))}, nil
		default:
			return EncodedValue{Kind: ValueInt, Int: int64(v)}, nil
		}
	case int64:
		return EncodedValue{Kind: ValueLong, Int: v}, nil
	case float32:
		return EncodedValue{Kind: ValueFloat, Float: float64(v)}, nil
	case float64:
		return EncodedValue{Kind: ValueDouble, Float: v}, nil
	case string:
		return EncodedValue{Kind: ValueString, Str: v}, nil
	}
	return EncodedValue{}, malformed("unsupported ConstantValue type")
}

func annotations(list []classfile.Annotation) []Annotation {
	if len(list) == 0 {
		return nil
	}
	out := make([]Annotation, 0, len(list))
	for _, a := range list {
		out = append(out, annotation(a, VisibilityRuntime))
	}
	return out
}

func annotation(a classfile.Annotation, visibility byte) Annotation {
	out := Annotation{Visibility: visibility, Type: a.Type}
	for _, e := range a.Elements {
		out.Elements = append(out.Elements, AnnotationElement{Name: e.Name, Value: elementValue(e.Value)})
	}
	return out
}

func elementValue(v classfile.ElementValue) EncodedValue {
	switch v.Tag {
	case 'B', 'C', 'I', 'S', 'Z', 'J', 'F', 'D', 's':
		c, _ := constantValue(string(v.Tag), v.Const)
		return c
	case 'e':
		return EncodedValue{Kind: ValueEnum, Field: FieldRef{Class: v.EnumType, Name: v.EnumName, Type: v.EnumType}}
	case 'c':
		return EncodedValue{Kind: ValueType, Str: v.Class}
	case '@':
		a := annotation(*v.Annotation, VisibilityRuntime)
		return EncodedValue{Kind: ValueAnnotation, Annotation: &a}
	default:
		arr := EncodedValue{Kind: ValueArray}
		for _, e := range v.Array {
			arr.Array = append(arr.Array, elementValue(e))
		}
		return arr
	}
}
