// Package classfile parses JVM class files into a structural model and assembles new ones.
package classfile

// Class is a parsed class file.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         *Pool
	AccessFlags  uint16
	// Name is the internal name, e.g. "com/x/Foo".
	Name string
	// SuperName is empty for java/lang/Object and module-info.
	SuperName  string
	Interfaces []string
	Fields     []*Field
	Methods    []*Method
	SourceFile string
	// Visible and Invisible hold RuntimeVisibleAnnotations and RuntimeInvisibleAnnotations.
	Visible   []Annotation
	Invisible []Annotation
	Bootstrap []BootstrapMethod
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.AccessFlags&AccInterface != 0
}

// IsModule reports whether the class file is a module descriptor.
func (c *Class) IsModule() bool {
	return c.AccessFlags&AccModule != 0
}

// Annotations returns both retention groups, visible first.
func (c *Class) Annotations() []Annotation {
	out := make([]Annotation, 0, len(c.Visible)+len(c.Invisible))
	out = append(out, c.Visible...)
	return append(out, c.Invisible...)
}

// Method looks up a declared method by name and descriptor.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// Field is a declared field.
type Field struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	// Constant is the ConstantValue attribute, nil when absent.
	Constant Value
	Visible  []Annotation
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool {
	return f.AccessFlags&AccStatic != 0
}

// Method is a declared method.
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	// Code is nil for abstract and native methods.
	Code       *Code
	Exceptions []string
	Visible    []Annotation
	// Parameters holds MethodParameters names; empty names are unnamed.
	Parameters []string
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// IsConstructor reports whether the method is an instance or class initializer.
func (m *Method) IsConstructor() bool {
	return m.Name == "<init>" || m.Name == "<clinit>"
}

// Code is a Code attribute.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16
	Bytecode  []byte
	Handlers  []ExceptionHandler
	Lines     []LineNumber
	Locals    []LocalVariable
}

// ExceptionHandler is one exception table row. CatchType is empty for catch-all handlers.
type ExceptionHandler struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType string
}

// LineNumber maps a bytecode offset to a source line.
type LineNumber struct {
	PC   int
	Line int
}

// LocalVariable is one LocalVariableTable row.
type LocalVariable struct {
	StartPC    int
	Length     int
	Name       string
	Descriptor string
	Index      int
}

// BootstrapMethod is one BootstrapMethods row.
type BootstrapMethod struct {
	Handle    MethodHandle
	Arguments []Value
}

// Annotation is a parsed annotation with its element values.
type Annotation struct {
	// Type is the annotation type descriptor, e.g. "Ldexer/annotation/Plugin;".
	Type     string
	Elements []Element
}

// Element is a named annotation element.
type Element struct {
	Name  string
	Value ElementValue
}

// ElementValue is an annotation element value. Tag selects the populated field:
// B C D F I J S Z s use Const, e uses EnumType and EnumName, c uses Class,
// @ uses Annotation and [ uses Array.
type ElementValue struct {
	Tag        byte
	Const      Value
	EnumType   string
	EnumName   string
	Class      string
	Annotation *Annotation
	Array      []ElementValue
}
