package classfile

import (
	"strings"

	"go.trai.ch/zerr"
)

// ParseMethodDescriptor splits a method descriptor into parameter and return descriptors.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", badDescriptor(desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n := fieldDescriptorLen(desc[i:])
		if n == 0 {
			return nil, "", badDescriptor(desc)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", badDescriptor(desc)
	}
	ret = desc[i+1:]
	if ret == "" || (ret != "V" && fieldDescriptorLen(ret) != len(ret)) {
		return nil, "", badDescriptor(desc)
	}
	return params, ret, nil
}

// MethodDescriptor joins parameter and return descriptors.
func MethodDescriptor(params []string, ret string) string {
	return "(" + strings.Join(params, "") + ")" + ret
}

func badDescriptor(desc string) error {
	return malformed(zerr.With(zerr.New("invalid descriptor"), "descriptor", desc))
}

func fieldDescriptorLen(s string) int {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 2 {
			return 0
		}
		return i + end + 1
	default:
		return 0
	}
}

// Slots returns the number of local or stack slots a value of the descriptor occupies.
func Slots(desc string) int {
	switch desc {
	case "V":
		return 0
	case "J", "D":
		return 2
	default:
		return 1
	}
}

// ArgSlots sums the slots of the parameter descriptors.
func ArgSlots(params []string) int {
	n := 0
	for _, p := range params {
		n += Slots(p)
	}
	return n
}

// IsReference reports whether the descriptor denotes an object or array type.
func IsReference(desc string) bool {
	return desc != "" && (desc[0] == 'L' || desc[0] == '[')
}

// TypeDescriptor turns an internal name or array descriptor into a type descriptor.
func TypeDescriptor(name string) string {
	if strings.HasPrefix(name, "[") {
		return name
	}
	return "L" + name + ";"
}

// InternalName turns an object type descriptor back into an internal name.
// Array descriptors are returned unchanged.
func InternalName(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}
