package desugar

import (
	"strconv"
	"strings"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dalvik"
)

const (
	concatFactory = "java/lang/invoke/StringConcatFactory"

	recipeArg   = '\u0001'
	recipeConst = '\u0002'

	stringType  = "Ljava/lang/String;"
	builderType = "Ljava/lang/StringBuilder;"
)

// concatPart is either literal text or the index of a call site argument.
type concatPart struct {
	text string
	arg  int
}

func concatParts(site *dalvik.CallSite) ([]concatPart, bool, error) {
	bsm := site.Bootstrap.Ref
	if bsm.Class != concatFactory {
		return nil, false, nil
	}
	n := len(site.Proto.Params)
	if bsm.Name == "makeConcat" {
		parts := make([]concatPart, n)
		for i := range parts {
			parts[i] = concatPart{arg: i}
		}
		return parts, true, nil
	}
	if bsm.Name != "makeConcatWithConstants" || len(site.Arguments) == 0 {
		return nil, false, unsupported("unknown string concatenation bootstrap")
	}
	recipe, ok := site.Arguments[0].(string)
	if !ok {
		return nil, false, unsupported("string concatenation recipe is not a string")
	}
	consts := site.Arguments[1:]

	var parts []concatPart
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, concatPart{text: text.String(), arg: -1})
			text.Reset()
		}
	}
	next := 0
	for _, r := range recipe {
		switch r {
		case recipeArg:
			if next >= n {
				return nil, false, unsupported("string concatenation recipe references too many arguments")
			}
			flush()
			parts = append(parts, concatPart{arg: next})
			next++
		case recipeConst:
			if len(consts) == 0 {
				return nil, false, unsupported("string concatenation recipe references too many constants")
			}
			s, err := constText(consts[0])
			if err != nil {
				return nil, false, err
			}
			text.WriteString(s)
			consts = consts[1:]
		default:
			text.WriteRune(r)
		}
	}
	flush()
	return parts, true, nil
}

func constText(v classfile.Value) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	return "", unsupported("string concatenation constant of unsupported type")
}

// appendParam returns the StringBuilder.append overload for a value of type desc.
func appendParam(desc string) string {
	switch desc {
	case "Z", "C", "I", "J", "F", "D", stringType, "Ljava/lang/CharSequence;":
		return desc
	case "B", "S":
		return "I"
	}
	return objectType
}

func builderAppend(param string) dalvik.MethodRef {
	return dalvik.MethodRef{
		Class: builderType,
		Name:  "append",
		Proto: dalvik.Proto{Return: builderType, Params: []string{param}},
	}
}

func (r *run) concats() error {
	return r.bodies(func(_ *dalvik.Class, m *dalvik.Method) error {
		return rewrite(m.Code, func(e *dalvik.Emitter, in dalvik.Insn) (bool, error) {
			if in.Op != dalvik.OpInvokeCustom {
				return false, nil
			}
			parts, ok, err := concatParts(in.Site)
			if err != nil || !ok {
				return false, err
			}
			emitConcat(e, in, parts)
			r.count(KindStringConcat)
			return true, nil
		})
	})
}

// emitConcat builds the string in a StringBuilder held in v0, staging each value in v1.
// The trailing toString leaves the result for the move-result that followed the call site.
func emitConcat(e *dalvik.Emitter, in dalvik.Insn, parts []concatPart) {
	params := in.Site.Proto.Params
	regs := make([]int, len(params))
	reg := in.A
	for i, p := range params {
		regs[i] = reg
		reg += classfile.Slots(p)
	}

	e.NewInstance(0, builderType)
	e.Invoke(dalvik.OpInvokeDirectRange, 0, 1, dalvik.MethodRef{Class: builderType, Name: "<init>", Proto: dalvik.Proto{Return: "V"}})
	for _, part := range parts {
		if part.arg < 0 {
			e.ConstString(1, part.text)
			e.Invoke(dalvik.OpInvokeVirtualRange, 0, 2, builderAppend(stringType))
			continue
		}
		t := params[part.arg]
		k := dalvik.KindOf(t)
		e.Move(k, 1, regs[part.arg])
		e.Invoke(dalvik.OpInvokeVirtualRange, 0, 1+k.Width(), builderAppend(appendParam(t)))
	}
	e.Invoke(dalvik.OpInvokeVirtualRange, 0, 1, dalvik.MethodRef{Class: builderType, Name: "toString", Proto: dalvik.Proto{Return: stringType}})
}
