package dex

import (
	"cmp"
	"slices"

	"go.trai.ch/dexer/internal/adapters/dalvik"
)

// pool collects every identifier a file refers to and assigns the sorted id indices.
type pool struct {
	strings map[string]uint32
	types   map[string]uint32
	protos  map[string]uint32
	fields  map[string]uint32
	methods map[string]uint32

	stringList []string
	typeList   []string
	protoList  []dalvik.Proto
	fieldList  []dalvik.FieldRef
	methodList []dalvik.MethodRef

	pendingProtos  map[string]dalvik.Proto
	pendingFields  map[string]dalvik.FieldRef
	pendingMethods map[string]dalvik.MethodRef
}

func newPool() *pool {
	return &pool{
		strings:        make(map[string]uint32),
		types:          make(map[string]uint32),
		protos:         make(map[string]uint32),
		fields:         make(map[string]uint32),
		methods:        make(map[string]uint32),
		pendingProtos:  make(map[string]dalvik.Proto),
		pendingFields:  make(map[string]dalvik.FieldRef),
		pendingMethods: make(map[string]dalvik.MethodRef),
	}
}

func (p *pool) addString(s string) {
	p.strings[s] = 0
}

func (p *pool) addType(desc string) {
	p.addString(desc)
	p.types[desc] = 0
}

func (p *pool) addProto(proto dalvik.Proto) {
	p.addString(proto.Shorty())
	p.addType(proto.Return)
	for _, t := range proto.Params {
		p.addType(t)
	}
	p.pendingProtos[proto.Descriptor()] = proto
}

func (p *pool) addField(f dalvik.FieldRef) {
	p.addType(f.Class)
	p.addString(f.Name)
	p.addType(f.Type)
	p.pendingFields[f.Key()] = f
}

func (p *pool) addMethod(m dalvik.MethodRef) {
	p.addType(m.Class)
	p.addString(m.Name)
	p.addProto(m.Proto)
	p.pendingMethods[m.Key()] = m
}

// freeze sorts every section and fixes the indices. No identifier may be added afterwards.
func (p *pool) freeze() {
	p.stringList = sortedKeys(p.strings, compareUTF16)
	for i, s := range p.stringList {
		p.strings[s] = uint32(i)
	}
	p.typeList = sortedKeys(p.types, func(a, b string) int { return cmp.Compare(p.strings[a], p.strings[b]) })
	for i, t := range p.typeList {
		p.types[t] = uint32(i)
	}

	for _, proto := range p.pendingProtos {
		p.protoList = append(p.protoList, proto)
	}
	slices.SortFunc(p.protoList, p.compareProtos)
	for i, proto := range p.protoList {
		p.protos[proto.Descriptor()] = uint32(i)
	}

	for _, f := range p.pendingFields {
		p.fieldList = append(p.fieldList, f)
	}
	slices.SortFunc(p.fieldList, func(a, b dalvik.FieldRef) int {
		return cmp.Or(
			cmp.Compare(p.types[a.Class], p.types[b.Class]),
			cmp.Compare(p.strings[a.Name], p.strings[b.Name]),
			cmp.Compare(p.types[a.Type], p.types[b.Type]),
		)
	})
	for i, f := range p.fieldList {
		p.fields[f.Key()] = uint32(i)
	}

	for _, m := range p.pendingMethods {
		p.methodList = append(p.methodList, m)
	}
	slices.SortFunc(p.methodList, func(a, b dalvik.MethodRef) int {
		return cmp.Or(
			cmp.Compare(p.types[a.Class], p.types[b.Class]),
			cmp.Compare(p.strings[a.Name], p.strings[b.Name]),
			cmp.Compare(p.protos[a.Proto.Descriptor()], p.protos[b.Proto.Descriptor()]),
		)
	})
	for i, m := range p.methodList {
		p.methods[m.Key()] = uint32(i)
	}
}

func (p *pool) compareProtos(a, b dalvik.Proto) int {
	if c := cmp.Compare(p.types[a.Return], p.types[b.Return]); c != 0 {
		return c
	}
	for i := 0; i < len(a.Params) && i < len(b.Params); i++ {
		if c := cmp.Compare(p.types[a.Params[i]], p.types[b.Params[i]]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a.Params), len(b.Params))
}

func sortedKeys(m map[string]uint32, compare func(a, b string) int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}

// StringIndex implements dalvik.Indexer.
func (p *pool) StringIndex(s string) uint32 { return p.strings[s] }

// TypeIndex implements dalvik.Indexer.
func (p *pool) TypeIndex(desc string) uint32 { return p.types[desc] }

// FieldIndex implements dalvik.Indexer.
func (p *pool) FieldIndex(f dalvik.FieldRef) uint32 { return p.fields[f.Key()] }

// MethodIndex implements dalvik.Indexer.
func (p *pool) MethodIndex(m dalvik.MethodRef) uint32 { return p.methods[m.Key()] }

func (p *pool) protoIndex(proto dalvik.Proto) uint32 { return p.protos[proto.Descriptor()] }

// addValue adds the identifiers of an encoded value.
func (p *pool) addValue(v dalvik.EncodedValue) {
	switch v.Kind {
	case dalvik.ValueString:
		p.addString(v.Str)
	case dalvik.ValueType:
		p.addType(v.Str)
	case dalvik.ValueField, dalvik.ValueEnum:
		p.addField(v.Field)
	case dalvik.ValueMethod:
		p.addMethod(v.Method)
	case dalvik.ValueArray:
		for _, e := range v.Array {
			p.addValue(e)
		}
	case dalvik.ValueAnnotation:
		p.addAnnotation(*v.Annotation)
	}
}

func (p *pool) addAnnotation(a dalvik.Annotation) {
	p.addType(a.Type)
	for _, e := range a.Elements {
		p.addString(e.Name)
		p.addValue(e.Value)
	}
}

// addBody adds the identifiers referenced by the instructions, handlers and,
// when debug is set, the debug information of b.
func (p *pool) addBody(b *dalvik.Body, debug bool) {
	for _, in := range b.Insns {
		switch ref := in.Ref.(type) {
		case dalvik.StringRef:
			p.addString(string(ref))
		case dalvik.TypeRef:
			p.addType(string(ref))
		case dalvik.FieldRef:
			p.addField(ref)
		case dalvik.MethodRef:
			p.addMethod(ref)
		}
	}
	for _, t := range b.Tries {
		for _, c := range t.Catches {
			p.addType(c.Type)
		}
	}
	if !debug {
		return
	}
	for _, name := range b.Params {
		if name != "" {
			p.addString(name)
		}
	}
	for _, l := range b.Locals {
		p.addString(l.Name)
		p.addType(l.Type)
	}
}

// addClass adds every identifier of c.
func (p *pool) addClass(c *dalvik.Class, debug bool) {
	p.addType(c.Type)
	if c.Super != "" {
		p.addType(c.Super)
	}
	for _, i := range c.Interfaces {
		p.addType(i)
	}
	if c.SourceFile != "" {
		p.addString(c.SourceFile)
	}
	for _, a := range c.Annotations {
		p.addAnnotation(a)
	}
	for _, f := range c.Fields {
		p.addField(f.Ref)
		if f.Initial != nil {
			p.addValue(*f.Initial)
		}
		for _, a := range f.Annotations {
			p.addAnnotation(a)
		}
	}
	for _, m := range c.Methods {
		p.addMethod(m.Ref)
		for _, a := range m.Annotations {
			p.addAnnotation(a)
		}
		if m.Code != nil {
			p.addBody(m.Code, debug)
		}
	}
}
