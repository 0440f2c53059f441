package dex

import (
	"crypto/sha1" //nolint:gosec // format-defined signature
	"encoding/binary"
	"errors"
	"hash/adler32"
	"math"
	"slices"
	"strings"

	"go.trai.ch/dexer/internal/adapters/dalvik"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/zerr"
)

// Options controls DEX generation.
type Options struct {
	// MinAPI selects the format version.
	MinAPI int
	// Debug emits debug_info items. Everything else is identical with and without it.
	Debug bool
}

// mapItem is one entry of the map_list.
type mapItem struct {
	typ    uint16
	size   uint32
	offset uint32
}

// writer lays out one DEX file.
type writer struct {
	opts    Options
	pool    *pool
	classes []*dalvik.Class
	code    map[*dalvik.Method]*dalvik.Code

	dataOff uint32
	data    []byte
	items   []mapItem

	stringData  []uint32
	typeLists   map[string]uint32
	annotations map[string]uint32
	sets        map[string]uint32
	arrays      map[string]uint32
	classDirs   map[*dalvik.Class]uint32
	classData   map[*dalvik.Class]uint32
	staticVals  map[*dalvik.Class]uint32
	codeOffs    map[*dalvik.Method]uint32
}

// Write encodes classes into a single DEX file. Class order does not affect the result.
func Write(classes []*dalvik.Class, opts Options) ([]byte, error) {
	seen := make(map[string]bool, len(classes))
	for _, c := range classes {
		if seen[c.Type] {
			return nil, &dalvik.ClassError{Class: c.Type, Err: errors.Join(domain.ErrDuplicateClass, zerr.New("class defined twice"))}
		}
		seen[c.Type] = true
	}

	w := &writer{
		opts:        opts,
		pool:        newPool(),
		code:        make(map[*dalvik.Method]*dalvik.Code),
		typeLists:   make(map[string]uint32),
		annotations: make(map[string]uint32),
		sets:        make(map[string]uint32),
		arrays:      make(map[string]uint32),
		classDirs:   make(map[*dalvik.Class]uint32),
		classData:   make(map[*dalvik.Class]uint32),
		staticVals:  make(map[*dalvik.Class]uint32),
		codeOffs:    make(map[*dalvik.Method]uint32),
	}
	for _, c := range classes {
		w.pool.addClass(c, opts.Debug)
	}
	w.pool.freeze()
	if err := w.checkLimits(); err != nil {
		return nil, err
	}
	w.classes = w.order(classes)

	for _, c := range w.classes {
		for _, m := range c.Methods {
			if m.Code == nil {
				continue
			}
			code, err := dalvik.Assemble(m.Code, w.pool)
			if err != nil {
				return nil, &dalvik.ClassError{Class: c.Type, Err: zerr.With(err, "method", m.Ref.Key())}
			}
			w.code[m] = code
		}
	}
	return w.layout(), nil
}

func (w *writer) checkLimits() error {
	p := w.pool
	var section string
	switch {
	case len(p.typeList) > math.MaxUint16+1:
		section = "type_ids"
	case len(p.protoList) > math.MaxUint16+1:
		section = "proto_ids"
	case len(p.fieldList) > math.MaxUint16+1:
		section = "field_ids"
	case len(p.methodList) > math.MaxUint16+1:
		section = "method_ids"
	default:
		return nil
	}
	return zerr.With(errors.Join(domain.ErrUnsupportedConstruct, zerr.New("too many ids for a single dex file")), "section", section)
}

// order sorts classes by type and then moves every program supertype before its subtypes.
func (w *writer) order(classes []*dalvik.Class) []*dalvik.Class {
	sorted := slices.Clone(classes)
	slices.SortFunc(sorted, func(a, b *dalvik.Class) int {
		return int(w.pool.TypeIndex(a.Type)) - int(w.pool.TypeIndex(b.Type))
	})
	byType := make(map[string]*dalvik.Class, len(sorted))
	for _, c := range sorted {
		byType[c.Type] = c
	}
	out := make([]*dalvik.Class, 0, len(sorted))
	visited := make(map[*dalvik.Class]bool, len(sorted))
	var visit func(c *dalvik.Class)
	visit = func(c *dalvik.Class) {
		if c == nil || visited[c] {
			return
		}
		visited[c] = true
		visit(byType[c.Super])
		for _, i := range c.Interfaces {
			visit(byType[i])
		}
		out = append(out, c)
	}
	for _, c := range sorted {
		visit(c)
	}
	return out
}

func (w *writer) offset() uint32 {
	return w.dataOff + uint32(len(w.data))
}

func (w *writer) align() {
	for len(w.data)%4 != 0 {
		w.data = append(w.data, 0)
	}
}

func (w *writer) u16(v uint16) {
	w.data = binary.LittleEndian.AppendUint16(w.data, v)
}

func (w *writer) u32(v uint32) {
	w.data = binary.LittleEndian.AppendUint32(w.data, v)
}

// section records a map_list item for the items written since start.
func (w *writer) section(typ uint16, start uint32, count int) {
	if count > 0 {
		w.items = append(w.items, mapItem{typ: typ, size: uint32(count), offset: start})
	}
}

func (w *writer) layout() []byte {
	p := w.pool
	stringIDs := uint32(headerSize)
	typeIDs := stringIDs + 4*uint32(len(p.stringList))
	protoIDs := typeIDs + 4*uint32(len(p.typeList))
	fieldIDs := protoIDs + 12*uint32(len(p.protoList))
	methodIDs := fieldIDs + 8*uint32(len(p.fieldList))
	classDefs := methodIDs + 8*uint32(len(p.methodList))
	w.dataOff = classDefs + 32*uint32(len(w.classes))

	w.items = append(w.items, mapItem{typ: typeHeaderItem, size: 1})
	w.section(typeStringIDItem, stringIDs, len(p.stringList))
	w.section(typeTypeIDItem, typeIDs, len(p.typeList))
	w.section(typeProtoIDItem, protoIDs, len(p.protoList))
	w.section(typeFieldIDItem, fieldIDs, len(p.fieldList))
	w.section(typeMethodIDItem, methodIDs, len(p.methodList))
	w.section(typeClassDefItem, classDefs, len(w.classes))

	w.writeStringData()
	w.writeTypeLists()
	w.writeAnnotations()
	debugOffs := w.writeDebugInfo()
	w.writeCode(debugOffs)
	w.writeStaticValues()
	w.writeClassData()
	mapOff := w.writeMap()

	file := make([]byte, w.dataOff, int(w.dataOff)+len(w.data))
	file = append(file, w.data...)
	for len(file)%4 != 0 {
		file = append(file, 0)
	}

	for i, off := range w.stringData {
		binary.LittleEndian.PutUint32(file[stringIDs+4*uint32(i):], off)
	}
	for i, t := range p.typeList {
		binary.LittleEndian.PutUint32(file[typeIDs+4*uint32(i):], p.StringIndex(t))
	}
	for i, proto := range p.protoList {
		at := file[protoIDs+12*uint32(i):]
		binary.LittleEndian.PutUint32(at, p.StringIndex(proto.Shorty()))
		binary.LittleEndian.PutUint32(at[4:], p.TypeIndex(proto.Return))
		binary.LittleEndian.PutUint32(at[8:], w.typeLists[typeListKey(proto.Params)])
	}
	for i, f := range p.fieldList {
		at := file[fieldIDs+8*uint32(i):]
		binary.LittleEndian.PutUint16(at, uint16(p.TypeIndex(f.Class)))
		binary.LittleEndian.PutUint16(at[2:], uint16(p.TypeIndex(f.Type)))
		binary.LittleEndian.PutUint32(at[4:], p.StringIndex(f.Name))
	}
	for i, m := range p.methodList {
		at := file[methodIDs+8*uint32(i):]
		binary.LittleEndian.PutUint16(at, uint16(p.TypeIndex(m.Class)))
		binary.LittleEndian.PutUint16(at[2:], uint16(p.protoIndex(m.Proto)))
		binary.LittleEndian.PutUint32(at[4:], p.StringIndex(m.Name))
	}
	for i, c := range w.classes {
		w.putClassDef(file[classDefs+32*uint32(i):], c)
	}

	w.putHeader(file, mapOff, stringIDs, typeIDs, protoIDs, fieldIDs, methodIDs, classDefs)
	return file
}

func (w *writer) putClassDef(at []byte, c *dalvik.Class) {
	p := w.pool
	super, source := uint32(NoIndex), uint32(NoIndex)
	if c.Super != "" {
		super = p.TypeIndex(c.Super)
	}
	if c.SourceFile != "" {
		source = p.StringIndex(c.SourceFile)
	}
	binary.LittleEndian.PutUint32(at, p.TypeIndex(c.Type))
	binary.LittleEndian.PutUint32(at[4:], c.Access)
	binary.LittleEndian.PutUint32(at[8:], super)
	binary.LittleEndian.PutUint32(at[12:], w.typeLists[typeListKey(c.Interfaces)])
	binary.LittleEndian.PutUint32(at[16:], source)
	binary.LittleEndian.PutUint32(at[20:], w.classDirs[c])
	binary.LittleEndian.PutUint32(at[24:], w.classData[c])
	binary.LittleEndian.PutUint32(at[28:], w.staticVals[c])
}

func (w *writer) putHeader(file []byte, mapOff uint32, offs ...uint32) {
	p := w.pool
	copy(file, "dex\n"+VersionFor(w.opts.MinAPI)+"\x00")
	le := binary.LittleEndian
	le.PutUint32(file[32:], uint32(len(file)))
	le.PutUint32(file[36:], headerSize)
	le.PutUint32(file[40:], endianTag)
	le.PutUint32(file[52:], mapOff)

	counts := []int{len(p.stringList), len(p.typeList), len(p.protoList), len(p.fieldList), len(p.methodList), len(w.classes)}
	for i, n := range counts {
		le.PutUint32(file[56+8*i:], uint32(n))
		if n > 0 {
			le.PutUint32(file[60+8*i:], offs[i])
		}
	}
	le.PutUint32(file[104:], uint32(len(file))-w.dataOff)
	le.PutUint32(file[108:], w.dataOff)

	sum := sha1.Sum(file[32:])
	copy(file[12:32], sum[:])
	le.PutUint32(file[8:], adler32.Checksum(file[12:]))
}

func (w *writer) writeStringData() {
	start := w.offset()
	w.stringData = make([]uint32, len(w.pool.stringList))
	for i, s := range w.pool.stringList {
		w.stringData[i] = w.offset()
		enc, units := encodeMUTF8(s)
		w.data = appendUleb(w.data, uint32(units))
		w.data = append(w.data, enc...)
		w.data = append(w.data, 0)
	}
	w.section(typeStringDataItem, start, len(w.stringData))
}

func typeListKey(types []string) string {
	return strings.Join(types, "")
}

func (w *writer) writeTypeLists() {
	var lists [][]string
	for _, proto := range w.pool.protoList {
		lists = append(lists, proto.Params)
	}
	for _, c := range w.classes {
		lists = append(lists, c.Interfaces)
	}
	var start uint32
	count := 0
	for _, list := range lists {
		key := typeListKey(list)
		if len(list) == 0 {
			continue
		}
		if _, ok := w.typeLists[key]; ok {
			continue
		}
		w.align()
		if count == 0 {
			start = w.offset()
		}
		w.typeLists[key] = w.offset()
		w.u32(uint32(len(list)))
		for _, t := range list {
			w.u16(uint16(w.pool.TypeIndex(t)))
		}
		count++
	}
	w.section(typeTypeList, start, count)
}

// writeAnnotations emits annotation items, sets and per-class directories.
func (w *writer) writeAnnotations() {
	var all []dalvik.Annotation
	for _, c := range w.classes {
		all = append(all, c.Annotations...)
		for _, f := range c.Fields {
			all = append(all, f.Annotations...)
		}
		for _, m := range c.Methods {
			all = append(all, m.Annotations...)
		}
	}

	start, count := w.offset(), 0
	for _, a := range all {
		enc := append([]byte{a.Visibility}, w.encodeAnnotation(nil, a)...)
		key := string(enc)
		if _, ok := w.annotations[key]; ok {
			continue
		}
		w.annotations[key] = w.offset()
		w.data = append(w.data, enc...)
		count++
	}
	w.section(typeAnnotationItem, start, count)

	var setStart uint32
	setCount := 0
	setOf := func(as []dalvik.Annotation) uint32 {
		if len(as) == 0 {
			return 0
		}
		sorted := slices.Clone(as)
		slices.SortStableFunc(sorted, func(a, b dalvik.Annotation) int {
			return int(w.pool.TypeIndex(a.Type)) - int(w.pool.TypeIndex(b.Type))
		})
		offs := make([]uint32, len(sorted))
		var key strings.Builder
		for i, a := range sorted {
			enc := append([]byte{a.Visibility}, w.encodeAnnotation(nil, a)...)
			offs[i] = w.annotations[string(enc)]
			key.Write(binary.LittleEndian.AppendUint32(nil, offs[i]))
		}
		if off, ok := w.sets[key.String()]; ok {
			return off
		}
		w.align()
		if setCount == 0 {
			setStart = w.offset()
		}
		off := w.offset()
		w.sets[key.String()] = off
		w.u32(uint32(len(offs)))
		for _, o := range offs {
			w.u32(o)
		}
		setCount++
		return off
	}

	type dirEntry struct {
		idx uint32
		off uint32
	}
	type dir struct {
		class   uint32
		fields  []dirEntry
		methods []dirEntry
	}
	dirs := make(map[*dalvik.Class]*dir)
	for _, c := range w.classes {
		d := &dir{class: setOf(c.Annotations)}
		for _, f := range c.Fields {
			if off := setOf(f.Annotations); off != 0 {
				d.fields = append(d.fields, dirEntry{w.pool.FieldIndex(f.Ref), off})
			}
		}
		for _, m := range c.Methods {
			if off := setOf(m.Annotations); off != 0 {
				d.methods = append(d.methods, dirEntry{w.pool.MethodIndex(m.Ref), off})
			}
		}
		if d.class != 0 || len(d.fields) > 0 || len(d.methods) > 0 {
			dirs[c] = d
		}
	}
	w.section(typeAnnotationSetItem, setStart, setCount)

	byIdx := func(a, b dirEntry) int { return int(a.idx) - int(b.idx) }
	var dirStart uint32
	dirCount := 0
	for _, c := range w.classes {
		d, ok := dirs[c]
		if !ok {
			continue
		}
		w.align()
		if dirCount == 0 {
			dirStart = w.offset()
		}
		w.classDirs[c] = w.offset()
		slices.SortFunc(d.fields, byIdx)
		slices.SortFunc(d.methods, byIdx)
		w.u32(d.class)
		w.u32(uint32(len(d.fields)))
		w.u32(uint32(len(d.methods)))
		w.u32(0)
		for _, e := range append(d.fields, d.methods...) {
			w.u32(e.idx)
			w.u32(e.off)
		}
		dirCount++
	}
	w.section(typeAnnotationsDirectoryItem, dirStart, dirCount)
}

func (w *writer) writeDebugInfo() map[*dalvik.Method]uint32 {
	offs := make(map[*dalvik.Method]uint32)
	if !w.opts.Debug {
		return offs
	}
	start, count := w.offset(), 0
	for _, c := range w.classes {
		for _, m := range c.Methods {
			code, ok := w.code[m]
			if !ok {
				continue
			}
			info := w.debugInfo(m, code)
			if info == nil {
				continue
			}
			offs[m] = w.offset()
			w.data = append(w.data, info...)
			count++
		}
	}
	w.section(typeDebugInfoItem, start, count)
	return offs
}

type debugEvent struct {
	addr  int
	order int
	line  int
	local *dalvik.LocalVar
}

// debugInfo encodes the line table, parameter names and local variables of a method,
// or returns nil when it has none.
func (w *writer) debugInfo(m *dalvik.Method, code *dalvik.Code) []byte {
	b := m.Code
	var events []debugEvent
	for _, pos := range b.Positions {
		if addr, ok := code.Addr[pos.Label]; ok {
			events = append(events, debugEvent{addr: addr, order: 2, line: pos.Line})
		}
	}
	for i := range b.Locals {
		l := &b.Locals[i]
		startAddr, ok := code.Addr[l.Start]
		if !ok {
			continue
		}
		endAddr, hasEnd := code.Addr[l.End]
		if hasEnd && endAddr <= startAddr {
			continue
		}
		events = append(events, debugEvent{addr: startAddr, order: 1, local: l})
		if hasEnd {
			events = append(events, debugEvent{addr: endAddr, order: 0, local: l})
		}
	}
	named := slices.ContainsFunc(b.Params, func(s string) bool { return s != "" })
	if len(events) == 0 && !named {
		return nil
	}
	slices.SortStableFunc(events, func(a, b debugEvent) int {
		if a.addr != b.addr {
			return a.addr - b.addr
		}
		return a.order - b.order
	})

	line := 0
	for _, e := range events {
		if e.local == nil {
			line = e.line
			break
		}
	}
	out := appendUleb(nil, uint32(max(line, 0)))
	out = appendUleb(out, uint32(len(m.Ref.Proto.Params)))
	for i := range m.Ref.Proto.Params {
		name := ""
		if i < len(b.Params) {
			name = b.Params[i]
		}
		out = w.appendIndexP1(out, name, w.pool.StringIndex)
	}

	addr := 0
	advance := func(to int) {
		if to > addr {
			out = append(out, dbgAdvancePC)
			out = appendUleb(out, uint32(to-addr))
			addr = to
		}
	}
	for _, e := range events {
		switch {
		case e.local == nil:
			addrDiff, lineDiff := e.addr-addr, e.line-line
			if lineDiff < dbgLineBase || lineDiff >= dbgLineBase+dbgLineRange {
				out = append(out, dbgAdvanceLine)
				out = appendSleb(out, int32(lineDiff))
				lineDiff = 0
			}
			op := lineDiff - dbgLineBase + addrDiff*dbgLineRange + dbgFirstSpecial
			if op > 0xff {
				advance(e.addr)
				op = lineDiff - dbgLineBase + dbgFirstSpecial
			}
			out = append(out, byte(op))
			addr, line = e.addr, e.line
		case e.order == 1:
			advance(e.addr)
			out = append(out, dbgStartLocal)
			out = appendUleb(out, uint32(e.local.Reg))
			out = w.appendIndexP1(out, e.local.Name, w.pool.StringIndex)
			out = w.appendIndexP1(out, e.local.Type, w.pool.TypeIndex)
		default:
			advance(e.addr)
			out = append(out, dbgEndLocal)
			out = appendUleb(out, uint32(e.local.Reg))
		}
	}
	return append(out, dbgEndSequence)
}

// appendIndexP1 appends a uleb128p1 index, encoding an empty name as NO_INDEX.
func (w *writer) appendIndexP1(out []byte, s string, index func(string) uint32) []byte {
	if s == "" {
		return appendUleb(out, 0)
	}
	return appendUleb(out, index(s)+1)
}

func (w *writer) writeCode(debugOffs map[*dalvik.Method]uint32) {
	var start uint32
	count := 0
	for _, c := range w.classes {
		for _, m := range c.Methods {
			code, ok := w.code[m]
			if !ok {
				continue
			}
			w.align()
			if count == 0 {
				start = w.offset()
			}
			w.codeOffs[m] = w.offset()
			w.writeCodeItem(code, debugOffs[m])
			count++
		}
	}
	w.section(typeCodeItem, start, count)
}

func (w *writer) writeCodeItem(code *dalvik.Code, debugOff uint32) {
	tries := splitTries(code.Tries)
	w.u16(uint16(code.Registers))
	w.u16(uint16(code.Ins))
	w.u16(uint16(code.Outs))
	w.u16(uint16(len(tries)))
	w.u32(debugOff)
	w.u32(uint32(len(code.Insns)))
	for _, u := range code.Insns {
		w.u16(u)
	}
	if len(tries) == 0 {
		return
	}
	if len(code.Insns)%2 != 0 {
		w.u16(0)
	}

	handlers := make(map[string]uint16)
	var encoded [][]byte
	offs := make([]uint16, len(tries))
	for i, t := range tries {
		h := encodeHandler(t)
		key := string(h)
		off, ok := handlers[key]
		if !ok {
			off = uint16(len(encoded))
			handlers[key] = off
			encoded = append(encoded, h)
		}
		offs[i] = off
	}
	list := appendUleb(nil, uint32(len(encoded)))
	positions := make([]uint16, len(encoded))
	for i, h := range encoded {
		positions[i] = uint16(len(list))
		list = append(list, h...)
	}
	for i, t := range tries {
		w.u32(uint32(t.Start))
		w.u16(uint16(t.Count))
		w.u16(positions[offs[i]])
	}
	w.data = append(w.data, list...)
}

func encodeHandler(t dalvik.TryBlock) []byte {
	n := int32(len(t.Catches))
	if t.CatchAll >= 0 {
		n = -n
	}
	out := appendSleb(nil, n)
	for _, c := range t.Catches {
		out = appendUleb(out, c.Type)
		out = appendUleb(out, uint32(c.Addr))
	}
	if t.CatchAll >= 0 {
		out = appendUleb(out, uint32(t.CatchAll))
	}
	return out
}

// splitTries breaks ranges longer than a try_item can express.
func splitTries(tries []dalvik.TryBlock) []dalvik.TryBlock {
	out := make([]dalvik.TryBlock, 0, len(tries))
	for _, t := range tries {
		for t.Count > math.MaxUint16 {
			head := t
			head.Count = math.MaxUint16
			out = append(out, head)
			t.Start += math.MaxUint16
			t.Count -= math.MaxUint16
		}
		out = append(out, t)
	}
	return out
}

// sortedFields returns the static or instance fields of c in field index order.
func (w *writer) sortedFields(c *dalvik.Class, static bool) []*dalvik.Field {
	var out []*dalvik.Field
	for _, f := range c.Fields {
		if f.IsStatic() == static {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b *dalvik.Field) int {
		return int(w.pool.FieldIndex(a.Ref)) - int(w.pool.FieldIndex(b.Ref))
	})
	return out
}

func (w *writer) sortedMethods(c *dalvik.Class, direct bool) []*dalvik.Method {
	var out []*dalvik.Method
	for _, m := range c.Methods {
		if m.IsDirect() == direct {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b *dalvik.Method) int {
		return int(w.pool.MethodIndex(a.Ref)) - int(w.pool.MethodIndex(b.Ref))
	})
	return out
}

func (w *writer) writeStaticValues() {
	var start uint32
	count := 0
	for _, c := range w.classes {
		fields := w.sortedFields(c, true)
		values := make([]dalvik.EncodedValue, len(fields))
		last := -1
		for i, f := range fields {
			values[i] = defaultValue(f.Ref.Type)
			if f.Initial != nil {
				values[i] = *f.Initial
				if !f.Initial.IsDefault() {
					last = i
				}
			}
		}
		if last < 0 {
			continue
		}
		enc := appendUleb(nil, uint32(last+1))
		for _, v := range values[:last+1] {
			enc = w.encodeValue(enc, v)
		}
		if off, ok := w.arrays[string(enc)]; ok {
			w.staticVals[c] = off
			continue
		}
		if count == 0 {
			start = w.offset()
		}
		w.arrays[string(enc)] = w.offset()
		w.staticVals[c] = w.offset()
		w.data = append(w.data, enc...)
		count++
	}
	w.section(typeEncodedArrayItem, start, count)
}

func defaultValue(desc string) dalvik.EncodedValue {
	switch desc {
	case "Z":
		return dalvik.EncodedValue{Kind: dalvik.ValueBoolean}
	case "B":
		return dalvik.EncodedValue{Kind: dalvik.ValueByte}
	case "S":
		return dalvik.EncodedValue{Kind: dalvik.ValueShort}
	case "C":
		return dalvik.EncodedValue{Kind: dalvik.ValueChar}
	case "I":
		return dalvik.EncodedValue{Kind: dalvik.ValueInt}
	case "J":
		return dalvik.EncodedValue{Kind: dalvik.ValueLong}
	case "F":
		return dalvik.EncodedValue{Kind: dalvik.ValueFloat}
	case "D":
		return dalvik.EncodedValue{Kind: dalvik.ValueDouble}
	default:
		return dalvik.EncodedValue{Kind: dalvik.ValueNull}
	}
}

func (w *writer) writeClassData() {
	var start uint32
	count := 0
	for _, c := range w.classes {
		if len(c.Fields) == 0 && len(c.Methods) == 0 {
			continue
		}
		if count == 0 {
			start = w.offset()
		}
		w.classData[c] = w.offset()
		statics, instances := w.sortedFields(c, true), w.sortedFields(c, false)
		direct, virtual := w.sortedMethods(c, true), w.sortedMethods(c, false)
		out := appendUleb(nil, uint32(len(statics)))
		out = appendUleb(out, uint32(len(instances)))
		out = appendUleb(out, uint32(len(direct)))
		out = appendUleb(out, uint32(len(virtual)))
		for _, fields := range [][]*dalvik.Field{statics, instances} {
			prev := uint32(0)
			for _, f := range fields {
				idx := w.pool.FieldIndex(f.Ref)
				out = appendUleb(out, idx-prev)
				out = appendUleb(out, f.Access)
				prev = idx
			}
		}
		for _, methods := range [][]*dalvik.Method{direct, virtual} {
			prev := uint32(0)
			for _, m := range methods {
				idx := w.pool.MethodIndex(m.Ref)
				out = appendUleb(out, idx-prev)
				out = appendUleb(out, m.Access)
				out = appendUleb(out, w.codeOffs[m])
				prev = idx
			}
		}
		w.data = append(w.data, out...)
		count++
	}
	w.section(typeClassDataItem, start, count)
}

func (w *writer) writeMap() uint32 {
	w.align()
	off := w.offset()
	w.items = append(w.items, mapItem{typ: typeMapList, size: 1, offset: off})
	w.u32(uint32(len(w.items)))
	for _, it := range w.items {
		w.u16(it.typ)
		w.u16(0)
		w.u32(it.size)
		w.u32(it.offset)
	}
	return off
}

func (w *writer) encodeAnnotation(out []byte, a dalvik.Annotation) []byte {
	elems := slices.Clone(a.Elements)
	slices.SortStableFunc(elems, func(x, y dalvik.AnnotationElement) int {
		return int(w.pool.StringIndex(x.Name)) - int(w.pool.StringIndex(y.Name))
	})
	out = appendUleb(out, w.pool.TypeIndex(a.Type))
	out = appendUleb(out, uint32(len(elems)))
	for _, e := range elems {
		out = appendUleb(out, w.pool.StringIndex(e.Name))
		out = w.encodeValue(out, e.Value)
	}
	return out
}

func (w *writer) encodeValue(out []byte, v dalvik.EncodedValue) []byte {
	p := w.pool
	switch v.Kind {
	case dalvik.ValueByte:
		return append(out, byte(v.Kind), byte(v.Int))
	case dalvik.ValueShort, dalvik.ValueInt, dalvik.ValueLong:
		return appendSigned(out, v.Kind, v.Int)
	case dalvik.ValueChar:
		return appendUnsigned(out, v.Kind, uint64(uint16(v.Int)))
	case dalvik.ValueFloat:
		return appendRightZero(out, v.Kind, uint64(math.Float32bits(float32(v.Float))), 4)
	case dalvik.ValueDouble:
		return appendRightZero(out, v.Kind, math.Float64bits(v.Float), 8)
	case dalvik.ValueString:
		return appendUnsigned(out, v.Kind, uint64(p.StringIndex(v.Str)))
	case dalvik.ValueType:
		return appendUnsigned(out, v.Kind, uint64(p.TypeIndex(v.Str)))
	case dalvik.ValueField, dalvik.ValueEnum:
		return appendUnsigned(out, v.Kind, uint64(p.FieldIndex(v.Field)))
	case dalvik.ValueMethod:
		return appendUnsigned(out, v.Kind, uint64(p.MethodIndex(v.Method)))
	case dalvik.ValueArray:
		out = append(out, byte(v.Kind))
		out = appendUleb(out, uint32(len(v.Array)))
		for _, e := range v.Array {
			out = w.encodeValue(out, e)
		}
		return out
	case dalvik.ValueAnnotation:
		return w.encodeAnnotation(append(out, byte(v.Kind)), *v.Annotation)
	case dalvik.ValueBoolean:
		return append(out, byte(min(v.Int, 1))<<5|byte(v.Kind))
	default:
		return append(out, byte(dalvik.ValueNull))
	}
}

func appendSigned(out []byte, kind dalvik.ValueKind, v int64) []byte {
	n := 1
	for n < 8 {
		shift := 64 - 8*n
		if v<<shift>>shift == v {
			break
		}
		n++
	}
	out = append(out, byte(n-1)<<5|byte(kind))
	for i := range n {
		out = append(out, byte(v>>(8*i)))
	}
	return out
}

func appendUnsigned(out []byte, kind dalvik.ValueKind, v uint64) []byte {
	n := 1
	for n < 8 && v>>(8*n) != 0 {
		n++
	}
	out = append(out, byte(n-1)<<5|byte(kind))
	for i := range n {
		out = append(out, byte(v>>(8*i)))
	}
	return out
}

// appendRightZero drops the zero low-order bytes of a floating point bit pattern.
func appendRightZero(out []byte, kind dalvik.ValueKind, bits uint64, width int) []byte {
	n := width
	for n > 1 && bits&0xff == 0 {
		bits >>= 8
		n--
	}
	out = append(out, byte(n-1)<<5|byte(kind))
	for i := range n {
		out = append(out, byte(bits>>(8*i)))
	}
	return out
}
