package dex

import (
	"archive/zip"
	"bytes"
	"crypto/sha1" //nolint:gosec // format-defined signature
	"encoding/binary"
	"errors"
	"hash/adler32"
	"io"
	"os"
	"strings"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/zerr"
)

// ClassDef is a decoded class_def_item.
type ClassDef struct {
	// Type is the class descriptor.
	Type string
	// Super is the superclass descriptor, empty for none.
	Super      string
	Interfaces []string
	Access     uint32
	SourceFile string
	// Methods lists "name:descriptor" of every declared method in class_data order.
	Methods []string
}

// File is a parsed DEX file.
type File struct {
	Version        string
	Strings        []string
	Types          []string
	Classes        []ClassDef
	ChecksumValid  bool
	SignatureValid bool
}

// ClassNames returns the class descriptors in class_defs order.
func (f *File) ClassNames() []string {
	out := make([]string, len(f.Classes))
	for i, c := range f.Classes {
		out[i] = c.Type
	}
	return out
}

// IsDex reports whether data starts with the DEX magic.
func IsDex(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:4], []byte("dex\n")) && data[7] == 0
}

type parser struct {
	data []byte
	err  error
}

func (p *parser) u16(off uint32) uint16 {
	if p.err != nil || uint64(off)+2 > uint64(len(p.data)) {
		p.fail("offset out of bounds", off)
		return 0
	}
	return binary.LittleEndian.Uint16(p.data[off:])
}

func (p *parser) u32(off uint32) uint32 {
	if p.err != nil || uint64(off)+4 > uint64(len(p.data)) {
		p.fail("offset out of bounds", off)
		return 0
	}
	return binary.LittleEndian.Uint32(p.data[off:])
}

// uleb reads an unsigned LEB128 value at *off and advances it.
func (p *parser) uleb(off *uint32) uint32 {
	if p.err != nil || uint64(*off) >= uint64(len(p.data)) {
		p.fail("offset out of bounds", *off)
		return 0
	}
	v, n := readUleb(p.data[*off:])
	if n == 0 {
		p.fail("malformed uleb128", *off)
		return 0
	}
	*off += uint32(n)
	return v
}

func (p *parser) fail(msg string, off uint32) {
	if p.err == nil {
		p.err = zerr.With(errors.Join(domain.ErrNotADexFile, zerr.New(msg)), "offset", off)
	}
}

// Parse decodes the header, id sections and class definitions of a DEX file and
// verifies its checksum and signature.
func Parse(data []byte) (*File, error) {
	if !IsDex(data) || len(data) < headerSize {
		return nil, errors.Join(domain.ErrNotADexFile, zerr.With(zerr.New("missing dex header"), "size", len(data)))
	}
	p := &parser{data: data}
	f := &File{Version: string(data[4:7])}

	sum := sha1.Sum(data[32:]) //nolint:gosec // format-defined signature
	f.SignatureValid = bytes.Equal(sum[:], data[12:32])
	f.ChecksumValid = adler32.Checksum(data[12:]) == binary.LittleEndian.Uint32(data[8:])

	stringsSize, stringsOff := p.u32(56), p.u32(60)
	typesSize, typesOff := p.u32(64), p.u32(68)
	classesSize, classesOff := p.u32(96), p.u32(100)
	methodsOff := p.u32(92)
	protosOff := p.u32(76)

	f.Strings = make([]string, 0, min(stringsSize, uint32(len(data))/4))
	for i := range stringsSize {
		off := p.u32(stringsOff + 4*i)
		p.uleb(&off)
		if p.err != nil {
			return nil, p.err
		}
		s, ok := decodeMUTF8(data[off:])
		if !ok {
			p.fail("malformed string data", off)
			return nil, p.err
		}
		f.Strings = append(f.Strings, s)
	}
	str := func(idx uint32) string {
		if idx == NoIndex || idx >= uint32(len(f.Strings)) {
			return ""
		}
		return f.Strings[idx]
	}

	f.Types = make([]string, 0, min(typesSize, uint32(len(data))/4))
	for i := range typesSize {
		f.Types = append(f.Types, str(p.u32(typesOff+4*i)))
	}
	typ := func(idx uint32) string {
		if idx == NoIndex || idx >= uint32(len(f.Types)) {
			return ""
		}
		return f.Types[idx]
	}
	typeList := func(off uint32) []string {
		if off == 0 {
			return nil
		}
		n := p.u32(off)
		out := make([]string, 0, min(n, uint32(len(data))/2))
		for i := range n {
			out = append(out, typ(uint32(p.u16(off+4+2*i))))
		}
		return out
	}
	method := func(idx uint32) string {
		at := methodsOff + 8*idx
		proto := protosOff + 12*uint32(p.u16(at+2))
		params := typeList(p.u32(proto + 8))
		return str(p.u32(at+4)) + ":(" + strings.Join(params, "") + ")" + typ(p.u32(proto+4))
	}

	for i := range classesSize {
		at := classesOff + 32*i
		c := ClassDef{
			Type:       typ(p.u32(at)),
			Access:     p.u32(at + 4),
			Super:      typ(p.u32(at + 8)),
			Interfaces: typeList(p.u32(at + 12)),
			SourceFile: str(p.u32(at + 16)),
		}
		if off := p.u32(at + 24); off != 0 {
			c.Methods = p.classMethods(off, method)
		}
		if p.err != nil {
			return nil, p.err
		}
		f.Classes = append(f.Classes, c)
	}
	return f, p.err
}

func (p *parser) classMethods(off uint32, method func(uint32) string) []string {
	statics, instances := p.uleb(&off), p.uleb(&off)
	direct, virtual := p.uleb(&off), p.uleb(&off)
	for range statics + instances {
		p.uleb(&off)
		p.uleb(&off)
	}
	var out []string
	for _, n := range []uint32{direct, virtual} {
		idx := uint32(0)
		for range n {
			idx += p.uleb(&off)
			p.uleb(&off)
			p.uleb(&off)
			if p.err != nil {
				return nil
			}
			out = append(out, method(idx))
		}
	}
	return out
}

// Reader inspects DEX files and per-class DEX archives.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Summarize implements ports.DexReader.
func (r *Reader) Summarize(path string) (domain.DexSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DexSummary{}, zerr.With(zerr.Wrap(err, "failed to read dex file"), "path", path)
	}
	summary := domain.DexSummary{Path: path}
	if bytes.HasPrefix(data, []byte("PK")) {
		return r.summarizeArchive(summary, data)
	}
	f, err := Parse(data)
	if err != nil {
		return domain.DexSummary{}, zerr.With(err, "path", path)
	}
	summary.Version = f.Version
	summary.Files = 1
	summary.Classes = f.ClassNames()
	summary.ChecksumValid = f.ChecksumValid
	summary.SignatureValid = f.SignatureValid
	return summary, nil
}

func (r *Reader) summarizeArchive(summary domain.DexSummary, data []byte) (domain.DexSummary, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.DexSummary{}, zerr.With(errors.Join(domain.ErrNotADexFile, err), "path", summary.Path)
	}
	summary.ChecksumValid, summary.SignatureValid = true, true
	for _, entry := range zr.File {
		if !strings.HasSuffix(entry.Name, ".dex") {
			continue
		}
		content, err := readEntry(entry)
		if err != nil {
			return domain.DexSummary{}, zerr.With(err, "entry", entry.Name)
		}
		f, err := Parse(content)
		if err != nil {
			return domain.DexSummary{}, zerr.With(err, "entry", entry.Name)
		}
		summary.Files++
		if summary.Version == "" {
			summary.Version = f.Version
		}
		summary.Classes = append(summary.Classes, f.ClassNames()...)
		summary.ChecksumValid = summary.ChecksumValid && f.ChecksumValid
		summary.SignatureValid = summary.SignatureValid && f.SignatureValid
	}
	if summary.Files == 0 {
		return domain.DexSummary{}, errors.Join(domain.ErrNotADexFile, zerr.With(zerr.New("no dex entries"), "path", summary.Path))
	}
	return summary, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open archive entry")
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read archive entry")
	}
	return data, nil
}
