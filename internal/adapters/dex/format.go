// Package dex writes and reads Dalvik executable files.
package dex

import (
	"unicode/utf16"
	"unicode/utf8"
)

const (
	headerSize = 0x70
	endianTag  = 0x12345678

	// NoIndex marks an absent index, such as the superclass of java.lang.Object.
	NoIndex = 0xffffffff
)

// Map item type codes.
const (
	typeHeaderItem               = 0x0000
	typeStringIDItem             = 0x0001
	typeTypeIDItem               = 0x0002
	typeProtoIDItem              = 0x0003
	typeFieldIDItem              = 0x0004
	typeMethodIDItem             = 0x0005
	typeClassDefItem             = 0x0006
	typeMapList                  = 0x1000
	typeTypeList                 = 0x1001
	typeAnnotationSetItem        = 0x1003
	typeClassDataItem            = 0x2000
	typeCodeItem                 = 0x2001
	typeStringDataItem           = 0x2002
	typeDebugInfoItem            = 0x2003
	typeAnnotationItem           = 0x2004
	typeEncodedArrayItem         = 0x2005
	typeAnnotationsDirectoryItem = 0x2006
)

// Debug info opcodes.
const (
	dbgEndSequence  = 0x00
	dbgAdvancePC    = 0x01
	dbgAdvanceLine  = 0x02
	dbgStartLocal   = 0x03
	dbgEndLocal     = 0x05
	dbgFirstSpecial = 0x0a
	dbgLineBase     = -4
	dbgLineRange    = 15
)

// VersionFor returns the DEX format version required by a minimum platform version.
func VersionFor(minAPI int) string {
	switch {
	case minAPI >= 28:
		return "039"
	case minAPI >= 26:
		return "038"
	case minAPI >= 24:
		return "037"
	default:
		return "035"
	}
}

func appendUleb(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func appendSleb(b []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// readUleb decodes an unsigned LEB128 value, returning the value and the bytes consumed.
// A zero length reports a truncated or overlong encoding.
func readUleb(b []byte) (uint32, int) {
	var v uint32
	for i := 0; i < len(b) && i < 5; i++ {
		v |= uint32(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}

// encodeMUTF8 encodes s in modified UTF-8 and returns it with its UTF-16 length.
func encodeMUTF8(s string) ([]byte, int) {
	out := make([]byte, 0, len(s))
	units := 0
	put := func(c rune) {
		units++
		switch {
		case c != 0 && c < 0x80:
			out = append(out, byte(c))
		case c < 0x800:
			out = append(out, byte(0xc0|c>>6), byte(0x80|c&0x3f))
		default:
			out = append(out, byte(0xe0|c>>12), byte(0x80|(c>>6)&0x3f), byte(0x80|c&0x3f))
		}
	}
	for _, r := range s {
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			put(hi)
			put(lo)
			continue
		}
		put(r)
	}
	return out, units
}

// decodeMUTF8 decodes a NUL-terminated modified UTF-8 string.
func decodeMUTF8(b []byte) (string, bool) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == 0:
			return string(utf16.Decode(units)), true
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
			return "", false
		}
	}
	return "", false
}

// compareUTF16 orders strings by their UTF-16 code units, as the string_ids section requires.
func compareUTF16(a, b string) int {
	for a != "" && b != "" {
		ra, na := utf8.DecodeRuneInString(a)
		rb, nb := utf8.DecodeRuneInString(b)
		if ra != rb {
			ua, ub := firstUnit(ra), firstUnit(rb)
			if ua != ub {
				return int(ua) - int(ub)
			}
			la, lb := secondUnit(ra), secondUnit(rb)
			return int(la) - int(lb)
		}
		a, b = a[na:], b[nb:]
	}
	return len(a) - len(b)
}

func firstUnit(r rune) uint16 {
	if r >= 0x10000 {
		hi, _ := utf16.EncodeRune(r)
		return uint16(hi)
	}
	return uint16(r)
}

func secondUnit(r rune) uint16 {
	if r >= 0x10000 {
		_, lo := utf16.EncodeRune(r)
		return uint16(lo)
	}
	return 0
}
