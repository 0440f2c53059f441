package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLEB128(t *testing.T) {
	assert.Equal(t, []byte{0x00}, appendUleb(nil, 0))
	assert.Equal(t, []byte{0xe5, 0x8e, 0x26}, appendUleb(nil, 624485))
	assert.Equal(t, []byte{0x7f}, appendSleb(nil, -1))
	assert.Equal(t, []byte{0x80, 0x7f}, appendSleb(nil, -128))
	assert.Equal(t, []byte{0x3f}, appendSleb(nil, 63))
	assert.Equal(t, []byte{0xc0, 0x00}, appendSleb(nil, 64))

	v, n := readUleb([]byte{0xe5, 0x8e, 0x26, 0xff})
	assert.Equal(t, uint32(624485), v)
	assert.Equal(t, 3, n)

	_, n = readUleb([]byte{0x80, 0x80})
	assert.Zero(t, n)
}

func TestMUTF8(t *testing.T) {
	for _, s := range []string{"", "plain", "nul\x00inside", "café", "\U0001F600 face"} {
		enc, _ := encodeMUTF8(s)
		got, ok := decodeMUTF8(append(enc, 0))
		assert.True(t, ok, s)
		assert.Equal(t, s, got)
		assert.NotContains(t, enc, byte(0), s)
	}

	enc, units := encodeMUTF8("\U0001F600")
	assert.Equal(t, 2, units)
	assert.Len(t, enc, 6)
}

func TestCompareUTF16(t *testing.T) {
	assert.Negative(t, compareUTF16("a", "b"))
	assert.Negative(t, compareUTF16("a", "ab"))
	assert.Zero(t, compareUTF16("same", "same"))
	// U+FFFD sorts after a surrogate pair in UTF-16, unlike in UTF-8.
	assert.Negative(t, compareUTF16("\U0001F600", "\uFFFD"))
}
