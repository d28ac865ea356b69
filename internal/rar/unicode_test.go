package rar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeUnicodeNameNoTail(t *testing.T) {
	require.Equal(t, "test", decodeUnicodeName([]byte("test"), nil))
}

func TestDecodeUnicodeNameOpcodeBothBytes(t *testing.T) {
	// hi byte (unused by opcode 2), flags selecting opcode 2 (lo,hi both
	// taken from the tail), then the lo/hi pair itself.
	tail := []byte{0x00, 0x80, 0x41, 0x00}
	require.Equal(t, "A", decodeUnicodeName(nil, tail))
}

func TestDecodeUnicodeNameRunLengthVerbatim(t *testing.T) {
	// opcode 3 (run-length) with the high bit of n clear: copy n+2 code
	// units verbatim from the ASCII prefix with hi=0.
	tail := []byte{0x00, 0xC0, 0x00}
	require.Equal(t, "AB", decodeUnicodeName([]byte("AB"), tail))
}

func TestDecodeUnicodeNameRunLengthWithCarry(t *testing.T) {
	// opcode 3 with the high bit of n set: add a correction byte to
	// successive ASCII-prefix bytes, carrying the hi byte read up front.
	tail := []byte{0x01, 0xC0, 0x80, 0x01}
	got := decodeUnicodeName([]byte("AB"), tail)
	runes := []rune(got)
	require.Len(t, runes, 2)
	require.Equal(t, rune(0x0142), runes[0])
	require.Equal(t, rune(0x0143), runes[1])
}
