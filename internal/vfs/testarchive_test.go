package vfs

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/spf13/afero"
)

// These constants mirror the unexported ones in internal/rar; duplicated
// here because this package only exercises the resolver through the
// registry's public Open path, using a hand-built archive fixture rather
// than importing rar's own test-only builder.
const (
	testBlockMain = 0x73
	testBlockFile = 0x74
	testLongBlock = 0x8000
	testStoreType = 0x30
)

var testSignature = [7]byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}

func buildStoreArchive(fs afero.Fs, path, name string, payload []byte) error {
	var buf []byte
	buf = append(buf, testSignature[:]...)
	buf = append(buf, testEncodeBlock(testBlockMain, 0, make([]byte, 6))...)

	const fixedLen = 25
	body := make([]byte, fixedLen+len(name))
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(body[4:8], uint32(len(payload)))
	body[8] = 3
	binary.LittleEndian.PutUint32(body[9:13], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(body[13:17], 0)
	body[17] = 20
	body[18] = testStoreType
	binary.LittleEndian.PutUint16(body[19:21], uint16(len(name)))
	binary.LittleEndian.PutUint32(body[21:25], 0)
	copy(body[fixedLen:], name)

	buf = append(buf, testEncodeBlock(testBlockFile, testLongBlock, body)...)
	buf = append(buf, payload...)

	return afero.WriteFile(fs, path, buf, 0o644)
}

func testEncodeBlock(typ byte, flags uint16, body []byte) []byte {
	size := uint16(7 + len(body))
	prefixTail := make([]byte, 5)
	prefixTail[0] = typ
	binary.LittleEndian.PutUint16(prefixTail[1:3], flags)
	binary.LittleEndian.PutUint16(prefixTail[3:5], size)

	var crcdat []byte
	crcdat = append(crcdat, prefixTail...)
	if typ == testBlockMain {
		crcdat = append(crcdat, firstN(body, 6)...)
	} else {
		crcdat = append(crcdat, body...)
	}
	crc := uint16(crc32.ChecksumIEEE(crcdat) & 0xFFFF)

	out := make([]byte, 2, 7+len(body))
	binary.LittleEndian.PutUint16(out[0:2], crc)
	out = append(out, prefixTail...)
	out = append(out, body...)
	return out
}

func firstN(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
