package rar

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/spf13/afero"
)

// buildStoreArchive writes a minimal single-volume RAR archive to fs at
// path, containing one store-method file entry with the given name and
// payload. It mirrors the wire format closely enough to exercise the
// reader's block/header parsing without depending on a real unrar binary.
func buildStoreArchive(fs afero.Fs, path, name string, payload []byte) error {
	var buf []byte
	buf = append(buf, signature[:]...)

	mainBody := make([]byte, 6)
	buf = append(buf, encodeBlock(blockMain, 0, mainBody)...)

	fileBody := make([]byte, fileHeaderFixedLen+len(name))
	binary.LittleEndian.PutUint32(fileBody[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(fileBody[4:8], uint32(len(payload)))
	fileBody[8] = 3 // RAR_OS_UNIX
	binary.LittleEndian.PutUint32(fileBody[9:13], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(fileBody[13:17], 0) // dos time, unused by tests
	fileBody[17] = 20                                 // extract_version
	fileBody[18] = CompressMethodStore
	binary.LittleEndian.PutUint16(fileBody[19:21], uint16(len(name)))
	binary.LittleEndian.PutUint32(fileBody[21:25], 0)
	copy(fileBody[fileHeaderFixedLen:], name)

	buf = append(buf, encodeBlock(blockFile, longBlock, fileBody)...)
	buf = append(buf, payload...)

	return afero.WriteFile(fs, path, buf, 0o644)
}

// encodeBlock builds a full block (7-byte prefix + body) with a correct
// header CRC for the given type/flags/body.
func encodeBlock(typ byte, flags uint16, body []byte) []byte {
	size := uint16(7 + len(body))
	prefixTail := make([]byte, 5)
	prefixTail[0] = typ
	binary.LittleEndian.PutUint16(prefixTail[1:3], flags)
	binary.LittleEndian.PutUint16(prefixTail[3:5], size)

	var crcdat []byte
	crcdat = append(crcdat, prefixTail...)
	switch typ {
	case blockMain:
		crcdat = append(crcdat, firstN(body, 6)...)
	case blockOldAuth:
		crcdat = append(crcdat, firstN(body, 8)...)
	default:
		crcdat = append(crcdat, body...)
	}
	crc := uint16(crc32.ChecksumIEEE(crcdat) & 0xFFFF)

	out := make([]byte, 2, 7+len(body))
	binary.LittleEndian.PutUint16(out[0:2], crc)
	out = append(out, prefixTail...)
	out = append(out, body...)
	return out
}
