package rar

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

const fileHeaderFixedLen = 4 + 4 + 1 + 4 + 4 + 1 + 1 + 2 + 4

// parseFileHeader decodes the body of a FILE or SUB block into h's entry
// fields. Non-Unicode names are decoded as ISO-8859-1; no other charset
// can be selected.
func parseFileHeader(h *blockHeader) (*Entry, error) {
	body := h.body
	if len(body) < fileHeaderFixedLen {
		return nil, fmt.Errorf("rar: file header body too short: %d bytes", len(body))
	}

	e := &Entry{
		Type:       h.typ,
		Flags:      h.flags,
		HeaderSize: h.size,
		HeaderOffset: h.offset,
		FileOffset:   h.dataOffset,
		AddSize:      h.addSize,
		splitAfter:   h.flags&fileSplitAfter != 0,
	}

	compressSize := uint64(binary.LittleEndian.Uint32(body[0:4]))
	fileSize := uint64(binary.LittleEndian.Uint32(body[4:8]))
	e.HostOS = body[8]
	e.CRC = binary.LittleEndian.Uint32(body[9:13])
	dosTime := binary.LittleEndian.Uint32(body[13:17])
	e.ExtractVersion = body[17]
	e.CompressType = body[18]
	nameSize := int(binary.LittleEndian.Uint16(body[19:21]))
	e.Mode = binary.LittleEndian.Uint32(body[21:25])

	pos := fileHeaderFixedLen

	if h.flags&fileLarge != 0 {
		if len(body) < pos+8 {
			return nil, fmt.Errorf("rar: file header truncated before large-size fields")
		}
		highCompress := uint64(binary.LittleEndian.Uint32(body[pos : pos+4]))
		highFile := uint64(binary.LittleEndian.Uint32(body[pos+4 : pos+8]))
		compressSize |= highCompress << 32
		fileSize |= highFile << 32
		pos += 8
	}

	e.CompressSize = compressSize
	e.FileSize = fileSize
	e.ModTime = unpackDOSTime(dosTime)

	if len(body) < pos+nameSize {
		return nil, fmt.Errorf("rar: file header truncated in name field")
	}
	name := body[pos : pos+nameSize]
	pos += nameSize

	if h.flags&fileUnicode != 0 {
		nul := bytes.IndexByte(name, 0)
		if nul < 0 {
			e.Name = string(name)
			e.UnicodeName = e.Name
		} else {
			e.Name = string(name[:nul])
			e.UnicodeName = decodeUnicodeName(name[:nul], name[nul+1:])
		}
	} else {
		e.Name = string(name)
		e.UnicodeName = decodeISO8859_1(name)
	}

	if h.flags&fileSalt != 0 {
		pos += 8
	}

	e.IsDirectory = h.typ == blockFile && (h.flags&fileDictMask) == fileDirectory

	return e, nil
}

// decodeISO8859_1 is the fallback decode used for non-Unicode names when
// no explicit charset is configured; every byte maps 1:1 to a rune.
func decodeISO8859_1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
