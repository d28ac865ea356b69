// Package rar implements a bit-exact reader for the RAR3 block format: it
// enumerates the entries of a (possibly multi-volume) archive and serves
// random-access partial reads of store-method entries without decompressing
// anything itself. Compressed entries are handed off to an external
// extractor by the caller; this package only describes what's inside.
package rar

import "time"

// Block types, named the way the format itself does.
const (
	blockMark        = 0x72
	blockMain        = 0x73
	blockFile        = 0x74
	blockOldComment  = 0x75
	blockOldExtra    = 0x76
	blockOldSub      = 0x77
	blockOldRecovery = 0x78
	blockOldAuth     = 0x79
	blockSub         = 0x7A
	blockEndarc      = 0x7B
)

// Main header flags.
const (
	mainVolume       = 0x0001
	mainComment      = 0x0002
	mainLock         = 0x0004
	mainSolid        = 0x0008
	mainNewNumbering = 0x0010
	mainAuth         = 0x0020
	mainRecovery     = 0x0040
	mainPassword     = 0x0080
	mainFirstVolume  = 0x0100
)

// File header flags.
const (
	fileSplitBefore = 0x0001
	fileSplitAfter  = 0x0002
	filePassword    = 0x0004
	fileComment     = 0x0008
	fileSolid       = 0x0010
	fileDictMask    = 0x00E0
	fileDirectory   = 0x00E0
	fileLarge       = 0x0100
	fileUnicode     = 0x0200
	fileSalt        = 0x0400
	fileVersion     = 0x0800
	fileExtTime     = 0x1000
	fileExtFlags    = 0x2000
)

// End-of-archive block flags.
const (
	endarcNextVolume = 0x0001
	endarcDataCRC    = 0x0002
	endarcRevSpace   = 0x0004
)

// Flags common to every block.
const (
	skipIfUnknown = 0x4000
	longBlock     = 0x8000
)

// CompressMethodStore is the compress_type byte for uncompressed entries.
const CompressMethodStore = 0x30

// signature is the 7-byte magic every RAR3 archive begins with.
var signature = [7]byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}

// Entry describes one file recorded in an archive, with its continuation
// geometry filled in once a SPLIT_BEFORE sibling has been seen.
type Entry struct {
	Name            string
	UnicodeName     string
	CompressSize    uint64
	FileSize        uint64
	HostOS          byte
	CRC             uint32
	ModTime         time.Time
	ExtractVersion  byte
	CompressType    byte
	Mode            uint32
	Flags           uint16
	Type            byte
	IsDirectory     bool

	HeaderSize   uint16
	HeaderOffset int64
	FileOffset   int64
	AddSize      uint64
	Volume       int

	// Continuation geometry, filled from the first SPLIT_BEFORE sibling.
	NextFileOffset   int64
	NextAddSize      uint64
	NextCompressSize uint64

	splitAfter bool
}

// IsStored reports whether the entry's payload can be read verbatim off
// the volume files, i.e. it uses the store (no compression) method.
func (e *Entry) IsStored() bool {
	return e.CompressType == CompressMethodStore
}
