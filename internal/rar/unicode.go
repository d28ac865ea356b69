package rar

import "unicode/utf16"

// decodeUnicodeName reconstructs the Unicode form of a file name from the
// ASCII prefix stored before the NUL and the compressed tail that follows
// it. The tail is a stream of 2-bit opcodes, packed big-end-first into
// flag bytes, with an 8-bit "high byte" carried across iterations.
//
// Opcodes: 00 takes the next tail byte as the low byte with hi=0; 01 takes
// the next tail byte as the low byte with the carried hi; 10 takes the
// next two tail bytes as low and high; 11 is a run-length escape — the
// following byte n, if its top bit is set, is followed by a correction
// byte c and emits (n&0x7F)+2 code units built by adding c to successive
// ASCII-prefix bytes; otherwise it emits n+2 code units copied verbatim
// from the ASCII prefix with hi=0.
func decodeUnicodeName(asciiPart, tail []byte) string {
	if len(tail) == 0 {
		return string(asciiPart)
	}

	var units []uint16
	encPos := 0
	stdPos := 0

	encByte := func() byte {
		if encPos >= len(tail) {
			encPos++
			return 0
		}
		b := tail[encPos]
		encPos++
		return b
	}
	stdByte := func() byte {
		if stdPos >= len(asciiPart) {
			return 0
		}
		return asciiPart[stdPos]
	}
	put := func(lo, hi byte) {
		units = append(units, uint16(hi)<<8|uint16(lo))
		stdPos++
	}

	hi := encByte()
	var flags byte
	var flagBits uint

	for encPos < len(tail) {
		if flagBits == 0 {
			flags = encByte()
			flagBits = 8
		}
		flagBits -= 2
		t := (flags >> flagBits) & 3

		switch t {
		case 0:
			put(encByte(), 0)
		case 1:
			put(encByte(), hi)
		case 2:
			put(encByte(), encByte())
		default:
			n := encByte()
			if n&0x80 != 0 {
				c := encByte()
				for i := 0; i < int(n&0x7F)+2; i++ {
					lo := stdByte() + c
					put(lo, hi)
				}
			} else {
				for i := 0; i < int(n)+2; i++ {
					put(stdByte(), 0)
				}
			}
		}
	}

	return string(utf16.Decode(units))
}
