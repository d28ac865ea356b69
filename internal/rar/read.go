package rar

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/javi11/rardirfs/internal/rarerrors"
	"github.com/sourcegraph/conc/pool"
)

// ReadPartial returns up to length bytes of name's payload starting at
// offset, for a store-method entry. It may return fewer bytes near EOF and
// an empty slice once offset reaches the entry's size. It only supports
// the store compression method; callers must route other methods through
// the extraction cache.
func (a *Archive) ReadPartial(name string, offset, length int64) ([]byte, error) {
	e, ok := a.Get(name)
	if !ok {
		return nil, rarerrors.NotFound(fmt.Sprintf("rar: no such entry %q", name), nil)
	}
	if e.IsDirectory {
		return nil, rarerrors.NotSupported("rar: entry is a directory")
	}
	if !e.IsStored() {
		return nil, rarerrors.NotSupported("rar: entry is not store-method")
	}

	if offset >= int64(e.FileSize) {
		return nil, nil
	}
	if offset+length > int64(e.FileSize) {
		length = int64(e.FileSize) - offset
	}

	addSize := int64(e.AddSize)
	if addSize == 0 {
		addSize = int64(e.CompressSize)
	}
	nextAddSize := int64(e.NextAddSize)
	nextFileOffset := e.NextFileOffset
	if nextAddSize == 0 {
		nextAddSize = addSize
		nextFileOffset = e.FileOffset
	}

	var volume int
	var volumeOffset, volumeLength, fileOffset int64

	if offset > addSize {
		k := (offset - addSize) / nextAddSize
		volume = e.Volume + 1 + int(k)
		volumeOffset = (offset - addSize) % nextAddSize
		volumeLength = nextAddSize - volumeOffset
		fileOffset = nextFileOffset
	} else {
		volume = e.Volume
		volumeOffset = offset
		volumeLength = addSize - volumeOffset
		fileOffset = e.FileOffset
	}

	if length < volumeLength {
		volumeLength = length
	}

	out := make([]byte, 0, length)
	remaining := length

	for remaining > 0 {
		name, err := a.volumeName(volume)
		if err != nil {
			return nil, rarerrors.BadArchive("rar: cannot name volume", err)
		}
		f, err := a.fs.Open(name)
		if err != nil {
			return nil, rarerrors.BadArchive(fmt.Sprintf("rar: cannot open volume %s", name), err)
		}

		if _, err := f.Seek(fileOffset+volumeOffset, io.SeekStart); err != nil {
			f.Close()
			return nil, rarerrors.BadArchive("rar: seek failed", err)
		}

		chunk := make([]byte, volumeLength)
		n, err := io.ReadFull(f, chunk)
		f.Close()
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, rarerrors.BadArchive("rar: short read across volume", err)
		}
		out = append(out, chunk[:n]...)
		remaining -= volumeLength

		volumeOffset = 0
		volume++
		fileOffset = nextFileOffset
		if remaining < nextAddSize {
			volumeLength = remaining
		} else {
			volumeLength = nextAddSize
		}
	}

	return out, nil
}

// BulkRead reassembles the full payload of a store-method entry by
// walking the SPLIT_AFTER chain from its header, re-parsing each volume's
// file header to locate the matching entry and concatenate its add_size
// bytes. The result's CRC32 is validated against the entry's recorded CRC.
func (a *Archive) BulkRead(name string) ([]byte, error) {
	e, ok := a.Get(name)
	if !ok {
		return nil, rarerrors.NotFound(fmt.Sprintf("rar: no such entry %q", name), nil)
	}
	if e.IsDirectory {
		return nil, rarerrors.NotSupported("rar: entry is a directory")
	}
	if !e.IsStored() {
		return nil, rarerrors.NotSupported("rar: entry is not store-method")
	}

	data, err := a.readAllStored(e)
	if err != nil {
		return nil, err
	}

	if crc32.ChecksumIEEE(data) != e.CRC {
		return nil, rarerrors.BadArchive("rar: CRC check failed", nil)
	}

	return data, nil
}

// prefetchVolume runs read-ahead opens of upcoming volumes while the caller
// is still busy copying the current one's chunk, capped at one extra
// goroutine so a long split chain doesn't fan out unboundedly.
func (a *Archive) prefetchVolume(p *pool.Pool, volume int) {
	p.Go(func() {
		name, err := a.volumeName(volume)
		if err != nil {
			return
		}
		f, err := a.fs.Open(name)
		if err != nil {
			return
		}
		defer f.Close()
		buf := make([]byte, 64*1024)
		_, _ = f.Read(buf)
	})
}

func (a *Archive) readAllStored(e *Entry) ([]byte, error) {
	volume := e.Volume
	var out []byte
	first := true
	splitAfter := e.splitAfter

	prefetch := pool.New().WithMaxGoroutines(1)
	defer prefetch.Wait()

	for {
		volName, err := a.volumeName(volume)
		if err != nil {
			return nil, rarerrors.BadArchive("rar: cannot name volume", err)
		}
		f, err := a.fs.Open(volName)
		if err != nil {
			return nil, rarerrors.BadArchive(fmt.Sprintf("rar: cannot open volume %s", volName), err)
		}

		if first {
			if _, err := f.Seek(e.HeaderOffset, io.SeekStart); err != nil {
				f.Close()
				return nil, rarerrors.BadArchive("rar: seek failed", err)
			}
		} else {
			var sig [7]byte
			if _, err := io.ReadFull(f, sig[:]); err != nil {
				f.Close()
				return nil, rarerrors.BadArchive("rar: read signature", err)
			}
		}

		bufr := bufio.NewReader(f)
		cur, err := readBlockHeader(bufr, 0)
		if err != nil || cur == nil {
			f.Close()
			return nil, rarerrors.BadArchive("rar: did not find file entry", err)
		}
		for cur.typ == blockMark || cur.typ == blockMain {
			if cur.addSize > 0 {
				if _, err := bufr.Discard(int(cur.addSize)); err != nil {
					f.Close()
					return nil, rarerrors.BadArchive("rar: did not find file entry", err)
				}
			}
			cur, err = readBlockHeader(bufr, 0)
			if err != nil || cur == nil {
				f.Close()
				return nil, rarerrors.BadArchive("rar: did not find file entry", err)
			}
		}

		fe, err := parseFileHeader(cur)
		if err != nil || fe.Name != e.Name {
			f.Close()
			return nil, rarerrors.BadArchive("rar: did not find file entry", nil)
		}

		splitAfter = cur.flags&fileSplitAfter != 0
		if splitAfter {
			a.prefetchVolume(prefetch, volume+1)
		}

		chunk := make([]byte, cur.addSize)
		if _, err := io.ReadFull(bufr, chunk); err != nil {
			f.Close()
			return nil, rarerrors.BadArchive("rar: short read", err)
		}
		out = append(out, chunk...)
		f.Close()

		if !splitAfter {
			break
		}
		volume++
		first = false
	}

	return out, nil
}
