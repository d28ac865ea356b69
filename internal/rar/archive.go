package rar

import (
	"bufio"
	"fmt"

	"github.com/spf13/afero"
)

// TraversalMode controls how many volumes of a multi-volume archive the
// reader walks while enumerating entries.
type TraversalMode string

const (
	// TraversalYes reads only the first volume.
	TraversalYes TraversalMode = "yes"
	// TraversalNo walks every volume.
	TraversalNo TraversalMode = "no"
	// TraversalAuto reads a further volume only if needed to resolve a
	// split entry recorded in the first.
	TraversalAuto TraversalMode = "auto"
)

// Archive is an opened (and fully enumerated, subject to TraversalMode)
// RAR archive: the ordered volume paths it was assembled from and the
// primary entry for each filename it contains.
type Archive struct {
	fs   afero.Fs
	path string

	Entries map[string]*Entry

	IsSolid          bool
	UsesVolumes      bool
	UsesNewNumbering bool
	HasComment       bool

	namer volumeNamer
}

// Open parses the archive whose first volume lives at path (relative to
// fs), walking further volumes according to mode.
func Open(fs afero.Fs, path string, mode TraversalMode) (*Archive, error) {
	a := &Archive{
		fs:      fs,
		path:    path,
		Entries: make(map[string]*Entry),
		namer:   genOldVolumeName,
	}

	if err := a.parse(mode); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Archive) volumeName(volume int) (string, error) {
	return a.namer(a.path, volume)
}

func (a *Archive) parse(mode TraversalMode) error {
	volume := 0
	moreVols := false
	gotMainHeader := false

	f, err := a.fs.Open(a.path)
	if err != nil {
		return fmt.Errorf("rar: open %s: %w", a.path, err)
	}
	defer f.Close()

	var sig [7]byte
	if _, err := f.Read(sig[:]); err != nil {
		return fmt.Errorf("rar: read signature: %w", err)
	}
	if sig != signature {
		return fmt.Errorf("rar: %s is not a RAR archive", a.path)
	}

	br := bufio.NewReader(f)
	offset := int64(len(signature))

	for {
		h, err := readBlockHeader(br, offset)
		if err != nil {
			return err
		}

		if h == nil {
			if !a.mustReadNext(volume) {
				if mode == TraversalYes {
					break
				}
				if mode == TraversalAuto && len(a.Entries) == 1 {
					break
				}
			}
			if moreVols {
				volume++
				name, err := a.volumeName(volume)
				if err != nil {
					return nil
				}
				nf, err := a.fs.Open(name)
				if err != nil {
					break
				}
				f.Close()
				f = nf
				var nsig [7]byte
				if _, err := f.Read(nsig[:]); err != nil {
					break
				}
				br = bufio.NewReader(f)
				offset = int64(len(signature))
				moreVols = false
				continue
			}
			break
		}

		var entry *Entry
		if h.typ == blockFile || h.typ == blockSub {
			entry, err = parseFileHeader(h)
			if err != nil {
				return err
			}
			entry.Volume = volume
		}

		switch h.typ {
		case blockMain:
			if !gotMainHeader {
				if h.flags&mainNewNumbering != 0 {
					a.UsesNewNumbering = true
					a.namer = genNewVolumeName
				}
				a.UsesVolumes = h.flags&mainVolume != 0
				a.IsSolid = h.flags&mainSolid != 0
				gotMainHeader = true
			}
		case blockEndarc:
			moreVols = h.flags&endarcNextVolume != 0
		}

		a.processEntry(h.typ, entry)

		offset = h.dataOffset + int64(h.addSize)
		if h.addSize > 0 {
			if _, err := br.Discard(int(h.addSize)); err != nil {
				break
			}
		}
	}

	return nil
}

// processEntry folds one parsed block into the archive's entry table,
// applying the split-before accumulation and comment-detection rules.
func (a *Archive) processEntry(blockType byte, e *Entry) {
	if e == nil {
		return
	}

	if blockType == blockSub && e.Name == "CMT" {
		a.HasComment = true
	}

	if blockType != blockFile {
		return
	}

	if e.Flags&fileSplitBefore == 0 {
		a.Entries[e.Name] = e
		return
	}

	prior, ok := a.Entries[e.Name]
	if !ok {
		a.Entries[e.Name] = e
		return
	}
	if prior.NextAddSize == 0 {
		prior.NextAddSize = e.AddSize
	}
	if prior.NextFileOffset == 0 {
		prior.NextFileOffset = e.FileOffset
	}
	if prior.NextCompressSize == 0 {
		prior.NextCompressSize = e.CompressSize
	}
}

// mustReadNext implements the "must-read-next" rule: the second volume is
// only of interest if the archive carries a sub-block comment and its
// first entry is itself split across more than one volume.
func (a *Archive) mustReadNext(volume int) bool {
	if volume > 0 {
		return false
	}
	if len(a.Entries) == 0 {
		return true
	}

	var first *Entry
	for _, e := range a.Entries {
		if first == nil || e.HeaderOffset < first.HeaderOffset {
			first = e
		}
	}
	splitAfter := first.splitAfter

	return a.HasComment && splitAfter
}

// Get returns the primary entry for name, or false if it isn't present.
func (a *Archive) Get(name string) (*Entry, bool) {
	e, ok := a.Entries[name]
	return e, ok
}

// List returns every entry currently known to the archive.
func (a *Archive) List() []*Entry {
	out := make([]*Entry, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e)
	}
	return out
}
