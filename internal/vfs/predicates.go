package vfs

import (
	"path"

	"github.com/javi11/rardirfs/internal/rar"
	"github.com/spf13/afero"
)

// Predicates bundles the filter/flatten pattern lists used to decide
// whether a path component survives the projection.
type Predicates struct {
	Filter  PatternList
	Flatten PatternList
}

// ShouldBeFiltered reports whether basename e should be hidden: either it
// matches a user filter pattern, or it looks like a RAR volume member at
// all (first volume or not — a later volume is always hidden, and a first
// volume is hidden too, since its contents are spliced in as a
// replacement by the caller).
func (p Predicates) ShouldBeFiltered(e string) bool {
	if p.Filter.MatchAny(e) {
		return true
	}
	return rar.LooksLikeRarVolume(e)
}

// IsFirstRarFile reports whether basename e looks like the first volume
// of a multi-volume (or single-volume) RAR archive, whose contents should
// be spliced in to replace it during enumeration.
func (p Predicates) IsFirstRarFile(e string) bool {
	return rar.IsFirstVolumeName(e)
}

// ShouldBeFlattened reports whether the directory dir/e should be elided
// from the projection, its children spliced into its parent instead.
func (p Predicates) ShouldBeFlattened(fs afero.Fs, dir, e string) bool {
	info, err := fs.Stat(path.Join(dir, e))
	if err != nil || !info.IsDir() {
		return false
	}
	return p.Flatten.MatchAny(e)
}
