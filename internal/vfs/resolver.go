package vfs

import (
	"path"

	"github.com/javi11/rardirfs/internal/rar"
	"github.com/javi11/rardirfs/internal/rarerrors"
	"github.com/spf13/afero"
)

// Resolver is the name resolver and directory-projection engine: given a
// virtual path under the mount point, it decides whether the path could
// exist, computes its metadata, enumerates its children, and maps it back
// to either a real host path or an archive-interior entry.
type Resolver struct {
	fs    afero.Fs
	preds Predicates

	couldExist *CouldExistCache
	table      *Table
	registry   *rar.Registry

	onlyFirst   rar.TraversalMode
	enableUnrar bool
}

// New builds a resolver rooted at fs (expected to be an afero.BasePathFs
// over the configured source directory, replacing the "chdir into the
// source tree" idiom of the original implementation with a properly
// scoped handle).
func New(fs afero.Fs, preds Predicates, onlyFirst rar.TraversalMode, enableUnrar bool) *Resolver {
	return &Resolver{
		fs:          fs,
		preds:       preds,
		couldExist:  NewCouldExistCache(preds),
		table:       NewTable(),
		registry:    rar.NewRegistry(fs, onlyFirst),
		onlyFirst:   onlyFirst,
		enableUnrar: enableUnrar,
	}
}

func (r *Resolver) hostExists(vpath string) bool {
	_, err := r.fs.Stat(vpath)
	return err == nil
}

// OpenHost opens a real host path for reading, for callers that resolved
// an entry with Kind == KindHost.
func (r *Resolver) OpenHost(realPath string) (afero.File, error) {
	return r.fs.Open(realPath)
}

// Getattr resolves vpath to its shaped stat, per the getattr algorithm:
// check couldExist, prefer a real host file, else fall back to the vfs
// table (populated lazily by enumerating the parent directory if it
// hasn't been visited yet), dropping any table entry found to be stale.
func (r *Resolver) Getattr(vpath string) (*Stat, error) {
	if !r.couldExist.CouldExist(r.fs, vpath) {
		return nil, rarerrors.NotFound(vpath, nil)
	}

	if r.hostExists(vpath) {
		return HostStat(r.fs, vpath)
	}

	entry, ok := r.table.Get(vpath)
	if !ok {
		if _, err := r.Readdir(path.Dir(vpath)); err != nil {
			return nil, err
		}
		entry, ok = r.table.Get(vpath)
	}
	if !ok {
		return nil, rarerrors.NotFound(vpath, nil)
	}

	stat, err := r.statEntry(entry)
	if err != nil {
		r.table.Delete(vpath)
		return nil, err
	}
	return stat, nil
}

func (r *Resolver) statEntry(e *Entry) (*Stat, error) {
	if !r.hostExists(e.RealPath) {
		return nil, rarerrors.NotFound(e.RealPath, nil)
	}
	if e.Kind == KindHost {
		return HostStat(r.fs, e.RealPath)
	}
	return ArchiveStat(r.fs, e.RealPath, e.ArchiveEntry)
}

// Resolve returns the table entry or host path backing vpath, for callers
// that need to open it rather than just stat it.
func (r *Resolver) Resolve(vpath string) (*Entry, error) {
	if r.hostExists(vpath) {
		return &Entry{Kind: KindHost, RealPath: vpath}, nil
	}

	entry, ok := r.table.Get(vpath)
	if !ok {
		if _, err := r.Readdir(path.Dir(vpath)); err != nil {
			return nil, err
		}
		entry, ok = r.table.Get(vpath)
	}
	if !ok {
		return nil, rarerrors.NotFound(vpath, nil)
	}
	return entry, nil
}

// Readdir lists the entries of vpath's directory, applying the
// filter/flatten/rar-splice rewrite rules. vpath must currently resolve to
// a directory, either directly on the host or as a previously recorded
// table entry; the couldExist predicate is not applied to vpath itself.
func (r *Resolver) Readdir(vpath string) ([]string, error) {
	var realPath string
	if r.hostExists(vpath) {
		realPath = vpath
	} else if entry, ok := r.table.Get(vpath); ok {
		realPath = entry.RealPath
	} else {
		return nil, rarerrors.NotFound(vpath, nil)
	}

	names, err := afero.ReadDir(r.fs, realPath)
	if err != nil {
		return nil, rarerrors.NotFound(vpath, err)
	}

	var out []string
	for _, info := range names {
		name := info.Name()

		if r.preds.ShouldBeFiltered(name) && !r.preds.IsFirstRarFile(name) {
			continue
		}

		if r.preds.ShouldBeFlattened(r.fs, realPath, name) {
			items, err := r.readdirFlattened(path.Join(realPath, name))
			if err != nil {
				return nil, err
			}
			for _, it := range items {
				if r.preds.IsFirstRarFile(it.name) {
					children, err := r.readdirRar(vpath, path.Join(it.dir, it.name))
					if err != nil {
						return nil, err
					}
					out = append(out, children...)
				} else {
					r.table.Set(path.Join(vpath, it.name), &Entry{
						Kind:     KindHost,
						RealPath: path.Join(it.dir, it.name),
					})
					out = append(out, it.name)
				}
			}
			continue
		}

		if r.preds.IsFirstRarFile(name) {
			children, err := r.readdirRar(vpath, path.Join(realPath, name))
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
			continue
		}

		out = append(out, name)
	}

	return out, nil
}

type flatItem struct {
	dir  string
	name string
}

// readdirFlattened recursively lists realDir, splicing in the contents of
// any subdirectory that itself matches a flatten pattern, so the caller
// sees a single flat list of (dir, name) pairs with no intervening
// directory level.
func (r *Resolver) readdirFlattened(realDir string) ([]flatItem, error) {
	infos, err := afero.ReadDir(r.fs, realDir)
	if err != nil {
		return nil, rarerrors.NotFound(realDir, err)
	}

	var out []flatItem
	for _, info := range infos {
		name := info.Name()

		if r.preds.ShouldBeFiltered(name) && !r.preds.IsFirstRarFile(name) {
			continue
		}

		if r.preds.ShouldBeFlattened(r.fs, realDir, name) {
			sub, err := r.readdirFlattened(path.Join(realDir, name))
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}

		out = append(out, flatItem{dir: realDir, name: name})
	}

	return out, nil
}

// readdirRar treats archiveRealPath as the first volume of a RAR archive,
// opens (or reuses) it via the registry, and records a vfs table entry
// for each entry it contains under vdir, skipping compressed entries if
// unrar extraction isn't enabled.
func (r *Resolver) readdirRar(vdir, archiveRealPath string) ([]string, error) {
	archive, err := r.registry.Open(archiveRealPath)
	if err != nil {
		// Looked like a RAR volume by name but doesn't parse as one:
		// treat it as filtered out entirely.
		return nil, nil
	}

	var out []string
	for _, e := range archive.List() {
		if e.CompressType != rar.CompressMethodStore && !r.enableUnrar {
			continue
		}

		name := lastPathComponent(e.Name)
		if r.preds.ShouldBeFiltered(name) {
			continue
		}

		r.table.Set(path.Join(vdir, name), &Entry{
			Kind:         KindArchive,
			RealPath:     archiveRealPath,
			Archive:      archive,
			ArchiveEntry: e,
		})
		out = append(out, name)
	}

	return out, nil
}

// lastPathComponent returns the last component of a RAR interior name,
// which may use either separator depending on the platform the archive
// was created on.
func lastPathComponent(name string) string {
	idx := -1
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' || name[i] == '/' {
			idx = i
		}
	}
	return name[idx+1:]
}
