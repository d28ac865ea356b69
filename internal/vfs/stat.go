package vfs

import (
	"os"
	"syscall"
	"time"

	"github.com/javi11/rardirfs/internal/rar"
	"github.com/spf13/afero"
)

// Stat is the metadata object the projection hands back to the FS
// operation surface — a backend-agnostic sibling of syscall.Stat_t, with
// just the fields this filesystem's two stat shapes ever need to fill in.
type Stat struct {
	Mode  os.FileMode
	Size  int64
	Nlink uint32
	UID   uint32
	GID   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// HostStat shapes the stat of a real file in the source tree from an
// lstat of it, with the write bits cleared for user, group, and other,
// since the whole projection is read-only. Atime and ctime are both
// reported as the file's modification time.
func HostStat(fs afero.Fs, hostPath string) (*Stat, error) {
	info, err := lstatFs(fs, hostPath)
	if err != nil {
		return nil, err
	}

	mode := info.Mode() &^ (0o222)

	s := &Stat{
		Mode:  mode,
		Size:  info.Size(),
		Nlink: 1,
		Mtime: info.ModTime(),
		Atime: info.ModTime(),
		Ctime: info.ModTime(),
	}

	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		s.UID = sys.Uid
		s.GID = sys.Gid
		s.Nlink = uint32(sys.Nlink)
	}

	return s, nil
}

// ArchiveStat shapes the stat of a file that lives inside a RAR archive:
// its type bit (directory or regular) and size come from the archive
// entry, its read-permission bits and ownership are inherited from the
// archive file itself on the host, and its change time is the DOS
// timestamp recorded in the entry (RAR3 carries no separate ctime/atime).
func ArchiveStat(fs afero.Fs, archiveHostPath string, e *rar.Entry) (*Stat, error) {
	info, err := lstatFs(fs, archiveHostPath)
	if err != nil {
		return nil, err
	}

	var mode os.FileMode
	if e.IsDirectory {
		mode = os.ModeDir
	}
	mode |= info.Mode() & 0o444

	s := &Stat{
		Mode:  mode,
		Size:  int64(e.FileSize),
		Nlink: 1,
		Atime: time.Now(),
		Mtime: info.ModTime(),
		Ctime: e.ModTime,
	}

	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		s.UID = sys.Uid
		s.GID = sys.Gid
	}

	return s, nil
}

// lstatFs stats hostPath without following a trailing symlink when fs
// supports it, falling back to a regular Stat otherwise (e.g. for the
// in-memory filesystem used in tests, which has no symlinks to begin
// with).
func lstatFs(fs afero.Fs, hostPath string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(hostPath)
		return info, err
	}
	return fs.Stat(hostPath)
}
