package rarfs

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/javi11/rardirfs/internal/vfs"
)

// fillAttr copies a shaped vfs.Stat into a fuse.Attr, overriding its
// uid/gid with the mount's configured identity whenever the stat didn't
// carry a real one (e.g. under afero.MemMapFs in tests).
func fillAttr(st *vfs.Stat, out *fuse.Attr, uid, gid uint32) {
	out.Size = uint64(st.Size)
	out.Mtime = uint64(st.Mtime.Unix())
	out.Ctime = uint64(st.Ctime.Unix())
	out.Atime = uint64(st.Atime.Unix())

	out.Uid = uid
	out.Gid = gid
	if st.UID != 0 {
		out.Uid = st.UID
	}
	if st.GID != 0 {
		out.Gid = st.GID
	}

	out.Blksize = 4096
	out.Blocks = (out.Size + 511) / 512

	mode := uint32(st.Mode.Perm())
	if st.Mode.IsDir() {
		out.Mode = mode | syscall.S_IFDIR
		out.Nlink = 2
	} else {
		out.Mode = mode | syscall.S_IFREG
		out.Nlink = 1
		if st.Nlink > 0 {
			out.Nlink = st.Nlink
		}
	}
}
