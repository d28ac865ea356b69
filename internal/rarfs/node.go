// Package rarfs adapts the name resolver and extraction cache onto
// hanwen/go-fuse's inode API: a read-only view where the mutating
// operations Node implements (create, mkdir, unlink, rmdir, rename,
// setattr, and any open that is not read-only) are refused with EROFS;
// Node does not implement symlink, link, or mknod. Lookups and readdirs
// are served by the projection resolver, and reads are dispatched to whichever backing a
// path resolves to (a real host file, a stored archive entry, or a
// compressed entry materialized through the extraction cache).
package rarfs

import (
	"context"
	"log/slog"
	"path"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/javi11/rardirfs/internal/extractcache"
	"github.com/javi11/rardirfs/internal/rarerrors"
	"github.com/javi11/rardirfs/internal/vfs"
)

var (
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeSetattrer = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
	_ fs.NodeRenamer   = (*Node)(nil)
	_ fs.NodeStatfser  = (*Node)(nil)
)

// Node is a directory or file inode in the projected tree. Every node
// knows only its own virtual path; all the actual decision-making —
// what's really behind that path, whether it should even be visible —
// lives in the resolver.
type Node struct {
	fs.Inode

	resolver  *vfs.Resolver
	cache     *extractcache.Manager
	logger    *slog.Logger
	vpath     string
	uid, gid  uint32
	sourceDir string
}

// NewRoot creates the root node of the projected tree. sourceDir, when
// non-empty, is the real host directory being projected, used only to
// answer Statfs queries about the underlying filesystem's free space.
func NewRoot(resolver *vfs.Resolver, cache *extractcache.Manager, logger *slog.Logger, uid, gid uint32, sourceDir string) *Node {
	return &Node{resolver: resolver, cache: cache, logger: logger, vpath: "/", uid: uid, gid: gid, sourceDir: sourceDir}
}

func (n *Node) child(vpath string) *Node {
	return &Node{resolver: n.resolver, cache: n.cache, logger: n.logger, vpath: vpath, uid: n.uid, gid: n.gid, sourceDir: n.sourceDir}
}

// Statfs reports the underlying source directory's filesystem statistics,
// the same statvfs delegation the original implementation performed
// after chdir-ing into the source tree.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	if n.sourceDir == "" {
		return 0
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(n.sourceDir, &stat); err != nil {
		n.logger.ErrorContext(ctx, "statfs failed", "path", n.sourceDir, "error", err)
		return syscall.EIO
	}

	out.Blocks = stat.Blocks
	out.Bfree = stat.Bfree
	out.Bavail = stat.Bavail
	out.Files = stat.Files
	out.Ffree = stat.Ffree
	out.Bsize = uint32(stat.Bsize)
	out.NameLen = uint32(stat.Namelen)
	out.Frsize = uint32(stat.Frsize)
	return 0
}

// Getattr implements fs.NodeGetattrer.
func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	st, err := n.resolver.Getattr(n.vpath)
	if err != nil {
		return rarerrors.Errno(err)
	}
	fillAttr(st, &out.Attr, n.uid, n.gid)
	out.Ino = n.Inode.StableAttr().Ino
	return 0
}

// Setattr implements fs.NodeSetattrer by refusing every attribute change
// (chmod, chown, utime, truncate) with EROFS, since the mount is read-only.
func (n *Node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

// Lookup implements fs.NodeLookuper.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := path.Join(n.vpath, name)

	st, err := n.resolver.Getattr(childPath)
	if err != nil {
		return nil, rarerrors.Errno(err)
	}
	fillAttr(st, &out.Attr, n.uid, n.gid)

	child := n.child(childPath)
	mode := uint32(fuse.S_IFREG)
	if st.Mode.IsDir() {
		mode = fuse.S_IFDIR
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode}), 0
}

// Readdir implements fs.NodeReaddirer.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.resolver.Readdir(n.vpath)
	if err != nil {
		return nil, rarerrors.Errno(err)
	}

	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		st, err := n.resolver.Getattr(path.Join(n.vpath, name))
		if err != nil {
			n.logger.DebugContext(ctx, "readdir: skipping entry that vanished mid-listing", "path", name, "error", err)
			continue
		}
		mode := uint32(syscall.S_IFREG)
		if st.Mode.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}

	return fs.NewListDirStream(entries), 0
}

// Open implements fs.NodeOpener, returning a FileHandle tagged with
// whichever of the three backings (host file, stored archive entry,
// compressed archive entry) this path resolves to.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&syscall.O_ACCMODE != syscall.O_RDONLY {
		return nil, 0, syscall.EROFS
	}

	entry, err := n.resolver.Resolve(n.vpath)
	if err != nil {
		return nil, 0, rarerrors.Errno(err)
	}

	if entry.Kind == vfs.KindHost {
		f, err := n.resolver.OpenHost(entry.RealPath)
		if err != nil {
			n.logger.ErrorContext(ctx, "open failed", "path", entry.RealPath, "error", err)
			return nil, 0, syscall.EIO
		}
		return &FileHandle{kind: vfs.KindHost, hostFile: f, path: entry.RealPath, logger: n.logger}, fuse.FOPEN_KEEP_CACHE, 0
	}

	if entry.ArchiveEntry.IsStored() {
		return &FileHandle{
			kind:         vfs.KindArchive,
			archive:      entry.Archive,
			archiveEntry: entry.ArchiveEntry,
			logger:       n.logger,
		}, fuse.FOPEN_KEEP_CACHE, 0
	}

	if n.cache == nil {
		return nil, 0, syscall.ENOSYS
	}

	return &FileHandle{
		kind:         vfs.KindArchive,
		archive:      entry.Archive,
		archiveEntry: entry.ArchiveEntry,
		archivePath:  entry.RealPath,
		cache:        n.cache,
		compressed:   true,
		logger:       n.logger,
	}, fuse.FOPEN_KEEP_CACHE, 0
}

// Read implements fs.NodeReader.
func (n *Node) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h, ok := fh.(*FileHandle)
	if !ok {
		return nil, syscall.EIO
	}
	return h.Read(ctx, dest, off)
}

// Create, Mkdir, Unlink, Rmdir, and Rename all refuse with EROFS: this
// filesystem projects a source tree and its archives, it never writes to
// either.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (n *Node) Rename(ctx context.Context, oldName string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.EROFS
}
