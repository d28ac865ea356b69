package rarfs

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/javi11/rardirfs/internal/extractcache"
	"github.com/javi11/rardirfs/internal/rar"
	"github.com/javi11/rardirfs/internal/rarerrors"
	"github.com/javi11/rardirfs/internal/vfs"
	"github.com/spf13/afero"
)

var _ fs.FileReleaser = (*FileHandle)(nil)

// FileHandle is a tagged union over the three things an open file in this
// projection can actually be backed by: a real file on the host, a
// store-method entry inside an already-parsed archive (read directly, no
// decompression needed), or a compressed entry served through the
// extraction cache.
type FileHandle struct {
	mu   sync.Mutex
	kind vfs.EntryKind

	// KindHost
	hostFile afero.File
	path     string

	// KindArchive
	archive      *rar.Archive
	archiveEntry *rar.Entry
	compressed   bool
	archivePath  string
	cache        *extractcache.Manager

	logger *slog.Logger
}

// Read serves dest[:] starting at off, dispatching on which backing this
// handle holds.
func (h *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.kind == vfs.KindHost {
		return h.readHost(ctx, dest, off)
	}
	if h.compressed {
		return h.readCompressed(ctx, dest, off)
	}
	return h.readStored(ctx, dest, off)
}

func (h *FileHandle) readHost(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if _, err := h.hostFile.Seek(off, io.SeekStart); err != nil {
		h.logger.ErrorContext(ctx, "seek failed", "path", h.path, "offset", off, "error", err)
		return nil, syscall.EIO
	}

	n, err := h.hostFile.Read(dest)
	if err != nil && err != io.EOF {
		h.logger.ErrorContext(ctx, "read failed", "path", h.path, "offset", off, "error", err)
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *FileHandle) readStored(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := h.archive.ReadPartial(h.archiveEntry.Name, off, int64(len(dest)))
	if err != nil {
		h.logger.ErrorContext(ctx, "archive read failed", "entry", h.archiveEntry.Name, "offset", off, "error", err)
		return nil, rarerrors.Errno(err)
	}
	return fuse.ReadResultData(data), 0
}

func (h *FileHandle) readCompressed(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	cacheFile, err := h.cache.Get(ctx, h.archivePath, h.archiveEntry)
	if err != nil {
		h.logger.ErrorContext(ctx, "extraction failed", "entry", h.archiveEntry.Name, "error", err)
		return nil, rarerrors.Errno(err)
	}

	reader := extractcache.NewReader(cacheFile, int64(h.archiveEntry.FileSize))
	data, err := reader.Read(off, len(dest))
	if err != nil {
		return nil, rarerrors.Errno(err)
	}
	return fuse.ReadResultData(data), 0
}

// Release closes the host file, if any; archive and cache reads open
// nothing persistent that needs releasing.
func (h *FileHandle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hostFile == nil {
		return 0
	}
	if err := h.hostFile.Close(); err != nil {
		h.logger.ErrorContext(ctx, "close failed", "path", h.path, "error", err)
	}
	return 0
}
