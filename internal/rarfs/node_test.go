package rarfs

import (
	"context"
	"log/slog"
	"sort"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/javi11/rardirfs/internal/rar"
	"github.com/javi11/rardirfs/internal/vfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestRoot(t *testing.T, fs afero.Fs) *Node {
	t.Helper()
	resolver := vfs.New(fs, vfs.Predicates{}, rar.TraversalAuto, true)
	return NewRoot(resolver, nil, slog.Default(), 1000, 1000, "")
}

func TestGetattrAndReadHostFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/movie.mkv", []byte("0123456789"), 0o644))

	root := newTestRoot(t, fs)
	child := root.child("/movie.mkv")

	var attrOut fuse.AttrOut
	errno := child.Getattr(context.Background(), nil, &attrOut)
	require.Equal(t, syscall.Errno(0), errno)
	require.EqualValues(t, 10, attrOut.Size)

	fh, _, errno := child.Open(context.Background(), syscall.O_RDONLY)
	require.Equal(t, syscall.Errno(0), errno)

	buf := make([]byte, 5)
	res, errno := child.Read(context.Background(), fh, buf, 3)
	require.Equal(t, syscall.Errno(0), errno)

	out, status := res.Bytes(buf)
	require.Equal(t, fuse.OK, status)
	require.Equal(t, []byte("34567"), out)
}

func TestReaddirProjectsArchiveContents(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("hi"), 0o644))

	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, buildStoreArchive(fs, "/pack.rar", "inner.bin", payload))

	root := newTestRoot(t, fs)

	stream, errno := root.Readdir(context.Background())
	require.Equal(t, syscall.Errno(0), errno)

	var names []string
	for stream.HasNext() {
		entry, errno := stream.Next()
		require.Equal(t, syscall.Errno(0), errno)
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{"a.txt", "inner.bin"}, names)
}

func TestMutationsRefuseWithEROFS(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := newTestRoot(t, fs)

	_, _, _, errno := root.Create(context.Background(), "x", 0, 0, nil)
	require.Equal(t, syscall.EROFS, errno)

	_, errno = root.Mkdir(context.Background(), "x", 0, nil)
	require.Equal(t, syscall.EROFS, errno)

	require.Equal(t, syscall.EROFS, root.Unlink(context.Background(), "x"))
	require.Equal(t, syscall.EROFS, root.Rmdir(context.Background(), "x"))
	require.Equal(t, syscall.EROFS, root.Rename(context.Background(), "x", root, "y", 0))
}

func TestGetattrUnknownPathIsNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := newTestRoot(t, fs)
	child := root.child("/nope.txt")

	var attrOut fuse.AttrOut
	errno := child.Getattr(context.Background(), nil, &attrOut)
	require.Equal(t, syscall.ENOENT, errno)
}
