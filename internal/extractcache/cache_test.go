package extractcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/javi11/rardirfs/internal/rar"
	"github.com/javi11/rardirfs/internal/rarerrors"
	"github.com/stretchr/testify/require"
)

// fakeExtractor simulates an unrar process that writes its output in two
// chunks a short delay apart, so tests can exercise the poll-and-wait
// paths without spawning a real binary.
type fakeExtractor struct {
	payload    []byte
	chunkDelay time.Duration
	fail       bool
}

func (f fakeExtractor) ExtractToDir(ctx context.Context, archivePath string, e *rar.Entry, destDir string) error {
	if f.fail {
		return os.ErrInvalid
	}

	path := filepath.Join(destDir, filepath.Base(e.Name))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	half := len(f.payload) / 2
	if _, err := out.Write(f.payload[:half]); err != nil {
		return err
	}
	out.Sync()

	if f.chunkDelay > 0 {
		time.Sleep(f.chunkDelay)
	}

	if _, err := out.Write(f.payload[half:]); err != nil {
		return err
	}
	return out.Sync()
}

func TestGetSpawnsAndWaitsForFile(t *testing.T) {
	dir := t.TempDir()
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}

	m, err := newWithExtractor(dir, fakeExtractor{payload: payload, chunkDelay: 20 * time.Millisecond})
	require.NoError(t, err)

	e := &rar.Entry{Name: "inner.bin", FileSize: uint64(len(payload))}

	cacheFile, err := m.Get(context.Background(), "/archives/a.rar", e)
	require.NoError(t, err)
	require.FileExists(t, cacheFile)
}

func TestGetReturnsCachedWhenComplete(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("hello world")

	m, err := newWithExtractor(dir, fakeExtractor{payload: payload})
	require.NoError(t, err)

	e := &rar.Entry{Name: "inner.bin", FileSize: uint64(len(payload))}

	first, err := m.Get(context.Background(), "/archives/a.rar", e)
	require.NoError(t, err)

	// Give the background extraction time to finish before re-checking.
	require.Eventually(t, func() bool {
		info, statErr := os.Stat(first)
		return statErr == nil && info.Size() == int64(len(payload))
	}, time.Second, 10*time.Millisecond)

	second, err := m.Get(context.Background(), "/archives/a.rar", e)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestReaderWaitsForBytesThenReturnsThem(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "inner.bin")

	f, err := os.Create(cacheFile)
	require.NoError(t, err)
	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	go func() {
		time.Sleep(50 * time.Millisecond)
		f, _ := os.OpenFile(cacheFile, os.O_WRONLY|os.O_APPEND, 0o644)
		_, _ = f.Write([]byte("abcdef"))
		f.Close()
	}()

	r := NewReader(cacheFile, 16)
	data, err := r.Read(10, 6)
	require.NoError(t, err)
	require.Equal(t, []byte("abcdef"), data)
}

func TestReaderTimesOutWithTryAgain(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "inner.bin")
	require.NoError(t, os.WriteFile(cacheFile, []byte("01234"), 0o644))

	r := &Reader{cacheFile: cacheFile, size: 100}
	err := r.wait(5, 30*time.Millisecond)
	require.ErrorIs(t, err, rarerrors.ErrTryAgain)
}
