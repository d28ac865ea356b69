package extractcache

import (
	"io"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/javi11/rardirfs/internal/rarerrors"
)

// Reader serves byte-range reads against a cache file that an external
// extractor may still be writing to, waiting out missing bytes up to a
// timeout before giving the caller an EAGAIN-classified error telling it
// to retry the read later — the Go equivalent of
// CompressedRarFile.wait()/read() in the original implementation.
type Reader struct {
	cacheFile string
	size      int64
}

// NewReader opens a reader over cacheFile, where size is the entry's full
// decompressed size (used to decide whether an offset still has more
// bytes coming, versus being genuinely out of range).
func NewReader(cacheFile string, size int64) *Reader {
	return &Reader{cacheFile: cacheFile, size: size}
}

// Read returns up to length bytes starting at offset, waiting for the
// extractor to produce them if they aren't there yet. It mirrors read():
// only waits when offset is within the entry's real size but past what's
// currently on disk.
func (r *Reader) Read(offset int64, length int) ([]byte, error) {
	if offset < r.size {
		if fi, err := os.Stat(r.cacheFile); err != nil || offset >= fi.Size() {
			if err := r.wait(offset, time.Second); err != nil {
				return nil, err
			}
		}
	}

	f, err := os.Open(r.cacheFile)
	if err != nil {
		return nil, rarerrors.BadArchive("extractcache: cannot open cache file", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, rarerrors.BadArchive("extractcache: seek failed", err)
	}

	buf := make([]byte, length)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, rarerrors.BadArchive("extractcache: read failed", err)
	}
	return buf[:n], nil
}

// wait polls the cache file's size every timeout/10 until the file extends
// past offset or timeout elapses, at which point it reports a
// try-again error telling the caller (and, through it, the kernel) to
// retry the read once the extractor has made more progress.
func (r *Reader) wait(offset int64, timeout time.Duration) error {
	const rounds uint = 10
	delay := timeout / time.Duration(rounds)

	err := retry.Do(
		func() error {
			fi, statErr := os.Stat(r.cacheFile)
			if statErr == nil && offset < fi.Size() {
				return nil
			}
			return rarerrors.TryAgain("extractcache: waiting for extractor")
		},
		retry.Attempts(rounds),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return rarerrors.TryAgain("extractcache: extractor did not produce enough data in time")
	}
	return nil
}
