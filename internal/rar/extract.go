package rar

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/javi11/rardirfs/internal/rarerrors"
)

// buildFabricatedMainHeader encodes the fabricated MAIN block header the
// extract hack prefixes onto a single-entry mini-archive: crc=0x90CF,
// type=0x73 (MAIN), flags=0, size=13, reserved1=0, reserved2=0.
func buildFabricatedMainHeader() []byte {
	buf := make([]byte, 13)
	binary.LittleEndian.PutUint16(buf[0:2], 0x90CF)
	buf[2] = blockMain
	binary.LittleEndian.PutUint16(buf[3:5], 0)
	binary.LittleEndian.PutUint16(buf[5:7], 13)
	binary.LittleEndian.PutUint16(buf[7:9], 0)
	binary.LittleEndian.PutUint32(buf[9:13], 0)
	return buf
}

// ExtractCompressed pipes the interior entry through an external
// unrar-compatible extractor and returns its full decompressed output. It
// is only suitable for entries small enough to buffer in memory; callers
// serving byte-range reads should prefer the extraction cache instead.
func ExtractCompressed(ctx context.Context, extractorPath, archivePath string, e *Entry, useHack, isSolid, usesVolumes bool) ([]byte, error) {
	if useHack && !isSolid && !usesVolumes {
		return extractViaHack(ctx, extractorPath, archivePath, e)
	}
	return runExtractorPipe(ctx, extractorPath, archivePath, e.Name)
}

// runExtractorPipe invokes `<extractor> p -inul <archivePath> <name>` and
// returns everything written to stdout. A non-zero exit is reported as a
// bad-archive error.
func runExtractorPipe(ctx context.Context, extractorPath, archivePath, name string) ([]byte, error) {
	interior := normalizeInteriorName(name)

	cmd := exec.CommandContext(ctx, extractorPath, "p", "-inul", archivePath, interior)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		return nil, rarerrors.BadArchive(fmt.Sprintf("rar: extractor failed on %s", interior), err)
	}

	return stdout.Bytes(), nil
}

// normalizeInteriorName rewrites backslash separators to forward slashes
// (what a Linux unrar binary expects) and escapes the shell metacharacters
// that would otherwise need escaping if the invocation went through a
// shell.
func normalizeInteriorName(name string) string {
	n := strings.ReplaceAll(name, `\`, "/")
	n = strings.ReplaceAll(n, "`", "\\`")
	n = strings.ReplaceAll(n, `"`, `\"`)
	n = strings.ReplaceAll(n, "$", "\\$")
	return n
}

// extractViaHack builds a temporary single-entry archive containing only
// e's header and payload, prefixed with the signature and a fabricated
// MAIN header, and runs the extractor against that instead of the full
// archive. This avoids the extractor scanning a potentially large archive
// for one small entry. Only valid for non-solid, non-volume archives,
// where the entry's bytes are self-contained.
func extractViaHack(ctx context.Context, extractorPath, archivePath string, e *Entry) ([]byte, error) {
	const bufSize = 32 * 1024

	src, err := os.Open(archivePath)
	if err != nil {
		return nil, rarerrors.BadArchive("rar: cannot open archive for extract hack", err)
	}
	defer src.Close()

	if _, err := src.Seek(e.HeaderOffset, io.SeekStart); err != nil {
		return nil, rarerrors.BadArchive("rar: seek failed in extract hack", err)
	}

	tmp, err := os.CreateTemp("", fmt.Sprintf("rardirfs-%s-*.rar", uuid.NewString()))
	if err != nil {
		return nil, rarerrors.BadArchive("rar: cannot create temp archive", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	size := int64(e.CompressSize) + int64(e.HeaderSize)

	if _, err := tmp.Write(signature[:]); err != nil {
		tmp.Close()
		return nil, rarerrors.BadArchive("rar: write failed in extract hack", err)
	}
	if _, err := tmp.Write(buildFabricatedMainHeader()); err != nil {
		tmp.Close()
		return nil, rarerrors.BadArchive("rar: write failed in extract hack", err)
	}

	buf := make([]byte, bufSize)
	for size > 0 {
		want := int64(len(buf))
		if size < want {
			want = size
		}
		n, err := src.Read(buf[:want])
		if n == 0 {
			tmp.Close()
			return nil, rarerrors.BadArchive("rar: read failed - broken archive", err)
		}
		if _, werr := tmp.Write(buf[:n]); werr != nil {
			tmp.Close()
			return nil, rarerrors.BadArchive("rar: write failed in extract hack", werr)
		}
		size -= int64(n)
	}
	if err := tmp.Close(); err != nil {
		return nil, rarerrors.BadArchive("rar: close failed in extract hack", err)
	}

	return runExtractorPipe(ctx, extractorPath, tmpName, e.Name)
}

// ExtractToDir extracts e's interior file into destDir using
// `<extractor> e -inul -y <archivePath> <interior> <destDir>`, used by the
// extraction cache to materialize a compressed entry on disk for
// incremental reads rather than buffering it in memory.
func ExtractToDir(ctx context.Context, extractorPath, archivePath string, e *Entry, destDir string) error {
	interior := normalizeInteriorName(e.Name)

	cmd := exec.CommandContext(ctx, extractorPath, "e", "-inul", "-y", archivePath, interior, destDir)
	if err := cmd.Run(); err != nil {
		return rarerrors.BadArchive(fmt.Sprintf("rar: extractor failed extracting %s", interior), err)
	}
	return nil
}

// cacheFileName returns the basename the extractor writes the entry under
// inside its destination directory.
func cacheFileName(e *Entry) string {
	return filepath.Base(normalizeInteriorName(e.Name))
}
