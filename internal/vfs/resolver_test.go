package vfs

import (
	"regexp"
	"sort"
	"testing"

	"github.com/javi11/rardirfs/internal/rar"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, fs afero.Fs, filter, flatten PatternList) *Resolver {
	t.Helper()
	return New(fs, Predicates{Filter: filter, Flatten: flatten}, rar.TraversalAuto, true)
}

func TestPlainFileAndArchiveProjection(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("hello\n"), 0o644))

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, buildStoreArchive(fs, "/pack.rar", "inner.bin", payload))

	r := newTestResolver(t, fs, nil, nil)

	names, err := r.Readdir("/")
	require.NoError(t, err)
	sort.Strings(names)
	require.Equal(t, []string{"a.txt", "inner.bin"}, names)

	st, err := r.Getattr("/inner.bin")
	require.NoError(t, err)
	require.EqualValues(t, 1024, st.Size)

	st, err = r.Getattr("/a.txt")
	require.NoError(t, err)
	require.EqualValues(t, 6, st.Size)
}

func TestFilteredFileIsHidden(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/sample.txt", make([]byte, 500), 0o644))

	filter := PatternList{mustCompile(t, `^sample\..*$`)}
	r := newTestResolver(t, fs, filter, nil)

	_, err := r.Getattr("/sample.txt")
	require.Error(t, err)

	names, err := r.Readdir("/")
	require.NoError(t, err)
	require.NotContains(t, names, "sample.txt")
}

func TestFlattenSplicesDirectoryChildren(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/S01E01/CD1", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/S01E01/CD1/notes.txt", []byte("x"), 0o644))

	flatten := PatternList{mustCompile(t, `^CD\d+$`)}
	r := newTestResolver(t, fs, nil, flatten)

	names, err := r.Readdir("/S01E01")
	require.NoError(t, err)
	require.Equal(t, []string{"notes.txt"}, names)
}

func TestFilterWinsOverFlattenOnSameName(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/root/CD1", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/root/CD1/notes.txt", []byte("x"), 0o644))

	filter := PatternList{mustCompile(t, `^CD\d+$`)}
	flatten := PatternList{mustCompile(t, `^CD\d+$`)}
	r := newTestResolver(t, fs, filter, flatten)

	names, err := r.Readdir("/root")
	require.NoError(t, err)
	require.Empty(t, names)
}

func mustCompile(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	return regexp.MustCompile(pattern)
}
