package rar

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func repeatingPayload(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestOpenAndEnumerate(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := repeatingPayload(1024)
	require.NoError(t, buildStoreArchive(fs, "/src/pack.rar", "inner.bin", payload))

	a, err := Open(fs, "/src/pack.rar", TraversalAuto)
	require.NoError(t, err)

	e, ok := a.Get("inner.bin")
	require.True(t, ok)
	require.EqualValues(t, len(payload), e.FileSize)
	require.True(t, e.IsStored())
	require.False(t, e.IsDirectory)
}

func TestBulkReadRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := repeatingPayload(2048)
	require.NoError(t, buildStoreArchive(fs, "/src/pack.rar", "inner.bin", payload))

	a, err := Open(fs, "/src/pack.rar", TraversalAuto)
	require.NoError(t, err)

	got, err := a.BulkRead("inner.bin")
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, got))
}

func TestReadPartialRoundTripLaw(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := repeatingPayload(1000)
	require.NoError(t, buildStoreArchive(fs, "/src/pack.rar", "inner.bin", payload))

	a, err := Open(fs, "/src/pack.rar", TraversalAuto)
	require.NoError(t, err)

	for _, blockSize := range []int64{1, 7, 64, 999, 1000, 5000} {
		var got []byte
		for off := int64(0); off < int64(len(payload)); off += blockSize {
			chunk, err := a.ReadPartial("inner.bin", off, blockSize)
			require.NoError(t, err)
			got = append(got, chunk...)
		}
		require.Truef(t, bytes.Equal(payload, got), "block size %d produced mismatched bytes", blockSize)
	}
}

func TestReadPartialBoundaryBehaviors(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := repeatingPayload(500)
	require.NoError(t, buildStoreArchive(fs, "/src/pack.rar", "inner.bin", payload))

	a, err := Open(fs, "/src/pack.rar", TraversalAuto)
	require.NoError(t, err)

	empty, err := a.ReadPartial("inner.bin", 500, 10)
	require.NoError(t, err)
	require.Empty(t, empty)

	for _, k := range []int64{1, 7, 49, 343, 500} {
		chunk, err := a.ReadPartial("inner.bin", 500-k, 2*k)
		require.NoError(t, err)
		require.Len(t, chunk, int(k))
	}
}

func TestVolumeNamers(t *testing.T) {
	name, err := genOldVolumeName("/src/pack.rar", 0)
	require.NoError(t, err)
	require.Equal(t, "/src/pack.rar", name)

	name, err = genOldVolumeName("/src/pack.rar", 1)
	require.NoError(t, err)
	require.Equal(t, "/src/pack.r00", name)

	name, err = genOldVolumeName("/src/pack.rar", 100)
	require.NoError(t, err)
	require.Equal(t, "/src/pack.r99", name)

	name, err = genOldVolumeName("/src/pack.rar", 101)
	require.NoError(t, err)
	require.Equal(t, "/src/pack.s00", name)

	name, err = genNewVolumeName("/src/pack.part001.rar", 1)
	require.NoError(t, err)
	require.Equal(t, "/src/pack.part002.rar", name)
}

func TestIsFirstVolumeName(t *testing.T) {
	require.True(t, IsFirstVolumeName("movie.part001.rar"))
	require.True(t, IsFirstVolumeName("movie.rar"))
	require.True(t, IsFirstVolumeName("movie.001"))
	require.False(t, IsFirstVolumeName("movie.part002.rar"))
	require.False(t, IsFirstVolumeName("movie.r01"))
	require.False(t, IsFirstVolumeName("movie.txt"))
}
