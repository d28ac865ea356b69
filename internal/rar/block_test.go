package rar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnpackDOSTime(t *testing.T) {
	// 2021-03-14 13:08:22 (even seconds only; DOS time has 2s resolution).
	var stamp uint32
	stamp |= uint32(22/2) & 0x1F
	stamp |= uint32(8) << 5
	stamp |= uint32(13) << 11
	stamp |= uint32(14) << 16
	stamp |= uint32(3) << 21
	stamp |= uint32(2021-1980) << 25

	got := unpackDOSTime(stamp)
	want := time.Date(2021, 3, 14, 13, 8, 22, 0, time.UTC)
	require.True(t, got.Equal(want), "got %v want %v", got, want)
}
