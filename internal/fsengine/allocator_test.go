package fsengine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatorFirstFID(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(dir)
	require.NoError(t, os.MkdirAll(layout.TmpDir(), 0o700))

	alloc, err := NewAllocator(layout)
	require.NoError(t, err)

	fid, err := alloc.Next()
	require.NoError(t, err)
	require.Equal(t, firstAllocatedFID, fid)

	fid, err = alloc.Next()
	require.NoError(t, err)
	require.Equal(t, firstAllocatedFID+1, fid)
}

func TestAllocatorPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(dir)
	require.NoError(t, os.MkdirAll(layout.TmpDir(), 0o700))

	alloc, err := NewAllocator(layout)
	require.NoError(t, err)
	_, err = alloc.Next()
	require.NoError(t, err)
	last, err := alloc.Next()
	require.NoError(t, err)

	restarted, err := NewAllocator(layout)
	require.NoError(t, err)
	next, err := restarted.Next()
	require.NoError(t, err)
	require.Equal(t, last+1, next)
}

func TestAllocatorRejectsMalformedCounter(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(dir)
	require.NoError(t, os.MkdirAll(layout.TmpDir(), 0o700))
	require.NoError(t, os.WriteFile(layout.CounterPath(), []byte("not-a-number"), 0o600))

	_, err := NewAllocator(layout)
	require.Error(t, err)
}
