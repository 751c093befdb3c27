package fsengine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := New(Options{DataDir: dir, MaxAsyncBytesPerFID: 1 << 20})
	require.NoError(t, err)
	return e
}

func TestNewBootstrapsRoot(t *testing.T) {
	e := newTestEngine(t)

	attr, err := e.GetAttr(RootFID)
	require.NoError(t, err)
	require.Equal(t, TypeDirectory, attr.Type)
	require.Equal(t, RootFID, attr.FID)
}

func TestCreateLookupRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	fid, attr, err := e.Create(RootFID, "hello.txt", Sattr{})
	require.NoError(t, err)
	require.Equal(t, TypeRegular, attr.Type)

	got, err := e.Lookup(RootFID, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, fid, got)
}

func TestCreateDuplicateNameFails(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.Create(RootFID, "dup.txt", Sattr{})
	require.NoError(t, err)

	_, _, err = e.Create(RootFID, "dup.txt", Sattr{})
	require.Error(t, err)
	require.Equal(t, Exist, CodeOf(err))
}

func TestLookupMissingFails(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Lookup(RootFID, "nope")
	require.Error(t, err)
	require.Equal(t, NoEnt, CodeOf(err))
}

func TestMkdirAndReaddir(t *testing.T) {
	e := newTestEngine(t)

	dirFID, _, err := e.Mkdir(RootFID, "sub", Sattr{})
	require.NoError(t, err)

	_, _, err = e.Create(dirFID, "a.txt", Sattr{})
	require.NoError(t, err)
	_, _, err = e.Create(dirFID, "b.txt", Sattr{})
	require.NoError(t, err)

	entries, err := e.Readdir(dirFID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := map[string]bool{}
	for _, ent := range entries {
		names[ent.Name] = true
	}
	require.True(t, names["a.txt"])
	require.True(t, names["b.txt"])
}

func TestFileSyncWriteReadRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	fid, _, err := e.Create(RootFID, "file.bin", Sattr{})
	require.NoError(t, err)

	size, _, err := e.Write(fid, 0, []byte("hello world"), FileSync)
	require.NoError(t, err)
	require.Equal(t, uint64(11), size)

	data, err := e.Read(fid, 0, 11)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), data)
}

func TestUnstableWriteCommitReadRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	fid, _, err := e.Create(RootFID, "file.bin", Sattr{})
	require.NoError(t, err)

	_, _, err = e.Write(fid, 0, []byte("hello"), Unstable)
	require.NoError(t, err)

	data, err := e.Read(fid, 0, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	size, _, err := e.Commit(fid)
	require.NoError(t, err)
	require.Equal(t, uint64(5), size)

	data, err = e.Read(fid, 0, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestRemoveThenLookupFails(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.Create(RootFID, "gone.txt", Sattr{})
	require.NoError(t, err)

	require.NoError(t, e.Remove(RootFID, "gone.txt"))

	_, err = e.Lookup(RootFID, "gone.txt")
	require.Error(t, err)
	require.Equal(t, NoEnt, CodeOf(err))
}

func TestRmdirRejectsNonEmptyDir(t *testing.T) {
	e := newTestEngine(t)

	dirFID, _, err := e.Mkdir(RootFID, "sub", Sattr{})
	require.NoError(t, err)
	_, _, err = e.Create(dirFID, "a.txt", Sattr{})
	require.NoError(t, err)

	err = e.Rmdir(RootFID, "sub")
	require.Error(t, err)
	require.Equal(t, NotEmpty, CodeOf(err))
}

func TestRenameMovesAcrossDirectories(t *testing.T) {
	e := newTestEngine(t)

	srcFID, _, err := e.Mkdir(RootFID, "src", Sattr{})
	require.NoError(t, err)
	dstFID, _, err := e.Mkdir(RootFID, "dst", Sattr{})
	require.NoError(t, err)

	fid, _, err := e.Create(srcFID, "file.txt", Sattr{})
	require.NoError(t, err)

	require.NoError(t, e.Rename(srcFID, "file.txt", dstFID, "file.txt"))

	_, err = e.Lookup(srcFID, "file.txt")
	require.Error(t, err)

	got, err := e.Lookup(dstFID, "file.txt")
	require.NoError(t, err)
	require.Equal(t, fid, got)
}

func TestSetAttrTruncateDropsTrailingData(t *testing.T) {
	e := newTestEngine(t)

	fid, _, err := e.Create(RootFID, "trunc.bin", Sattr{})
	require.NoError(t, err)

	_, _, err = e.Write(fid, 0, []byte("0123456789"), FileSync)
	require.NoError(t, err)

	newSize := uint64(4)
	attr, err := e.SetAttr(fid, Sattr{Size: &newSize})
	require.NoError(t, err)
	require.Equal(t, uint64(4), attr.Size)

	data, err := e.Read(fid, 0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("0123"), data)
}

func TestStatFSReturnsHostStats(t *testing.T) {
	e := newTestEngine(t)
	stat, err := e.StatFS()
	require.NoError(t, err)
	require.NotZero(t, stat.TotalBytes)
	require.NotZero(t, stat.BlockSize)
}

func TestResolverRecoversAfterCacheLoss(t *testing.T) {
	dir := t.TempDir()
	e, err := New(Options{DataDir: dir, MaxAsyncBytesPerFID: 1 << 20})
	require.NoError(t, err)

	fid, _, err := e.Create(RootFID, "findme.txt", Sattr{})
	require.NoError(t, err)

	// Simulate losing the advisory cache (e.g. a restart): a fresh
	// engine over the same directory has to BFS to find the file.
	reopened, err := New(Options{DataDir: dir, MaxAsyncBytesPerFID: 1 << 20})
	require.NoError(t, err)

	attr, err := reopened.GetAttr(fid)
	require.NoError(t, err)
	require.Equal(t, fid, attr.FID)
}

func TestEngineNewIsIdempotentAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Options{DataDir: dir})
	require.NoError(t, err)

	// Re-opening must not fail even though the root pair already
	// exists on disk.
	_, err = New(Options{DataDir: dir})
	require.NoError(t, err)
}

func TestEngineHealsHalfCreatedRoot(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.MkdirAll(layout.TmpDir(), 0o700))
	// Only the data half of the root pair exists, simulating a crash
	// between the two renames in createRootPair.
	require.NoError(t, os.Mkdir(layout.RootPath(), 0o755))

	e, err := New(Options{DataDir: dir})
	require.NoError(t, err)

	attr, err := e.GetAttr(RootFID)
	require.NoError(t, err)
	require.Equal(t, TypeDirectory, attr.Type)
}
