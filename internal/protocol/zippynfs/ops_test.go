package zippynfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullRoundTrip(t *testing.T) {
	args, err := decodeNullArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, NullArgs{}, args)

	data, err := NullResult{}.Encode()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestGetAttrRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 42))

	args, err := decodeGetAttrArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, GetAttrArgs{FID: 42}, args)

	res := GetAttrResult{Status: StatusOK, Attr: sampleAttr()}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	errRes := GetAttrResult{Status: StatusNoEnt}
	data, err = errRes.Encode()
	require.NoError(t, err)
	assert.Len(t, data, 4) // status only, no attr on error
}

func TestSetAttrRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 5))
	sattr := Sattr{HasSize: true, Size: 10}
	require.NoError(t, sattr.encode(&buf))

	got, err := decodeSetAttrArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, SetAttrArgs{FID: 5, Sattr: sattr}, got)

	res := SetAttrResult{Status: StatusOK, Attr: sampleAttr()}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestLookupRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 1))
	require.NoError(t, writeString(&buf, "child.txt"))

	got, err := decodeLookupArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, LookupArgs{DirFID: 1, Name: "child.txt"}, got)

	res := LookupResult{Status: StatusOK, FID: 9}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.Equal(t, 12, len(data)) // status(4) + fid(8)
}

func TestReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 3))
	require.NoError(t, writeUint64(&buf, 100))
	require.NoError(t, writeUint32(&buf, 50))

	got, err := decodeReadArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ReadArgs{FID: 3, Offset: 100, Length: 50}, got)

	res := ReadResult{Status: StatusOK, Data: []byte("payload")}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 2))
	require.NoError(t, writeUint64(&buf, 0))
	require.NoError(t, writeUint32(&buf, WriteFileSync))
	require.NoError(t, writeOpaque(&buf, []byte("hello")))

	got, err := decodeWriteArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, WriteArgs{FID: 2, Offset: 0, Stability: WriteFileSync, Data: []byte("hello")}, got)

	res := WriteResult{Status: StatusOK, Size: 5, Epoch: 1}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.Equal(t, 20, len(data)) // status(4) + size(8) + epoch(8)
}

func TestCreateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 1))
	require.NoError(t, writeString(&buf, "new.txt"))
	sattr := Sattr{HasMode: true, Mode: 0o644}
	require.NoError(t, sattr.encode(&buf))

	got, err := decodeCreateArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, CreateArgs{DirFID: 1, Name: "new.txt", Sattr: sattr}, got)

	res := CreateResult{Status: StatusOK, FID: 10, Attr: sampleAttr()}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRemoveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 1))
	require.NoError(t, writeString(&buf, "gone.txt"))

	got, err := decodeRemoveArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, RemoveArgs{DirFID: 1, Name: "gone.txt"}, got)

	data, err := RemoveResult{Status: StatusOK}.Encode()
	require.NoError(t, err)
	assert.Equal(t, 4, len(data))
}

func TestRenameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 1))
	require.NoError(t, writeString(&buf, "a"))
	require.NoError(t, writeUint64(&buf, 2))
	require.NoError(t, writeString(&buf, "b"))

	got, err := decodeRenameArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, RenameArgs{SrcDirFID: 1, SrcName: "a", DstDirFID: 2, DstName: "b"}, got)

	data, err := RenameResult{Status: StatusOK}.Encode()
	require.NoError(t, err)
	assert.Equal(t, 4, len(data))
}

func TestReaddirRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 1))

	got, err := decodeReaddirArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ReaddirArgs{DirFID: 1}, got)

	res := ReaddirResult{Status: StatusOK, Entries: []ReaddirEntry{
		{Name: "a.txt", FID: 2},
		{Name: "b.txt", FID: 3},
	}}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	empty := ReaddirResult{Status: StatusOK}
	data, err = empty.Encode()
	require.NoError(t, err)
	assert.Equal(t, 8, len(data)) // status(4) + count(4)
}

func TestStatFSRoundTrip(t *testing.T) {
	args, err := decodeStatFSArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, StatFSArgs{}, args)

	res := StatFSResult{
		Status: StatusOK, TotalBytes: 1000, FreeBytes: 500,
		AvailBytes: 400, TotalFiles: 100, FreeFiles: 50, BlockSize: 4096,
	}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestCommitRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 4))

	got, err := decodeCommitArgs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, CommitArgs{FID: 4}, got)

	res := CommitResult{Status: StatusOK, Size: 10, Epoch: 2}
	data, err := res.Encode()
	require.NoError(t, err)
	assert.Equal(t, 20, len(data))
}
