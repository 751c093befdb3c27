package zippynfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadUint32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint32(&buf, 0xdeadbeef))
	got, err := readUint32(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), got)
}

func TestWriteReadUint64RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint64(&buf, 0x0102030405060708))
	got, err := readUint64(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), got)
}

func TestOpaquePadsToFourByteBoundary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOpaque(&buf, []byte("abc")))
	// length(4) + "abc"(3) + pad(1) = 8 bytes.
	assert.Equal(t, 8, buf.Len())

	got, err := readOpaque(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestOpaqueExactMultipleOfFourHasNoPad(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOpaque(&buf, []byte("abcd")))
	assert.Equal(t, 8, buf.Len())
}

func TestReadOpaqueRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint32(&buf, maxOpaque+1))
	_, err := readOpaque(&buf)
	assert.Error(t, err)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeString(&buf, "hello.txt"))
	got, err := readString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", got)
}

func TestBoolRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBool(&buf, true))
	require.NoError(t, writeBool(&buf, false))

	got, err := readBool(&buf)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = readBool(&buf)
	require.NoError(t, err)
	assert.False(t, got)
}
