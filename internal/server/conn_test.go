package server

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFragment(t *testing.T, w net.Conn, payload []byte, last bool) {
	t.Helper()
	header := uint32(len(payload))
	if last {
		header |= 0x80000000
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], header)
	_, err := w.Write(buf[:])
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
}

func TestReadRecordReassemblesSingleFragment(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	c := &conn{conn: server}

	go writeFragment(t, client, []byte("hello"), true)

	message, err := c.readRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), message)
}

func TestReadRecordReassemblesMultipleFragments(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	c := &conn{conn: server}

	go func() {
		writeFragment(t, client, []byte("part-one-"), false)
		writeFragment(t, client, []byte("part-two"), true)
	}()

	message, err := c.readRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("part-one-part-two"), message)
}

func TestReadFragmentHeaderParsesLastBitAndLength(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	c := &conn{conn: server}

	go func() {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], 0x80000010)
		client.Write(buf[:])
	}()

	header, err := c.readFragmentHeader()
	require.NoError(t, err)
	assert.True(t, header.IsLast)
	assert.Equal(t, uint32(0x10), header.Length)
}

func TestReadRecordPropagatesConnectionClose(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	c := &conn{conn: server}
	client.Close()

	_, err := c.readRecord()
	assert.Error(t, err)
}

func TestReadRecordBlocksWithoutLastFragment(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	c := &conn{conn: server}

	go writeFragment(t, client, []byte("incomplete"), false)

	done := make(chan struct{})
	go func() {
		c.readRecord()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("readRecord returned without a last fragment")
	case <-time.After(50 * time.Millisecond):
	}
}
