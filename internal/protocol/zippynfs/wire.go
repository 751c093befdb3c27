// Package zippynfs implements the wire encoding and procedure dispatch
// for the ZippyNFS ONC RPC program: one XDR-encoded request/response
// pair per storage operation, carried inside the generic RPC call/reply
// envelope of the rpc package.
package zippynfs

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxOpaque bounds any single variable-length field this server will
// decode from the wire, the same defensive cap the rest of the pack
// applies to client-controlled lengths.
const maxOpaque = 4 << 20

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// writeOpaque writes an XDR variable-length opaque: a 4-byte length
// followed by the bytes, zero-padded to a 4-byte boundary.
func writeOpaque(w io.Writer, data []byte) error {
	if err := writeUint32(w, uint32(len(data))); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return writePad(w, len(data))
}

func writePad(w io.Writer, n int) error {
	pad := (4 - (n % 4)) % 4
	if pad == 0 {
		return nil
	}
	var zero [4]byte
	_, err := w.Write(zero[:pad])
	return err
}

func readOpaque(r io.Reader) ([]byte, error) {
	length, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if length > maxOpaque {
		return nil, fmt.Errorf("opaque field of %d bytes exceeds %d byte limit", length, maxOpaque)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read opaque data: %w", err)
	}
	if err := skipPad(r, int(length)); err != nil {
		return nil, err
	}
	return data, nil
}

func skipPad(r io.Reader, n int) error {
	pad := (4 - (n % 4)) % 4
	if pad == 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, int64(pad))
	return err
}

func writeString(w io.Writer, s string) error {
	return writeOpaque(w, []byte(s))
}

func readString(r io.Reader) (string, error) {
	data, err := readOpaque(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeBool(w io.Writer, b bool) error {
	if b {
		return writeUint32(w, 1)
	}
	return writeUint32(w, 0)
}

func readBool(r io.Reader) (bool, error) {
	v, err := readUint32(r)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
