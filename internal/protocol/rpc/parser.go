package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// ReadCall unmarshals the fixed RPC call header from the front of a
// record-marked message.
func ReadCall(data []byte) (*RPCCallMessage, error) {
	call := &RPCCallMessage{}
	if _, err := xdr.Unmarshal(bytes.NewReader(data), call); err != nil {
		return nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}
	if call.MsgType != MsgCall {
		return nil, fmt.Errorf("expected CALL (0), got %d", call.MsgType)
	}
	return call, nil
}

// ReadData returns the bytes of message that follow the call header,
// i.e. the procedure-specific argument payload. It recomputes the
// header's length by hand rather than asking xdr2 for bytes consumed,
// since credentials and verifiers are variable-length opaque fields.
func ReadData(message []byte, call *RPCCallMessage) ([]byte, error) {
	// XID, MsgType, RPCVersion, Program, Version, Procedure: 6 * 4 bytes.
	offset := 24

	offset += 4 // cred flavor
	if offset+4 > len(message) {
		return nil, fmt.Errorf("truncated message: missing cred length")
	}
	credLen := binary.BigEndian.Uint32(message[offset : offset+4])
	offset += 4 + int(credLen)
	offset += int(padLen(credLen))

	if offset+4 > len(message) {
		return nil, fmt.Errorf("truncated message: missing verf header")
	}
	offset += 4 // verf flavor
	verfLen := binary.BigEndian.Uint32(message[offset : offset+4])
	offset += 4 + int(verfLen)
	offset += int(padLen(verfLen))

	if offset >= len(message) {
		return []byte{}, nil
	}
	return message[offset:], nil
}

func padLen(n uint32) uint32 {
	return (4 - (n % 4)) % 4
}

// MakeSuccessReply frames data (the already-encoded procedure result)
// behind an ACCEPTED/SUCCESS reply header and a record-marking
// fragment header with the last-fragment bit set.
func MakeSuccessReply(xid uint32, data []byte) ([]byte, error) {
	reply := RPCReplyMessage{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf:       OpaqueAuth{Flavor: 0, Body: []byte{}},
		AcceptStat: Success,
	}
	return marshalReply(&reply, data)
}

// MakeErrorReply frames an ACCEPTED reply whose accept status is not
// SUCCESS (e.g. ProcUnavail for an unrecognized procedure number). No
// procedure-specific payload follows an error accept status.
func MakeErrorReply(xid uint32, acceptStat uint32) ([]byte, error) {
	reply := RPCReplyMessage{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf:       OpaqueAuth{Flavor: 0, Body: []byte{}},
		AcceptStat: acceptStat,
	}
	return marshalReply(&reply, nil)
}

func marshalReply(reply *RPCReplyMessage, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	buf.Write(data)

	replyData := buf.Bytes()
	fragmentHeader := make([]byte, 4)
	binary.BigEndian.PutUint32(fragmentHeader, 0x80000000|uint32(len(replyData)))
	return append(fragmentHeader, replyData...), nil
}
