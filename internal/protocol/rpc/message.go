// Package rpc implements the generic ONC RPC call/reply envelope that
// carries every ZippyNFS procedure invocation (spec §6): record
// marking, the call header, and success/error reply framing. It knows
// nothing about ZippyNFS's own procedures — that's protocol/zippynfs.
package rpc

// RPCCallMessage is the fixed header every RPC call opens with, per
// RFC 1831 minus the fields this server doesn't need to inspect.
type RPCCallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// RPCReplyMessage is the fixed header prefixing a successful reply.
// The procedure's own encoded result follows immediately after.
type RPCReplyMessage struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	Verf       OpaqueAuth
	AcceptStat uint32
}

// OpaqueAuth is the credential/verifier shape carried in both the call
// and reply headers. This server only ever produces AUTH_NULL.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}
