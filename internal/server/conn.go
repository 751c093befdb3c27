package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/chimney-labs/zippynfs/internal/logger"
	"github.com/chimney-labs/zippynfs/internal/protocol/rpc"
	"github.com/chimney-labs/zippynfs/internal/protocol/zippynfs"
)

type conn struct {
	server *Server
	conn   net.Conn
}

type fragmentHeader struct {
	IsLast bool
	Length uint32
}

func (c *conn) serve(ctx context.Context) {
	defer func() {
		c.conn.Close()
		c.server.conns.Add(-1)
		c.server.metrics.RecordConnectionClosed()
		c.server.metrics.SetActiveConnections(c.server.conns.Load())
	}()

	logger.Debug("new connection from %s", c.conn.RemoteAddr())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.handleRequest(); err != nil {
			if err != io.EOF {
				logger.Debug("connection from %s closed: %v", c.conn.RemoteAddr(), err)
			}
			return
		}
	}
}

// handleRequest reads one complete record-marked RPC message (which
// may span several fragments), dispatches it, and writes the reply.
func (c *conn) handleRequest() error {
	message, err := c.readRecord()
	if err != nil {
		return err
	}

	call, err := rpc.ReadCall(message)
	if err != nil {
		logger.Debug("malformed RPC call: %v", err)
		return nil
	}

	if call.Program != zippynfs.Program {
		logger.Debug("unsupported program %d", call.Program)
		reply, err := rpc.MakeErrorReply(call.XID, rpc.ProgMismatch)
		if err != nil {
			return err
		}
		_, err = c.conn.Write(reply)
		return err
	}

	procedureData, err := rpc.ReadData(message, call)
	if err != nil {
		return fmt.Errorf("extract procedure data: %w", err)
	}

	return c.dispatchAndReply(call, procedureData)
}

func (c *conn) dispatchAndReply(call *rpc.RPCCallMessage, data []byte) error {
	start := time.Now()
	procName := fmt.Sprintf("%d", call.Procedure)

	replyData, err := zippynfs.Dispatch(call.Procedure, data, c.server.engine)
	if err != nil {
		c.server.metrics.RecordRequest(procName, time.Since(start), "proc_unavail")
		reply, encErr := rpc.MakeErrorReply(call.XID, rpc.ProcUnavail)
		if encErr != nil {
			return encErr
		}
		_, werr := c.conn.Write(reply)
		return werr
	}

	c.server.metrics.RecordRequest(procName, time.Since(start), "ok")

	reply, err := rpc.MakeSuccessReply(call.XID, replyData)
	if err != nil {
		return fmt.Errorf("build reply: %w", err)
	}
	_, err = c.conn.Write(reply)
	return err
}

// readRecord reads fragments until the last-fragment bit is set,
// concatenating their payloads into one RPC message.
func (c *conn) readRecord() ([]byte, error) {
	var message []byte
	for {
		header, err := c.readFragmentHeader()
		if err != nil {
			return nil, err
		}
		frag := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, frag); err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}
		message = append(message, frag...)
		if header.IsLast {
			return message, nil
		}
	}
}

func (c *conn) readFragmentHeader() (*fragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.conn, buf[:]); err != nil {
		return nil, err
	}
	header := binary.BigEndian.Uint32(buf[:])
	return &fragmentHeader{
		IsLast: header&0x80000000 != 0,
		Length: header & 0x7FFFFFFF,
	}, nil
}
