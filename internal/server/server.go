// Package server accepts TCP connections and speaks the ONC RPC
// record-marking protocol over them, handing each complete call to the
// zippynfs procedure dispatcher.
package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/chimney-labs/zippynfs/internal/fsengine"
	"github.com/chimney-labs/zippynfs/internal/logger"
	"github.com/chimney-labs/zippynfs/internal/metrics"
)

// Server listens for connections and dispatches ZippyNFS RPC calls
// against a single storage engine instance.
type Server struct {
	addr     string
	listener net.Listener
	engine   *fsengine.Engine
	metrics  metrics.OpMetrics
	conns    atomic.Int32
}

// New constructs a Server bound to addr (host:port, or :port to
// listen on all interfaces) backed by engine.
func New(addr string, engine *fsengine.Engine, m metrics.OpMetrics) *Server {
	if m == nil {
		m = metrics.NewOpMetrics()
	}
	return &Server{addr: addr, engine: engine, metrics: m}
}

// Serve blocks accepting connections until ctx is canceled or the
// listener fails. Each connection is served on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	logger.Info("zippynfs server listening on %s", s.addr)

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Warn("accept: %v", err)
				continue
			}
		}

		s.conns.Add(1)
		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveConnections(s.conns.Load())

		c := &conn{server: s, conn: tcpConn}
		go c.serve(ctx)
	}
}

// Stop closes the listener, unblocking any in-progress Accept.
func (s *Server) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
