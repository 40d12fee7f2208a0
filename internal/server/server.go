// Package server runs the NDMP control-connection accept loop: one TCP
// listener, one goroutine per accepted DMA connection, each driving its
// own Session through the CONNECT/CONFIG/DATA/MOVER dispatch table.
// Semaphore-limited accept loop, WaitGroup-tracked connections, a
// sync.Once-guarded shutdown channel, and a bounded graceful-shutdown
// wait before force-closing stragglers.
package server

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/araujobsd/ndmpd/internal/dispatch"
	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/reactor"
	"github.com/araujobsd/ndmpd/internal/session"
)

// headerWireSize is the encoded size of a Header: six XDR uint32 fields.
const headerWireSize = 6 * 4

// Config controls the control-connection listener.
type Config struct {
	// Addr is the TCP address to listen on, e.g. ":10000" (NDMP's
	// conventional port).
	Addr string

	// MaxConnections limits concurrent DMA sessions. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Serve's shutdown drain waits for
	// in-flight sessions before force-closing their connections.
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":10000"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Server accepts control connections and drives one Session per
// connection until EOF, a fatal transport error, or session teardown.
type Server struct {
	config Config
	deps   *dispatch.Deps
	logger *slog.Logger

	listener net.Listener

	connSemaphore chan struct{}
	active        sync.WaitGroup
	activeConns   sync.Map // remote addr -> net.Conn

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New builds a Server. deps wires the CONNECT/DATA/MOVER handlers every
// session's dispatch loop routes into.
func New(cfg Config, deps *dispatch.Deps, logger *slog.Logger) *Server {
	cfg.applyDefaults()

	var sem chan struct{}
	if cfg.MaxConnections > 0 {
		sem = make(chan struct{}, cfg.MaxConnections)
	}

	return &Server{
		config:        cfg,
		deps:          deps,
		logger:        logger,
		connSemaphore: sem,
		shutdown:      make(chan struct{}),
	}
}

// Serve listens on Config.Addr and accepts control connections until ctx
// is cancelled, then drains in-flight sessions up to ShutdownTimeout.
func (srv *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", srv.config.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", srv.config.Addr, err)
	}
	srv.listener = ln
	srv.logger.Info("ndmp server listening", "addr", ln.Addr())

	go func() {
		<-ctx.Done()
		srv.initiateShutdown()
	}()

	for {
		if srv.connSemaphore != nil {
			select {
			case srv.connSemaphore <- struct{}{}:
			case <-srv.shutdown:
				return srv.drain()
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if srv.connSemaphore != nil {
				<-srv.connSemaphore
			}
			select {
			case <-srv.shutdown:
				return srv.drain()
			default:
				srv.logger.Warn("accept failed", "error", err)
				continue
			}
		}

		srv.active.Add(1)
		srv.activeConns.Store(conn.RemoteAddr().String(), conn)
		go srv.handle(conn)
	}
}

func (srv *Server) initiateShutdown() {
	srv.shutdownOnce.Do(func() {
		close(srv.shutdown)
		if srv.listener != nil {
			_ = srv.listener.Close()
		}
	})
}

// Stop initiates shutdown and blocks until Serve returns or the passed
// context expires.
func (srv *Server) Stop(ctx context.Context) error {
	srv.initiateShutdown()
	done := make(chan struct{})
	go func() {
		srv.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (srv *Server) drain() error {
	done := make(chan struct{})
	go func() {
		srv.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(srv.config.ShutdownTimeout):
		srv.activeConns.Range(func(_, v any) bool {
			_ = v.(net.Conn).Close()
			return true
		})
		return fmt.Errorf("server: shutdown timeout, sessions force-closed")
	}
}

// handle owns conn for its lifetime, reading one control PDU at a time,
// dispatching it, and writing the reply, until the connection closes or
// the session halts. A second goroutine (pumpReactor) drives
// s.Reactor alongside it, so DATA/MOVER listen sockets get accepted even
// while this one sits blocked in ndmp.ReadPDU.
func (srv *Server) handle(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	defer func() {
		srv.activeConns.Delete(addr)
		_ = conn.Close()
		if srv.connSemaphore != nil {
			<-srv.connSemaphore
		}
		srv.active.Done()
	}()

	s := session.New(conn, srv.logger.With("session", addr))
	s.Logger.Info("session accepted")

	go pumpReactor(s)

	for {
		select {
		case <-s.Done():
			return
		default:
		}

		pdu, err := ndmp.ReadPDU(conn)
		if err != nil {
			s.Logger.Info("session connection closed", "error", err)
			return
		}

		header, err := ndmp.DecodeHeader(bytes.NewReader(pdu))
		if err != nil {
			s.Logger.Warn("malformed pdu, dropping connection", "error", err)
			return
		}
		var body *bytes.Reader
		if len(pdu) > headerWireSize {
			body = bytes.NewReader(pdu[headerWireSize:])
		} else {
			body = bytes.NewReader(nil)
		}

		reply, err := dispatch.Dispatch(s, srv.deps, header, body)
		if err != nil {
			s.Logger.Error("dispatch failed", "error", err)
			return
		}
		if reply == nil {
			// CONNECT_CLOSE: no reply, connection already torn down.
			return
		}
		if err := s.Send(reply); err != nil {
			s.Logger.Warn("send reply failed", "error", err)
			return
		}
	}
}

// reactorPollInterval bounds how long an idle DATA/MOVER listen socket
// can sit un-accepted before pumpReactor notices it. Short enough that a
// DMA connecting to a just-opened data port doesn't stall noticeably,
// long enough not to busy-loop a session with nothing registered yet.
const reactorPollInterval = 5 * time.Millisecond

// pumpReactor drives s.Reactor for the lifetime of the session, on a
// goroutine separate from the control-connection reader: it is what
// actually accepts connections on the DATA/MOVER listen sockets that
// data.Handler.Listen and mover.Handler.Listen register (data_listen
// and mover_listen). The control reader's blocking ndmp.ReadPDU
// call means this can't share a thread with it, so it polls
// non-blocking instead of parking in Select(blocking=true).
func pumpReactor(s *session.Session) {
	for {
		select {
		case <-s.Done():
			return
		default:
		}
		n, err := s.Reactor.Select(false, reactor.ClassAll)
		if err != nil {
			s.Logger.Warn("reactor select failed", "error", err)
		}
		if n == 0 {
			time.Sleep(reactorPollInterval)
		}
	}
}
