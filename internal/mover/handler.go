// Package mover implements the MOVER subsystem state machine: tape
// device ownership, record size and window negotiation, and
// the listen/connect handshake that hands MOVER a data connection either
// to the DMA itself (two-way) or to a peer DATA session (three-way).
package mover

import (
	"log/slog"
	"net"

	"github.com/araujobsd/ndmpd/internal/netutil"
	"github.com/araujobsd/ndmpd/internal/notifier"
	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/reactor"
	"github.com/araujobsd/ndmpd/internal/session"
	"github.com/araujobsd/ndmpd/internal/tape"
)

// TapeOpener resolves the DMA's TAPE_DEVICE environment value (or a
// server-side default) to an open tape.Device, isolating mover from the
// concrete local-file vs S3 backend choice.
type TapeOpener func(name string) (tape.Device, error)

// Handler implements dispatch.MoverHandlers.
type Handler struct {
	OpenTape TapeOpener
	Logger   *slog.Logger
}

// New returns a Handler using opener to resolve tape device names.
func New(opener TapeOpener, logger *slog.Logger) *Handler {
	return &Handler{OpenTape: opener, Logger: logger}
}

func (h *Handler) GetState(s *session.Session) *ndmp.MoverGetStateReply {
	s.Lock()
	defer s.Unlock()
	m := s.Mover
	reply := &ndmp.MoverGetStateReply{
		Error:           ndmp.ErrNone,
		State:           m.State,
		PauseReason:     m.PauseReason,
		HaltReason:      m.HaltReason,
		RecordSize:      m.RecordSize,
		RecordNum:       m.RecordNum,
		BytesMoved:      m.BytesMoved,
		SeekPosition:    m.SeekPosition,
		BytesLeftToRead: m.BytesLeftToRead,
		WindowOffset:    m.WindowOffset,
		WindowLength:    m.WindowLength,
	}
	if _, ok := m.ListenAddr.FirstEndpoint(); ok {
		reply.HasAddr = true
		reply.DataConnAddr = m.ListenAddr
	}
	return reply
}

func (h *Handler) Listen(s *session.Session, req *ndmp.MoverListenRequest) *ndmp.MoverListenReply {
	s.Lock()
	defer s.Unlock()
	m := s.Mover
	if m.State != ndmp.MoverStateIdle {
		return &ndmp.MoverListenReply{Error: ndmp.ErrIllegalState}
	}
	if m.RecordSize == 0 {
		return &ndmp.MoverListenReply{Error: ndmp.ErrPrecondition}
	}

	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("mover listen failed", "session", s.ID, "error", err)
		}
		return &ndmp.MoverListenReply{Error: ndmp.ErrIO}
	}
	fd, err := netutil.FD(ln.(*net.TCPListener))
	if err != nil {
		_ = ln.Close()
		return &ndmp.MoverListenReply{Error: ndmp.ErrIO}
	}

	addr := ndmp.AddressFromTCP(ln.Addr().(*net.TCPAddr))
	m.ListenSocket = ln
	m.ListenAddr = addr
	m.State = ndmp.MoverStateListen

	if err := s.Reactor.AddHandler(s, fd, reactor.Read, reactor.ClassMover, func() error {
		return h.acceptOnce(s)
	}); err != nil && h.Logger != nil {
		h.Logger.Error("register mover listen handler failed", "session", s.ID, "error", err)
	}

	return &ndmp.MoverListenReply{Error: ndmp.ErrNone, Addr: addr}
}

func (h *Handler) acceptOnce(s *session.Session) error {
	s.Lock()
	ln := s.Mover.ListenSocket
	s.Unlock()
	if ln == nil {
		return nil
	}
	conn, err := ln.Accept()
	if err != nil {
		return err
	}

	s.Lock()
	s.Mover.DataConn = conn
	s.Mover.State = ndmp.MoverStateActive
	s.Unlock()

	if fd, fdErr := netutil.FD(ln.(*net.TCPListener)); fdErr == nil {
		s.Reactor.RemoveHandler(fd)
	}
	return nil
}

func (h *Handler) Continue(s *session.Session) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	if s.Mover.State != ndmp.MoverStatePaused {
		return ndmp.ErrIllegalState
	}
	s.Mover.Continue()
	return ndmp.ErrNone
}

func (h *Handler) Abort(s *session.Session) ndmp.ErrorCode {
	s.Lock()
	if s.Mover.State == ndmp.MoverStateHalted {
		s.Unlock()
		return ndmp.ErrNone
	}
	halted := s.Mover.Halt(ndmp.MoverHaltAborted)
	// Wake anything blocked on the window so it observes HALTED.
	// Continue() is a no-op once State is HALTED, so signal directly.
	select {
	case s.Mover.ContinueCh <- struct{}{}:
	default:
	}
	s.Unlock()

	if halted {
		if err := notifier.MoverHalted(s); err != nil && h.Logger != nil {
			h.Logger.Error("notify_mover_halted failed", "session", s.ID, "error", err)
		}
	}
	return ndmp.ErrNone
}

func (h *Handler) Stop(s *session.Session) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	m := s.Mover
	if m.State != ndmp.MoverStateHalted {
		return ndmp.ErrIllegalState
	}
	if m.DataConn != nil {
		_ = m.DataConn.Close()
	}
	if m.ListenSocket != nil {
		_ = m.ListenSocket.Close()
	}
	if m.Tape != nil {
		_ = m.Tape.Close()
	}
	*m = *session.NewMoverRecord()
	return ndmp.ErrNone
}

func (h *Handler) SetRecordSize(s *session.Session, req *ndmp.MoverSetRecordSizeRequest) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	if s.Mover.State != ndmp.MoverStateIdle {
		return ndmp.ErrIllegalState
	}
	if req.RecordSize == 0 {
		return ndmp.ErrIllegalArgs
	}
	s.Mover.RecordSize = req.RecordSize
	return ndmp.ErrNone
}

func (h *Handler) SetWindow(s *session.Session, req *ndmp.MoverSetWindowRequest) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	m := s.Mover
	m.WindowOffset = req.Offset
	m.WindowLength = req.Length
	if m.State == ndmp.MoverStatePaused {
		m.Continue()
	}
	return ndmp.ErrNone
}

func (h *Handler) Connect(s *session.Session, req *ndmp.MoverConnectRequest) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	m := s.Mover
	if m.State != ndmp.MoverStateIdle {
		return ndmp.ErrIllegalState
	}
	ep, ok := req.Addr.FirstEndpoint()
	if !ok {
		return ndmp.ErrIllegalArgs
	}
	conn, err := net.Dial("tcp", ep.String())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("mover connect failed", "session", s.ID, "peer", ep.String(), "error", err)
		}
		return ndmp.ErrConnectError
	}
	m.DataConn = conn
	m.State = ndmp.MoverStateActive
	return ndmp.ErrNone
}
