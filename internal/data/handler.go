// Package data implements the DATA subsystem state machine: the
// IDLE/LISTEN/CONNECTED/ACTIVE/HALTED states, the archive worker
// lifecycle (start_backup/start_recover), and the environment and
// name-list bookkeeping a DMA queries via get_env/get_state.
package data

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/araujobsd/ndmpd/internal/archive"
	"github.com/araujobsd/ndmpd/internal/catalog"
	"github.com/araujobsd/ndmpd/internal/mover"
	"github.com/araujobsd/ndmpd/internal/netutil"
	"github.com/araujobsd/ndmpd/internal/notifier"
	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/reactor"
	"github.com/araujobsd/ndmpd/internal/session"
)

// tapeDeviceEnvVar is the DMA-supplied environment variable naming the
// tape device for a session that never issues mover_listen/mover_connect
// (the common single-process "2-way" backup where DATA and MOVER share a
// tape attached directly to this host, NDMP has no TAPE_OPEN message;
// the DMA conveys the device through the env list start_backup/
// start_recover already carries).
const tapeDeviceEnvVar = "TAPE_DEVICE"

// backupIDEnvVar is the DMA-supplied environment variable identifying the
// backup a recover's name list resolves against in Catalog. Like
// tapeDeviceEnvVar, NDMP defines no dedicated message for this; the
// DMA conveys it through the env list start_backup/start_recover already
// carries.
const backupIDEnvVar = "BACKUP_ID"

// supportedButTypes are the backup types this server's archive engines
// can run. An unsupported bu_type must be rejected synchronously, before
// touching DATA's state: ILLEGAL_ARGS_ERR, state left at CONNECTED.
var supportedButTypes = map[string]bool{
	"tar":  true,
	"dump": true,
}

// Handler implements dispatch.DataHandlers. Engine is the archive worker
// factory: production wires it to the tar/dump engine in internal/archive;
// tests substitute a stub that records calls without touching real I/O.
// OpenTape resolves tapeDeviceEnvVar for the local-tape shortcut below; it
// is the same opener mover.Handler uses, shared so both subsystems agree
// on local-file vs S3 backend selection.
// Catalog, if non-nil, lets start_recover reject a name-list entry whose
// path was never recorded under the requested backup before the archive
// worker starts streaming.
type Handler struct {
	Engine   archive.EngineFactory
	OpenTape mover.TapeOpener
	Catalog  catalog.Store
	Logger   *slog.Logger
}

// New returns a Handler wired to the given archive engine factory, tape
// opener, and file-history catalog. cat may be nil to disable nlist
// validation against a catalog entirely.
func New(engine archive.EngineFactory, opener mover.TapeOpener, cat catalog.Store, logger *slog.Logger) *Handler {
	return &Handler{Engine: engine, OpenTape: opener, Catalog: cat, Logger: logger}
}

// attachLocalTape resolves TAPE_DEVICE from env, if present, and wires it
// directly into MOVER, skipping mover_listen/mover_connect entirely: there
// is no remote peer to rendezvous with when DATA and MOVER share a tape
// attached to this host. No-op if the DMA never set TAPE_DEVICE (the
// DMA-driven mover_listen/mover_connect path handles two-way and
// three-way sessions instead) or if MOVER already has a connection.
func (h *Handler) attachLocalTape(s *session.Session, env *session.Environment) ndmp.ErrorCode {
	device, ok := env.Get(tapeDeviceEnvVar)
	if !ok || device == "" {
		return ndmp.ErrNone
	}
	m := s.Mover
	if m.State != ndmp.MoverStateIdle {
		return ndmp.ErrNone
	}
	if h.OpenTape == nil {
		return ndmp.ErrNoDevice
	}
	dev, err := h.OpenTape(device)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("local tape open failed", "session", s.ID, "device", device, "error", err)
		}
		return ndmp.ErrNoDevice
	}
	m.Tape = dev
	m.State = ndmp.MoverStateActive
	return ndmp.ErrNone
}

// validateNList rejects a start_recover whose name list names a path the
// catalog never recorded under BACKUP_ID, before any archive worker
// starts streaming. No-op if Catalog is nil or the DMA never supplied
// BACKUP_ID.
func (h *Handler) validateNList(s *session.Session, env *session.Environment, nlist []ndmp.NameListEntry) ndmp.ErrorCode {
	if h.Catalog == nil {
		return ndmp.ErrNone
	}
	backupID, ok := env.Get(backupIDEnvVar)
	if !ok || backupID == "" {
		return ndmp.ErrNone
	}
	for _, entry := range nlist {
		_, found, err := h.Catalog.Lookup(context.Background(), backupID, entry.OriginalPath)
		if err != nil {
			if h.Logger != nil {
				h.Logger.Error("catalog lookup failed", "session", s.ID, "backup_id", backupID, "path", entry.OriginalPath, "error", err)
			}
			return ndmp.ErrIllegalArgs
		}
		if !found {
			return ndmp.ErrFileNotFound
		}
	}
	return ndmp.ErrNone
}

func (h *Handler) GetState(s *session.Session) *ndmp.GetStateReply {
	s.Lock()
	defer s.Unlock()
	d := s.Data
	reply := &ndmp.GetStateReply{
		Error:          ndmp.ErrNone,
		Operation:      d.Operation,
		State:          d.State,
		HaltReason:     d.HaltReason,
		BytesProcessed: d.BytesProcessed,
		EstBytesRemain: d.EstBytesRemain,
		EstTimeRemain:  d.EstTimeRemain,
		ReadOffset:     d.ReadOffset,
		ReadLength:     d.ReadLength,
	}
	if _, ok := d.ListenAddr.FirstEndpoint(); ok {
		reply.HasAddr = true
		reply.DataConnAddr = d.ListenAddr
	}
	return reply
}

func (h *Handler) StartBackup(s *session.Session, req *ndmp.StartBackupRequest) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	d := s.Data
	if d.State != ndmp.DataStateConnected {
		return ndmp.ErrIllegalState
	}
	if !supportedButTypes[req.ButType] {
		return ndmp.ErrIllegalArgs
	}
	d.Operation = ndmp.DataOpBackup
	d.ButType = req.ButType
	d.Env = session.NewEnvironment(req.Env)
	if errCode := h.attachLocalTape(s, d.Env); errCode != ndmp.ErrNone {
		return errCode
	}
	d.State = ndmp.DataStateActive

	go h.run(s, archive.ModeBackup, req.ButType, nil)
	return ndmp.ErrNone
}

func (h *Handler) StartRecover(s *session.Session, req *ndmp.StartRecoverRequest) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	d := s.Data
	if d.State != ndmp.DataStateConnected {
		return ndmp.ErrIllegalState
	}
	if !supportedButTypes[req.ButType] {
		return ndmp.ErrIllegalArgs
	}
	d.Operation = ndmp.DataOpRecover
	d.ButType = req.ButType
	d.Env = session.NewEnvironment(req.Env)
	if errCode := h.attachLocalTape(s, d.Env); errCode != ndmp.ErrNone {
		return errCode
	}
	if errCode := h.validateNList(s, d.Env, req.NList); errCode != ndmp.ErrNone {
		return errCode
	}
	d.NList = req.NList
	d.State = ndmp.DataStateActive

	go h.run(s, archive.ModeRecover, req.ButType, req.NList)
	return ndmp.ErrNone
}

// run drives one archive operation to completion, then halts DATA. It
// runs on its own goroutine (the "archive worker thread") and reads
// session fields only while holding its lock. AbortRequested is checked
// once, after Engine.Run returns: data_abort does not interrupt a running
// engine, it only turns the eventual halt reason into ABORTED.
func (h *Handler) run(s *session.Session, mode archive.Mode, butType string, nlist []ndmp.NameListEntry) {
	engine, err := h.Engine(butType)
	if err != nil {
		h.finish(s, ndmp.DataHaltInternalError)
		return
	}

	s.Lock()
	env := s.Data.Env
	s.Unlock()

	params := archive.Params{
		Mode:    mode,
		NList:   nlist,
		Env:     env,
		Session: s,
	}

	reason := ndmp.DataHaltSuccessful
	if err := engine.Run(params); err != nil {
		if h.Logger != nil {
			h.Logger.Error("archive worker failed", "session", s.ID, "error", err)
		}
		reason = ndmp.DataHaltInternalError
	}
	s.Lock()
	aborted := s.Data.AbortRequested
	s.Unlock()
	if aborted {
		reason = ndmp.DataHaltAborted
	}
	h.finish(s, reason)
}

func (h *Handler) finish(s *session.Session, reason ndmp.DataHaltReason) {
	s.Lock()
	halted := s.Data.Halt(reason)
	s.Unlock()
	if !halted {
		return
	}
	if err := notifier.DataHalted(s, ""); err != nil && h.Logger != nil {
		h.Logger.Error("notify_data_halted failed", "session", s.ID, "error", err)
	}
}

// Abort implements the full DATA state table for data_abort: IDLE has
// nothing running to abort and rejects; LISTEN and CONNECTED have no
// archive worker yet, so they halt immediately; ACTIVE only sets
// AbortRequested, and DATA halts with ABORTED once the worker's
// Engine.Run returns on its own (the running engine is not interrupted);
// HALTED is already terminal and is a no-op.
func (h *Handler) Abort(s *session.Session) ndmp.ErrorCode {
	s.Lock()
	d := s.Data
	switch d.State {
	case ndmp.DataStateIdle:
		s.Unlock()
		return ndmp.ErrIllegalState
	case ndmp.DataStateListen, ndmp.DataStateConnected:
		halted := d.Halt(ndmp.DataHaltAborted)
		s.Unlock()
		if halted {
			if err := notifier.DataHalted(s, ""); err != nil && h.Logger != nil {
				h.Logger.Error("notify_data_halted failed", "session", s.ID, "error", err)
			}
		}
		return ndmp.ErrNone
	case ndmp.DataStateActive:
		d.AbortRequested = true
		s.Unlock()
		return ndmp.ErrNone
	default: // HALTED
		s.Unlock()
		return ndmp.ErrNone
	}
}

func (h *Handler) Stop(s *session.Session) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	d := s.Data
	if d.State != ndmp.DataStateHalted {
		return ndmp.ErrIllegalState
	}
	if d.DataConn != nil {
		_ = d.DataConn.Close()
	}
	if d.ListenSocket != nil {
		_ = d.ListenSocket.Close()
	}
	d.Reset()
	return ndmp.ErrNone
}

func (h *Handler) GetEnv(s *session.Session) *ndmp.GetEnvReply {
	s.Lock()
	defer s.Unlock()
	return &ndmp.GetEnvReply{Error: ndmp.ErrNone, Env: s.Data.Env.List()}
}

func (h *Handler) Listen(s *session.Session, req *ndmp.ListenRequest) *ndmp.ListenReply {
	s.Lock()
	defer s.Unlock()
	d := s.Data
	if d.State != ndmp.DataStateIdle {
		return &ndmp.ListenReply{Error: ndmp.ErrIllegalState}
	}

	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("data listen failed", "session", s.ID, "error", err)
		}
		return &ndmp.ListenReply{Error: ndmp.ErrIO}
	}

	fd, err := netutil.FD(ln.(*net.TCPListener))
	if err != nil {
		_ = ln.Close()
		return &ndmp.ListenReply{Error: ndmp.ErrIO}
	}

	addr := ndmp.AddressFromTCP(ln.Addr().(*net.TCPAddr))
	d.ListenSocket = ln
	d.ListenAddr = addr
	d.State = ndmp.DataStateListen

	err = s.Reactor.AddHandler(s, fd, reactor.Read, reactor.ClassConnection, func() error {
		return h.acceptOnce(s)
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("register data listen handler failed", "session", s.ID, "error", err)
		}
	}

	return &ndmp.ListenReply{Error: ndmp.ErrNone, Addr: addr}
}

func (h *Handler) acceptOnce(s *session.Session) error {
	s.Lock()
	ln := s.Data.ListenSocket
	s.Unlock()
	if ln == nil {
		return nil
	}
	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("data accept: %w", err)
	}

	s.Lock()
	s.Data.DataConn = conn
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	if fd, fdErr := netutil.FD(ln.(*net.TCPListener)); fdErr == nil {
		s.Reactor.RemoveHandler(fd)
	}
	return nil
}

func (h *Handler) Connect(s *session.Session, req *ndmp.ConnectRequest) ndmp.ErrorCode {
	s.Lock()
	defer s.Unlock()
	d := s.Data
	if d.State != ndmp.DataStateIdle {
		return ndmp.ErrIllegalState
	}

	ep, ok := req.Addr.FirstEndpoint()
	if !ok {
		return ndmp.ErrIllegalArgs
	}
	conn, err := net.Dial("tcp", ep.String())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("data connect failed", "session", s.ID, "peer", ep.String(), "error", err)
		}
		return ndmp.ErrConnectError
	}

	d.DataConn = conn
	d.State = ndmp.DataStateConnected
	return ndmp.ErrNone
}
