package session

import (
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/reactor"
)

// Session is the per-connection state a single DMA control connection
// owns: the negotiated protocol version, the DATA and MOVER records, and
// the reactor multiplexing their fds.
//
// One goroutine — the reactor thread — owns Conn and calls dispatch; a
// second goroutine, spawned only once an archive operation starts, runs
// the tar/dump engine and calls back into Session through the callbacks
// in internal/archive. Mu guards every field both goroutines can touch.
type Session struct {
	ID      string
	Version ndmp.ProtocolVersion
	Conn    net.Conn
	Logger  *slog.Logger

	// Opened is set once NDMP_CONNECT_OPEN has negotiated Version; every
	// other request is ILLEGAL_STATE until then.
	Opened bool

	Reactor *reactor.Reactor

	mu    sync.Mutex
	Data  *DataRecord
	Mover *MoverRecord

	seq uint32

	// writeMu serializes writes to Conn: the reactor thread writes
	// replies, the archive worker thread and the notifier both write
	// unsolicited notify messages, and NDMP requires each PDU to reach
	// the wire whole.
	writeMu sync.Mutex

	// halted is closed once the session's control connection should be
	// torn down — after DATA/MOVER have both reached HALTED and their
	// notifies are sent.
	halted   chan struct{}
	haltOnce sync.Once
}

// New builds a Session for an accepted control connection. Version is
// unset until SetVersion is called from the NDMP_CONNECT_OPEN handler.
func New(conn net.Conn, logger *slog.Logger) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Conn:    conn,
		Logger:  logger,
		Reactor: reactor.New(),
		Data:    NewDataRecord(),
		Mover:   NewMoverRecord(),
		halted:  make(chan struct{}),
	}
}

// SetVersion records the protocol version negotiated by CONNECT_OPEN.
func (s *Session) SetVersion(v ndmp.ProtocolVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Version = v
	s.Opened = true
}

// Lock/Unlock expose the session mutex directly; handlers in
// internal/data, internal/mover and internal/pump take it for the
// duration of a state transition (the reactor thread never
// blocks, so these critical sections are always short).
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// NextSequence returns the next outbound message sequence number.
func (s *Session) NextSequence() uint32 {
	s.seq++
	return s.seq
}

// Send frames pdu (a fully-encoded header+body) as a record-marked NDMP
// message and writes it to the control connection, serialized against
// concurrent writers (replies from the reactor thread, notifies from the
// archive worker or notifier).
func (s *Session) Send(pdu []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return ndmp.WritePDU(s.Conn, pdu)
}

// MarkDone closes the session's halted channel exactly once, signaling
// the reactor thread it may tear down the control connection now that
// both subsystems are HALTED and notified.
func (s *Session) MarkDone() {
	s.haltOnce.Do(func() { close(s.halted) })
}

// Done returns a channel that's closed once MarkDone has been called.
func (s *Session) Done() <-chan struct{} { return s.halted }

// BothHalted reports whether DATA and MOVER (when MOVER is in use) have
// both reached HALTED, the precondition for tearing down the connection.
func (s *Session) BothHalted() bool {
	if s.Data.State != ndmp.DataStateHalted {
		return false
	}
	if s.Mover.State != ndmp.MoverStateIdle && s.Mover.State != ndmp.MoverStateHalted {
		return false
	}
	return true
}
