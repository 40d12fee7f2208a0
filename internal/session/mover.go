package session

import (
	"net"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/tape"
)

// MoverRecord is the MOVER subsystem's state. MOVER
// owns the tape device and the data connection during backup/recover; it
// is independent of DATA so the two can be driven by different NDMP
// sessions in a three-way (DMA-orchestrated) backup.
type MoverRecord struct {
	State       ndmp.MoverState
	HaltReason  ndmp.MoverHaltReason
	PauseReason ndmp.MoverPauseReason
	Halted      bool

	ListenAddr   ndmp.Address
	ListenSocket net.Listener
	DataConn     net.Conn

	Tape tape.Device

	// RecordSize is fixed by mover_set_record_size before the first
	// read/write; every tape I/O is padded/truncated to this boundary
	//.
	RecordSize uint32
	RecordNum  uint32

	// WindowOffset/WindowLength bound the byte range MOVER may service
	// before it must pause and wait for mover_set_window or
	// mover_continue.
	WindowOffset uint64
	WindowLength uint64

	BytesMoved      uint64
	SeekPosition    uint64
	BytesLeftToRead uint64

	// ContinueCh is signaled by mover_continue to wake a paused I/O pump
	// goroutine blocked waiting for the window to advance.
	ContinueCh chan struct{}
}

// NewMoverRecord returns a MoverRecord in its initial IDLE state.
func NewMoverRecord() *MoverRecord {
	return &MoverRecord{State: ndmp.MoverStateIdle, ContinueCh: make(chan struct{}, 1)}
}

// Halt transitions MOVER to HALTED with reason, returning true the
// first time it's called for this record, for exactly-once notify.
func (m *MoverRecord) Halt(reason ndmp.MoverHaltReason) bool {
	if m.Halted {
		return false
	}
	m.State = ndmp.MoverStateHalted
	m.HaltReason = reason
	m.Halted = true
	return true
}

// Pause transitions MOVER to PAUSED with reason. Unlike Halt this is not
// latched: MOVER pauses and resumes repeatedly over the life of a move.
func (m *MoverRecord) Pause(reason ndmp.MoverPauseReason) {
	m.State = ndmp.MoverStatePaused
	m.PauseReason = reason
}

// Continue wakes a paused mover, signaling ContinueCh and returning to
// ACTIVE. It is a no-op if MOVER isn't currently PAUSED.
func (m *MoverRecord) Continue() {
	if m.State != ndmp.MoverStatePaused {
		return
	}
	m.State = ndmp.MoverStateActive
	m.PauseReason = ndmp.MoverPauseNA
	select {
	case m.ContinueCh <- struct{}{}:
	default:
	}
}
