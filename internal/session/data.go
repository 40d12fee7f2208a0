package session

import (
	"net"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
)

// DataRecord is the DATA subsystem's state. One exists
// per Session; its State field is the authoritative value returned by
// data_get_state and gates which requests the dispatcher accepts.
type DataRecord struct {
	State      ndmp.DataState
	HaltReason ndmp.DataHaltReason
	Operation  ndmp.DataOperation

	// Halted latches true the instant State becomes HALTED, before the
	// notify_data_halted message is queued, so a second halt from a
	// different code path can never re-notify: state change, then
	// notify, then socket close.
	Halted bool

	// ButType and Env are the backup/recover-type and environment the
	// DMA supplied in the start_backup/start_recover request.
	ButType string
	Env     *Environment

	// NList is the name list from start_recover; nil for backup.
	NList []ndmp.NameListEntry

	ListenAddr   ndmp.Address
	ListenSocket net.Listener
	DataConn     net.Conn

	// ReadOffset/ReadLength describe the in-flight data_listen /
	// mover-read window DATA is currently serving during recover.
	ReadOffset uint64
	ReadLength uint64

	BytesProcessed uint64
	EstBytesRemain uint64
	EstTimeRemain  uint32

	// AbortRequested is set by data_abort and read by the archive worker
	// once its engine has returned; it does not itself change State
	// (the worker's own halt path does that once it unwinds).
	AbortRequested bool
}

// NewDataRecord returns a DataRecord in its initial IDLE state.
func NewDataRecord() *DataRecord {
	return &DataRecord{State: ndmp.DataStateIdle, Env: NewEnvironment(nil)}
}

// Halt transitions DATA to HALTED with reason, returning true the first
// time it's called for this record and false on any subsequent call, so
// the caller can use the return value to decide whether to send
// notify_data_halted (exactly-once notify per halt).
func (d *DataRecord) Halt(reason ndmp.DataHaltReason) bool {
	if d.Halted {
		return false
	}
	d.State = ndmp.DataStateHalted
	d.HaltReason = reason
	d.Halted = true
	return true
}

// Reset returns DATA to IDLE, clearing operation-scoped fields, ready for
// a fresh start_backup/start_recover on the same session connection.
// Called by data_stop once DATA has halted.
func (d *DataRecord) Reset() {
	*d = DataRecord{State: ndmp.DataStateIdle, Env: NewEnvironment(nil)}
}
