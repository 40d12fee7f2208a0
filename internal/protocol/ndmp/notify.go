package ndmp

import (
	"bytes"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmpxdr"
)

// NotifyDataHalted is the unsolicited message sent exactly once per halt
//. V3 carries a text reason; V4 drops it in favor of
// the halt_reason code alone, per
type NotifyDataHalted struct {
	Reason DataHaltReason
	Text   string // V3 only; empty for V4
}

func (n *NotifyDataHalted) Encode(buf *bytes.Buffer, version ProtocolVersion) error {
	if err := ndmpxdr.WriteUint32(buf, uint32(n.Reason)); err != nil {
		return err
	}
	if version == V3 {
		return ndmpxdr.WriteXDRString(buf, n.Text)
	}
	return nil
}

// NotifyMoverPaused is sent when MOVER exhausts its read window during
// recover and must wait for the DMA to reposition the tape.
type NotifyMoverPaused struct {
	Reason     MoverPauseReason
	SeekOffset uint64
}

func (n *NotifyMoverPaused) Encode(buf *bytes.Buffer) error {
	if err := ndmpxdr.WriteUint32(buf, uint32(n.Reason)); err != nil {
		return err
	}
	return ndmpxdr.WriteUint64(buf, n.SeekOffset)
}

// NotifyMoverHalted is sent exactly once when MOVER transitions to HALTED.
type NotifyMoverHalted struct {
	Reason MoverHaltReason
}

func (n *NotifyMoverHalted) Encode(buf *bytes.Buffer) error {
	return ndmpxdr.WriteUint32(buf, uint32(n.Reason))
}

// NotifyFileRecovered reports the outcome of restoring one name-list
// entry during recover.
type NotifyFileRecovered struct {
	Name  string
	Error FileRecoveredError
}

func (n *NotifyFileRecovered) Encode(buf *bytes.Buffer) error {
	if err := ndmpxdr.WriteXDRString(buf, n.Name); err != nil {
		return err
	}
	return ndmpxdr.WriteUint32(buf, uint32(n.Error))
}

// LogMessage is NDMP_LOG_MESSAGE, emitted by the archive worker's log
// callback. V4's associated_message field is always the literal "none"
// here; V3 has no such field.
type LogMessage struct {
	Type    LogType
	MsgID   uint32
	Entry   string
}

const v4AssociatedMessageNone = "none"

func (m *LogMessage) Encode(buf *bytes.Buffer, version ProtocolVersion) error {
	if err := ndmpxdr.WriteUint32(buf, uint32(m.Type)); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, m.MsgID); err != nil {
		return err
	}
	if err := ndmpxdr.WriteXDRString(buf, m.Entry); err != nil {
		return err
	}
	if version == V4 {
		return ndmpxdr.WriteXDRString(buf, v4AssociatedMessageNone)
	}
	return nil
}
