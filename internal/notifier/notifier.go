// Package notifier sends the unsolicited NDMP_NOTIFY_* messages the DATA
// and MOVER state machines emit on halt and pause, enforcing the
// exactly-once-per-halt ordering invariant: state transitions to HALTED
// first (internal/session's Halt latch), then the notify goes out, then
// (if both subsystems are now done) the connection is torn down
//.
package notifier

import (
	"bytes"
	"fmt"
	"time"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/session"
)

func header(s *session.Session, code ndmp.MessageCode) *ndmp.Header {
	return &ndmp.Header{
		Sequence:    s.NextSequence(),
		Timestamp:   uint32(time.Now().Unix()),
		MessageType: ndmp.MessageTypeRequest, // notifies ride the request namespace, no reply expected
		MessageCode: code,
	}
}

func send(s *session.Session, code ndmp.MessageCode, body func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := header(s, code).Encode(&buf); err != nil {
		return fmt.Errorf("notifier: encode header: %w", err)
	}
	if body != nil {
		if err := body(&buf); err != nil {
			return fmt.Errorf("notifier: encode body: %w", err)
		}
	}
	return s.Send(buf.Bytes())
}

// DataHalted sends notify_data_halted if s.Data just transitioned to
// HALTED for the first time (Halt's return value gates this), then tears
// the connection down once MOVER has also reached a terminal state.
func DataHalted(s *session.Session, text string) error {
	s.Lock()
	reason := s.Data.HaltReason
	version := s.Version
	bothDone := s.BothHalted()
	s.Unlock()

	n := &ndmp.NotifyDataHalted{Reason: reason, Text: text}
	if err := send(s, ndmp.MsgNotifyDataHalted, func(buf *bytes.Buffer) error {
		return n.Encode(buf, version)
	}); err != nil {
		return err
	}
	if bothDone {
		s.MarkDone()
	}
	return nil
}

// MoverHalted sends notify_mover_halted if s.Mover just transitioned to
// HALTED for the first time.
func MoverHalted(s *session.Session) error {
	s.Lock()
	reason := s.Mover.HaltReason
	bothDone := s.BothHalted()
	s.Unlock()

	n := &ndmp.NotifyMoverHalted{Reason: reason}
	if err := send(s, ndmp.MsgNotifyMoverHalted, n.Encode); err != nil {
		return err
	}
	if bothDone {
		s.MarkDone()
	}
	return nil
}

// MoverPaused sends notify_mover_paused; unlike the halted notifies this
// can fire repeatedly over a session's life.
func MoverPaused(s *session.Session) error {
	s.Lock()
	reason := s.Mover.PauseReason
	offset := s.Mover.SeekPosition
	s.Unlock()

	n := &ndmp.NotifyMoverPaused{Reason: reason, SeekOffset: offset}
	return send(s, ndmp.MsgNotifyMoverPaused, n.Encode)
}

// FileRecovered reports one name-list entry's recover outcome.
func FileRecovered(s *session.Session, name string, code ndmp.FileRecoveredError) error {
	n := &ndmp.NotifyFileRecovered{Name: name, Error: code}
	return send(s, ndmp.MsgNotifyFileRecovered, n.Encode)
}

// Log sends an NDMP_LOG_MESSAGE, the archive worker's log callback.
func Log(s *session.Session, msgID uint32, level ndmp.LogType, entry string) error {
	s.Lock()
	version := s.Version
	s.Unlock()
	m := &ndmp.LogMessage{Type: level, MsgID: msgID, Entry: entry}
	return send(s, ndmp.MsgLogMessage, func(buf *bytes.Buffer) error {
		return m.Encode(buf, version)
	})
}
