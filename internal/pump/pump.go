// Package pump implements the I/O PUMP: the record-aligned
// byte mover between the archive worker and either the tape device
// (local_write/local_read) or the MOVER's TCP data connection
// (remote_write/remote_read, used in a three-way backup where DATA and
// MOVER run in different NDMP sessions).
package pump

import (
	"fmt"
	"io"

	"github.com/araujobsd/ndmpd/internal/notifier"
	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/session"
)

// Stream is what the archive worker writes to (backup) or reads from
// (recover); it hides whether the bytes ultimately land on tape or cross
// the wire to a peer MOVER, and whether MOVER is currently paused
// waiting on a window.
type Stream struct {
	session *session.Session
	rec     []byte
}

// NewStream wraps s.Mover's backing device (tape if present, else the
// data connection) as a record-aligned Stream.
func NewStream(s *session.Session) *Stream {
	return &Stream{session: s, rec: make([]byte, 0, s.Mover.RecordSize)}
}

func (s *Stream) backing() io.ReadWriter {
	m := s.session.Mover
	if m.Tape != nil {
		return m.Tape
	}
	return m.DataConn
}

// Write buffers p and flushes whole RecordSize-aligned records to the
// backing device (local_write when backed by tape, remote_write when
// backed by the data connection), pausing MOVER when the write window is
// exhausted.
func (s *Stream) Write(p []byte) (int, error) {
	m := s.session.Mover
	total := len(p)
	for len(p) > 0 {
		if err := s.waitForWindow(uint64(len(p))); err != nil {
			return total - len(p), err
		}
		room := int(m.RecordSize) - len(s.rec)
		n := room
		if n > len(p) {
			n = len(p)
		}
		s.rec = append(s.rec, p[:n]...)
		p = p[n:]
		m.BytesMoved += uint64(n)

		if len(s.rec) == int(m.RecordSize) {
			if err := s.flush(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

func (s *Stream) flush() error {
	m := s.session.Mover
	if len(s.rec) == 0 {
		return nil
	}
	padded := s.rec
	if short := int(m.RecordSize) - len(padded); short > 0 {
		padded = append(padded, make([]byte, short)...)
	}
	if _, err := s.backing().Write(padded); err != nil {
		return fmt.Errorf("pump: write record: %w", err)
	}
	m.RecordNum++
	s.rec = s.rec[:0]
	return nil
}

// Flush forces out a short trailing record, then flushes the tape device
// when MOVER is backed by one; called once at end of backup.
func (s *Stream) Flush() error {
	if err := s.flush(); err != nil {
		return err
	}
	if t := s.session.Mover.Tape; t != nil {
		return t.Flush()
	}
	return nil
}

// Read fills p from whole records read off the backing device
// (local_read/remote_read), pausing MOVER when the read window is
// exhausted and waiting for mover_set_window/mover_continue.
func (s *Stream) Read(p []byte) (int, error) {
	m := s.session.Mover
	if err := s.waitForWindow(uint64(len(p))); err != nil {
		return 0, err
	}
	if len(s.rec) == 0 {
		buf := make([]byte, m.RecordSize)
		n, err := io.ReadFull(s.backing(), buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("pump: read record: %w", err)
		}
		s.rec = buf[:n]
		m.RecordNum++
	}
	n := copy(p, s.rec)
	s.rec = s.rec[n:]
	m.BytesMoved += uint64(n)
	return n, nil
}

// waitForWindow blocks until MOVER's window has room for want more
// bytes, pausing MOVER (notify_mover_paused, EOW) if it doesn't. It
// returns an error if MOVER was halted while paused.
func (s *Stream) waitForWindow(want uint64) error {
	m := s.session.Mover
	if m.WindowLength == 0 {
		return nil // unbounded window: DMA never constrained it
	}
	consumed := m.BytesMoved - m.WindowOffset
	if consumed+want <= m.WindowLength {
		return nil
	}
	s.session.Lock()
	m.Pause(ndmp.MoverPauseEOW)
	s.session.Unlock()

	if err := notifier.MoverPaused(s.session); err != nil && s.session.Logger != nil {
		s.session.Logger.Error("notify_mover_paused failed", "session", s.session.ID, "error", err)
	}
	<-m.ContinueCh
	s.session.Lock()
	halted := m.State == ndmp.MoverStateHalted
	s.session.Unlock()
	if halted {
		return fmt.Errorf("pump: mover halted")
	}
	return nil
}
