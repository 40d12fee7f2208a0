package ndmp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmpxdr"
)

// Header is the fixed NDMP message header that precedes every request,
// reply, and notify body on the control connection.
type Header struct {
	Sequence      uint32
	Timestamp     uint32
	MessageType   MessageType
	MessageCode   MessageCode
	ReplySequence uint32
	Error         ErrorCode
}

// Encode writes the header in XDR wire format.
func (h *Header) Encode(buf *bytes.Buffer) error {
	if err := ndmpxdr.WriteUint32(buf, h.Sequence); err != nil {
		return fmt.Errorf("header sequence: %w", err)
	}
	if err := ndmpxdr.WriteUint32(buf, h.Timestamp); err != nil {
		return fmt.Errorf("header timestamp: %w", err)
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(h.MessageType)); err != nil {
		return fmt.Errorf("header message_type: %w", err)
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(h.MessageCode)); err != nil {
		return fmt.Errorf("header message_code: %w", err)
	}
	if err := ndmpxdr.WriteUint32(buf, h.ReplySequence); err != nil {
		return fmt.Errorf("header reply_sequence: %w", err)
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(h.Error)); err != nil {
		return fmt.Errorf("header error: %w", err)
	}
	return nil
}

// DecodeHeader reads a Header from r.
func DecodeHeader(r io.Reader) (*Header, error) {
	seq, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("header sequence: %w", err)
	}
	ts, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("header timestamp: %w", err)
	}
	mt, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("header message_type: %w", err)
	}
	mc, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("header message_code: %w", err)
	}
	rseq, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("header reply_sequence: %w", err)
	}
	errCode, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("header error: %w", err)
	}
	return &Header{
		Sequence:      seq,
		Timestamp:     ts,
		MessageType:   MessageType(mt),
		MessageCode:   MessageCode(mc),
		ReplySequence: rseq,
		Error:         ErrorCode(errCode),
	}, nil
}
