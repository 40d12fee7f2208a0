package ndmp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// lastFragmentBit marks the final (and, for every PDU this server sends or
// expects, only) fragment of an NDMP record, per the RPC record-marking
// standard NDMP reuses for its own TCP framing: a 4-byte big-endian
// length whose top bit flags the last fragment, followed by that many
// bytes of payload.
const lastFragmentBit = 1 << 31

// ReadPDU reads one complete NDMP message (header + body) off r, stripping
// the record-marking length prefix. Multi-fragment records are rejected:
// no NDMP message this server handles is large enough to need them.
func ReadPDU(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	marker := binary.BigEndian.Uint32(lenBuf[:])
	if marker&lastFragmentBit == 0 {
		return nil, fmt.Errorf("ndmp: multi-fragment records not supported")
	}
	size := marker &^ lastFragmentBit
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("ndmp: read pdu body: %w", err)
	}
	return body, nil
}

// WritePDU frames pdu (a fully encoded header+body) as a single
// last-fragment record and writes it to w.
func WritePDU(w io.Writer, pdu []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], lastFragmentBit|uint32(len(pdu)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("ndmp: write pdu length: %w", err)
	}
	_, err := w.Write(pdu)
	return err
}
