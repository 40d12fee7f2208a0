package ndmp

import (
	"bytes"
	"io"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmpxdr"
)

// MoverGetStateReply is the ndmp_mover_get_state_reply body.
type MoverGetStateReply struct {
	Error          ErrorCode
	State          MoverState
	PauseReason    MoverPauseReason
	HaltReason     MoverHaltReason
	RecordSize     uint32
	RecordNum      uint32
	BytesMoved     uint64
	SeekPosition   uint64
	BytesLeftToRead uint64
	WindowOffset   uint64
	WindowLength   uint64
	DataConnAddr   Address
	HasAddr        bool
}

func (r *MoverGetStateReply) Encode(buf *bytes.Buffer, version ProtocolVersion) error {
	if err := ndmpxdr.WriteUint32(buf, uint32(r.State)); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(r.PauseReason)); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(r.HaltReason)); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, r.RecordSize); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, r.RecordNum); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint64(buf, r.BytesMoved); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint64(buf, r.SeekPosition); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint64(buf, r.BytesLeftToRead); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint64(buf, r.WindowOffset); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint64(buf, r.WindowLength); err != nil {
		return err
	}
	if r.HasAddr {
		if version == V4 {
			return r.DataConnAddr.EncodeV4(buf)
		}
		return r.DataConnAddr.EncodeV3(buf)
	}
	return nil
}

// MoverListenRequest is the ndmp_mover_listen_request body.
type MoverListenRequest struct {
	Mode AddressKind // 0 = read, 1 = write in NDMP's mover_mode field, reusing the union tag type loosely
	Kind AddressKind
}

func DecodeMoverListenRequest(r io.Reader) (*MoverListenRequest, error) {
	mode, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	kind, err := ndmpxdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return nil, err
	}
	return &MoverListenRequest{Mode: AddressKind(mode), Kind: AddressKind(kind)}, nil
}

// MoverListenReply mirrors ListenReply for the MOVER subsystem.
type MoverListenReply struct {
	Error ErrorCode
	Addr  Address
}

func (r *MoverListenReply) Encode(buf *bytes.Buffer, version ProtocolVersion) error {
	if r.Error != ErrNone {
		return nil
	}
	if version == V4 {
		return r.Addr.EncodeV4(buf)
	}
	return r.Addr.EncodeV3(buf)
}

// MoverSetRecordSizeRequest fixes the record alignment MOVER pads reads
// and writes to.
type MoverSetRecordSizeRequest struct {
	RecordSize uint32
}

func DecodeMoverSetRecordSizeRequest(r io.Reader) (*MoverSetRecordSizeRequest, error) {
	size, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	return &MoverSetRecordSizeRequest{RecordSize: size}, nil
}

// MoverSetWindowRequest bounds the byte range MOVER is permitted to
// service before pausing.
type MoverSetWindowRequest struct {
	Offset uint64
	Length uint64
}

func DecodeMoverSetWindowRequest(r io.Reader) (*MoverSetWindowRequest, error) {
	offset, err := ndmpxdr.DecodeUint64(r)
	if err != nil {
		return nil, err
	}
	length, err := ndmpxdr.DecodeUint64(r)
	if err != nil {
		return nil, err
	}
	return &MoverSetWindowRequest{Offset: offset, Length: length}, nil
}

// MoverReadRequest asks MOVER to push a range of tape data out the
// already-connected data connection ahead of the window reaching it.
type MoverReadRequest struct {
	Offset uint64
	Length uint64
}

func DecodeMoverReadRequest(r io.Reader) (*MoverReadRequest, error) {
	offset, err := ndmpxdr.DecodeUint64(r)
	if err != nil {
		return nil, err
	}
	length, err := ndmpxdr.DecodeUint64(r)
	if err != nil {
		return nil, err
	}
	return &MoverReadRequest{Offset: offset, Length: length}, nil
}

// MoverConnectRequest is the ndmp_mover_connect_request body: the address
// MOVER should connect to as a peer data stream.
type MoverConnectRequest struct {
	Mode AddressKind
	Addr Address
}

func DecodeMoverConnectRequest(r io.Reader, version ProtocolVersion) (*MoverConnectRequest, error) {
	mode, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	var addr Address
	if version == V4 {
		addr, err = DecodeAddressV4(r)
	} else {
		addr, err = DecodeAddressV3(r)
	}
	if err != nil {
		return nil, err
	}
	return &MoverConnectRequest{Mode: AddressKind(mode), Addr: addr}, nil
}
