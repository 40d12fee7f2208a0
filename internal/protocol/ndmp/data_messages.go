package ndmp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmpxdr"
)

// GetStateReply is the ndmp_data_get_state_reply body.
type GetStateReply struct {
	Error            ErrorCode
	Operation        DataOperation
	State            DataState
	HaltReason       DataHaltReason
	BytesProcessed   uint64
	EstBytesRemain   uint64
	EstTimeRemain    uint32
	DataConnAddr     Address
	ReadOffset       uint64
	ReadLength       uint64
	HasAddr          bool
}

// Encode writes the reply body using the given protocol version's address
// shape. The error field is carried by the message header, not here
// (header.error gates whether a body follows at all).
func (r *GetStateReply) Encode(buf *bytes.Buffer, version ProtocolVersion) error {
	if err := ndmpxdr.WriteUint32(buf, uint32(r.Operation)); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(r.State)); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(r.HaltReason)); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint64(buf, r.BytesProcessed); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint64(buf, r.EstBytesRemain); err != nil {
		return err
	}
	if err := ndmpxdr.WriteUint32(buf, r.EstTimeRemain); err != nil {
		return err
	}
	if r.HasAddr {
		if version == V4 {
			if err := r.DataConnAddr.EncodeV4(buf); err != nil {
				return err
			}
		} else if err := r.DataConnAddr.EncodeV3(buf); err != nil {
			return err
		}
	}
	if err := ndmpxdr.WriteUint64(buf, r.ReadOffset); err != nil {
		return err
	}
	return ndmpxdr.WriteUint64(buf, r.ReadLength)
}

// StartBackupRequest is the ndmp_data_start_backup_request body.
type StartBackupRequest struct {
	ButType string
	Env     []EnvVar
}

func DecodeStartBackupRequest(r io.Reader) (*StartBackupRequest, error) {
	bt, err := ndmpxdr.DecodeString(r)
	if err != nil {
		return nil, fmt.Errorf("bu_type: %w", err)
	}
	env, err := decodeEnvList(r)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	return &StartBackupRequest{ButType: bt, Env: env}, nil
}

// StartBackupReply carries only the resulting error, for both V3 and V4.
type StartBackupReply struct {
	Error ErrorCode
}

func (r *StartBackupReply) Encode(buf *bytes.Buffer) error {
	return ndmpxdr.WriteUint32(buf, uint32(r.Error))
}

// StartRecoverRequest is the ndmp_data_start_recover_request body.
type StartRecoverRequest struct {
	ButType string
	Env     []EnvVar
	NList   []NameListEntry
}

func DecodeStartRecoverRequest(r io.Reader) (*StartRecoverRequest, error) {
	bt, err := ndmpxdr.DecodeString(r)
	if err != nil {
		return nil, fmt.Errorf("bu_type: %w", err)
	}
	env, err := decodeEnvList(r)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	nlist, err := decodeNameList(r)
	if err != nil {
		return nil, fmt.Errorf("nlist: %w", err)
	}
	return &StartRecoverRequest{ButType: bt, Env: env, NList: nlist}, nil
}

type StartRecoverReply struct {
	Error ErrorCode
}

func (r *StartRecoverReply) Encode(buf *bytes.Buffer) error {
	return ndmpxdr.WriteUint32(buf, uint32(r.Error))
}

// SimpleErrorReply is the shape of every handler that returns only an
// error: data_abort, data_stop, mover_abort, mover_stop, mover_continue.
type SimpleErrorReply struct {
	Error ErrorCode
}

func (r *SimpleErrorReply) Encode(buf *bytes.Buffer) error {
	return ndmpxdr.WriteUint32(buf, uint32(r.Error))
}

// GetEnvReply is the ndmp_data_get_env_reply body.
type GetEnvReply struct {
	Error ErrorCode
	Env   []EnvVar
}

func (r *GetEnvReply) Encode(buf *bytes.Buffer) error {
	return encodeEnvList(buf, r.Env)
}

// ListenRequest is the ndmp_data_listen_request body: just the address
// kind the DMA wants DATA to listen on.
type ListenRequest struct {
	Kind AddressKind
}

func DecodeListenRequest(r io.Reader) (*ListenRequest, error) {
	kind, err := ndmpxdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return nil, err
	}
	return &ListenRequest{Kind: AddressKind(kind)}, nil
}

// ListenReply carries the error and, on success, the address the DMA
// should connect a peer mover or DMA-driven data connection to.
type ListenReply struct {
	Error ErrorCode
	Addr  Address
}

func (r *ListenReply) Encode(buf *bytes.Buffer, version ProtocolVersion) error {
	if r.Error != ErrNone {
		return nil
	}
	if version == V4 {
		return r.Addr.EncodeV4(buf)
	}
	return r.Addr.EncodeV3(buf)
}

// ConnectRequest is the ndmp_data_connect_request body: the address the
// DMA wants DATA to connect to (or LOCAL to bind to the local mover).
type ConnectRequest struct {
	Addr Address
}

func DecodeConnectRequest(r io.Reader, version ProtocolVersion) (*ConnectRequest, error) {
	var addr Address
	var err error
	if version == V4 {
		addr, err = DecodeAddressV4(r)
	} else {
		addr, err = DecodeAddressV3(r)
	}
	if err != nil {
		return nil, err
	}
	return &ConnectRequest{Addr: addr}, nil
}
