package ndmp

import (
	"bytes"
	"io"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmpxdr"
)

// ConnectOpenRequest negotiates the protocol version for the rest of the
// session. It must be the first request on a new control
// connection; the server rejects anything else with ILLEGAL_STATE.
type ConnectOpenRequest struct {
	ProtocolVersion ProtocolVersion
}

func DecodeConnectOpenRequest(r io.Reader) (*ConnectOpenRequest, error) {
	v, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	return &ConnectOpenRequest{ProtocolVersion: ProtocolVersion(v)}, nil
}

// AuthType enumerates the NDMP_CONNECT_CLIENT_AUTH mechanisms. Only NONE
// is implemented; TEXT and MD5 are decoded (to stay wire-compatible with
// DMAs that always send credentials) but rejected with AUTH_NOT_SUPPORTED.
type AuthType uint32

const (
	AuthNone AuthType = iota
	AuthText
	AuthMD5
)

// ConnectClientRequest carries the DMA's chosen authentication method and
// credentials.
type ConnectClientRequest struct {
	AuthType AuthType
	Name     string
	Password string
}

func DecodeConnectClientRequest(r io.Reader) (*ConnectClientRequest, error) {
	authType, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	req := &ConnectClientRequest{AuthType: AuthType(authType)}
	switch req.AuthType {
	case AuthNone:
	case AuthText, AuthMD5:
		if req.Name, err = ndmpxdr.DecodeString(r); err != nil {
			return nil, err
		}
		if req.Password, err = ndmpxdr.DecodeString(r); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// ConfigGetHostReply answers NDMP_CONFIG_GET_HOST, the DMA's query for the
// server's identity.
type ConfigGetHostReply struct {
	HostName    string
	OSType      string
	OSVersion   string
	HostID      string
}

func (r *ConfigGetHostReply) Encode(buf *bytes.Buffer) error {
	if err := ndmpxdr.WriteXDRString(buf, r.HostName); err != nil {
		return err
	}
	if err := ndmpxdr.WriteXDRString(buf, r.OSType); err != nil {
		return err
	}
	if err := ndmpxdr.WriteXDRString(buf, r.OSVersion); err != nil {
		return err
	}
	return ndmpxdr.WriteXDRString(buf, r.HostID)
}
