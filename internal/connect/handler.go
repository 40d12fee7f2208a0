// Package connect implements the NDMP CONNECT and CONFIG subsystems: the
// version-negotiation handshake every control connection starts with, and
// the host-identity query a DMA typically issues right after. Neither
// subsystem has DATA/MOVER-style state; handlers act directly on the
// Session rather than through a DataRecord/MoverRecord.
package connect

import (
	"fmt"
	"os"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/session"
)

// Handler implements the CONNECT/CONFIG message handlers dispatch routes
// to. HostID identifies this server instance in NDMP_CONFIG_GET_HOST
// replies; it is stable for the process lifetime, not per-connection.
type Handler struct {
	HostID string
}

// New returns a connect Handler.
func New(hostID string) *Handler {
	return &Handler{HostID: hostID}
}

// Open negotiates the session's protocol version. It is the only request
// a freshly accepted control connection may send first; every other
// message is rejected with ILLEGAL_STATE until this completes. Only
// V3 and V4 are supported.
func (h *Handler) Open(s *session.Session, req *ndmp.ConnectOpenRequest) ndmp.ErrorCode {
	switch req.ProtocolVersion {
	case ndmp.V3, ndmp.V4:
		s.SetVersion(req.ProtocolVersion)
		return ndmp.ErrNone
	default:
		return ndmp.ErrIllegalArgs
	}
}

// ClientAuth validates the DMA's chosen authentication mechanism. Only
// AuthNone is accepted; this server relies on transport-level trust (a
// bound unix/loopback listener, or a TLS-terminating proxy) rather than
// NDMP's own TEXT/MD5 credential exchange.
func (h *Handler) ClientAuth(s *session.Session, req *ndmp.ConnectClientRequest) ndmp.ErrorCode {
	if !s.Opened {
		return ndmp.ErrIllegalState
	}
	if req.AuthType != ndmp.AuthNone {
		return ndmp.ErrAuthNotSupported
	}
	return ndmp.ErrNone
}

// Close tears down the control connection on the DMA's request. No reply
// is sent — the server closes the socket immediately, matching how real
// NDMP servers treat NDMP_CONNECT_CLOSE as a one-way notice.
func (h *Handler) Close(s *session.Session) {
	s.MarkDone()
	_ = s.Conn.Close()
}

// GetHost answers NDMP_CONFIG_GET_HOST with this server's identity.
func (h *Handler) GetHost(s *session.Session) *ndmp.ConfigGetHostReply {
	name, err := os.Hostname()
	if err != nil {
		name = "unknown"
	}
	return &ndmp.ConfigGetHostReply{
		HostName:  name,
		OSType:    "NDMPD",
		OSVersion: fmt.Sprintf("%d", s.Version),
		HostID:    h.HostID,
	}
}
