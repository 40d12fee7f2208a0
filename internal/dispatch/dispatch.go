// Package dispatch is the consolidated entry point for routing an NDMP
// request to its DATA or MOVER subsystem handler and encoding the
// reply. Handlers are accepted as interfaces so this package never
// imports internal/data or internal/mover directly, avoiding a
// circular import (those packages depend on internal/session, which
// dispatch also uses).
package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/session"
)

// DataHandlers is the interface internal/data implements, covering every
// DATA subsystem request the dispatcher routes.
type DataHandlers interface {
	GetState(s *session.Session) *ndmp.GetStateReply
	StartBackup(s *session.Session, req *ndmp.StartBackupRequest) ndmp.ErrorCode
	StartRecover(s *session.Session, req *ndmp.StartRecoverRequest) ndmp.ErrorCode
	Abort(s *session.Session) ndmp.ErrorCode
	Stop(s *session.Session) ndmp.ErrorCode
	GetEnv(s *session.Session) *ndmp.GetEnvReply
	Listen(s *session.Session, req *ndmp.ListenRequest) *ndmp.ListenReply
	Connect(s *session.Session, req *ndmp.ConnectRequest) ndmp.ErrorCode
}

// MoverHandlers is the interface internal/mover implements, covering
// every MOVER subsystem request the dispatcher routes.
type MoverHandlers interface {
	GetState(s *session.Session) *ndmp.MoverGetStateReply
	Listen(s *session.Session, req *ndmp.MoverListenRequest) *ndmp.MoverListenReply
	Continue(s *session.Session) ndmp.ErrorCode
	Abort(s *session.Session) ndmp.ErrorCode
	Stop(s *session.Session) ndmp.ErrorCode
	SetRecordSize(s *session.Session, req *ndmp.MoverSetRecordSizeRequest) ndmp.ErrorCode
	SetWindow(s *session.Session, req *ndmp.MoverSetWindowRequest) ndmp.ErrorCode
	Connect(s *session.Session, req *ndmp.MoverConnectRequest) ndmp.ErrorCode
}

// ConnectHandlers is the interface internal/connect implements, covering
// the CONNECT and CONFIG subsystems.
type ConnectHandlers interface {
	Open(s *session.Session, req *ndmp.ConnectOpenRequest) ndmp.ErrorCode
	ClientAuth(s *session.Session, req *ndmp.ConnectClientRequest) ndmp.ErrorCode
	Close(s *session.Session)
	GetHost(s *session.Session) *ndmp.ConfigGetHostReply
}

// Deps bundles the subsystem handlers a Dispatch call routes into.
type Deps struct {
	Connect ConnectHandlers
	Data    DataHandlers
	Mover   MoverHandlers
}

// Dispatch decodes body per header.MessageCode, routes to the matching
// DATA or MOVER handler, and returns the fully encoded reply (header +
// body) ready to write to the control connection. Unknown message codes
// yield NOT_SUPPORTED rather than a protocol error, matching how real
// DMAs probe for optional procedures.
func Dispatch(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	entry, ok := table[header.MessageCode]
	if !ok {
		return encodeReply(s, header, ndmp.ErrNotSupported, nil)
	}
	if !s.Opened && header.MessageCode != ndmp.MsgConnectOpen {
		return encodeReply(s, header, ndmp.ErrIllegalState, nil)
	}
	return entry(s, deps, header, body)
}

type handlerFunc func(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error)

var table = map[ndmp.MessageCode]handlerFunc{
	ndmp.MsgConnectOpen:   connectOpen,
	ndmp.MsgConnectClient: connectClient,
	ndmp.MsgConnectClose:  connectClose,

	ndmp.MsgConfigGetHost: configGetHost,

	ndmp.MsgDataGetState:     dataGetState,
	ndmp.MsgDataStartBackup:  dataStartBackup,
	ndmp.MsgDataStartRecover: dataStartRecover,
	ndmp.MsgDataAbort:        dataAbort,
	ndmp.MsgDataStop:         dataStop,
	ndmp.MsgDataGetEnv:       dataGetEnv,
	ndmp.MsgDataListen:       dataListen,
	ndmp.MsgDataConnect:      dataConnect,

	ndmp.MsgMoverGetState:      moverGetState,
	ndmp.MsgMoverListen:        moverListen,
	ndmp.MsgMoverContinue:      moverContinue,
	ndmp.MsgMoverAbort:         moverAbort,
	ndmp.MsgMoverStop:          moverStop,
	ndmp.MsgMoverSetRecordSize: moverSetRecordSize,
	ndmp.MsgMoverSetWindow:     moverSetWindow,
	ndmp.MsgMoverConnect:       moverConnect,
}

func decodeErrorReply(s *session.Session, header *ndmp.Header, op string, err error) ([]byte, error) {
	if s.Logger != nil {
		s.Logger.Warn("request decode failed", "op", op, "error", err)
	}
	return encodeReply(s, header, ndmp.ErrXDRDecode, nil)
}

func connectOpen(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeConnectOpenRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "connect_open", err)
	}
	code := deps.Connect.Open(s, req)
	return encodeReply(s, header, code, nil)
}

func connectClient(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeConnectClientRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "connect_client_auth", err)
	}
	code := deps.Connect.ClientAuth(s, req)
	return encodeReply(s, header, code, nil)
}

func connectClose(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	deps.Connect.Close(s)
	return nil, nil
}

func configGetHost(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	reply := deps.Connect.GetHost(s)
	return encodeReply(s, header, ndmp.ErrNone, func(buf *bytes.Buffer) error { return reply.Encode(buf) })
}

func dataGetState(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	reply := deps.Data.GetState(s)
	return encodeReply(s, header, reply.Error, func(buf *bytes.Buffer) error { return reply.Encode(buf, s.Version) })
}

func dataStartBackup(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeStartBackupRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "data_start_backup", err)
	}
	code := deps.Data.StartBackup(s, req)
	return encodeReply(s, header, code, nil)
}

func dataStartRecover(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeStartRecoverRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "data_start_recover", err)
	}
	code := deps.Data.StartRecover(s, req)
	return encodeReply(s, header, code, nil)
}

func dataAbort(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	code := deps.Data.Abort(s)
	return encodeReply(s, header, code, nil)
}

func dataStop(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	code := deps.Data.Stop(s)
	return encodeReply(s, header, code, nil)
}

func dataGetEnv(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	reply := deps.Data.GetEnv(s)
	return encodeReply(s, header, reply.Error, func(buf *bytes.Buffer) error { return encodeEnvBody(buf, reply) })
}

func dataListen(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeListenRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "data_listen", err)
	}
	reply := deps.Data.Listen(s, req)
	return encodeReply(s, header, reply.Error, func(buf *bytes.Buffer) error { return reply.Encode(buf, s.Version) })
}

func dataConnect(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeConnectRequest(body, s.Version)
	if err != nil {
		return decodeErrorReply(s, header, "data_connect", err)
	}
	code := deps.Data.Connect(s, req)
	return encodeReply(s, header, code, nil)
}

func moverGetState(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	reply := deps.Mover.GetState(s)
	return encodeReply(s, header, reply.Error, func(buf *bytes.Buffer) error { return reply.Encode(buf, s.Version) })
}

func moverListen(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeMoverListenRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "mover_listen", err)
	}
	reply := deps.Mover.Listen(s, req)
	return encodeReply(s, header, reply.Error, func(buf *bytes.Buffer) error { return reply.Encode(buf, s.Version) })
}

func moverContinue(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	code := deps.Mover.Continue(s)
	return encodeReply(s, header, code, nil)
}

func moverAbort(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	code := deps.Mover.Abort(s)
	return encodeReply(s, header, code, nil)
}

func moverStop(s *session.Session, deps *Deps, header *ndmp.Header, _ io.Reader) ([]byte, error) {
	code := deps.Mover.Stop(s)
	return encodeReply(s, header, code, nil)
}

func moverSetRecordSize(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeMoverSetRecordSizeRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "mover_set_record_size", err)
	}
	code := deps.Mover.SetRecordSize(s, req)
	return encodeReply(s, header, code, nil)
}

func moverSetWindow(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeMoverSetWindowRequest(body)
	if err != nil {
		return decodeErrorReply(s, header, "mover_set_window", err)
	}
	code := deps.Mover.SetWindow(s, req)
	return encodeReply(s, header, code, nil)
}

func moverConnect(s *session.Session, deps *Deps, header *ndmp.Header, body io.Reader) ([]byte, error) {
	req, err := ndmp.DecodeMoverConnectRequest(body, s.Version)
	if err != nil {
		return decodeErrorReply(s, header, "mover_connect", err)
	}
	code := deps.Mover.Connect(s, req)
	return encodeReply(s, header, code, nil)
}

func encodeEnvBody(buf *bytes.Buffer, reply *ndmp.GetEnvReply) error {
	return reply.Encode(buf)
}

// encodeReply writes the reply header carrying code in its error field,
// then enc(body) when code is ErrNone and enc is non-nil. A non-ErrNone
// code always means no body, matching every NDMP reply shape where the
// error field gates whether the rest of the struct is even present.
func encodeReply(s *session.Session, req *ndmp.Header, code ndmp.ErrorCode, enc func(*bytes.Buffer) error) ([]byte, error) {
	replyHeader := &ndmp.Header{
		Sequence:      s.NextSequence(),
		Timestamp:     uint32(time.Now().Unix()),
		MessageType:   ndmp.MessageTypeReply,
		MessageCode:   req.MessageCode,
		ReplySequence: req.Sequence,
		Error:         code,
	}

	var buf bytes.Buffer
	if err := replyHeader.Encode(&buf); err != nil {
		return nil, fmt.Errorf("dispatch: encode reply header: %w", err)
	}

	if code == ndmp.ErrNone && enc != nil {
		if err := enc(&buf); err != nil {
			return nil, fmt.Errorf("dispatch: encode reply body: %w", err)
		}
	}
	return buf.Bytes(), nil
}
