// Package ndmp defines the NDMP v3/v4 wire message types the core needs:
// the message header, the DATA and MOVER subsystem request/reply bodies,
// the notify messages, and the tagged address union. Encoding follows the
// NDMP RFC draft and is built on internal/protocol/ndmpxdr.
package ndmp

// ProtocolVersion identifies the NDMP protocol version negotiated for a
// session. Only V3 and V4 are supported; V2 is explicitly out of scope.
type ProtocolVersion uint32

const (
	V3 ProtocolVersion = 3
	V4 ProtocolVersion = 4
)

// MessageType distinguishes a request from a reply, per the header's
// message_type field.
type MessageType uint32

const (
	MessageTypeRequest MessageType = 0
	MessageTypeReply   MessageType = 1
)

// MessageCode identifies the NDMP message being sent, shared across the
// request and the notify namespaces. Only the codes the core dispatches
// or emits are named; everything else is out of scope.
type MessageCode uint32

const (
	MsgConnectOpen   MessageCode = 0x0900
	MsgConnectClient MessageCode = 0x0901
	MsgConnectClose  MessageCode = 0x0902

	MsgConfigGetHost MessageCode = 0x0100

	MsgDataGetState           MessageCode = 0x0400
	MsgDataStartBackup        MessageCode = 0x0401
	MsgDataStartRecover       MessageCode = 0x0402
	MsgDataAbort              MessageCode = 0x0403
	MsgDataGetEnv             MessageCode = 0x0404
	MsgDataStop               MessageCode = 0x0409
	MsgDataListen             MessageCode = 0x040A
	MsgDataConnect            MessageCode = 0x040B
	MsgDataStartRecoverFilehist MessageCode = 0x040C // V4 only; NOT_SUPPORTED

	MsgNotifyDataHalted   MessageCode = 0x0501
	MsgNotifyConnected    MessageCode = 0x0502
	MsgNotifyMoverHalted  MessageCode = 0x0503
	MsgNotifyMoverPaused  MessageCode = 0x0504
	MsgNotifyDataRead     MessageCode = 0x0505
	MsgNotifyFileRecovered MessageCode = 0x0507

	MsgLogFile    MessageCode = 0x0602
	MsgLogMessage MessageCode = 0x0603

	MsgMoverGetState       MessageCode = 0x0800
	MsgMoverListen         MessageCode = 0x0801
	MsgMoverContinue       MessageCode = 0x0802
	MsgMoverAbort          MessageCode = 0x0803
	MsgMoverStop           MessageCode = 0x0804
	MsgMoverSetRecordSize  MessageCode = 0x0805
	MsgMoverSetWindow      MessageCode = 0x0806
	MsgMoverRead           MessageCode = 0x0807
	MsgMoverClose          MessageCode = 0x0808
	MsgMoverConnect        MessageCode = 0x0809
)

// ErrorCode is the NDMP reply error taxonomy. Every request
// handler either returns ErrNone or one of these; none are connection-fatal.
type ErrorCode uint32

const (
	ErrNone ErrorCode = iota
	ErrNotSupported
	ErrDeviceBusy
	ErrDeviceOpened
	ErrNoDevice
	ErrIO
	ErrTimeout
	ErrIllegalArgs
	ErrNoMemory
	ErrPermission
	ErrNotAuthorized
	ErrDeviceNoMedia
	ErrDeviceNoLabel
	ErrOperationInProgress
	ErrBadFileHandle
	ErrEOF
	ErrEOM
	ErrFileNotFound
	ErrBadSeek
	ErrDeviceNotOpen
	ErrIllegalState
	ErrUndefined
	ErrXDRDecode
	ErrIllegalObject
	ErrEstimateFailed
	ErrXDREncode
	ErrAuthNotSupported
	ErrSeqNum
	ErrReadInProgress
	ErrPrecondition
	ErrInternalError
	ErrConnectError
	ErrSocketError
)

var errorCodeNames = map[ErrorCode]string{
	ErrNone:                "NO_ERR",
	ErrNotSupported:        "NOT_SUPPORTED_ERR",
	ErrDeviceBusy:          "DEVICE_BUSY_ERR",
	ErrDeviceOpened:        "DEVICE_OPENED_ERR",
	ErrNoDevice:            "NO_DEVICE_ERR",
	ErrIO:                  "IO_ERR",
	ErrTimeout:             "TIMEOUT_ERR",
	ErrIllegalArgs:         "ILLEGAL_ARGS_ERR",
	ErrNoMemory:            "NO_MEM_ERR",
	ErrPermission:          "PERMISSION_ERR",
	ErrNotAuthorized:       "NOT_AUTHORIZED_ERR",
	ErrDeviceNoMedia:       "DEVICE_NO_MEDIA_ERR",
	ErrDeviceNoLabel:       "DEVICE_NO_LABEL_ERR",
	ErrOperationInProgress: "OPERATION_IN_PROGRESS_ERR",
	ErrBadFileHandle:       "BAD_FILE_ERR",
	ErrEOF:                 "EOF_ERR",
	ErrEOM:                 "EOM_ERR",
	ErrFileNotFound:        "FILE_NOT_FOUND_ERR",
	ErrBadSeek:             "BAD_SEEK_ERR",
	ErrDeviceNotOpen:       "DEVICE_NOT_OPEN_ERR",
	ErrIllegalState:        "ILLEGAL_STATE_ERR",
	ErrUndefined:           "UNDEFINED_ERR",
	ErrXDRDecode:           "XDR_DECODE_ERR",
	ErrIllegalObject:       "ILLEGAL_OBJECT_ERR",
	ErrEstimateFailed:      "ESTIMATE_FAILED_ERR",
	ErrXDREncode:           "XDR_ENCODE_ERR",
	ErrAuthNotSupported:    "AUTH_NOT_SUPPORTED_ERR",
	ErrSeqNum:              "SEQUENCE_NUM_ERR",
	ErrReadInProgress:      "READ_IN_PROGRESS_ERR",
	ErrPrecondition:        "PRECONDITION_ERR",
	ErrInternalError:       "INTERNAL_ERR",
	ErrConnectError:        "CONNECT_ERR",
	ErrSocketError:         "SOCKET_ERR",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN_ERR"
}

// DataState is the DATA subsystem state.
type DataState uint32

const (
	DataStateIdle DataState = iota
	DataStateListen
	DataStateConnected
	DataStateActive
	DataStateHalted
)

func (s DataState) String() string {
	switch s {
	case DataStateIdle:
		return "IDLE"
	case DataStateListen:
		return "LISTEN"
	case DataStateConnected:
		return "CONNECTED"
	case DataStateActive:
		return "ACTIVE"
	case DataStateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// DataHaltReason classifies why DATA transitioned to HALTED.
type DataHaltReason uint32

const (
	DataHaltNA DataHaltReason = iota
	DataHaltSuccessful
	DataHaltAborted
	DataHaltInternalError
	DataHaltConnectError
)

// DataOperation is the operation DATA is performing.
type DataOperation uint32

const (
	DataOpNoAction DataOperation = iota
	DataOpBackup
	DataOpRecover
	DataOpRecoverFilehist
)

// MoverState is the MOVER subsystem state.
type MoverState uint32

const (
	MoverStateIdle MoverState = iota
	MoverStateListen
	MoverStateActive
	MoverStatePaused
	MoverStateHalted
)

func (s MoverState) String() string {
	switch s {
	case MoverStateIdle:
		return "IDLE"
	case MoverStateListen:
		return "LISTEN"
	case MoverStateActive:
		return "ACTIVE"
	case MoverStatePaused:
		return "PAUSED"
	case MoverStateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// MoverHaltReason classifies why MOVER transitioned to HALTED.
type MoverHaltReason uint32

const (
	MoverHaltNA MoverHaltReason = iota
	MoverHaltConnectClosed
	MoverHaltAborted
	MoverHaltInternalError
	MoverHaltMediaError
)

// MoverPauseReason classifies why MOVER transitioned to PAUSED.
type MoverPauseReason uint32

const (
	MoverPauseNA MoverPauseReason = iota
	MoverPauseSeek
	MoverPauseEOM
	MoverPauseEOF
	MoverPauseEOW
)

// AddressKind is the tagged union discriminant for connect addresses
//. Only LOCAL and TCP are modeled; NDMP also defines FC
// channel addressing which this server never advertises.
type AddressKind uint32

const (
	AddrLocal AddressKind = 0
	AddrTCP   AddressKind = 1
)

// FileRecoveredError is the V3/V4 per-file recover status reported via
// notify_file_recovered.
type FileRecoveredError uint32

const (
	FileRecoveredOK FileRecoveredError = iota
	FileRecoveredNotFound
	FileRecoveredPermission
	FileRecoveredNoDirectory
	FileRecoveredNoMemory
	FileRecoveredIOError
	FileRecoveredPathExists
	FileRecoveredUndefined
)

// LogType classifies an NDMP_LOG_MESSAGE entry.
type LogType uint32

const (
	LogNormal LogType = iota
	LogDebug
	LogError
	LogWarning
)
