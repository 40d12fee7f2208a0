package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the control
// connection, DATA, and MOVER subsystems. Use these keys consistently
// across log statements so sessions can be correlated and filtered.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID       = "session_id"       // NDMP session identifier
	KeyProtocolVersion = "protocol_version" // Negotiated NDMP version (3 or 4)
	KeyMessageCode     = "message_code"     // NDMP message being handled, e.g. NDMP_DATA_START_BACKUP
	KeyClientIP        = "client_ip"        // DMA client IP address
	KeyHostID          = "host_id"          // This server's reported host id (NDMP_CONFIG_GET_HOST_INFO)

	// ========================================================================
	// DATA / MOVER State Machines
	// ========================================================================
	KeyDataState  = "data_state"  // DATA subsystem state
	KeyMoverState = "mover_state" // MOVER subsystem state
	KeyButType    = "bu_type"     // Backup/recover type: tar, dump
	KeyNListCount = "nlist_count" // Number of entries in a start_recover name list

	// ========================================================================
	// Tape / Mover I/O
	// ========================================================================
	KeyTapeDevice  = "tape_device"  // Tape device or image name
	KeyRecordSize  = "record_size"  // MOVER fixed record size, bytes
	KeyBytesMoved  = "bytes_moved"  // Cumulative bytes moved this session
	KeyWindowOff   = "window_off"   // mover_read/seek window offset
	KeyWindowLen   = "window_len"   // mover_read/seek window length

	// ========================================================================
	// Archive Engine
	// ========================================================================
	KeyArchivePath = "archive_path" // File or directory path being archived/restored
	KeyBackupID    = "backup_id"    // Catalog backup identifier (BACKUP_ID env var)

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // NDMP error code (ndmp.ErrorCode)
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Session & Connection
// ----------------------------------------------------------------------------

// SessionID returns a slog.Attr for the NDMP session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ProtocolVersion returns a slog.Attr for the negotiated NDMP version.
func ProtocolVersion(v uint16) slog.Attr {
	return slog.Any(KeyProtocolVersion, v)
}

// MessageCode returns a slog.Attr for the NDMP message code being handled.
func MessageCode(code string) slog.Attr {
	return slog.String(KeyMessageCode, code)
}

// ClientIP returns a slog.Attr for the DMA client IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// HostID returns a slog.Attr for this server's reported host id.
func HostID(id string) slog.Attr {
	return slog.String(KeyHostID, id)
}

// ----------------------------------------------------------------------------
// DATA / MOVER State Machines
// ----------------------------------------------------------------------------

// DataState returns a slog.Attr for the DATA subsystem state.
func DataState(s string) slog.Attr {
	return slog.String(KeyDataState, s)
}

// MoverState returns a slog.Attr for the MOVER subsystem state.
func MoverState(s string) slog.Attr {
	return slog.String(KeyMoverState, s)
}

// ButType returns a slog.Attr for the backup/recover type (tar, dump).
func ButType(t string) slog.Attr {
	return slog.String(KeyButType, t)
}

// NListCount returns a slog.Attr for a start_recover name list length.
func NListCount(n int) slog.Attr {
	return slog.Int(KeyNListCount, n)
}

// ----------------------------------------------------------------------------
// Tape / Mover I/O
// ----------------------------------------------------------------------------

// TapeDevice returns a slog.Attr for the tape device or image name.
func TapeDevice(name string) slog.Attr {
	return slog.String(KeyTapeDevice, name)
}

// RecordSize returns a slog.Attr for MOVER's fixed record size.
func RecordSize(n uint32) slog.Attr {
	return slog.Any(KeyRecordSize, n)
}

// BytesMoved returns a slog.Attr for cumulative bytes moved this session.
func BytesMoved(n uint64) slog.Attr {
	return slog.Uint64(KeyBytesMoved, n)
}

// WindowOffset returns a slog.Attr for a mover_read/seek window offset.
func WindowOffset(off uint64) slog.Attr {
	return slog.Uint64(KeyWindowOff, off)
}

// WindowLength returns a slog.Attr for a mover_read/seek window length.
func WindowLength(n uint64) slog.Attr {
	return slog.Uint64(KeyWindowLen, n)
}

// ----------------------------------------------------------------------------
// Archive Engine
// ----------------------------------------------------------------------------

// ArchivePath returns a slog.Attr for a path being archived or restored.
func ArchivePath(p string) slog.Attr {
	return slog.String(KeyArchivePath, p)
}

// BackupID returns a slog.Attr for a catalog backup identifier.
func BackupID(id string) slog.Attr {
	return slog.String(KeyBackupID, id)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for an NDMP error code.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}
