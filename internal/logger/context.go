package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds session-scoped logging context: the fields every log
// line for a given control connection should carry.
type LogContext struct {
	TraceID         string // OpenTelemetry trace ID
	SpanID          string // OpenTelemetry span ID
	SessionID       string // NDMP session identifier
	ProtocolVersion uint16 // Negotiated NDMP version (3 or 4)
	ClientIP        string // DMA client IP address (without port)
	DataState       string // Current DATA subsystem state
	MoverState      string // Current MOVER subsystem state
	StartTime       time.Time
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a session accepted from clientIP.
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:         lc.TraceID,
		SpanID:          lc.SpanID,
		SessionID:       lc.SessionID,
		ProtocolVersion: lc.ProtocolVersion,
		ClientIP:        lc.ClientIP,
		DataState:       lc.DataState,
		MoverState:      lc.MoverState,
		StartTime:       lc.StartTime,
	}
}

// WithSession returns a copy with the session id and negotiated version set.
func (lc *LogContext) WithSession(sessionID string, version uint16) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionID = sessionID
		clone.ProtocolVersion = version
	}
	return clone
}

// WithStates returns a copy with the DATA/MOVER state labels set.
func (lc *LogContext) WithStates(dataState, moverState string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.DataState = dataState
		clone.MoverState = moverState
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
