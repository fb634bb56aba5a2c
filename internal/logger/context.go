package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds call-scoped logging context, carried alongside the
// ctx.Context passed down through each RPC/COMPOUND call.
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	Procedure  string    // RPC procedure name (COMPOUND, MNT, etc.)
	ServerAddr string    // dialed server "host:port"
	UID        uint32    // AUTH_SYS uid presented on the call
	GID        uint32    // AUTH_SYS gid presented on the call
	AuthFlavor uint32    // RPC auth flavor
	StartTime  time.Time // for duration calculation
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

// NewLogContext creates a new LogContext for a call to the given server.
func NewLogContext(serverAddr string) *LogContext {
	return &LogContext{
		ServerAddr: serverAddr,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		Procedure:  lc.Procedure,
		ServerAddr: lc.ServerAddr,
		UID:        lc.UID,
		GID:        lc.GID,
		AuthFlavor: lc.AuthFlavor,
		StartTime:  lc.StartTime,
	}
}

// WithProcedure returns a copy with the procedure set
func (lc *LogContext) WithProcedure(procedure string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Procedure = procedure
	}
	return clone
}

// WithServerAddr returns a copy with the server address set
func (lc *LogContext) WithServerAddr(addr string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ServerAddr = addr
	}
	return clone
}

// WithAuth returns a copy with authentication info set
func (lc *LogContext) WithAuth(uid, gid, authFlavor uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.UID = uid
		clone.GID = gid
		clone.AuthFlavor = authFlavor
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
