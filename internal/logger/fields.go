package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// RPC / Procedure
	// ========================================================================
	KeyProcedure = "procedure" // ONC RPC procedure name: NULL, COMPOUND, MNT, etc.
	KeyXid       = "xid"       // RPC transaction ID
	KeyHandle    = "handle"    // File handle (opaque identifier)
	KeyStatus    = "status"    // Operation status code (protocol-specific)
	KeyStatusMsg = "status_msg"

	// ========================================================================
	// Session (NFSv4.1)
	// ========================================================================
	KeyClientID   = "client_id"   // clientid4
	KeySequenceID = "sequence_id" // sequenceid4
	KeySessionID  = "session_id"  // sessionid4
	KeySlotID     = "slot_id"     // session slot index

	// ========================================================================
	// Transport
	// ========================================================================
	KeyServerAddr = "server_addr" // dialed "host:port"

	// ========================================================================
	// AUTH_SYS identity
	// ========================================================================
	KeyUID = "uid"
	KeyGID = "gid"

	// ========================================================================
	// File System Operations
	// ========================================================================
	KeyPath   = "path"
	KeyOffset = "offset"
	KeyCount  = "count"
	KeyEOF    = "eof"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Procedure returns a slog.Attr for an RPC procedure name.
func Procedure(name string) slog.Attr {
	return slog.String(KeyProcedure, name)
}

// Xid returns a slog.Attr for an RPC transaction ID.
func Xid(xid uint32) slog.Attr {
	return slog.Uint64(KeyXid, uint64(xid))
}

// Handle returns a slog.Attr for a file handle, formatted as hex.
func Handle(h []byte) slog.Attr {
	return slog.String(KeyHandle, fmt.Sprintf("%x", h))
}

// Status returns a slog.Attr for an operation status code.
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// StatusMsg returns a slog.Attr for a human-readable status message.
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// ClientID returns a slog.Attr for an NFSv4 clientid4.
func ClientID(id uint64) slog.Attr {
	return slog.Uint64(KeyClientID, id)
}

// SequenceID returns a slog.Attr for an NFSv4.1 sequenceid4.
func SequenceID(id uint32) slog.Attr {
	return slog.Uint64(KeySequenceID, uint64(id))
}

// SessionID returns a slog.Attr for an NFSv4.1 sessionid4, formatted as hex.
func SessionID(id []byte) slog.Attr {
	return slog.String(KeySessionID, fmt.Sprintf("%x", id))
}

// SlotID returns a slog.Attr for a session slot index.
func SlotID(id uint32) slog.Attr {
	return slog.Uint64(KeySlotID, uint64(id))
}

// ServerAddr returns a slog.Attr for the dialed server address.
func ServerAddr(addr string) slog.Attr {
	return slog.String(KeyServerAddr, addr)
}

// Path returns a slog.Attr for a file or directory path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Offset returns a slog.Attr for a READ/WRITE file offset.
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for a requested byte count.
func Count(c uint32) slog.Attr {
	return slog.Uint64(KeyCount, uint64(c))
}

// EOF returns a slog.Attr for an end-of-file indicator.
func EOF(eof bool) slog.Attr {
	return slog.Bool(KeyEOF, eof)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or the zero Attr for a nil error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}
