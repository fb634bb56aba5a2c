// Package result defines the error code taxonomy shared by every layer of
// the client: XDR codec, RPC transport, and the NFSv4 session client.
//
// Per RFC 5661, NFS4ERR_* status codes are small positive integers below
// 10,000,000. This package reserves a private range starting at 4,096,000
// for errors that never come from the wire: codec failures, transport
// failures, and internal bugs. A single ErrorCode type carries both kinds
// uniformly so callers can match on a symbolic constant regardless of
// origin.
package result

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorCode is a non-zero 32-bit status. Zero is never a valid value; code
// that receives a zero status from a fallible source must map it to
// InternalError rather than construct a zero ErrorCode.
type ErrorCode uint32

// Crate-private error range. RFC 5661 NFS4ERR_* values occupy [0, 10_000_000).
const privateErrorBase uint32 = 4_096_000

// Internal and transport error codes. NFS4ERR_* codes are used directly as
// their RFC 5661 integer values and are not redefined here.
const (
	InternalError ErrorCode = ErrorCode(privateErrorBase + iota)
	NotEnoughData
	ConnectionRefused
	ConnectionReset
	_ // reserved, historically HostUnreachable
	ConnectionAborted
	NotConnected
	InvalidData
	RPCProgUnavail
	RPCProgMismatch
	RPCProcUnavail
	RPCGarbageArgs
	RPCSystemErr
	RPCRejectedMismatch
	RPCRejectedAuthError
	UncategorizedIOError
)

// NFS4ErrCompleteAlready is RFC 5661's NFS4ERR_COMPLETE_ALREADY, the only
// protocol error this client treats as a local success (see nfs4/client).
const NFS4ErrCompleteAlready ErrorCode = 10054

// NFS4_OK is RFC 5661's nfsstat4 success value.
const NFS4OK ErrorCode = 0

var names = map[ErrorCode]string{
	InternalError:         "INTERNAL_ERROR",
	NotEnoughData:         "NOT_ENOUGH_DATA",
	ConnectionRefused:     "CONNECTION_REFUSED",
	ConnectionReset:       "CONNECTION_RESET",
	ConnectionAborted:     "CONNECTION_ABORTED",
	NotConnected:          "NOT_CONNECTED",
	InvalidData:           "INVALID_DATA",
	RPCProgUnavail:        "RPC_PROG_UNAVAIL",
	RPCProgMismatch:       "RPC_PROG_MISMATCH",
	RPCProcUnavail:        "RPC_PROC_UNAVAIL",
	RPCGarbageArgs:        "RPC_GARBAGE_ARGS",
	RPCSystemErr:          "RPC_SYSTEM_ERR",
	RPCRejectedMismatch:   "RPC_REJECTED_MISMATCH",
	RPCRejectedAuthError:  "RPC_REJECTED_AUTH_ERROR",
	UncategorizedIOError:  "UNCATEGORIZED_IO_ERROR",
}

// New constructs an ErrorCode from a raw status. A zero status is coerced
// to InternalError since zero is never a legal ErrorCode value.
func New(code uint32) ErrorCode {
	if code == 0 {
		return InternalError
	}
	return ErrorCode(code)
}

// Get returns the raw numeric status.
func (e ErrorCode) Get() uint32 {
	return uint32(e)
}

// Error implements the error interface so ErrorCode composes with
// errors.Is/As and %w formatting.
func (e ErrorCode) Error() string {
	if name, ok := names[e]; ok {
		return fmt.Sprintf("%s (%d)", name, uint32(e))
	}
	return fmt.Sprintf("nfs4err %d (0x%x)", uint32(e), uint32(e))
}

// Name returns the symbolic name of a private-range error code, or the
// empty string for an NFS4ERR_* value this package does not name.
func Name(e ErrorCode) string {
	return names[e]
}

// FromIOError classifies a transport error by kind, matching the private
// CONNECTION_* / NOT_CONNECTED / INVALID_DATA / UNCATEGORIZED_IO_ERROR
// codes to the corresponding net/syscall error kinds.
func FromIOError(err error) ErrorCode {
	if err == nil {
		return InternalError
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NotEnoughData
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return ConnectionReset
	}
	if errors.Is(err, syscall.ECONNABORTED) {
		return ConnectionAborted
	}
	if errors.Is(err, syscall.ENOTCONN) {
		return NotConnected
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return UncategorizedIOError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return UncategorizedIOError
	}
	return UncategorizedIOError
}

// FromUTF8Error maps a UTF-8 validation failure to INVALID_DATA.
func FromUTF8Error(error) ErrorCode {
	return InvalidData
}
