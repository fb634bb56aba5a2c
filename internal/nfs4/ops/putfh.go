package ops

import (
	"bytes"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// PutFh4Args is PUTFH's argument: make object the current file handle.
type PutFh4Args struct {
	Object NfsFh4
}

func (a PutFh4Args) OpCode() uint32 { return OpPutFh }

func (a PutFh4Args) Pack(buf *bytes.Buffer) error {
	return xdr.PackOpaque(buf, a.Object)
}

// PutRootFh4Args is PUTROOTFH's argument: it has no fields, taking no
// input beyond the opcode itself.
type PutRootFh4Args struct{}

func (a PutRootFh4Args) OpCode() uint32 { return OpPutRootFh }

func (a PutRootFh4Args) Pack(*bytes.Buffer) error { return nil }
