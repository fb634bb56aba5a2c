package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// GetFh4Args is GETFH's argument: it has no fields, taking no input beyond
// the opcode itself.
type GetFh4Args struct{}

func (a GetFh4Args) OpCode() uint32 { return OpGetFh }

func (a GetFh4Args) Pack(*bytes.Buffer) error { return nil }

// GetFh4ResOk is GETFH's result: the current file handle.
type GetFh4ResOk struct {
	Object NfsFh4
}

func UnpackGetFh4ResOk(r io.Reader) (*GetFh4ResOk, error) {
	fh, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}
	return &GetFh4ResOk{Object: fh}, nil
}
