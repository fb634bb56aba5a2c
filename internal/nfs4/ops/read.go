package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// Read4Args is READ's argument.
type Read4Args struct {
	StateID StateID4
	Offset  uint64
	Count   uint32
}

func (a Read4Args) OpCode() uint32 { return OpRead }

func (a Read4Args) Pack(buf *bytes.Buffer) error {
	if err := a.StateID.Pack(buf); err != nil {
		return err
	}
	if err := xdr.PackUhyper(buf, a.Offset); err != nil {
		return err
	}
	return xdr.PackUint(buf, a.Count)
}

// Read4ResOk is READ's result.
type Read4ResOk struct {
	EOF  bool
	Data []byte
}

func UnpackRead4ResOk(r io.Reader) (*Read4ResOk, error) {
	eof, err := xdr.UnpackBool(r)
	if err != nil {
		return nil, err
	}
	data, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}
	return &Read4ResOk{EOF: eof, Data: data}, nil
}

// UnpackRead4ResOkInto decodes a READ result the same way as
// UnpackRead4ResOk, but reads the returned data into dst (sized to the
// request's Count by the caller, typically from a buffer pool) instead of
// allocating a fresh slice. Data is a sub-slice of dst.
func UnpackRead4ResOkInto(r io.Reader, dst []byte) (*Read4ResOk, error) {
	eof, err := xdr.UnpackBool(r)
	if err != nil {
		return nil, err
	}
	n, err := xdr.UnpackOpaqueInto(r, dst)
	if err != nil {
		return nil, err
	}
	return &Read4ResOk{EOF: eof, Data: dst[:n]}, nil
}
