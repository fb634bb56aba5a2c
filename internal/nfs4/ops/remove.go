package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// Remove4Args is REMOVE's argument: the name to remove from the current
// directory file handle.
type Remove4Args struct {
	Target Component4
}

func (a Remove4Args) OpCode() uint32 { return OpRemove }

func (a Remove4Args) Pack(buf *bytes.Buffer) error {
	return xdr.PackString(buf, a.Target)
}

// Remove4ResOk is REMOVE's result.
type Remove4ResOk struct {
	ChangeInfo ChangeInfo4
}

func UnpackRemove4ResOk(r io.Reader) (*Remove4ResOk, error) {
	ci, err := UnpackChangeInfo4(r)
	if err != nil {
		return nil, err
	}
	return &Remove4ResOk{ChangeInfo: ci}, nil
}
