package ops

import (
	"bytes"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// Lookup4Args is LOOKUP's argument: a single path component resolved
// against the current file handle (the directory).
type Lookup4Args struct {
	ObjName Component4
}

func (a Lookup4Args) OpCode() uint32 { return OpLookup }

func (a Lookup4Args) Pack(buf *bytes.Buffer) error {
	return xdr.PackString(buf, a.ObjName)
}
