package ops

import (
	"bytes"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// ReclaimComplete4Args is RECLAIM_COMPLETE's argument. This client always
// packs OneFs=false: it never reclaims locking state from a prior
// incarnation, so there is no per-filesystem reclaim to scope.
type ReclaimComplete4Args struct {
	OneFs bool
}

func (a ReclaimComplete4Args) OpCode() uint32 { return OpReclaimComplete }

func (a ReclaimComplete4Args) Pack(buf *bytes.Buffer) error {
	return xdr.PackBool(buf, a.OneFs)
}
