package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/nfs4/attrs"
	"github.com/marmos91/nfs4c/internal/xdr"
)

// Share access/deny bits for OPEN4args (RFC 5661 §18.16).
const (
	ShareAccessRead uint32 = 0x00000001
	ShareAccessWrite uint32 = 0x00000002
	ShareAccessBoth uint32 = 0x00000003

	ShareDenyNone  uint32 = 0x00000000
	ShareDenyRead  uint32 = 0x00000001
	ShareDenyWrite uint32 = 0x00000002
	ShareDenyBoth  uint32 = 0x00000003
)

// CreateHowKind discriminates createmode4.
type CreateHowKind uint32

const (
	CreateUnchecked CreateHowKind = 0
	CreateGuarded   CreateHowKind = 1
	CreateExclusive CreateHowKind = 2
)

// CreateHow4 is createhow4: how OPEN should create a regular file that
// does not yet exist.
type CreateHow4 struct {
	Kind       CreateHowKind
	Attributes attrs.FileAttributes // valid when Kind != CreateExclusive
	Verifier   Verifier4            // valid when Kind == CreateExclusive
}

func (c CreateHow4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUnionTag(buf, uint32(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case CreateExclusive:
		return xdr.PackUhyper(buf, c.Verifier)
	default:
		return c.Attributes.Pack(buf)
	}
}

// OpenFlagKind discriminates openflag4: whether OPEN should create the
// target if absent.
type OpenFlagKind uint32

const (
	OpenNoCreate OpenFlagKind = 0
	OpenCreate   OpenFlagKind = 1
)

// OpenFlag4 is openflag4.
type OpenFlag4 struct {
	Flag OpenFlagKind
	How  CreateHow4 // valid when Flag == OpenCreate
}

func (f OpenFlag4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUnionTag(buf, uint32(f.Flag)); err != nil {
		return err
	}
	if f.Flag == OpenCreate {
		return f.How.Pack(buf)
	}
	return nil
}

// NoCreateOpenFlag builds an OPEN4args.openflag4 that opens an existing
// file without creating it.
func NoCreateOpenFlag() OpenFlag4 {
	return OpenFlag4{Flag: OpenNoCreate}
}

// CreateOpenFlag builds an OPEN4args.openflag4 that creates the target
// using the given createhow4.
func CreateOpenFlag(how CreateHow4) OpenFlag4 {
	return OpenFlag4{Flag: OpenCreate, How: how}
}

// OpenClaimKind discriminates open_claim4. Only CLAIM_NULL (lookup by
// name under the current directory) and CLAIM_FH (reopen the current
// file handle) are modeled; the delegation-related claim types are out
// of scope since this client never requests delegations.
type OpenClaimKind uint32

const (
	ClaimNull       OpenClaimKind = 0
	ClaimFileHandle OpenClaimKind = 4
)

// OpenClaim4 is open_claim4.
type OpenClaim4 struct {
	Kind OpenClaimKind
	Name string // valid when Kind == ClaimNull
}

func (c OpenClaim4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUnionTag(buf, uint32(c.Kind)); err != nil {
		return err
	}
	if c.Kind == ClaimNull {
		return xdr.PackString(buf, c.Name)
	}
	return nil
}

// Open4Args is OPEN's argument. The seqid field required by pre-4.1 OPEN
// is not meaningful under session semantics and is always packed as 0.
type Open4Args struct {
	ShareAccess uint32
	ShareDeny   uint32
	Owner       OpenOwner4
	How         OpenFlag4
	Claim       OpenClaim4
}

func (a Open4Args) OpCode() uint32 { return OpOpen }

func (a Open4Args) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUint(buf, 0); err != nil { // seqid, unused under sessions
		return err
	}
	if err := xdr.PackUint(buf, a.ShareAccess); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.ShareDeny); err != nil {
		return err
	}
	if err := a.Owner.Pack(buf); err != nil {
		return err
	}
	if err := a.How.Pack(buf); err != nil {
		return err
	}
	return a.Claim.Pack(buf)
}

// Open4ResOk is OPEN's result.
type Open4ResOk struct {
	StateID     StateID4
	ChangeInfo  ChangeInfo4
	ResultFlags uint32
	AttrSet     attrs.Bitmap4
	Delegation  OpenDelegation4
}

func UnpackOpen4ResOk(r io.Reader) (*Open4ResOk, error) {
	stateID, err := UnpackStateID4(r)
	if err != nil {
		return nil, err
	}
	ci, err := UnpackChangeInfo4(r)
	if err != nil {
		return nil, err
	}
	resultFlags, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	bm, err := attrs.UnpackBitmap4(r)
	if err != nil {
		return nil, err
	}
	delegation, err := UnpackOpenDelegation4(r)
	if err != nil {
		return nil, err
	}
	return &Open4ResOk{
		StateID:     stateID,
		ChangeInfo:  ci,
		ResultFlags: resultFlags,
		AttrSet:     bm,
		Delegation:  delegation,
	}, nil
}
