package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// CREATE_SESSION flags (RFC 5661 §18.36). This client only ever sets
// CreateSessionFlagPersist; backchannel and RDMA are out of scope.
const (
	CreateSessionFlagPersist    uint32 = 0x00000001
	CreateSessionFlagConnBackCh uint32 = 0x00000002
	CreateSessionFlagConnRDMA   uint32 = 0x00000004
)

// CallbackSecParams4 negotiates the backchannel's security flavor. This
// client never establishes a backchannel (see Non-goals: no callbacks),
// so only AUTH_NONE is modeled.
type CallbackSecParams4 struct{}

func (CallbackSecParams4) Pack(buf *bytes.Buffer) error {
	return xdr.PackUnionTag(buf, 0) // AUTH_NONE
}

// CreateSession4Args is CREATE_SESSION's argument.
type CreateSession4Args struct {
	ClientID      ClientID4
	Sequence      SequenceID4
	Flags         uint32
	ForeChanAttrs ChannelAttrs4
	BackChanAttrs ChannelAttrs4
	CbProgram     uint32
	SecParams     []CallbackSecParams4
}

func (a CreateSession4Args) OpCode() uint32 { return OpCreateSession }

func (a CreateSession4Args) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUhyper(buf, a.ClientID); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.Sequence); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.Flags); err != nil {
		return err
	}
	if err := a.ForeChanAttrs.Pack(buf); err != nil {
		return err
	}
	if err := a.BackChanAttrs.Pack(buf); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.CbProgram); err != nil {
		return err
	}
	return xdr.PackArray(buf, a.SecParams, func(b *bytes.Buffer, p CallbackSecParams4) error {
		return p.Pack(b)
	})
}

// CreateSession4ResOk is CREATE_SESSION's result.
type CreateSession4ResOk struct {
	SessionID     SessionID4
	Sequence      SequenceID4
	Flags         uint32
	ForeChanAttrs ChannelAttrs4
	BackChanAttrs ChannelAttrs4
}

func UnpackCreateSession4ResOk(r io.Reader) (*CreateSession4ResOk, error) {
	sessionID, err := xdr.UnpackOpaqueFixed(r, SessionIDSize)
	if err != nil {
		return nil, err
	}
	sequence, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	flags, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	foreChanAttrs, err := UnpackChannelAttrs4(r)
	if err != nil {
		return nil, err
	}
	backChanAttrs, err := UnpackChannelAttrs4(r)
	if err != nil {
		return nil, err
	}
	res := &CreateSession4ResOk{
		Sequence:      sequence,
		Flags:         flags,
		ForeChanAttrs: foreChanAttrs,
		BackChanAttrs: backChanAttrs,
	}
	copy(res.SessionID[:], sessionID)
	return res, nil
}
