package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// Sequence4Args is SEQUENCE's argument: the leading operation of every
// COMPOUND issued on a session (RFC 5661 §18.46).
type Sequence4Args struct {
	SessionID     SessionID4
	SequenceID    SequenceID4
	SlotID        SlotID4
	HighestSlotID SlotID4
	CacheThis     bool
}

func (a Sequence4Args) OpCode() uint32 { return OpSequence }

func (a Sequence4Args) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackOpaqueFixed(buf, a.SessionID[:]); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.SequenceID); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.SlotID); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.HighestSlotID); err != nil {
		return err
	}
	return xdr.PackBool(buf, a.CacheThis)
}

// Sequence4ResOk is SEQUENCE's result.
type Sequence4ResOk struct {
	SessionID           SessionID4
	SequenceID          SequenceID4
	SlotID              SlotID4
	HighestSlotID       SlotID4
	TargetHighestSlotID SlotID4
	StatusFlags         uint32
}

func UnpackSequence4ResOk(r io.Reader) (*Sequence4ResOk, error) {
	sessionID, err := xdr.UnpackOpaqueFixed(r, SessionIDSize)
	if err != nil {
		return nil, err
	}
	sequenceID, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	slotID, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	highestSlotID, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	targetHighestSlotID, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	statusFlags, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	res := &Sequence4ResOk{
		SequenceID:          sequenceID,
		SlotID:              slotID,
		HighestSlotID:       highestSlotID,
		TargetHighestSlotID: targetHighestSlotID,
		StatusFlags:         statusFlags,
	}
	copy(res.SessionID[:], sessionID)
	return res, nil
}
