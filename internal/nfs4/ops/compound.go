package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/xdr"
)

// Operation codes (RFC 5661 §18). Only the subset this client issues or
// decodes is defined.
const (
	OpCreate          uint32 = 6
	OpGetFh           uint32 = 10
	OpLookup          uint32 = 15
	OpOpen            uint32 = 18
	OpPutFh           uint32 = 22
	OpPutRootFh       uint32 = 24
	OpRead            uint32 = 25
	OpReadDir         uint32 = 26
	OpRemove          uint32 = 28
	OpExchangeID      uint32 = 42
	OpCreateSession   uint32 = 43
	OpSequence        uint32 = 53
	OpReclaimComplete uint32 = 58
	OpIllegal         uint32 = 10044
)

// ArgOp is implemented by every operation's argument type so a slice of
// them can be packed into a COMPOUND's arg_array without a type switch at
// the call site.
type ArgOp interface {
	OpCode() uint32
	Pack(buf *bytes.Buffer) error
}

// Compound is the argument to the COMPOUND procedure (RFC 5661 §18.36).
type Compound struct {
	Tag          string
	MinorVersion uint32
	Ops          []ArgOp
}

// NewCompound returns an empty 4.1 COMPOUND (minor_version 1).
func NewCompound(tag string) Compound {
	return Compound{Tag: tag, MinorVersion: 1}
}

// Pack encodes the COMPOUND argument: tag, minor_version, then each
// operation as its opcode followed by its argument encoding.
func (c Compound) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackString(buf, c.Tag); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, c.MinorVersion); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, uint32(len(c.Ops))); err != nil {
		return err
	}
	for _, op := range c.Ops {
		if err := xdr.PackUnionTag(buf, op.OpCode()); err != nil {
			return err
		}
		if err := op.Pack(buf); err != nil {
			return err
		}
	}
	return nil
}

// ResultOp is one decoded nfs_resop4: the operation code, its per-op
// status, and (if status is NFS4_OK) the decoded ok-result payload for
// operations this client recognizes. Ok is nil for void results and for
// any non-success status.
type ResultOp struct {
	OpCode uint32
	Status uint32
	Ok     any
}

// resultDecoder unpacks one operation's resok payload from the reader
// positioned just past its status field.
type resultDecoder func(io.Reader) (any, error)

var resultDecoders = map[uint32]resultDecoder{
	OpCreate:          func(r io.Reader) (any, error) { return UnpackCreate4ResOk(r) },
	OpGetFh:           func(r io.Reader) (any, error) { return UnpackGetFh4ResOk(r) },
	OpLookup:          voidResult,
	OpOpen:            func(r io.Reader) (any, error) { return UnpackOpen4ResOk(r) },
	OpPutFh:           voidResult,
	OpPutRootFh:       voidResult,
	OpRead:            func(r io.Reader) (any, error) { return UnpackRead4ResOk(r) },
	OpReadDir:         func(r io.Reader) (any, error) { return UnpackReadDir4ResOk(r) },
	OpRemove:          func(r io.Reader) (any, error) { return UnpackRemove4ResOk(r) },
	OpExchangeID:      func(r io.Reader) (any, error) { return UnpackExchangeID4ResOk(r) },
	OpCreateSession:   func(r io.Reader) (any, error) { return UnpackCreateSession4ResOk(r) },
	OpSequence:        func(r io.Reader) (any, error) { return UnpackSequence4ResOk(r) },
	OpReclaimComplete: voidResult,
	OpIllegal:         voidResult,
}

func voidResult(io.Reader) (any, error) {
	return nil, nil
}

// unpackResultOp decodes one nfs_resop4: opcode, status, then the
// resok payload iff status is NFS4_OK. An opcode this client does not
// recognize is a decode failure rather than a silently-skipped operation,
// since there is no generic way to know its wire length.
//
// readBuf, if non-nil, is used to decode a READ result's data in place
// (see UnpackRead4ResOkInto) instead of going through resultDecoders'
// allocating OpRead entry. Every other opcode is unaffected.
func unpackResultOp(r io.Reader, readBuf []byte) (ResultOp, error) {
	opcode, err := xdr.UnpackUnionTag(r)
	if err != nil {
		return ResultOp{}, err
	}
	status, err := xdr.UnpackUint(r)
	if err != nil {
		return ResultOp{}, err
	}
	if status != 0 {
		return ResultOp{OpCode: opcode, Status: status}, nil
	}
	if opcode == OpRead && readBuf != nil {
		okVal, err := UnpackRead4ResOkInto(r, readBuf)
		if err != nil {
			return ResultOp{}, err
		}
		return ResultOp{OpCode: opcode, Status: status, Ok: okVal}, nil
	}
	decode, ok := resultDecoders[opcode]
	if !ok {
		return ResultOp{}, result.InvalidData
	}
	okVal, err := decode(r)
	if err != nil {
		return ResultOp{}, err
	}
	return ResultOp{OpCode: opcode, Status: status, Ok: okVal}, nil
}

// CompoundResult is the COMPOUND procedure's result (RFC 5661 §18.36).
type CompoundResult struct {
	Status  uint32
	Tag     string
	Results []ResultOp
}

// UnpackCompoundResult decodes a COMPOUND reply.
func UnpackCompoundResult(r io.Reader) (*CompoundResult, error) {
	return unpackCompoundResult(r, nil)
}

// UnpackCompoundResultInto decodes a COMPOUND reply the same way as
// UnpackCompoundResult, but decodes a READ operation's result data into
// readBuf (see UnpackRead4ResOkInto) rather than allocating a fresh slice.
// Callers that know a compound contains no READ, or don't care, should use
// UnpackCompoundResult instead.
func UnpackCompoundResultInto(r io.Reader, readBuf []byte) (*CompoundResult, error) {
	return unpackCompoundResult(r, readBuf)
}

func unpackCompoundResult(r io.Reader, readBuf []byte) (*CompoundResult, error) {
	status, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	tag, err := xdr.UnpackString(r)
	if err != nil {
		return nil, err
	}
	n, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	results := make([]ResultOp, 0, n)
	for i := uint32(0); i < n; i++ {
		op, err := unpackResultOp(r, readBuf)
		if err != nil {
			return nil, err
		}
		results = append(results, op)
	}
	return &CompoundResult{Status: status, Tag: tag, Results: results}, nil
}

// At returns the result at a fixed compound position, the extraction
// strategy this client uses throughout (rather than searching by opcode)
// since a COMPOUND's operation sequence is always built by this client
// itself and its shape is therefore known statically at each call site.
func (c *CompoundResult) At(index int) (ResultOp, error) {
	if index < 0 || index >= len(c.Results) {
		return ResultOp{}, result.InvalidData
	}
	return c.Results[index], nil
}
