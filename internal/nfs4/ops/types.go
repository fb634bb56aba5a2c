// Package ops implements the NFSv4.1 COMPOUND procedure's operation
// arguments and results (RFC 5661 §18): the per-operation argops/resops
// this client builds into and decodes out of every COMPOUND, plus the
// handful of shared record types (file handles, state IDs, change info,
// channel attributes) those operations reference.
//
// Go has no equivalent of a derive macro for tagged unions, so each
// union-shaped RFC type (discriminated by a leading XDR enum or uint32)
// is hand-written as a Go struct carrying a Kind/opcode field plus the
// fields relevant to that kind, with Pack/Unpack switching on the
// discriminant explicitly.
package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/xdr"
)

const (
	// SessionIDSize is NFS4_SESSION_ID_SIZE (RFC 5661 §2.10.3).
	SessionIDSize = 16
	// StateIDOtherSize is NFS4_OTHER_SIZE, the length of stateid4.other.
	StateIDOtherSize = 12
	// FhSize is NFS4_FHSIZE, the maximum file handle length.
	FhSize = 128
)

type (
	SessionID4  [SessionIDSize]byte
	SequenceID4 = uint32
	SlotID4     = uint32
	ClientID4   = uint64
	Count4      = uint32
	Verifier4   = uint64
	NfsFh4      = []byte
	Component4  = string
	ChangeID4   = uint64
	Cookie4     = uint64
)

// NfsTime4 is RFC 5661's nfstime4: seconds and nanoseconds since the Unix
// epoch.
type NfsTime4 struct {
	Seconds     int64
	NanoSeconds uint32
}

func (t NfsTime4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackHyper(buf, t.Seconds); err != nil {
		return err
	}
	return xdr.PackUint(buf, t.NanoSeconds)
}

func UnpackNfsTime4(r io.Reader) (NfsTime4, error) {
	seconds, err := xdr.UnpackHyper(r)
	if err != nil {
		return NfsTime4{}, err
	}
	nanos, err := xdr.UnpackUint(r)
	if err != nil {
		return NfsTime4{}, err
	}
	return NfsTime4{Seconds: seconds, NanoSeconds: nanos}, nil
}

// SpecData4 carries major/minor device numbers for block and character
// special files.
type SpecData4 struct {
	Major uint32
	Minor uint32
}

func (s SpecData4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUint(buf, s.Major); err != nil {
		return err
	}
	return xdr.PackUint(buf, s.Minor)
}

func UnpackSpecData4(r io.Reader) (SpecData4, error) {
	major, err := xdr.UnpackUint(r)
	if err != nil {
		return SpecData4{}, err
	}
	minor, err := xdr.UnpackUint(r)
	if err != nil {
		return SpecData4{}, err
	}
	return SpecData4{Major: major, Minor: minor}, nil
}

// ChangeInfo4 reports whether a directory-modifying operation's
// before/after change attribute was captured atomically with the
// operation itself.
type ChangeInfo4 struct {
	Atomic bool
	Before ChangeID4
	After  ChangeID4
}

func (c ChangeInfo4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackBool(buf, c.Atomic); err != nil {
		return err
	}
	if err := xdr.PackUhyper(buf, c.Before); err != nil {
		return err
	}
	return xdr.PackUhyper(buf, c.After)
}

func UnpackChangeInfo4(r io.Reader) (ChangeInfo4, error) {
	atomic, err := xdr.UnpackBool(r)
	if err != nil {
		return ChangeInfo4{}, err
	}
	before, err := xdr.UnpackUhyper(r)
	if err != nil {
		return ChangeInfo4{}, err
	}
	after, err := xdr.UnpackUhyper(r)
	if err != nil {
		return ChangeInfo4{}, err
	}
	return ChangeInfo4{Atomic: atomic, Before: before, After: after}, nil
}

// OpenOwner4 identifies the owner of an OPEN request. This client derives
// Owner from its EXCHANGE_ID-assigned ClientID (see nfs4/client), never a
// fixed literal, so two processes sharing a client_id namespace still get
// distinguishable open-owner identities.
type OpenOwner4 struct {
	ClientID ClientID4
	Owner    []byte
}

func (o OpenOwner4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUhyper(buf, o.ClientID); err != nil {
		return err
	}
	return xdr.PackOpaque(buf, o.Owner)
}

// StateID4 is RFC 5661's stateid4: a sequence number plus a 12-byte
// server-assigned opaque identifier.
type StateID4 struct {
	SequenceID uint32
	Other      [StateIDOtherSize]byte
}

func (s StateID4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUint(buf, s.SequenceID); err != nil {
		return err
	}
	return xdr.PackOpaqueFixed(buf, s.Other[:])
}

func UnpackStateID4(r io.Reader) (StateID4, error) {
	seq, err := xdr.UnpackUint(r)
	if err != nil {
		return StateID4{}, err
	}
	other, err := xdr.UnpackOpaqueFixed(r, StateIDOtherSize)
	if err != nil {
		return StateID4{}, err
	}
	var s StateID4
	s.SequenceID = seq
	copy(s.Other[:], other)
	return s, nil
}

// OpenDelegation4 discriminates the delegation a server may grant with an
// OPEN. Only "none" is modeled: this client never requests or accepts
// delegations (see Non-goals).
type OpenDelegation4 uint32

const OpenDelegationNone OpenDelegation4 = 0

func (d OpenDelegation4) Pack(buf *bytes.Buffer) error {
	return xdr.PackUnionTag(buf, uint32(d))
}

func UnpackOpenDelegation4(r io.Reader) (OpenDelegation4, error) {
	tag, err := xdr.UnpackUnionTag(r)
	if err != nil {
		return 0, err
	}
	if tag != uint32(OpenDelegationNone) {
		return 0, result.InvalidData
	}
	return OpenDelegationNone, nil
}

// ClientOwner4 identifies this client implementation to the server in
// EXCHANGE_ID, pairing a boot-time verifier with an opaque owner id.
type ClientOwner4 struct {
	Verifier Verifier4
	OwnerID  []byte
}

func (c ClientOwner4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUhyper(buf, c.Verifier); err != nil {
		return err
	}
	return xdr.PackOpaque(buf, c.OwnerID)
}

// NfsImplID4 optionally reports implementation identity in EXCHANGE_ID.
type NfsImplID4 struct {
	Domain string
	Name   string
	Date   NfsTime4
}

func (n NfsImplID4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackString(buf, n.Domain); err != nil {
		return err
	}
	if err := xdr.PackString(buf, n.Name); err != nil {
		return err
	}
	return n.Date.Pack(buf)
}

func UnpackNfsImplID4(r io.Reader) (NfsImplID4, error) {
	domain, err := xdr.UnpackString(r)
	if err != nil {
		return NfsImplID4{}, err
	}
	name, err := xdr.UnpackString(r)
	if err != nil {
		return NfsImplID4{}, err
	}
	date, err := UnpackNfsTime4(r)
	if err != nil {
		return NfsImplID4{}, err
	}
	return NfsImplID4{Domain: domain, Name: name, Date: date}, nil
}

// ServerOwner4 is the server's identity as returned by EXCHANGE_ID.
type ServerOwner4 struct {
	MinorID uint64
	MajorID []byte
}

func UnpackServerOwner4(r io.Reader) (ServerOwner4, error) {
	minorID, err := xdr.UnpackUhyper(r)
	if err != nil {
		return ServerOwner4{}, err
	}
	majorID, err := xdr.UnpackOpaque(r)
	if err != nil {
		return ServerOwner4{}, err
	}
	return ServerOwner4{MinorID: minorID, MajorID: majorID}, nil
}

// ChannelAttrs4 describes resource limits for one direction of a session's
// channel (RFC 5661 §18.36).
type ChannelAttrs4 struct {
	HeaderPadSize         Count4
	MaxRequestSize        Count4
	MaxResponseSize       Count4
	MaxResponseSizeCached Count4
	MaxOperations         Count4
	MaxRequests           Count4
	RdmaIrd               *uint32
}

func (c ChannelAttrs4) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUint(buf, c.HeaderPadSize); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, c.MaxRequestSize); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, c.MaxResponseSize); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, c.MaxResponseSizeCached); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, c.MaxOperations); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, c.MaxRequests); err != nil {
		return err
	}
	present := c.RdmaIrd != nil
	var v uint32
	if present {
		v = *c.RdmaIrd
	}
	return xdr.PackOptional(buf, present, v, xdr.PackUint)
}

func UnpackChannelAttrs4(r io.Reader) (ChannelAttrs4, error) {
	var c ChannelAttrs4
	var err error
	if c.HeaderPadSize, err = xdr.UnpackUint(r); err != nil {
		return ChannelAttrs4{}, err
	}
	if c.MaxRequestSize, err = xdr.UnpackUint(r); err != nil {
		return ChannelAttrs4{}, err
	}
	if c.MaxResponseSize, err = xdr.UnpackUint(r); err != nil {
		return ChannelAttrs4{}, err
	}
	if c.MaxResponseSizeCached, err = xdr.UnpackUint(r); err != nil {
		return ChannelAttrs4{}, err
	}
	if c.MaxOperations, err = xdr.UnpackUint(r); err != nil {
		return ChannelAttrs4{}, err
	}
	if c.MaxRequests, err = xdr.UnpackUint(r); err != nil {
		return ChannelAttrs4{}, err
	}
	c.RdmaIrd, err = xdr.UnpackOptional(r, xdr.UnpackUint)
	if err != nil {
		return ChannelAttrs4{}, err
	}
	return c, nil
}

// StateProtect4A/StateProtect4R negotiate RPCSEC_GSS state protection in
// EXCHANGE_ID. This client never requests it (see Non-goals: no
// RPCSEC_GSS), so only the "none" variant is modeled; a server replying
// with any other variant is treated as a protocol violation this client
// cannot honor.
type StateProtect4 uint32

const StateProtectNone StateProtect4 = 0

func (s StateProtect4) Pack(buf *bytes.Buffer) error {
	return xdr.PackUnionTag(buf, uint32(s))
}

func UnpackStateProtect4(r io.Reader) (StateProtect4, error) {
	tag, err := xdr.UnpackUnionTag(r)
	if err != nil {
		return 0, err
	}
	if tag != uint32(StateProtectNone) {
		return 0, result.InvalidData
	}
	return StateProtectNone, nil
}
