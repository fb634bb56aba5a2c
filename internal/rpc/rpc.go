// Package rpc implements the ONC RPC version 2 transport (RFC 5531): record
// marking, call/reply headers, AUTH_NONE/AUTH_SYS credentials, and the
// accepted/rejected reply status taxonomy. It carries any payload the
// caller has already encoded with internal/xdr; it has no knowledge of
// NFS, MOUNT, or portmap procedure semantics.
package rpc

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/xdr"
	"github.com/marmos91/nfs4c/pkg/bufpool"
)

// MaxPacketSize bounds a single reassembled RPC message (all fragments of
// one record-marked packet combined).
const MaxPacketSize uint32 = 1024 * 1024

const lastFragment uint32 = 0x80000000

// Message type discriminant (RFC 5531 msg_type).
const (
	Call  uint32 = 0
	Reply uint32 = 1
)

// Authentication flavor (RFC 5531 auth_flavor). Only the flavors this
// client speaks are named; GSS and others are out of scope.
const (
	AuthFlavorNone uint32 = 0
	AuthFlavorSys  uint32 = 1
)

// Reply status (RFC 5531 reply_stat).
const (
	MsgAccepted uint32 = 0
	MsgDenied   uint32 = 1
)

// AuthSys carries the RFC 5531 AUTH_SYS credential body.
type AuthSys struct {
	Stamp       uint32
	MachineName []byte
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// OpaqueAuth is RFC 5531's opaque_auth: a flavor tag plus flavor-specific
// body. The zero value is AUTH_NONE.
type OpaqueAuth struct {
	Flavor uint32
	Sys    *AuthSys
}

// NewAuthNone returns the AUTH_NONE credential/verifier.
func NewAuthNone() OpaqueAuth {
	return OpaqueAuth{Flavor: AuthFlavorNone}
}

// NewAuthSys returns an AUTH_SYS credential with the given identity.
func NewAuthSys(stamp uint32, machineName []byte, uid, gid uint32, gids []uint32) OpaqueAuth {
	return OpaqueAuth{Flavor: AuthFlavorSys, Sys: &AuthSys{
		Stamp:       stamp,
		MachineName: machineName,
		UID:         uid,
		GID:         gid,
		GIDs:        gids,
	}}
}

// Pack encodes the opaque_auth per RFC 5531 §8.2.
func (a OpaqueAuth) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUnionTag(buf, a.Flavor); err != nil {
		return err
	}
	switch a.Flavor {
	case AuthFlavorNone:
		return xdr.PackUint(buf, 0)
	case AuthFlavorSys:
		return packAuthSysBody(buf, a.Sys)
	default:
		return result.InvalidData
	}
}

// packAuthSysBody encodes AuthSys as a single length-prefixed opaque blob,
// matching the wire shape of AUTH_SYS's body field.
func packAuthSysBody(buf *bytes.Buffer, auth *AuthSys) error {
	var body bytes.Buffer
	if err := xdr.PackUint(&body, auth.Stamp); err != nil {
		return err
	}
	if err := xdr.PackOpaque(&body, auth.MachineName); err != nil {
		return err
	}
	if err := xdr.PackUint(&body, auth.UID); err != nil {
		return err
	}
	if err := xdr.PackUint(&body, auth.GID); err != nil {
		return err
	}
	if err := xdr.PackArray(&body, auth.GIDs, xdr.PackUint); err != nil {
		return err
	}
	return xdr.PackOpaque(buf, body.Bytes())
}

// UnpackOpaqueAuth decodes an opaque_auth.
func UnpackOpaqueAuth(r io.Reader) (OpaqueAuth, error) {
	flavor, err := xdr.UnpackUnionTag(r)
	if err != nil {
		return OpaqueAuth{}, err
	}
	switch flavor {
	case AuthFlavorNone:
		n, err := xdr.UnpackUint(r)
		if err != nil {
			return OpaqueAuth{}, err
		}
		if n != 0 {
			return OpaqueAuth{}, result.InvalidData
		}
		return NewAuthNone(), nil
	case AuthFlavorSys:
		body, err := xdr.UnpackOpaque(r)
		if err != nil {
			return OpaqueAuth{}, err
		}
		auth, err := unpackAuthSysBody(bytes.NewReader(body))
		if err != nil {
			return OpaqueAuth{}, err
		}
		return OpaqueAuth{Flavor: AuthFlavorSys, Sys: auth}, nil
	default:
		return OpaqueAuth{}, result.InvalidData
	}
}

func unpackAuthSysBody(r io.Reader) (*AuthSys, error) {
	stamp, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	machineName, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}
	uid, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	gid, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	gids, err := xdr.UnpackArray(r, xdr.UnpackUint)
	if err != nil {
		return nil, err
	}
	return &AuthSys{Stamp: stamp, MachineName: machineName, UID: uid, GID: gid, GIDs: gids}, nil
}

// CallHeader is RFC 5531's call_body, minus the leading xid/msg_type which
// the framer writes separately so it can track the xid for reply matching.
type CallHeader struct {
	Prog uint32
	Vers uint32
	Proc uint32
	Cred OpaqueAuth
	Verf OpaqueAuth
}

// Pack encodes the call_body, including the hardcoded rpcvers=2.
func (h CallHeader) Pack(buf *bytes.Buffer) error {
	if err := xdr.PackUint(buf, 2); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, h.Prog); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, h.Vers); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, h.Proc); err != nil {
		return err
	}
	if err := h.Cred.Pack(buf); err != nil {
		return err
	}
	return h.Verf.Pack(buf)
}

// MismatchInfo is RFC 5531's mismatch_info, used by both PROG_MISMATCH and
// RPC_MISMATCH to report the acceptable version range.
type MismatchInfo struct {
	Low  uint32
	High uint32
}

func unpackMismatchInfo(r io.Reader) (MismatchInfo, error) {
	low, err := xdr.UnpackUint(r)
	if err != nil {
		return MismatchInfo{}, err
	}
	high, err := xdr.UnpackUint(r)
	if err != nil {
		return MismatchInfo{}, err
	}
	return MismatchInfo{Low: low, High: high}, nil
}

// AcceptedReplyStat is RFC 5531's accept_stat.
type AcceptedReplyStat uint32

const (
	StatSuccess AcceptedReplyStat = iota
	StatProgUnavail
	StatProgMismatch
	StatProcUnavail
	StatGarbageArgs
	StatSystemErr
)

// AcceptedReply is RFC 5531's accepted_reply.
type AcceptedReply struct {
	Verf     OpaqueAuth
	Stat     AcceptedReplyStat
	Mismatch MismatchInfo // valid only when Stat == StatProgMismatch
}

func unpackAcceptedReply(r io.Reader) (AcceptedReply, error) {
	verf, err := UnpackOpaqueAuth(r)
	if err != nil {
		return AcceptedReply{}, err
	}
	stat, err := xdr.UnpackUnionTag(r)
	if err != nil {
		return AcceptedReply{}, err
	}
	reply := AcceptedReply{Verf: verf, Stat: AcceptedReplyStat(stat)}
	if AcceptedReplyStat(stat) == StatProgMismatch {
		reply.Mismatch, err = unpackMismatchInfo(r)
		if err != nil {
			return AcceptedReply{}, err
		}
	}
	return reply, nil
}

// AuthStat is RFC 5531's auth_stat, carried by a denied reply's auth_error.
type AuthStat uint32

const (
	AuthOK AuthStat = iota
	AuthBadCred
	AuthRejectedCred
	AuthBadVerf
	AuthRejectedVerf
	AuthTooWeak
	AuthInvalidResp
	AuthFailed
	AuthKerbGeneric
	AuthTimeExpire
	AuthTktFile
	AuthDecode
	AuthNetAddr
	AuthCredProblem
	AuthCtxProblem
)

// RejectedReplyKind discriminates RFC 5531's reject_stat.
type RejectedReplyKind uint32

const (
	RejectRPCMismatch RejectedReplyKind = iota
	RejectAuthError
)

// RejectedReply is RFC 5531's rejected_reply.
type RejectedReply struct {
	Kind      RejectedReplyKind
	Mismatch  MismatchInfo // valid when Kind == RejectRPCMismatch
	AuthError AuthStat     // valid when Kind == RejectAuthError
}

func unpackRejectedReply(r io.Reader) (RejectedReply, error) {
	kind, err := xdr.UnpackUnionTag(r)
	if err != nil {
		return RejectedReply{}, err
	}
	switch RejectedReplyKind(kind) {
	case RejectRPCMismatch:
		mismatch, err := unpackMismatchInfo(r)
		if err != nil {
			return RejectedReply{}, err
		}
		return RejectedReply{Kind: RejectRPCMismatch, Mismatch: mismatch}, nil
	case RejectAuthError:
		stat, err := xdr.UnpackUnionTag(r)
		if err != nil {
			return RejectedReply{}, err
		}
		return RejectedReply{Kind: RejectAuthError, AuthError: AuthStat(stat)}, nil
	default:
		return RejectedReply{}, result.InvalidData
	}
}

// ReplyHeader is RFC 5531's reply_body.
type ReplyHeader struct {
	Accepted bool
	Accept   AcceptedReply // valid when Accepted
	Reject   RejectedReply // valid when !Accepted
}

// UnpackReplyHeader decodes a reply_body.
func UnpackReplyHeader(r io.Reader) (ReplyHeader, error) {
	stat, err := xdr.UnpackUnionTag(r)
	if err != nil {
		return ReplyHeader{}, err
	}
	switch stat {
	case MsgAccepted:
		accept, err := unpackAcceptedReply(r)
		if err != nil {
			return ReplyHeader{}, err
		}
		return ReplyHeader{Accepted: true, Accept: accept}, nil
	case MsgDenied:
		reject, err := unpackRejectedReply(r)
		if err != nil {
			return ReplyHeader{}, err
		}
		return ReplyHeader{Accepted: false, Reject: reject}, nil
	default:
		return ReplyHeader{}, result.InvalidData
	}
}

// CheckStatus maps a decoded reply_body to an error, or nil on success.
func (h ReplyHeader) CheckStatus() error {
	if h.Accepted {
		switch h.Accept.Stat {
		case StatSuccess:
			return nil
		case StatProgUnavail:
			return result.RPCProgUnavail
		case StatProgMismatch:
			return result.RPCProgMismatch
		case StatProcUnavail:
			return result.RPCProcUnavail
		case StatGarbageArgs:
			return result.RPCGarbageArgs
		case StatSystemErr:
			return result.RPCSystemErr
		default:
			return result.InvalidData
		}
	}
	switch h.Reject.Kind {
	case RejectRPCMismatch:
		return result.RPCRejectedMismatch
	case RejectAuthError:
		return result.RPCRejectedAuthError
	default:
		return result.InvalidData
	}
}

// ReadPacket reads one RPC record from r into a single reassembled buffer,
// following the record-marking fragmentation of RFC 5531 §11: each
// fragment is a 4-byte big-endian header (top bit set on the last
// fragment, low 31 bits the fragment's byte length) followed by that many
// payload bytes. The reassembled packet is rejected with
// result.InvalidData if it would exceed maxSize.
//
// Each fragment is read into a scratch buffer drawn from bufpool rather
// than grown in place, since the returned packet outlives this call (it
// crosses to whichever goroutine is waiting on the reply's xid) and so
// cannot itself be a pooled buffer handed back here.
func ReadPacket(r io.Reader, maxSize uint32) ([]byte, error) {
	scratch := bufpool.GetUint32(maxSize)
	defer bufpool.Put(scratch)

	var out []byte
	var marker [4]byte
	for {
		if _, err := io.ReadFull(r, marker[:]); err != nil {
			return nil, result.FromIOError(err)
		}
		recordMark := binary.BigEndian.Uint32(marker[:])
		last := recordMark&lastFragment != 0
		fragmentSize := recordMark &^ lastFragment

		if fragmentSize > maxSize || uint32(len(out))+fragmentSize > maxSize {
			return nil, result.InvalidData
		}

		if _, err := io.ReadFull(r, scratch[:fragmentSize]); err != nil {
			return nil, result.FromIOError(err)
		}
		out = append(out, scratch[:fragmentSize]...)

		if last {
			return out, nil
		}
	}
}

// WritePacket frames payload as a single-fragment RPC record and writes it
// to w. This client never splits an outbound call across fragments.
func WritePacket(w io.Writer, payload []byte) error {
	var marker [4]byte
	binary.BigEndian.PutUint32(marker[:], lastFragment|uint32(len(payload)))
	if _, err := w.Write(marker[:]); err != nil {
		return result.FromIOError(err)
	}
	if _, err := w.Write(payload); err != nil {
		return result.FromIOError(err)
	}
	return nil
}
