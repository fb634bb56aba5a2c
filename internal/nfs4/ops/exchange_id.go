package ops

import (
	"bytes"
	"io"

	"github.com/marmos91/nfs4c/internal/xdr"
)

// EXCHANGE_ID flags this client may set (RFC 5661 §18.35). SUPP_MOVED_MIGR
// and SUPP_MOVED_REFER advertise migration/referral support regardless of
// pNFS; BIND_PRINC_STATEID binds the client's RPC principal to its state.
const (
	ExchgidFlagSuppMovedRefer   uint32 = 0x00000001
	ExchgidFlagSuppMovedMigr    uint32 = 0x00000002
	ExchgidFlagBindPrincStateid uint32 = 0x00000100
	ExchgidFlagUseNonPNFS       uint32 = 0x00010000
)

// ExchangeID4Args is EXCHANGE_ID's argument.
type ExchangeID4Args struct {
	ClientOwner  ClientOwner4
	Flags        uint32
	StateProtect StateProtect4
	ClientImplID *NfsImplID4
}

func (a ExchangeID4Args) OpCode() uint32 { return OpExchangeID }

func (a ExchangeID4Args) Pack(buf *bytes.Buffer) error {
	if err := a.ClientOwner.Pack(buf); err != nil {
		return err
	}
	if err := xdr.PackUint(buf, a.Flags); err != nil {
		return err
	}
	if err := a.StateProtect.Pack(buf); err != nil {
		return err
	}
	present := a.ClientImplID != nil
	var v NfsImplID4
	if present {
		v = *a.ClientImplID
	}
	return xdr.PackOptional(buf, present, v, func(b *bytes.Buffer, n NfsImplID4) error {
		return n.Pack(b)
	})
}

// ExchangeID4ResOk is EXCHANGE_ID's result.
type ExchangeID4ResOk struct {
	ClientID     ClientID4
	SequenceID   SequenceID4
	Flags        uint32
	StateProtect StateProtect4
	ServerOwner  ServerOwner4
	ServerScope  []byte
	ServerImplID *NfsImplID4
}

func UnpackExchangeID4ResOk(r io.Reader) (*ExchangeID4ResOk, error) {
	clientID, err := xdr.UnpackUhyper(r)
	if err != nil {
		return nil, err
	}
	sequenceID, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	flags, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	stateProtect, err := UnpackStateProtect4(r)
	if err != nil {
		return nil, err
	}
	serverOwner, err := UnpackServerOwner4(r)
	if err != nil {
		return nil, err
	}
	serverScope, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}
	serverImplID, err := xdr.UnpackOptional(r, UnpackNfsImplID4)
	if err != nil {
		return nil, err
	}
	return &ExchangeID4ResOk{
		ClientID:     clientID,
		SequenceID:   sequenceID,
		Flags:        flags,
		StateProtect: stateProtect,
		ServerOwner:  serverOwner,
		ServerScope:  serverScope,
		ServerImplID: serverImplID,
	}, nil
}
