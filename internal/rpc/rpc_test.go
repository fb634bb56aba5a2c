package rpc

import (
	"bytes"
	"testing"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaqueAuthNoneRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewAuthNone().Pack(&buf))

	got, err := UnpackOpaqueAuth(&buf)
	require.NoError(t, err)
	assert.Equal(t, AuthFlavorNone, got.Flavor)
	assert.Nil(t, got.Sys)
}

func TestOpaqueAuthSysRoundTrip(t *testing.T) {
	auth := NewAuthSys(12345, []byte("workstation"), 501, 20, []uint32{20, 12, 61})

	var buf bytes.Buffer
	require.NoError(t, auth.Pack(&buf))

	got, err := UnpackOpaqueAuth(&buf)
	require.NoError(t, err)
	require.Equal(t, AuthFlavorSys, got.Flavor)
	require.NotNil(t, got.Sys)
	assert.Equal(t, uint32(12345), got.Sys.Stamp)
	assert.Equal(t, []byte("workstation"), got.Sys.MachineName)
	assert.Equal(t, uint32(501), got.Sys.UID)
	assert.Equal(t, uint32(20), got.Sys.GID)
	assert.Equal(t, []uint32{20, 12, 61}, got.Sys.GIDs)
}

func TestCallHeaderPacksHardcodedRPCVersion(t *testing.T) {
	h := CallHeader{Prog: 100003, Vers: 4, Proc: 1, Cred: NewAuthNone(), Verf: NewAuthNone()}

	var buf bytes.Buffer
	require.NoError(t, h.Pack(&buf))

	rpcvers, err := xdr.UnpackUint(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rpcvers)

	prog, err := xdr.UnpackUint(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(100003), prog)
}

func TestReplyHeaderAcceptedSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.PackUnionTag(&buf, MsgAccepted))
	require.NoError(t, NewAuthNone().Pack(&buf))
	require.NoError(t, xdr.PackUnionTag(&buf, uint32(StatSuccess)))

	h, err := UnpackReplyHeader(&buf)
	require.NoError(t, err)
	assert.True(t, h.Accepted)
	assert.NoError(t, h.CheckStatus())
}

func TestReplyHeaderAcceptedProgMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.PackUnionTag(&buf, MsgAccepted))
	require.NoError(t, NewAuthNone().Pack(&buf))
	require.NoError(t, xdr.PackUnionTag(&buf, uint32(StatProgMismatch)))
	require.NoError(t, xdr.PackUint(&buf, 1))
	require.NoError(t, xdr.PackUint(&buf, 4))

	h, err := UnpackReplyHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h.Accept.Mismatch.Low)
	assert.Equal(t, uint32(4), h.Accept.Mismatch.High)
	assert.ErrorIs(t, h.CheckStatus(), result.RPCProgMismatch)
}

func TestReplyHeaderDeniedAuthError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.PackUnionTag(&buf, MsgDenied))
	require.NoError(t, xdr.PackUnionTag(&buf, uint32(RejectAuthError)))
	require.NoError(t, xdr.PackUnionTag(&buf, uint32(AuthBadCred)))

	h, err := UnpackReplyHeader(&buf)
	require.NoError(t, err)
	assert.False(t, h.Accepted)
	assert.Equal(t, AuthBadCred, h.Reject.AuthError)
	assert.ErrorIs(t, h.CheckStatus(), result.RPCRejectedAuthError)
}

func TestReadWritePacketRoundTripSingleFragment(t *testing.T) {
	payload := []byte("hello nfs4")

	var wire bytes.Buffer
	require.NoError(t, WritePacket(&wire, payload))

	got, err := ReadPacket(&wire, MaxPacketSize)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadPacketReassemblesMultipleFragments(t *testing.T) {
	var wire bytes.Buffer

	first := []byte("fragment-one-")
	second := []byte("fragment-two")

	writeFragment(t, &wire, first, false)
	writeFragment(t, &wire, second, true)

	got, err := ReadPacket(&wire, MaxPacketSize)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, first...), second...), got)
}

func TestReadPacketRejectsOversizePacket(t *testing.T) {
	var wire bytes.Buffer
	writeFragment(t, &wire, make([]byte, 64), true)

	_, err := ReadPacket(&wire, 32)
	assert.ErrorIs(t, err, result.InvalidData)
}

func writeFragment(t *testing.T, buf *bytes.Buffer, payload []byte, last bool) {
	t.Helper()
	mark := uint32(len(payload))
	if last {
		mark |= lastFragment
	}
	var markBuf bytes.Buffer
	require.NoError(t, xdr.PackUint(&markBuf, mark))
	buf.Write(markBuf.Bytes())
	buf.Write(payload)
}
