package ops

import (
	"bytes"
	"testing"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompoundPackEncodesTagMinorVersionAndOps(t *testing.T) {
	c := NewCompound("lookup")
	c.Ops = []ArgOp{
		PutRootFh4Args{},
		Lookup4Args{ObjName: "etc"},
	}

	var buf bytes.Buffer
	require.NoError(t, c.Pack(&buf))

	tag, err := xdr.UnpackString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "lookup", tag)

	minorVersion, err := xdr.UnpackUint(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), minorVersion)

	n, err := xdr.UnpackUint(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)

	opcode, err := xdr.UnpackUint(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpPutRootFh, opcode)

	opcode, err = xdr.UnpackUint(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpLookup, opcode)
	name, err := xdr.UnpackString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "etc", name)
}

// buildResultOp writes one nfs_resop4 in wire order: opcode, status,
// then okPayload(buf) iff status is NFS4_OK.
func buildResultOp(t *testing.T, buf *bytes.Buffer, opcode uint32, status uint32, okPayload func(*bytes.Buffer) error) {
	t.Helper()
	require.NoError(t, xdr.PackUint(buf, opcode))
	require.NoError(t, xdr.PackUint(buf, status))
	if status == 0 && okPayload != nil {
		require.NoError(t, okPayload(buf))
	}
}

func TestUnpackCompoundResultDecodesMixedOps(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.PackUint(&buf, 0)) // overall status NFS4_OK
	require.NoError(t, xdr.PackString(&buf, "lookup"))
	require.NoError(t, xdr.PackUint(&buf, 3)) // 3 result ops

	buildResultOp(t, &buf, OpPutRootFh, 0, nil)
	buildResultOp(t, &buf, OpLookup, 0, nil)
	buildResultOp(t, &buf, OpGetFh, 0, func(b *bytes.Buffer) error {
		return xdr.PackOpaque(b, []byte{1, 2, 3, 4})
	})

	cr, err := UnpackCompoundResult(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cr.Status)
	assert.Equal(t, "lookup", cr.Tag)
	require.Len(t, cr.Results, 3)

	getFhResult, err := cr.At(2)
	require.NoError(t, err)
	okVal, ok := getFhResult.Ok.(*GetFh4ResOk)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, okVal.Object)
}

func TestUnpackCompoundResultSurfacesPerOpError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.PackUint(&buf, 10025)) // NFS4ERR_BAD_STATEID, non-zero
	require.NoError(t, xdr.PackString(&buf, ""))
	require.NoError(t, xdr.PackUint(&buf, 1))
	buildResultOp(t, &buf, OpLookup, 10025, nil)

	cr, err := UnpackCompoundResult(&buf)
	require.NoError(t, err)
	op, err := cr.At(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(10025), op.Status)
	assert.Nil(t, op.Ok)
}

func TestAtRejectsOutOfRangeIndex(t *testing.T) {
	cr := &CompoundResult{Results: []ResultOp{{OpCode: OpLookup}}}
	_, err := cr.At(5)
	assert.ErrorIs(t, err, result.InvalidData)
}

func TestSequence4ArgsPackUnpackRoundTrip(t *testing.T) {
	var sessionID SessionID4
	copy(sessionID[:], bytes.Repeat([]byte{0xab}, SessionIDSize))

	args := Sequence4Args{
		SessionID:     sessionID,
		SequenceID:    7,
		SlotID:        2,
		HighestSlotID: 63,
		CacheThis:     false,
	}

	var buf bytes.Buffer
	require.NoError(t, args.Pack(&buf))
	assert.Equal(t, OpSequence, args.OpCode())

	sid, err := xdr.UnpackOpaqueFixed(&buf, SessionIDSize)
	require.NoError(t, err)
	assert.Equal(t, sessionID[:], sid)
}

func TestEntry4LinkedListRoundTripThroughReadDirResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.PackUhyper(&buf, 0xc00c1e)) // cookie_verf

	require.NoError(t, xdr.PackBool(&buf, true)) // entry 1 present
	require.NoError(t, xdr.PackUhyper(&buf, 1))  // cookie
	require.NoError(t, xdr.PackString(&buf, "a"))
	// minimal empty fattr4: empty bitmap, empty opaque
	require.NoError(t, xdr.PackArray(&buf, []uint32{}, xdr.PackUint))
	require.NoError(t, xdr.PackOpaque(&buf, nil))

	require.NoError(t, xdr.PackBool(&buf, false)) // list terminator
	require.NoError(t, xdr.PackBool(&buf, true))  // eof

	got, err := UnpackReadDir4ResOk(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xc00c1e), got.CookieVerf)
	require.Len(t, got.Reply.Entries, 1)
	assert.Equal(t, "a", got.Reply.Entries[0].Name)
	assert.True(t, got.Reply.EOF)
}
