package client

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/marmos91/nfs4c/internal/nfs4/ops"
	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/rpc"
	"github.com/marmos91/nfs4c/internal/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient wires a Client directly onto an already-connected net.Conn,
// skipping Connect/Dial, so tests can drive both ends of a net.Pipe.
func newTestClient(conn net.Conn) *Client {
	c := New("test-server:2049", nil)
	c.rpc = rpc.NewClient(conn)
	c.state.Store(int32(stateConnected))
	return c
}

type resultOpSpec struct {
	opcode  uint32
	status  uint32
	payload func(*bytes.Buffer) error
}

func buildResultOp(t *testing.T, buf *bytes.Buffer, spec resultOpSpec) {
	t.Helper()
	require.NoError(t, xdr.PackUint(buf, spec.opcode))
	require.NoError(t, xdr.PackUint(buf, spec.status))
	if spec.status == 0 && spec.payload != nil {
		require.NoError(t, spec.payload(buf))
	}
}

// buildCompoundReply encodes a COMPOUND result: overall status, empty tag,
// then each of specs as one nfs_resop4.
func buildCompoundReply(t *testing.T, status uint32, specs []resultOpSpec) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, xdr.PackUint(&buf, status))
	require.NoError(t, xdr.PackString(&buf, ""))
	require.NoError(t, xdr.PackUint(&buf, uint32(len(specs))))
	for _, s := range specs {
		buildResultOp(t, &buf, s)
	}
	return buf.Bytes()
}

// runFakeServer answers one request per entry in responses, in order,
// wrapping each as a successful accepted reply. It never parses the
// request's procedure or arguments: test scenarios queue exactly the
// replies their call sequence expects.
func runFakeServer(conn net.Conn, responses [][]byte) {
	go func() {
		for _, resp := range responses {
			packet, err := rpc.ReadPacket(conn, rpc.MaxPacketSize)
			if err != nil {
				return
			}
			r := bytes.NewReader(packet)
			xid, err := xdr.UnpackUint(r)
			if err != nil {
				return
			}

			var reply bytes.Buffer
			if xdr.PackUint(&reply, xid) != nil {
				return
			}
			if xdr.PackUint(&reply, rpc.Reply) != nil {
				return
			}
			if rpc.NewAuthNone().Pack(&reply) != nil {
				return
			}
			if xdr.PackUint(&reply, uint32(rpc.StatSuccess)) != nil {
				return
			}
			reply.Write(resp)
			if rpc.WritePacket(conn, reply.Bytes()) != nil {
				return
			}
		}
	}()
}

func TestRequireStateGuardsRejectCallsOutOfOrder(t *testing.T) {
	c := New("unused:0", nil)
	ctx := context.Background()

	err := c.NullCall(ctx)
	assert.ErrorIs(t, err, result.NotConnected)

	err = c.ExchangeIDCall(ctx)
	assert.ErrorIs(t, err, result.NotConnected)

	_, err = c.ResolvePath(ctx, "")
	assert.ErrorIs(t, err, result.NotConnected)

	_, err = c.Mkdir(ctx, ops.NfsFh4{1}, "d")
	assert.ErrorIs(t, err, result.NotConnected)
}

func TestSetOnceCellPanicsOnSecondWrite(t *testing.T) {
	var cell setOnceCell[int]
	cell.Set(1)
	assert.Equal(t, 1, cell.Get())
	assert.Panics(t, func() { cell.Set(2) })
}

func TestNullCallRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	runFakeServer(serverConn, [][]byte{{}})

	c := newTestClient(clientConn)
	require.NoError(t, c.NullCall(context.Background()))
}

func TestBootstrapSequenceAdvancesStateAndRecordsIdentity(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	exchangeIDReply := buildCompoundReply(t, 0, []resultOpSpec{
		{opcode: ops.OpExchangeID, payload: func(buf *bytes.Buffer) error {
			require.NoError(t, xdr.PackUhyper(buf, 0xcafe))
			require.NoError(t, xdr.PackUint(buf, 1))
			require.NoError(t, xdr.PackUint(buf, 0))
			require.NoError(t, xdr.PackUnionTag(buf, 0))
			require.NoError(t, xdr.PackUhyper(buf, 0))
			require.NoError(t, xdr.PackOpaque(buf, []byte("srv")))
			require.NoError(t, xdr.PackOpaque(buf, nil))
			require.NoError(t, xdr.PackBool(buf, false))
			return nil
		}},
	})

	var sessionID ops.SessionID4
	copy(sessionID[:], bytes.Repeat([]byte{0x11}, ops.SessionIDSize))
	createSessionReply := buildCompoundReply(t, 0, []resultOpSpec{
		{opcode: ops.OpCreateSession, payload: func(buf *bytes.Buffer) error {
			require.NoError(t, xdr.PackOpaqueFixed(buf, sessionID[:]))
			require.NoError(t, xdr.PackUint(buf, 1))
			require.NoError(t, xdr.PackUint(buf, 0))
			require.NoError(t, ops.ChannelAttrs4{}.Pack(buf))
			require.NoError(t, ops.ChannelAttrs4{}.Pack(buf))
			return nil
		}},
	})

	runFakeServer(serverConn, [][]byte{exchangeIDReply, createSessionReply})

	c := newTestClient(clientConn)
	require.NoError(t, c.ExchangeIDCall(context.Background()))
	assert.Equal(t, ops.ClientID4(0xcafe), c.ClientID())
	assert.Equal(t, int32(stateIdentified), c.state.Load())

	require.NoError(t, c.CreateSessionCall(context.Background()))
	assert.Equal(t, sessionID, c.sessionID.Get())
	assert.Equal(t, int32(stateSessioned), c.state.Load())
}

func TestExchangeIDCallSendsSpecifiedFlags(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	exchangeIDReply := buildCompoundReply(t, 0, []resultOpSpec{
		{opcode: ops.OpExchangeID, payload: func(buf *bytes.Buffer) error {
			require.NoError(t, xdr.PackUhyper(buf, 0xcafe))
			require.NoError(t, xdr.PackUint(buf, 1))
			require.NoError(t, xdr.PackUint(buf, 0))
			require.NoError(t, xdr.PackUnionTag(buf, 0))
			require.NoError(t, xdr.PackUhyper(buf, 0))
			require.NoError(t, xdr.PackOpaque(buf, []byte("srv")))
			require.NoError(t, xdr.PackOpaque(buf, nil))
			require.NoError(t, xdr.PackBool(buf, false))
			return nil
		}},
	})

	var gotFlags uint32
	go func() {
		packet, err := rpc.ReadPacket(serverConn, rpc.MaxPacketSize)
		require.NoError(t, err)
		r := bytes.NewReader(packet)

		// Skip the RPC call header: xid, msgtype, rpcvers, prog, vers, proc.
		for i := 0; i < 6; i++ {
			_, err := xdr.UnpackUint(r)
			require.NoError(t, err)
		}
		_, err = rpc.UnpackOpaqueAuth(r) // cred
		require.NoError(t, err)
		_, err = rpc.UnpackOpaqueAuth(r) // verf
		require.NoError(t, err)

		// COMPOUND args: tag, minorversion, numops, opcode.
		_, err = xdr.UnpackString(r)
		require.NoError(t, err)
		_, err = xdr.UnpackUint(r) // minorversion
		require.NoError(t, err)
		_, err = xdr.UnpackUint(r) // numops
		require.NoError(t, err)
		_, err = xdr.UnpackUnionTag(r) // opcode
		require.NoError(t, err)

		// ExchangeID4Args: ClientOwner4 (verifier, opaque ownerid), Flags.
		_, err = xdr.UnpackUhyper(r)
		require.NoError(t, err)
		_, err = xdr.UnpackOpaque(r)
		require.NoError(t, err)
		gotFlags, err = xdr.UnpackUint(r)
		require.NoError(t, err)

		xid, err := xdr.UnpackUint(bytes.NewReader(packet))
		require.NoError(t, err)

		var reply bytes.Buffer
		require.NoError(t, xdr.PackUint(&reply, xid))
		require.NoError(t, xdr.PackUint(&reply, rpc.Reply))
		require.NoError(t, rpc.NewAuthNone().Pack(&reply))
		require.NoError(t, xdr.PackUint(&reply, uint32(rpc.StatSuccess)))
		reply.Write(exchangeIDReply)
		require.NoError(t, rpc.WritePacket(serverConn, reply.Bytes()))
	}()

	c := newTestClient(clientConn)
	require.NoError(t, c.ExchangeIDCall(context.Background()))
	assert.Equal(t,
		ops.ExchgidFlagBindPrincStateid|ops.ExchgidFlagSuppMovedMigr|ops.ExchgidFlagSuppMovedRefer,
		gotFlags)
}

func TestSendReclaimCompleteAbsorbsCompleteAlready(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	reply := buildCompoundReply(t, uint32(result.NFS4ErrCompleteAlready), nil)
	runFakeServer(serverConn, [][]byte{reply})

	c := newTestClient(clientConn)
	c.sessionID.Set(ops.SessionID4{})
	c.state.Store(int32(stateSessioned))

	require.NoError(t, c.SendReclaimComplete(context.Background()))
	assert.Equal(t, int32(stateReady), c.state.Load())
}

func TestResolvePathFetchesAndCachesRootFh(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	rootFh := []byte{0xaa, 0xbb}
	reply := buildCompoundReply(t, 0, []resultOpSpec{
		{opcode: ops.OpSequence, payload: func(buf *bytes.Buffer) error {
			require.NoError(t, xdr.PackOpaqueFixed(buf, make([]byte, ops.SessionIDSize)))
			require.NoError(t, xdr.PackUint(buf, 1))
			require.NoError(t, xdr.PackUint(buf, 0))
			require.NoError(t, xdr.PackUint(buf, 63))
			require.NoError(t, xdr.PackUint(buf, 63))
			require.NoError(t, xdr.PackUint(buf, 0))
			return nil
		}},
		{opcode: ops.OpPutRootFh},
		{opcode: ops.OpGetFh, payload: func(buf *bytes.Buffer) error {
			return xdr.PackOpaque(buf, rootFh)
		}},
	})

	runFakeServer(serverConn, [][]byte{reply})

	c := newTestClient(clientConn)
	c.sessionID.Set(ops.SessionID4{})
	c.state.Store(int32(stateReady))

	fh, err := c.ResolvePath(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, rootFh, []byte(fh))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	fh2, err := c.ResolvePath(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rootFh, []byte(fh2))
}

func sequenceResultOp() resultOpSpec {
	return resultOpSpec{opcode: ops.OpSequence, payload: func(buf *bytes.Buffer) error {
		if err := xdr.PackOpaqueFixed(buf, make([]byte, ops.SessionIDSize)); err != nil {
			return err
		}
		if err := xdr.PackUint(buf, 1); err != nil {
			return err
		}
		if err := xdr.PackUint(buf, 0); err != nil {
			return err
		}
		if err := xdr.PackUint(buf, 63); err != nil {
			return err
		}
		if err := xdr.PackUint(buf, 63); err != nil {
			return err
		}
		return xdr.PackUint(buf, 0)
	}}
}

func TestReadCopiesDataIntoPooledBuffer(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	want := []byte("hello, nfs4")
	reply := buildCompoundReply(t, 0, []resultOpSpec{
		sequenceResultOp(),
		{opcode: ops.OpPutFh},
		{opcode: ops.OpRead, payload: func(buf *bytes.Buffer) error {
			if err := xdr.PackBool(buf, true); err != nil {
				return err
			}
			return xdr.PackOpaque(buf, want)
		}},
	})
	runFakeServer(serverConn, [][]byte{reply})

	c := newTestClient(clientConn)
	c.sessionID.Set(ops.SessionID4{})
	c.state.Store(int32(stateReady))

	res, err := c.Read(context.Background(), ops.NfsFh4{1}, ops.StateID4{}, 0, 4096)
	require.NoError(t, err)
	assert.True(t, res.EOF)
	assert.Equal(t, want, res.Data)
	assert.GreaterOrEqual(t, cap(res.Data), len(want))
}
