package nfs3

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/rpc"
	"github.com/marmos91/nfs4c/internal/xdr"
	"github.com/stretchr/testify/require"
)

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

func packFattr3(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	require.NoError(t, xdr.PackUint(buf, 1)) // NF3REG
	require.NoError(t, xdr.PackUint(buf, 0o644))
	require.NoError(t, xdr.PackUint(buf, 1))
	require.NoError(t, xdr.PackUint(buf, 0))
	require.NoError(t, xdr.PackUint(buf, 0))
	require.NoError(t, xdr.PackUhyper(buf, 1024))
	require.NoError(t, xdr.PackUhyper(buf, 1024))
	require.NoError(t, xdr.PackUint(buf, 0))
	require.NoError(t, xdr.PackUint(buf, 0))
	require.NoError(t, xdr.PackUhyper(buf, 0))
	require.NoError(t, xdr.PackUhyper(buf, 7))
	for i := 0; i < 3; i++ {
		require.NoError(t, xdr.PackUint(buf, 0))
		require.NoError(t, xdr.PackUint(buf, 0))
	}
}

func TestGetAttrDecodesFattr3(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var resp bytes.Buffer
	require.NoError(t, xdr.PackUint(&resp, NFS3OK))
	packFattr3(t, &resp)
	runFakeServer(serverConn, [][]byte{resp.Bytes()})

	c := New(rpc.NewClient(clientConn))
	res, err := c.GetAttr(context.Background(), []byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, uint64(7), res.Attr.FileID)
	require.Equal(t, uint64(1024), res.Attr.Size)
}

func TestGetAttrSurfacesNonOKStatus(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var resp bytes.Buffer
	require.NoError(t, xdr.PackUint(&resp, 2)) // NFS3ERR_NOENT
	runFakeServer(serverConn, [][]byte{resp.Bytes()})

	c := New(rpc.NewClient(clientConn))
	_, err := c.GetAttr(context.Background(), []byte{1, 2})
	require.ErrorIs(t, err, result.New(2))
}

func TestReadDirDecodesEntries(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var resp bytes.Buffer
	require.NoError(t, xdr.PackUint(&resp, NFS3OK))
	require.NoError(t, xdr.PackBool(&resp, false)) // dir_attributes absent
	require.NoError(t, xdr.PackUhyper(&resp, 0xabc))

	require.NoError(t, xdr.PackBool(&resp, true))
	require.NoError(t, xdr.PackUhyper(&resp, 1))
	require.NoError(t, xdr.PackString(&resp, "a"))
	require.NoError(t, xdr.PackUhyper(&resp, 1))
	require.NoError(t, xdr.PackBool(&resp, false))
	require.NoError(t, xdr.PackBool(&resp, true)) // eof
	runFakeServer(serverConn, [][]byte{resp.Bytes()})

	c := New(rpc.NewClient(clientConn))
	res, err := c.ReadDir(context.Background(), []byte{1}, 0, 0, 4096)
	require.NoError(t, err)
	require.Equal(t, uint64(0xabc), res.CookieVerf)
	require.Len(t, res.Entries, 1)
	require.Equal(t, "a", res.Entries[0].Name)
	require.True(t, res.EOF)
}
