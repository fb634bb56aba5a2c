package mount

import (
	"bytes"
	"context"
	"net"
	"testing"

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

func TestMntReturnsRootFileHandle(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var resp bytes.Buffer
	require.NoError(t, xdr.PackUint(&resp, MountOK))
	require.NoError(t, xdr.PackOpaque(&resp, []byte{1, 2, 3, 4}))
	require.NoError(t, xdr.PackArray(&resp, []uint32{1}, xdr.PackUint))
	runFakeServer(serverConn, [][]byte{resp.Bytes()})

	c := New(rpc.NewClient(clientConn))
	res, err := c.Mnt(context.Background(), "/export")
	require.NoError(t, err)
	require.Equal(t, MountOK, res.Status)
	require.Equal(t, []byte{1, 2, 3, 4}, res.FileHandle)
	require.Equal(t, []uint32{1}, res.AuthFlavors)
}

func TestMntSurfacesNonOKStatus(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var resp bytes.Buffer
	require.NoError(t, xdr.PackUint(&resp, 13)) // MNT3ERR_ACCES
	runFakeServer(serverConn, [][]byte{resp.Bytes()})

	c := New(rpc.NewClient(clientConn))
	res, err := c.Mnt(context.Background(), "/denied")
	require.NoError(t, err)
	require.Equal(t, uint32(13), res.Status)
	require.Nil(t, res.FileHandle)
}
