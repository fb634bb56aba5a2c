package portmap

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

func TestGetPortReturnsMappedPort(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var resp bytes.Buffer
	require.NoError(t, xdr.PackUint(&resp, 2049))
	runFakeServer(serverConn, [][]byte{resp.Bytes()})

	c := New(rpc.NewClient(clientConn))
	port, err := c.GetPort(context.Background(), 100003, 4, ProtoTCP)
	require.NoError(t, err)
	require.Equal(t, uint32(2049), port)
}
