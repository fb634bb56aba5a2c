// Package portmap implements a thin RFC 1833 (portmap version 2) client:
// a single GETPORT call used to resolve the MOUNT and NFS program ports
// before connecting, when the caller does not already know them.
package portmap

import (
	"bytes"
	"context"
	"io"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/rpc"
	"github.com/marmos91/nfs4c/internal/xdr"
)

const (
	progPortmap uint32 = 100000
	versPortmap uint32 = 2

	procNull    uint32 = 0
	procGetPort uint32 = 3
)

// Transport protocol values carried in a pmap2_mapping, per RFC 1833.
const (
	ProtoTCP uint32 = 6
	ProtoUDP uint32 = 17
)

// Client speaks portmap v2 over an already-connected rpc.Client.
type Client struct {
	rpc *rpc.Client
}

// New wraps an established RPC connection as a portmap client.
func New(rpcClient *rpc.Client) *Client {
	return &Client{rpc: rpcClient}
}

func (c *Client) callHeader(proc uint32) rpc.CallHeader {
	return rpc.CallHeader{
		Prog: progPortmap,
		Vers: versPortmap,
		Proc: proc,
		Cred: rpc.NewAuthNone(),
		Verf: rpc.NewAuthNone(),
	}
}

func (c *Client) call(ctx context.Context, proc uint32, packArgs func(*bytes.Buffer) error) ([]byte, error) {
	xid := rpc.NextXid()

	var buf bytes.Buffer
	if err := xdr.PackUint(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.PackUint(&buf, rpc.Call); err != nil {
		return nil, err
	}
	if err := c.callHeader(proc).Pack(&buf); err != nil {
		return nil, err
	}
	if packArgs != nil {
		if err := packArgs(&buf); err != nil {
			return nil, err
		}
	}

	body, err := c.rpc.Call(ctx, xid, buf.Bytes())
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(body)
	header, err := rpc.UnpackReplyHeader(r)
	if err != nil {
		return nil, err
	}
	if err := header.CheckStatus(); err != nil {
		return nil, err
	}

	rest := make([]byte, r.Len())
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, result.FromIOError(err)
	}
	return rest, nil
}

// Null pings the portmapper (PMAPPROC_NULL).
func (c *Client) Null(ctx context.Context) error {
	_, err := c.call(ctx, procNull, nil)
	return err
}

// GetPort resolves the port registered for (prog, vers, proto), returning
// 0 if no such mapping exists (per RFC 1833, GETPORT never fails at the
// RPC level; an unmapped program simply reports port 0).
func (c *Client) GetPort(ctx context.Context, prog, vers, proto uint32) (uint32, error) {
	body, err := c.call(ctx, procGetPort, func(buf *bytes.Buffer) error {
		if err := xdr.PackUint(buf, prog); err != nil {
			return err
		}
		if err := xdr.PackUint(buf, vers); err != nil {
			return err
		}
		if err := xdr.PackUint(buf, proto); err != nil {
			return err
		}
		return xdr.PackUint(buf, 0)
	})
	if err != nil {
		return 0, err
	}
	return xdr.UnpackUint(bytes.NewReader(body))
}
