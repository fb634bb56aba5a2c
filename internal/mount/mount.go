// Package mount implements a thin RFC 1813 Appendix I (MOUNT version 3)
// client: MNT and UMNT, enough to obtain and release the root file handle
// of an NFSv3 export.
package mount

import (
	"bytes"
	"context"
	"io"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/rpc"
	"github.com/marmos91/nfs4c/internal/xdr"
)

const (
	progMount uint32 = 100005
	versMount uint32 = 3

	procNull uint32 = 0
	procMnt  uint32 = 1
	procUmnt uint32 = 3
)

// MountOK is mountstat3's success value.
const MountOK uint32 = 0

// FhSize3 bounds an NFSv3 file handle (NFS3_FHSIZE, RFC 1813 §2.3.3).
const FhSize3 = 64

// MountResult is the MNT reply: status plus, on success, the export root's
// file handle and the auth flavors the server will accept for it.
type MountResult struct {
	Status      uint32
	FileHandle  []byte
	AuthFlavors []uint32
}

// Client speaks MOUNT v3 over an already-connected rpc.Client.
type Client struct {
	rpc *rpc.Client
}

// New wraps an established RPC connection as a MOUNT client.
func New(rpcClient *rpc.Client) *Client {
	return &Client{rpc: rpcClient}
}

func (c *Client) callHeader(proc uint32) rpc.CallHeader {
	return rpc.CallHeader{
		Prog: progMount,
		Vers: versMount,
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

// Null pings the mount daemon (MOUNTPROC_NULL).
func (c *Client) Null(ctx context.Context) error {
	_, err := c.call(ctx, procNull, nil)
	return err
}

// Mnt requests the root file handle of the export at dirpath.
func (c *Client) Mnt(ctx context.Context, dirpath string) (*MountResult, error) {
	body, err := c.call(ctx, procMnt, func(buf *bytes.Buffer) error {
		return xdr.PackString(buf, dirpath)
	})
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(body)
	status, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	if status != MountOK {
		return &MountResult{Status: status}, nil
	}

	fh, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}
	flavors, err := xdr.UnpackArray(r, xdr.UnpackUint)
	if err != nil {
		return nil, err
	}
	return &MountResult{Status: status, FileHandle: fh, AuthFlavors: flavors}, nil
}

// Umnt releases a previously mounted export.
func (c *Client) Umnt(ctx context.Context, dirpath string) error {
	_, err := c.call(ctx, procUmnt, func(buf *bytes.Buffer) error {
		return xdr.PackString(buf, dirpath)
	})
	return err
}
