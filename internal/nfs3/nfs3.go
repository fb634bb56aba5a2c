// Package nfs3 implements a thin, read-only RFC 1813 (NFS version 3)
// client: NULL, GETATTR, LOOKUP, READ, and READDIR, mirroring the NFSv4
// client's read-only surface over v3 for servers or exports that do not
// speak v4.1. Nonzero nfsstat3 values are surfaced through the same
// result.ErrorCode range as NFS4ERR_* values, since both numeric spaces
// are already disjoint from the package's private error range.
package nfs3

import (
	"bytes"
	"context"
	"io"

	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/rpc"
	"github.com/marmos91/nfs4c/internal/xdr"
	raskyxdr "github.com/rasky/go-xdr/xdr2"
)

const (
	progNFS uint32 = 100003
	versNFS uint32 = 3

	procNull    uint32 = 0
	procGetAttr uint32 = 1
	procLookup  uint32 = 3
	procRead    uint32 = 6
	procReadDir uint32 = 16
)

// NFS3OK is nfsstat3's success value.
const NFS3OK uint32 = 0

// FhSize3 bounds an NFSv3 file handle (NFS3_FHSIZE).
const FhSize3 = 64

// SpecData3 is a device major/minor pair, valid when Attr.Type names a
// device special file.
type SpecData3 struct {
	Major uint32
	Minor uint32
}

// Time3 is an nfstime3.
type Time3 struct {
	Seconds  uint32
	NSeconds uint32
}

// Fattr3 is the fixed-size v3 file attribute struct.
type Fattr3 struct {
	Type   uint32
	Mode   uint32
	NLink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	RDev   SpecData3
	FSID   uint64
	FileID uint64
	ATime  Time3
	MTime  Time3
	CTime  Time3
}

// unpackFattr3 decodes a fattr3 via reflection instead of a hand-written
// field-by-field unpack, the way the teacher's own MOUNT/NFSv3 handlers
// decode request structs: Fattr3's field order matches the wire's
// declaration order exactly, so raskyxdr.Unmarshal can walk it directly.
func unpackFattr3(r *bytes.Reader) (*Fattr3, error) {
	var a Fattr3
	if _, err := raskyxdr.Unmarshal(r, &a); err != nil {
		return nil, result.FromIOError(err)
	}
	return &a, nil
}

// unpackPostOpAttr decodes a post_op_attr: a bool-prefixed optional Fattr3.
func unpackPostOpAttr(r *bytes.Reader) (*Fattr3, error) {
	present, err := xdr.UnpackBool(r)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return unpackFattr3(r)
}

// Entry3 is one READDIR directory entry.
type Entry3 struct {
	FileID uint64
	Name   string
	Cookie uint64
}

func unpackEntry3(r io.Reader) (Entry3, error) {
	fileID, err := xdr.UnpackUhyper(r)
	if err != nil {
		return Entry3{}, err
	}
	name, err := xdr.UnpackString(r)
	if err != nil {
		return Entry3{}, err
	}
	cookie, err := xdr.UnpackUhyper(r)
	if err != nil {
		return Entry3{}, err
	}
	return Entry3{FileID: fileID, Name: name, Cookie: cookie}, nil
}

// GetAttrResult is GETATTR's reply.
type GetAttrResult struct {
	Attr *Fattr3
}

// LookupResult is LOOKUP's reply.
type LookupResult struct {
	FileHandle []byte
	ObjAttr    *Fattr3
	DirAttr    *Fattr3
}

// ReadResult is READ's reply.
type ReadResult struct {
	FileAttr *Fattr3
	Count    uint32
	EOF      bool
	Data     []byte
}

// ReadDirResult is READDIR's reply.
type ReadDirResult struct {
	DirAttr    *Fattr3
	CookieVerf uint64
	Entries    []Entry3
	EOF        bool
}

// Client speaks a read-only subset of NFSv3 over an already-connected
// rpc.Client.
type Client struct {
	rpc *rpc.Client
}

// New wraps an established RPC connection as an NFSv3 client.
func New(rpcClient *rpc.Client) *Client {
	return &Client{rpc: rpcClient}
}

func (c *Client) callHeader(proc uint32) rpc.CallHeader {
	return rpc.CallHeader{
		Prog: progNFS,
		Vers: versNFS,
		Proc: proc,
		Cred: rpc.NewAuthNone(),
		Verf: rpc.NewAuthNone(),
	}
}

func (c *Client) call(ctx context.Context, proc uint32, packArgs func(*bytes.Buffer) error) (*bytes.Reader, uint32, error) {
	xid := rpc.NextXid()

	var buf bytes.Buffer
	if err := xdr.PackUint(&buf, xid); err != nil {
		return nil, 0, err
	}
	if err := xdr.PackUint(&buf, rpc.Call); err != nil {
		return nil, 0, err
	}
	if err := c.callHeader(proc).Pack(&buf); err != nil {
		return nil, 0, err
	}
	if packArgs != nil {
		if err := packArgs(&buf); err != nil {
			return nil, 0, err
		}
	}

	body, err := c.rpc.Call(ctx, xid, buf.Bytes())
	if err != nil {
		return nil, 0, err
	}

	r := bytes.NewReader(body)
	header, err := rpc.UnpackReplyHeader(r)
	if err != nil {
		return nil, 0, err
	}
	if err := header.CheckStatus(); err != nil {
		return nil, 0, err
	}

	// NULL has a void reply: there is no status to read.
	if proc == procNull {
		return r, NFS3OK, nil
	}

	status, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, 0, err
	}
	return r, status, nil
}

// Null pings the NFS service (NFSPROC3_NULL).
func (c *Client) Null(ctx context.Context) error {
	_, _, err := c.call(ctx, procNull, nil)
	return err
}

// GetAttr fetches a file handle's attributes.
func (c *Client) GetAttr(ctx context.Context, fh []byte) (*GetAttrResult, error) {
	r, status, err := c.call(ctx, procGetAttr, func(buf *bytes.Buffer) error {
		return xdr.PackOpaque(buf, fh)
	})
	if err != nil {
		return nil, err
	}
	if status != NFS3OK {
		return nil, result.New(status)
	}
	attr, err := unpackFattr3(r)
	if err != nil {
		return nil, err
	}
	return &GetAttrResult{Attr: attr}, nil
}

// Lookup resolves name within dir.
func (c *Client) Lookup(ctx context.Context, dir []byte, name string) (*LookupResult, error) {
	r, status, err := c.call(ctx, procLookup, func(buf *bytes.Buffer) error {
		if err := xdr.PackOpaque(buf, dir); err != nil {
			return err
		}
		return xdr.PackString(buf, name)
	})
	if err != nil {
		return nil, err
	}
	if status != NFS3OK {
		dirAttr, attrErr := unpackPostOpAttr(r)
		if attrErr != nil {
			return nil, attrErr
		}
		return &LookupResult{DirAttr: dirAttr}, result.New(status)
	}

	fh, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}
	objAttr, err := unpackPostOpAttr(r)
	if err != nil {
		return nil, err
	}
	dirAttr, err := unpackPostOpAttr(r)
	if err != nil {
		return nil, err
	}
	return &LookupResult{FileHandle: fh, ObjAttr: objAttr, DirAttr: dirAttr}, nil
}

// Read reads up to count bytes from fh at offset.
func (c *Client) Read(ctx context.Context, fh []byte, offset uint64, count uint32) (*ReadResult, error) {
	r, status, err := c.call(ctx, procRead, func(buf *bytes.Buffer) error {
		if err := xdr.PackOpaque(buf, fh); err != nil {
			return err
		}
		if err := xdr.PackUhyper(buf, offset); err != nil {
			return err
		}
		return xdr.PackUint(buf, count)
	})
	if err != nil {
		return nil, err
	}
	fileAttr, err := unpackPostOpAttr(r)
	if err != nil {
		return nil, err
	}
	if status != NFS3OK {
		return &ReadResult{FileAttr: fileAttr}, result.New(status)
	}

	gotCount, err := xdr.UnpackUint(r)
	if err != nil {
		return nil, err
	}
	eof, err := xdr.UnpackBool(r)
	if err != nil {
		return nil, err
	}
	data, err := xdr.UnpackOpaque(r)
	if err != nil {
		return nil, err
	}
	return &ReadResult{FileAttr: fileAttr, Count: gotCount, EOF: eof, Data: data}, nil
}

// ReadDir lists dir starting at cookie/cookieVerf (both zero for the first
// call).
func (c *Client) ReadDir(ctx context.Context, dir []byte, cookie uint64, cookieVerf uint64, count uint32) (*ReadDirResult, error) {
	r, status, err := c.call(ctx, procReadDir, func(buf *bytes.Buffer) error {
		if err := xdr.PackOpaque(buf, dir); err != nil {
			return err
		}
		if err := xdr.PackUhyper(buf, cookie); err != nil {
			return err
		}
		if err := xdr.PackUhyper(buf, cookieVerf); err != nil {
			return err
		}
		return xdr.PackUint(buf, count)
	})
	if err != nil {
		return nil, err
	}
	dirAttr, err := unpackPostOpAttr(r)
	if err != nil {
		return nil, err
	}
	if status != NFS3OK {
		return &ReadDirResult{DirAttr: dirAttr}, result.New(status)
	}

	verf, err := xdr.UnpackUhyper(r)
	if err != nil {
		return nil, err
	}
	entries, err := xdr.UnpackLinkedList(r, unpackEntry3)
	if err != nil {
		return nil, err
	}
	eof, err := xdr.UnpackBool(r)
	if err != nil {
		return nil, err
	}
	return &ReadDirResult{DirAttr: dirAttr, CookieVerf: verf, Entries: entries, EOF: eof}, nil
}
