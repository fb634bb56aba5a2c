// Package client implements the NFSv4.1 session-aware client: connection
// bootstrap (EXCHANGE_ID, CREATE_SESSION, RECLAIM_COMPLETE), per-request
// SEQUENCE prefixing drawn from the slot/sequence allocator, and the small
// set of path-resolution and data-path operations this client exposes
// (resolve, mkdir, remove, readdir, open, read).
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/nfs4c/internal/logger"
	"github.com/marmos91/nfs4c/internal/metrics"
	"github.com/marmos91/nfs4c/internal/nfs4/attrs"
	"github.com/marmos91/nfs4c/internal/nfs4/ops"
	"github.com/marmos91/nfs4c/internal/nfs4/sequence"
	"github.com/marmos91/nfs4c/internal/result"
	"github.com/marmos91/nfs4c/internal/rpc"
	"github.com/marmos91/nfs4c/internal/xdr"
	"github.com/marmos91/nfs4c/pkg/bufpool"
)

// progNFS is the NFS program number (RFC 5661 §2.4), shared by v3 and v4.
const progNFS uint32 = 100003

// NFSv4 procedure numbers. COMPOUND carries every operation this client
// issues past the NULL call.
const (
	procNull     uint32 = 0
	procCompound uint32 = 1
)

// Default channel attributes for CREATE_SESSION. This client never
// establishes a backchannel (see Non-goals: no callbacks), so the
// back-channel attributes only need to satisfy the server's minimums.
const (
	foreMaxRequestSize        = 0x100800
	foreMaxResponseSize       = 0x100800
	foreMaxResponseSizeCached = 0x1800
	foreMaxOperations         = 8
	foreMaxRequests           = 64

	backMaxRequestSize  = 0x1000
	backMaxResponseSize = 0x1000
	backMaxOperations   = 2
	backMaxRequests     = 16

	cbProgramPlaceholder = 0x40000000
)

// Default READDIR paging sizes, chosen to match one TCP-friendly record.
const (
	defaultDirCount = 8170
	defaultMaxCount = 32680
)

// state is the client's connection lifecycle, advanced one-way by the
// bootstrap sequence. Only stateReady accepts data-path ops.
type state int32

const (
	stateDisconnected state = iota
	stateConnected
	stateIdentified
	stateSessioned
	stateReady
)

// setOnceCell is a write-once field: the Go analogue of a Cell paired with
// an assertion that it is set exactly once. A second EXCHANGE_ID on the
// same Client would otherwise silently stay bound to the first identity.
type setOnceCell[T any] struct {
	once sync.Once
	val  T
}

func (c *setOnceCell[T]) Set(v T) {
	written := false
	c.once.Do(func() {
		c.val = v
		written = true
	})
	if !written {
		panic("nfs4: session scalar set more than once")
	}
}

func (c *setOnceCell[T]) Get() T {
	return c.val
}

// Client is a single-connection NFSv4.1 client bound to one server for its
// lifetime; reconnecting requires a new Client (see the one-way state
// machine above).
type Client struct {
	server  string
	rpc     *rpc.Client
	metrics metrics.Metrics

	state atomic.Int32

	seq *sequence.Sequencer

	clientID   setOnceCell[ops.ClientID4]
	sequenceID setOnceCell[ops.SequenceID4]
	sessionID  setOnceCell[ops.SessionID4]

	rootFhMu sync.Mutex
	rootFh   ops.NfsFh4

	// ownerID is this client incarnation's co_ownerid, distinguishing it
	// from any other client (or restart of this client) the server sees.
	ownerID []byte
}

// New returns a Client bound to server ("host:port"), not yet connected.
// m may be nil, which disables metrics collection entirely.
func New(server string, m metrics.Metrics) *Client {
	return &Client{
		server:  server,
		seq:     sequence.NewSequencer(64),
		metrics: m,
		ownerID: []byte("go-nfs4c/" + uuid.NewString()),
	}
}

// ClientID returns the EXCHANGE_ID-assigned client identifier.
func (c *Client) ClientID() ops.ClientID4 { return c.clientID.Get() }

func (c *Client) requireState(min state) error {
	if state(c.state.Load()) < min {
		return result.NotConnected
	}
	return nil
}

// Connect establishes the TCP connection. It does not perform EXCHANGE_ID
// or CREATE_SESSION; callers must run the bootstrap sequence before any
// data-path call.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := rpc.Dial(ctx, "tcp", c.server)
	if err != nil {
		return err
	}
	c.rpc = conn
	c.state.Store(int32(stateConnected))
	return nil
}

// Close tears down the underlying RPC connection.
func (c *Client) Close() error {
	if c.rpc == nil {
		return nil
	}
	return c.rpc.Close()
}

func (c *Client) callHeader(proc uint32) rpc.CallHeader {
	return rpc.CallHeader{
		Prog: progNFS,
		Vers: 4,
		Proc: proc,
		Cred: rpc.NewAuthSys(1, []byte("go-nfs4"), 0, 0, nil),
		Verf: rpc.NewAuthNone(),
	}
}

// procedureName labels the procedures this client issues, for metrics.
func procedureName(proc uint32) string {
	switch proc {
	case procNull:
		return "NULL"
	case procCompound:
		return "COMPOUND"
	default:
		return "UNKNOWN"
	}
}

// call sends one RPC CALL whose procedure arguments are written by
// packArgs, and returns the reply bytes following the RPC reply header
// (the RPC-level accept/reject status has already been checked).
func (c *Client) call(ctx context.Context, proc uint32, packArgs func(*bytes.Buffer) error) (_ []byte, err error) {
	if c.metrics != nil {
		start := time.Now()
		defer func() {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			c.metrics.RecordCall(procedureName(proc), time.Since(start), outcome)
		}()
	}

	if c.rpc == nil {
		return nil, result.NotConnected
	}

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
	if err := packArgs(&buf); err != nil {
		return nil, err
	}

	replyBody, err := c.rpc.Call(ctx, xid, buf.Bytes())
	if err != nil {
		logger.Warn("nfs4: rpc call failed", "procedure", proc, "error", err)
		return nil, err
	}

	r := bytes.NewReader(replyBody)
	header, err := rpc.UnpackReplyHeader(r)
	if err != nil {
		return nil, err
	}
	if err := header.CheckStatus(); err != nil {
		logger.Warn("nfs4: rpc reply rejected", "procedure", proc, "error", err)
		return nil, err
	}

	rest := make([]byte, r.Len())
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, result.FromIOError(err)
	}
	return rest, nil
}

// NullCall issues the NULL procedure: a connectivity probe with no
// COMPOUND body.
func (c *Client) NullCall(ctx context.Context) error {
	if err := c.requireState(stateConnected); err != nil {
		return err
	}
	_, err := c.call(ctx, procNull, func(*bytes.Buffer) error { return nil })
	return err
}

// compoundCall packs a one-shot COMPOUND (no SEQUENCE prefix — used only
// by the bootstrap calls that precede session establishment), sends it,
// and decodes the result, returning result.New(status) if the compound's
// overall status was not NFS4_OK.
func (c *Client) compoundCall(ctx context.Context, argOps []ops.ArgOp) (*ops.CompoundResult, error) {
	return c.compoundCallInto(ctx, argOps, nil)
}

// compoundCallInto is compoundCall, but a compound containing READ decodes
// its result data into readBuf (typically pool-backed) instead of
// allocating a fresh slice. Pass nil to fall back to the allocating path.
func (c *Client) compoundCallInto(ctx context.Context, argOps []ops.ArgOp, readBuf []byte) (*ops.CompoundResult, error) {
	compound := ops.NewCompound("")
	compound.Ops = argOps

	body, err := c.call(ctx, procCompound, compound.Pack)
	if err != nil {
		return nil, err
	}
	cr, err := ops.UnpackCompoundResultInto(bytes.NewReader(body), readBuf)
	if err != nil {
		return nil, err
	}
	if cr.Status != 0 {
		errCode := result.New(cr.Status)
		logger.Warn("nfs4: compound returned error status", "error_code", errCode.Get(), "error_name", result.Name(errCode))
		return cr, errCode
	}
	return cr, nil
}

// ExchangeIDCall issues EXCHANGE_ID and records the server-assigned
// client_id/sequence_id.
func (c *Client) ExchangeIDCall(ctx context.Context) error {
	if err := c.requireState(stateConnected); err != nil {
		return err
	}

	cr, err := c.compoundCall(ctx, []ops.ArgOp{
		ops.ExchangeID4Args{
			ClientOwner: ops.ClientOwner4{
				Verifier: 0,
				OwnerID:  c.ownerID,
			},
			Flags:        ops.ExchgidFlagBindPrincStateid | ops.ExchgidFlagSuppMovedMigr | ops.ExchgidFlagSuppMovedRefer,
			StateProtect: ops.StateProtectNone,
		},
	})
	if err != nil {
		return err
	}

	res, err := cr.At(0)
	if err != nil {
		return err
	}
	okVal, ok := res.Ok.(*ops.ExchangeID4ResOk)
	if !ok {
		return result.InvalidData
	}

	c.clientID.Set(okVal.ClientID)
	c.sequenceID.Set(okVal.SequenceID)
	c.state.Store(int32(stateIdentified))
	return nil
}

// CreateSessionCall issues CREATE_SESSION using the client_id/sequence_id
// from ExchangeIDCall and records the server-assigned session_id.
func (c *Client) CreateSessionCall(ctx context.Context) error {
	if err := c.requireState(stateIdentified); err != nil {
		return err
	}

	cr, err := c.compoundCall(ctx, []ops.ArgOp{
		ops.CreateSession4Args{
			ClientID: c.clientID.Get(),
			Sequence: c.sequenceID.Get(),
			Flags:    ops.CreateSessionFlagPersist,
			ForeChanAttrs: ops.ChannelAttrs4{
				MaxRequestSize:        foreMaxRequestSize,
				MaxResponseSize:       foreMaxResponseSize,
				MaxResponseSizeCached: foreMaxResponseSizeCached,
				MaxOperations:         foreMaxOperations,
				MaxRequests:           foreMaxRequests,
			},
			BackChanAttrs: ops.ChannelAttrs4{
				MaxRequestSize:  backMaxRequestSize,
				MaxResponseSize: backMaxResponseSize,
				MaxOperations:   backMaxOperations,
				MaxRequests:     backMaxRequests,
			},
			CbProgram: cbProgramPlaceholder,
			SecParams: []ops.CallbackSecParams4{{}},
		},
	})
	if err != nil {
		return err
	}

	res, err := cr.At(0)
	if err != nil {
		return err
	}
	okVal, ok := res.Ok.(*ops.CreateSession4ResOk)
	if !ok {
		return result.InvalidData
	}

	c.sessionID.Set(okVal.SessionID)
	c.state.Store(int32(stateSessioned))
	return nil
}

// sequencedCall acquires a slot/sequence handle, prepends SEQUENCE to
// argOps, sends the COMPOUND, and returns the decoded result with the
// handle already released. Every data-path operation goes through this.
func (c *Client) sequencedCall(ctx context.Context, argOps []ops.ArgOp) (*ops.CompoundResult, error) {
	return c.sequencedCallInto(ctx, argOps, nil)
}

// sequencedCallInto is sequencedCall, but a compound containing READ
// decodes its result data into readBuf instead of allocating a fresh
// slice. Pass nil to fall back to the allocating path.
func (c *Client) sequencedCallInto(ctx context.Context, argOps []ops.ArgOp, readBuf []byte) (*ops.CompoundResult, error) {
	s, err := c.seq.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.SetSlotTableCapacity(c.seq.Capacity())
		c.metrics.SetSlotTableInFlight(c.seq.InFlight())
		defer func() { c.metrics.SetSlotTableInFlight(c.seq.InFlight()) }()
	}
	defer s.Release()

	compound := make([]ops.ArgOp, 0, len(argOps)+1)
	compound = append(compound, ops.Sequence4Args{
		SessionID:     c.sessionID.Get(),
		SequenceID:    s.Sequence,
		SlotID:        s.Slot,
		HighestSlotID: c.seq.GetMax(),
		CacheThis:     false,
	})
	compound = append(compound, argOps...)

	return c.compoundCallInto(ctx, compound, readBuf)
}

// SendReclaimComplete sends SEQUENCE + RECLAIM_COMPLETE{one_fs: false}.
// NFS4ERR_COMPLETE_ALREADY is treated as success, the expected reply for a
// session that has nothing to reclaim.
func (c *Client) SendReclaimComplete(ctx context.Context) error {
	if err := c.requireState(stateSessioned); err != nil {
		return err
	}

	cr, err := c.sequencedCall(ctx, []ops.ArgOp{
		ops.ReclaimComplete4Args{OneFs: false},
	})
	if err != nil {
		var errCode result.ErrorCode
		if ec, ok := err.(result.ErrorCode); ok {
			errCode = ec
		}
		if errCode != result.NFS4ErrCompleteAlready {
			return err
		}
	} else if res, err := cr.At(1); err != nil {
		return err
	} else if res.OpCode != ops.OpReclaimComplete {
		return result.InvalidData
	}

	c.state.Store(int32(stateReady))
	return nil
}

// ResolvePath resolves a slash-separated relative path against the root
// file handle, fetching and caching the root on first use. An empty path
// returns the root file handle directly.
func (c *Client) ResolvePath(ctx context.Context, path string) (ops.NfsFh4, error) {
	root, err := c.rootFileHandle(ctx)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return root, nil
	}

	fh := root
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		fh, err = c.lookup(ctx, fh, name)
		if err != nil {
			return nil, err
		}
	}
	return fh, nil
}

func (c *Client) rootFileHandle(ctx context.Context) (ops.NfsFh4, error) {
	c.rootFhMu.Lock()
	defer c.rootFhMu.Unlock()
	if c.rootFh != nil {
		return c.rootFh, nil
	}

	cr, err := c.sequencedCall(ctx, []ops.ArgOp{
		ops.PutRootFh4Args{},
		ops.GetFh4Args{},
	})
	if err != nil {
		return nil, err
	}
	res, err := cr.At(2) // SEQUENCE=0, PUTROOTFH=1, GETFH=2
	if err != nil {
		return nil, err
	}
	okVal, ok := res.Ok.(*ops.GetFh4ResOk)
	if !ok {
		return nil, result.InvalidData
	}

	c.rootFh = okVal.Object
	return c.rootFh, nil
}

func (c *Client) lookup(ctx context.Context, dir ops.NfsFh4, name string) (ops.NfsFh4, error) {
	cr, err := c.sequencedCall(ctx, []ops.ArgOp{
		ops.PutFh4Args{Object: dir},
		ops.Lookup4Args{ObjName: name},
		ops.GetFh4Args{},
	})
	if err != nil {
		return nil, err
	}
	res, err := cr.At(3) // SEQUENCE=0, PUTFH=1, LOOKUP=2, GETFH=3
	if err != nil {
		return nil, err
	}
	okVal, ok := res.Ok.(*ops.GetFh4ResOk)
	if !ok {
		return nil, result.InvalidData
	}
	return okVal.Object, nil
}

// Mkdir creates a directory named name under parent with mode 0775,
// returning the new directory's file handle.
func (c *Client) Mkdir(ctx context.Context, parent ops.NfsFh4, name string) (ops.NfsFh4, error) {
	if err := c.requireState(stateReady); err != nil {
		return nil, err
	}

	mode := uint32(0o775)
	cr, err := c.sequencedCall(ctx, []ops.ArgOp{
		ops.PutFh4Args{Object: parent},
		ops.Create4Args{
			ObjType:    ops.CreateType4{Kind: ops.CreateTypeDirectory},
			Component:  name,
			Attributes: attrs.FileAttributes{Mode: &mode},
		},
		ops.GetFh4Args{},
	})
	if err != nil {
		return nil, err
	}
	res, err := cr.At(3) // SEQUENCE=0, PUTFH=1, CREATE=2, GETFH=3
	if err != nil {
		return nil, err
	}
	okVal, ok := res.Ok.(*ops.GetFh4ResOk)
	if !ok {
		return nil, result.InvalidData
	}
	return okVal.Object, nil
}

// Remove deletes name from parent.
func (c *Client) Remove(ctx context.Context, parent ops.NfsFh4, name string) error {
	if err := c.requireState(stateReady); err != nil {
		return err
	}

	cr, err := c.sequencedCall(ctx, []ops.ArgOp{
		ops.PutFh4Args{Object: parent},
		ops.Remove4Args{Target: name},
	})
	if err != nil {
		return err
	}
	_, err = cr.At(2) // SEQUENCE=0, PUTFH=1, REMOVE=2
	return err
}

// readDirAttrRequest is the fixed attribute set ReadDir asks for: enough
// for an `ls -l`-style listing without round-tripping every fattr4 field.
func readDirAttrRequest() attrs.Bitmap4 {
	var bm attrs.Bitmap4
	bm.Set(attrs.AttrType)
	bm.Set(attrs.AttrSize)
	bm.Set(attrs.AttrMode)
	bm.Set(attrs.AttrOwner)
	return bm
}

// ReadDir lists one page of dir starting at cookie/cookieVerf (both 0 for
// the first page). Callers loop, advancing cookie/cookieVerf from the
// returned ReadDir4ResOk until its Reply.EOF is true.
func (c *Client) ReadDir(ctx context.Context, dir ops.NfsFh4, cookie ops.Cookie4, cookieVerf ops.Verifier4) (*ops.ReadDir4ResOk, error) {
	if err := c.requireState(stateReady); err != nil {
		return nil, err
	}

	cr, err := c.sequencedCall(ctx, []ops.ArgOp{
		ops.PutFh4Args{Object: dir},
		ops.ReadDir4Args{
			Cookie:      cookie,
			Verifier:    cookieVerf,
			DirCount:    defaultDirCount,
			MaxCount:    defaultMaxCount,
			AttrRequest: readDirAttrRequest(),
		},
	})
	if err != nil {
		return nil, err
	}
	res, err := cr.At(2) // SEQUENCE=0, PUTFH=1, READDIR=2
	if err != nil {
		return nil, err
	}
	okVal, ok := res.Ok.(*ops.ReadDir4ResOk)
	if !ok {
		return nil, result.InvalidData
	}
	return okVal, nil
}

// OpenByID opens fh (already resolved) for the given share access/deny
// bits, claiming it by file handle rather than by name. The open-owner
// bytes are derived from this client's own EXCHANGE_ID client_id so two
// processes sharing a client_id namespace still get distinguishable
// owners.
func (c *Client) OpenByID(ctx context.Context, fh ops.NfsFh4, shareAccess, shareDeny uint32) (*ops.Open4ResOk, error) {
	if err := c.requireState(stateReady); err != nil {
		return nil, err
	}

	owner := ops.OpenOwner4{
		ClientID: c.clientID.Get(),
		Owner:    []byte(fmt.Sprintf("go-nfs4/%d", c.clientID.Get())),
	}

	cr, err := c.sequencedCall(ctx, []ops.ArgOp{
		ops.PutFh4Args{Object: fh},
		ops.Open4Args{
			ShareAccess: shareAccess,
			ShareDeny:   shareDeny,
			Owner:       owner,
			How:         ops.NoCreateOpenFlag(),
			Claim:       ops.OpenClaim4{Kind: ops.ClaimFileHandle},
		},
	})
	if err != nil {
		return nil, err
	}
	res, err := cr.At(2) // SEQUENCE=0, PUTFH=1, OPEN=2
	if err != nil {
		return nil, err
	}
	okVal, ok := res.Ok.(*ops.Open4ResOk)
	if !ok {
		return nil, result.InvalidData
	}
	return okVal, nil
}

// Read reads up to count bytes from fh at offset under stateID (from a
// prior OpenByID). Callers loop, advancing offset by len(Data) until EOF
// is true.
//
// The returned Data is backed by a buffer drawn from bufpool, sized to
// count; callers that keep reading in a loop should return it with
// bufpool.Put once they're done consuming it (a fresh buffer is handed
// back on the next Read, so reusing the old one is never required).
func (c *Client) Read(ctx context.Context, fh ops.NfsFh4, stateID ops.StateID4, offset uint64, count uint32) (*ops.Read4ResOk, error) {
	if err := c.requireState(stateReady); err != nil {
		return nil, err
	}

	readBuf := bufpool.GetUint32(count)
	cr, err := c.sequencedCallInto(ctx, []ops.ArgOp{
		ops.PutFh4Args{Object: fh},
		ops.Read4Args{StateID: stateID, Offset: offset, Count: count},
	}, readBuf)
	if err != nil {
		bufpool.Put(readBuf)
		return nil, err
	}
	res, err := cr.At(2) // SEQUENCE=0, PUTFH=1, READ=2
	if err != nil {
		bufpool.Put(readBuf)
		return nil, err
	}
	okVal, ok := res.Ok.(*ops.Read4ResOk)
	if !ok {
		bufpool.Put(readBuf)
		return nil, result.InvalidData
	}
	return okVal, nil
}
