package rpc

import (
	"bytes"
	"context"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/nfs4c/internal/logger"
	"github.com/marmos91/nfs4c/internal/result"
)

// xidCounter hands out process-wide unique transaction IDs. Per RFC 5531,
// the xid is only used for client-side reply matching; it carries no
// sequencing semantics a server may rely on.
var xidCounter atomic.Uint32

func init() {
	xidCounter.Store(0x58494430)
}

// NextXid returns the next RPC transaction ID.
func NextXid() uint32 {
	return xidCounter.Add(1) - 1
}

// pendingCall is the per-xid state an in-flight Call is waiting on.
type pendingCall struct {
	replyCh chan []byte
}

// Client is a single-connection ONC RPC client. One goroutine owns the
// connection's read half and demultiplexes replies to waiting callers by
// xid; the write half is shared under a mutex since one program may issue
// calls from multiple goroutines (e.g. concurrent COMPOUNDs across slots).
//
// This client never retransmits and never multiplexes more than one TCP
// connection per program, matching the transport model of a single mount.
type Client struct {
	conn net.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint32]pendingCall

	closeOnce sync.Once
	closed    chan struct{}

	receiveLoopDone *errgroup.Group
}

// NewClient wraps an already-established connection. The caller retains
// ownership of the connection's lifecycle; Close shuts down both the
// receive loop and the connection.
func NewClient(conn net.Conn) *Client {
	c := &Client{
		conn:            conn,
		pending:         make(map[uint32]pendingCall),
		closed:          make(chan struct{}),
		receiveLoopDone: new(errgroup.Group),
	}
	c.receiveLoopDone.Go(func() error {
		c.receiveLoop()
		return nil
	})
	return c
}

// Dial opens a TCP connection to addr and starts the client's receive loop.
func Dial(ctx context.Context, network, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, result.FromIOError(err)
	}
	return NewClient(conn), nil
}

// Close terminates the receive loop and the underlying connection, and
// joins the receive loop goroutine before returning so a caller never
// observes a connection still in the process of shutting down. Any calls
// still awaiting a reply receive result.ConnectionAborted.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()

		c.pendingMu.Lock()
		for xid, p := range c.pending {
			close(p.replyCh)
			delete(c.pending, xid)
		}
		c.pendingMu.Unlock()
	})
	_ = c.receiveLoopDone.Wait()
	return err
}

// receiveLoop owns the connection's read side for the client's lifetime,
// reassembling record-marked packets and routing each reply to the
// caller waiting on its xid. A malformed individual packet is logged and
// dropped since there may be no way to attribute it to any pending call;
// a transport-level read failure ends the loop and unblocks every pending
// call, which then fails with result.ConnectionAborted rather than the
// read error itself. The loop does not close the connection; Close does.
func (c *Client) receiveLoop() {
	for {
		packet, err := ReadPacket(c.conn, MaxPacketSize)
		if err != nil {
			c.failAllPending(err)
			return
		}
		if len(packet) < 8 {
			logger.Warn("rpc: dropping short packet", "length", len(packet))
			continue
		}

		r := bytes.NewReader(packet)
		xid, err := readUint32(r)
		if err != nil {
			logger.Warn("rpc: dropping unparseable packet")
			continue
		}
		msgType, err := readUint32(r)
		if err != nil {
			logger.Warn("rpc: dropping unparseable packet", "xid", xid)
			continue
		}

		switch msgType {
		case Call:
			logger.Warn("rpc: received callback, not supported", "xid", xid)
		case Reply:
			c.dispatchReply(xid, packet[8:])
		default:
			logger.Warn("rpc: dropping packet with unknown msg_type", "xid", xid, "msg_type", msgType)
		}
	}
}

func (c *Client) dispatchReply(xid uint32, body []byte) {
	c.pendingMu.Lock()
	p, ok := c.pending[xid]
	if ok {
		delete(c.pending, xid)
	}
	c.pendingMu.Unlock()

	if !ok {
		logger.Warn("rpc: reply for unknown xid", "xid", xid)
		return
	}
	p.replyCh <- body
}

func (c *Client) failAllPending(err error) {
	logger.Error("rpc: connection read failed, aborting pending calls", "error", err)
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for xid, p := range c.pending {
		close(p.replyCh)
		delete(c.pending, xid)
	}
}

// Call sends a pre-framed CALL payload (the caller has already packed the
// xid, msg_type, call_body, and procedure arguments) and blocks until the
// matching reply arrives, ctx is done, or the connection fails. The
// returned bytes are the reply body following the xid and msg_type
// fields, ready for UnpackReplyHeader followed by the procedure's result
// decoder.
func (c *Client) Call(ctx context.Context, xid uint32, payload []byte) ([]byte, error) {
	replyCh := make(chan []byte, 1)

	c.pendingMu.Lock()
	c.pending[xid] = pendingCall{replyCh: replyCh}
	c.pendingMu.Unlock()

	if err := c.send(payload); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, xid)
		c.pendingMu.Unlock()
		return nil, err
	}

	select {
	case body, ok := <-replyCh:
		if !ok {
			return nil, result.ConnectionAborted
		}
		return body, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, xid)
		c.pendingMu.Unlock()
		return nil, result.FromIOError(ctx.Err())
	case <-c.closed:
		return nil, result.ConnectionAborted
	}
}

func (c *Client) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WritePacket(c.conn, payload)
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return uint32(tmp[0])<<24 | uint32(tmp[1])<<16 | uint32(tmp[2])<<8 | uint32(tmp[3]), nil
}
