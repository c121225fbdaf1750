package oncrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
)

// DefaultCallTimeout is the total timeout for one call (dial + I/O).
const DefaultCallTimeout = 10 * time.Second

// ClientConfig configures the ONC-RPC client.
type ClientConfig struct {
	// Timeout bounds a whole call including dial. Zero means DefaultCallTimeout.
	Timeout time.Duration

	// MaxReplySize bounds a reassembled reply record. Zero means
	// DefaultMaxRecordSize.
	MaxReplySize uint32

	Pool PoolConfig
}

// Client issues ONC-RPC calls over TCP.
//
// Each call uses its own buffers; a Client is safe for concurrent use.
// Calls are never retried.
type Client struct {
	cfg    ClientConfig
	dialer net.Dialer
	pool   *connPool
	xid    atomic.Uint32
}

// NewClient creates a client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	if cfg.MaxReplySize == 0 {
		cfg.MaxReplySize = DefaultMaxRecordSize
	}

	c := &Client{cfg: cfg, pool: newConnPool(cfg.Pool)}
	// XID can be any unique value; seed from the clock so restarts don't
	// reuse the same sequence.
	c.xid.Store(uint32(time.Now().UnixNano() & 0xFFFFFFFF))
	return c
}

// Call sends one CALL to addr and returns the result body of a successful
// reply.
//
// Transport failures and deadline expiry are ConnectionErrors. Replies that
// fail to parse are DecodeErrors; RPC-level rejections are RemoteErrors.
func (c *Client) Call(ctx context.Context, addr string, prog, vers, proc uint32, args []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.conn(callCtx, addr)
	if err != nil {
		return nil, xlateerrors.NewConnectionError(addr, c.describe(callCtx, err))
	}

	// Abort blocked I/O as soon as the caller gives up.
	stop := context.AfterFunc(callCtx, func() {
		_ = conn.SetDeadline(time.Now())
	})

	if deadline, ok := callCtx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			stop()
			_ = conn.Close()
			return nil, xlateerrors.NewConnectionError(addr, fmt.Errorf("set deadline: %w", err))
		}
	}

	xid := c.xid.Add(1)
	body, clean, err := c.exchange(conn, xid, prog, vers, proc, args)

	// A connection whose deadline was forced by cancellation is unusable.
	if !stop() {
		clean = false
	}

	if clean {
		_ = conn.SetDeadline(time.Time{})
		c.pool.put(addr, conn)
	} else {
		_ = conn.Close()
	}

	if err != nil {
		var xe *xlateerrors.XlateError
		if errors.As(err, &xe) {
			return nil, err
		}
		return nil, xlateerrors.NewConnectionError(addr, c.describe(callCtx, err))
	}
	return body, nil
}

// exchange writes the call and reads the reply. clean reports whether the
// connection is left at a record boundary and may be reused.
func (c *Client) exchange(conn net.Conn, xid, prog, vers, proc uint32, args []byte) ([]byte, bool, error) {
	msg, err := BuildCall(xid, prog, vers, proc, args)
	if err != nil {
		return nil, false, err
	}

	if err := WriteRecord(conn, msg); err != nil {
		return nil, false, fmt.Errorf("write call: %w", err)
	}

	record, err := ReadRecord(conn, c.cfg.MaxReplySize)
	if err != nil {
		if errors.Is(err, ErrRecordTooLarge) {
			return nil, false, xlateerrors.NewDecodeError("", err)
		}
		return nil, false, fmt.Errorf("read reply: %w", err)
	}

	body, err := ParseReply(record, xid)
	if err != nil {
		// The record was consumed in full; only a desynchronised stream
		// (xid mismatch or garbage) makes the connection unsafe.
		return nil, xlateerrors.IsCode(err, xlateerrors.ErrRemote), err
	}
	return body, true, nil
}

func (c *Client) conn(ctx context.Context, addr string) (net.Conn, error) {
	if conn := c.pool.get(addr); conn != nil {
		return conn, nil
	}
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// describe replaces low-level timeout errors with the call deadline cause.
func (c *Client) describe(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s: %w", c.cfg.Timeout, ctxErr)
		}
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("timed out after %s: %w", c.cfg.Timeout, err)
	}
	return err
}

// Close releases all pooled connections.
func (c *Client) Close() error {
	c.pool.close()
	return nil
}
