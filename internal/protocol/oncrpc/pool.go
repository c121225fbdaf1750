package oncrpc

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"
)

// probeWait is how long get waits for a pending EOF on an idle connection.
// A deadline already in the past would fail the read before the socket is
// looked at.
const probeWait = time.Millisecond

// PoolConfig configures connection reuse per host:port.
type PoolConfig struct {
	// Enabled turns pooling on. When disabled every call dials a fresh
	// connection and closes it afterwards.
	Enabled bool

	// MaxIdlePerHost caps idle connections kept per address.
	MaxIdlePerHost int

	// IdleTimeout closes connections idle for longer than this.
	IdleTimeout time.Duration
}

type idleConn struct {
	conn  net.Conn
	since time.Time
}

// connPool keeps idle connections keyed by address. Only connections that
// completed a clean exchange are put back.
type connPool struct {
	cfg PoolConfig

	mu     sync.Mutex
	idle   map[string][]idleConn
	closed bool
}

func newConnPool(cfg PoolConfig) *connPool {
	return &connPool{cfg: cfg, idle: make(map[string][]idleConn)}
}

// get returns the most recently used live connection for addr, or nil.
// Expired connections and ones the peer has closed are discarded.
func (p *connPool) get(addr string) net.Conn {
	if !p.cfg.Enabled {
		return nil
	}
	for {
		ic, ok := p.pop(addr)
		if !ok {
			return nil
		}
		if p.cfg.IdleTimeout > 0 && time.Since(ic.since) > p.cfg.IdleTimeout {
			_ = ic.conn.Close()
			continue
		}
		// Checked outside the lock: alive blocks for up to probeWait.
		if !alive(ic.conn) {
			_ = ic.conn.Close()
			continue
		}
		return ic.conn
	}
}

func (p *connPool) pop(addr string) (idleConn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := p.idle[addr]
	if len(conns) == 0 {
		delete(p.idle, addr)
		return idleConn{}, false
	}
	ic := conns[len(conns)-1]
	if len(conns) == 1 {
		delete(p.idle, addr)
	} else {
		p.idle[addr] = conns[:len(conns)-1]
	}
	return ic, true
}

// alive reports whether an idle connection can carry another call. A peer
// that closed or reset it yields EOF or an error; unsolicited bytes mean the
// stream is out of step. Only a read timeout proves it is still idle.
func alive(conn net.Conn) bool {
	if err := conn.SetReadDeadline(time.Now().Add(probeWait)); err != nil {
		return false
	}
	var b [1]byte
	n, err := conn.Read(b[:])
	if n > 0 || !errors.Is(err, os.ErrDeadlineExceeded) {
		return false
	}
	return conn.SetReadDeadline(time.Time{}) == nil
}

// put offers conn back to the pool, closing it if the pool is full,
// disabled or closed.
func (p *connPool) put(addr string, conn net.Conn) {
	if !p.cfg.Enabled {
		_ = conn.Close()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.idle[addr]) >= p.cfg.MaxIdlePerHost {
		_ = conn.Close()
		return
	}
	p.idle[addr] = append(p.idle[addr], idleConn{conn: conn, since: time.Now()})
}

// idleCount returns the number of idle connections for addr.
func (p *connPool) idleCount(addr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[addr])
}

func (p *connPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for addr, conns := range p.idle {
		for _, ic := range conns {
			_ = ic.conn.Close()
		}
		delete(p.idle, addr)
	}
}
