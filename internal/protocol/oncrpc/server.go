package oncrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/xdrproxy/internal/logger"
)

// ErrGarbageArgs is returned by a procedure handler when its arguments do not
// decode. The server answers GARBAGE_ARGS.
var ErrGarbageArgs = errors.New("garbage arguments")

// ProcedureHandler processes the XDR-encoded arguments of one call and
// returns the XDR-encoded result.
type ProcedureHandler func(ctx context.Context, args []byte) ([]byte, error)

// Procedure contains metadata about a procedure for dispatch.
type Procedure struct {
	// Name is the procedure name for logging (e.g., "FOO", "BAR").
	Name string

	// Handler is the function that processes this procedure.
	Handler ProcedureHandler
}

// Program is a dispatch table for one program version.
// Procedure 0 (NULL) is answered automatically unless the table defines it.
type Program struct {
	Name       string
	Number     uint32
	Version    uint32
	Procedures map[uint32]*Procedure
}

// ServerConfig holds configuration for the ONC-RPC server.
type ServerConfig struct {
	// Address is the TCP listen address (e.g. ":4000", "127.0.0.1:0").
	Address string

	// IdleTimeout closes connections with no request for this long.
	IdleTimeout time.Duration

	// MaxRecordSize bounds a reassembled call record.
	MaxRecordSize uint32
}

// Server is a minimal TCP ONC-RPC server. Each connection may carry any
// number of calls; replies use record marking.
type Server struct {
	config   ServerConfig
	programs map[uint32]*Program

	mu           sync.Mutex
	listener     net.Listener
	conns        map[net.Conn]struct{}
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a server dispatching to the given programs.
func NewServer(cfg ServerConfig, programs ...*Program) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.MaxRecordSize == 0 {
		cfg.MaxRecordSize = DefaultMaxRecordSize
	}

	table := make(map[uint32]*Program, len(programs))
	for _, p := range programs {
		table[p.Number] = p
	}

	return &Server{
		config:   cfg,
		programs: table,
		conns:    make(map[net.Conn]struct{}),
		shutdown: make(chan struct{}),
	}
}

// Listen binds the TCP listener. Serve calls it if needed; calling it first
// lets callers learn the bound address before serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	select {
	case <-s.shutdown:
		return errors.New("server stopped")
	default:
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen TCP %s: %w", s.config.Address, err)
	}
	s.listener = ln
	return nil
}

// Serve accepts connections until the context is cancelled or Stop is
// called.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	logger.Info("ONC-RPC server started", "address", s.Addr(), "programs", s.programNames())

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.wg.Wait()
				return nil
			default:
				s.Stop()
				s.wg.Wait()
				return fmt.Errorf("accept: %w", err)
			}
		}

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.untrack(c)
			s.handleConn(ctx, c)
		}(conn)
	}
}

// handleConn serves calls on one connection until EOF, error or idle timeout.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	clientAddr := conn.RemoteAddr().String()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
			logger.Debug("ONC-RPC: failed to set deadline", "client", clientAddr, "error", err)
			return
		}

		record, err := ReadRecord(conn, s.config.MaxRecordSize)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("ONC-RPC: read record error", "client", clientAddr, "error", err)
			}
			return
		}

		reply := s.processCall(ctx, record, clientAddr)
		if reply == nil {
			return
		}

		if err := conn.SetWriteDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
			return
		}
		if err := WriteRecord(conn, reply); err != nil {
			logger.Debug("ONC-RPC: write reply error", "client", clientAddr, "error", err)
			return
		}
	}
}

// processCall parses a call, dispatches it and returns the reply body.
// Returns nil if the message cannot be answered.
func (s *Server) processCall(ctx context.Context, data []byte, clientAddr string) []byte {
	call, args, err := ParseCall(data)
	if err != nil {
		logger.Debug("ONC-RPC: parse call error", "client", clientAddr, "error", err)
		return nil
	}

	if call.RPCVersion != RPCVersion {
		return MakeRPCMismatchReply(call.XID)
	}

	prog, ok := s.programs[call.Program]
	if !ok {
		logger.Debug("ONC-RPC: program unavailable", "prog", call.Program, "client", clientAddr)
		return MakeErrorReply(call.XID, RPCProgUnavail)
	}

	if call.Version != prog.Version {
		logger.Debug("ONC-RPC: version mismatch", "version", call.Version, "client", clientAddr)
		return MakeProgMismatchReply(call.XID, prog.Version, prog.Version)
	}

	proc, ok := prog.Procedures[call.Procedure]
	if !ok {
		if call.Procedure == 0 {
			return MakeSuccessReply(call.XID, nil)
		}
		logger.Debug("ONC-RPC: procedure unavailable", "procno", call.Procedure, "client", clientAddr)
		return MakeErrorReply(call.XID, RPCProcUnavail)
	}

	logger.Debug("ONC-RPC call", "program", prog.Name, "procedure", proc.Name, "client", clientAddr)

	result, err := proc.Handler(ctx, args)
	if err != nil {
		logger.Debug("ONC-RPC: handler error", "procedure", proc.Name, "client", clientAddr, "error", err)
		if errors.Is(err, ErrGarbageArgs) {
			return MakeErrorReply(call.XID, RPCGarbageArgs)
		}
		return MakeErrorReply(call.XID, RPCSystemErr)
	}

	return MakeSuccessReply(call.XID, result)
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.shutdown:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) programNames() []string {
	names := make([]string, 0, len(s.programs))
	for _, p := range s.programs {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Stop closes the listener and all open connections.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		for c := range s.conns {
			_ = c.Close()
		}
	})
}

// Addr returns the TCP listener address (for tests).
// Returns empty string if the server is not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
