package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hellomouse/tptmp-server/internal/logging"
	"github.com/hellomouse/tptmp-server/internal/metrics"
	"github.com/hellomouse/tptmp-server/internal/room"
	"github.com/hellomouse/tptmp-server/internal/wire"
)

// Server owns the TCP listener and spawns a Session per accepted
// connection: a functional-options constructor, a Serve(ctx) accept
// loop with TCP tuning, a capacity-check-then-register-then-spawn
// sequence (each spawned session runs its own handshake), and a graceful Shutdown that closes the listener, closes every live
// connection, and waits on a WaitGroup under a context timeout. There is
// no backend device here, only peer clients, coordinated through a
// *room.Registry.
type Server struct {
	mu       sync.RWMutex
	addr     string
	registry *room.Registry
	cfg      Config
	logger   *slog.Logger

	readyOnce sync.Once
	readyCh   chan struct{}
	listener  net.Listener

	sessionsMu sync.Mutex
	sessions   map[*Session]struct{}
	wg         sync.WaitGroup

	nextConnID uint64
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithListenAddr sets the TCP listen address (default ":34403").
func WithListenAddr(addr string) Option { return func(s *Server) { s.addr = addr } }

// WithRegistry installs the server-wide client/room registry. Without it,
// New creates a default registry.
func WithRegistry(r *room.Registry) Option { return func(s *Server) { s.registry = r } }

// WithConfig installs the per-session protocol configuration.
func WithConfig(cfg Config) Option { return func(s *Server) { s.cfg = cfg } }

// WithLogger overrides the default process logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

const defaultListenAddr = ":34403"

// New constructs a Server. If no registry is supplied via WithRegistry, a
// default one (255-client cap, no hooks) is created.
func New(opts ...Option) *Server {
	s := &Server{
		addr:     defaultListenAddr,
		cfg:      DefaultConfig(),
		logger:   logging.L(),
		readyCh:  make(chan struct{}),
		sessions: make(map[*Session]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		s.registry = room.New()
	}
	return s
}

// Addr returns the listener's bound address, valid once Ready() closes.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) setAddr(a string) {
	s.mu.Lock()
	s.addr = a
	s.mu.Unlock()
}

// Ready closes once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Serve binds the listener and accepts connections until ctx is
// cancelled or a fatal listener error occurs.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrapped := wrapConnErr(ErrListen, err)
		return wrapped
	}
	s.setAddr(ln.Addr().String())
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", s.Addr())

	go func() { <-ctx.Done(); _ = ln.Close() }()

	for {
		if err := s.acceptOnce(ctx, ln); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// acceptOnce accepts a single connection and, if the registry has room,
// spawns a session goroutine for it. Transient accept errors are retried
// after a short pause; listener-fatal errors are returned.
func (s *Server) acceptOnce(ctx context.Context, ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		var ne net.Error
		if errors.As(err, &ne) {
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		return wrapConnErr(ErrAccept, err)
	}

	connID := atomic.AddUint64(&s.nextConnID, 1)
	connLogger := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}

	if max := s.registry.MaxClients(); s.registry.ClientCount() >= max {
		metrics.IncRejected()
		err := wrapConnErr(ErrCapacity, fmt.Errorf("%d/%d clients", s.registry.ClientCount(), max))
		connLogger.Info("client_rejected_full", "error", err)
		_, _ = conn.Write(wire.ErrorFrame(fmt.Sprintf("Server is full (%d/%d)", max, max)))
		_ = conn.Close()
		return nil
	}

	sess := newSession(conn, s.registry, s.cfg, connLogger)
	s.sessionsMu.Lock()
	s.sessions[sess] = struct{}{}
	s.sessionsMu.Unlock()
	metrics.IncConnected()
	connLogger.Info("client_connected")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.sessionsMu.Lock()
			delete(s.sessions, sess)
			s.sessionsMu.Unlock()
		}()
		sess.run()
	}()
	return nil
}

// Shutdown closes the listener and every live session, then waits for
// their goroutines to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}

	s.sessionsMu.Lock()
	for sess := range s.sessions {
		sess.disconnect("server shutting down")
	}
	s.sessionsMu.Unlock()

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: shutdown timeout: %v", ErrContext, ctx.Err())
	case <-done:
		s.logger.Info("shutdown_complete")
		return nil
	}
}
