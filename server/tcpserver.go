package server

import (
	"container/list"
	"context"
	"net"
	"sync"

	"github.com/modbuscore/gomodbus/transport"
	"go.uber.org/zap"
)

// DefaultMaxSessions bounds how many concurrent TCP sessions a Server
// accepts before evicting the oldest one (spec.md §4.5 "Session limit").
const DefaultMaxSessions = 64

// Server accepts connections from a transport.Listener and runs one Session
// per connection, evicting the oldest session once MaxSessions is exceeded.
type Server struct {
	listener      transport.Listener
	handlers      *HandlerMap
	auth          AuthorizationHandler
	logger        *zap.Logger
	maxSessions   int
	addressFilter AddressFilter

	mu       sync.Mutex
	sessions *list.List // of *trackedSession, oldest at Front
}

type trackedSession struct {
	cancel context.CancelFunc
}

// NewServer creates a TCP/TLS server that accepts connections from listener
// and dispatches them against handlers. maxSessions <= 0 uses
// DefaultMaxSessions. Every peer address is accepted; use
// SetAddressFilter to restrict which masters may connect.
func NewServer(listener transport.Listener, handlers *HandlerMap, auth AuthorizationHandler, logger *zap.Logger, maxSessions int) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Server{
		listener:      listener,
		handlers:      handlers,
		auth:          auth,
		logger:        logger,
		maxSessions:   maxSessions,
		addressFilter: AnyAddress(),
		sessions:      list.New(),
	}
}

// SetAddressFilter restricts which peer addresses may open a session.
// Connections from addresses the filter rejects are closed immediately,
// before any frame is read or any session slot is consumed.
func (s *Server) SetAddressFilter(filter AddressFilter) {
	s.addressFilter = filter
}

// Run accepts connections until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.listener.Close()
	for {
		t, err := s.listener.Accept(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.logger.Error("Failed to accept connection", zap.Error(err))
			return err
		}
		s.startSession(ctx, t)
	}
}

func (s *Server) startSession(parent context.Context, t transport.Transport) {
	if ra, ok := t.(transport.RemoteAddresser); ok {
		if host, _, err := net.SplitHostPort(ra.RemoteAddr().String()); err == nil {
			if ip := net.ParseIP(host); ip != nil && !s.addressFilter.Matches(ip) {
				s.logger.Info("Rejected connection from filtered address", zap.String("remoteAddr", ra.RemoteAddr().String()))
				t.Close()
				return
			}
		}
	}

	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	if s.sessions.Len() >= s.maxSessions {
		oldest := s.sessions.Front()
		if oldest != nil {
			s.sessions.Remove(oldest)
			oldest.Value.(*trackedSession).cancel()
		}
	}
	elem := s.sessions.PushBack(&trackedSession{cancel: cancel})
	s.mu.Unlock()

	session := NewSession(t, false, s.handlers, s.auth, "", s.logger)
	go func() {
		defer func() {
			s.mu.Lock()
			s.sessions.Remove(elem)
			s.mu.Unlock()
			cancel()
		}()
		if err := session.Run(ctx); err != nil {
			s.logger.Debug("Session ended", zap.Error(err))
		}
	}()
}
