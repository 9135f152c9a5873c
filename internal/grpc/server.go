package grpc

import (
	"context"
	"errors"
	"net"
	"sync"

	"google.golang.org/grpc"
)

// Server represents the gRPC server for relay operations. Handlers are
// registered against the underlying grpc.Server by the caller.
type Server struct {
	mu sync.RWMutex

	grpcServer *grpc.Server
	config     *ServerConfig
	listener   net.Listener
	running    bool
}

// NewServer creates a new gRPC server with the given configuration.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.UnaryInterceptor(UnaryServerInterceptor()),
	}

	return &Server{
		grpcServer: grpc.NewServer(opts...),
		config:     cfg,
	}, nil
}

// Start starts the gRPC server and begins accepting connections.
// This method blocks until the server is stopped or an error occurs.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	return s.grpcServer.Serve(listener)
}

// Stop gracefully stops the gRPC server. It stops accepting new
// connections and waits for existing connections to complete.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.grpcServer.GracefulStop()
	s.running = false
}

// IsRunning returns true if the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the address the server is listening on, empty if the
// server is not running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GetGRPCServer returns the underlying grpc.Server so callers can
// register services before Start.
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.grpcServer
}

// UnaryServerInterceptor creates an interceptor hook point for logging
// and metrics.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		return handler(ctx, req)
	}
}
