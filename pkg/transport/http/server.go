package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/bote/pkg/codec"
	"github.com/rhuss/bote/pkg/transport"
)

// Server wraps an http.Server with the transport adapter and manages
// the full lifecycle including startup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	adapter    *Adapter
	config     ServerConfig
	logger     *slog.Logger
}

// ServerConfig holds configuration for the transport server.
type ServerConfig struct {
	Addr              string
	MaxBodySize       int64
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	AllowOrigin       string
	Codec             codec.Codec
	StreamBuffer      int
	Monitor           Monitor
	Logger            *slog.Logger

	// Wrappers are applied around the adapter handler, outermost first.
	Wrappers []func(http.Handler) http.Handler
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              ":8080",
		MaxBodySize:       10 << 20, // 10 MB
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		AllowOrigin:       "*",
		Codec:             codec.JSON,
		Logger:            slog.Default(),
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.config.Addr = addr }
}

// WithMaxBodySize sets the maximum request body size.
func WithMaxBodySize(n int64) ServerOption {
	return func(s *Server) { s.config.MaxBodySize = n }
}

// WithReadHeaderTimeout sets the time allowed to read request headers.
func WithReadHeaderTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ReadHeaderTimeout = d }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithAllowOrigin sets the Access-Control-Allow-Origin value of responses.
func WithAllowOrigin(origin string) ServerOption {
	return func(s *Server) { s.config.AllowOrigin = origin }
}

// WithCodec sets the serializer for buffered and streamed data.
func WithCodec(c codec.Codec) ServerOption {
	return func(s *Server) { s.config.Codec = c }
}

// WithStreamBuffer sets how far synchronous stream producers may run ahead.
func WithStreamBuffer(n int) ServerOption {
	return func(s *Server) { s.config.StreamBuffer = n }
}

// WithMonitor sets the per-response observer source.
func WithMonitor(m Monitor) ServerOption {
	return func(s *Server) { s.config.Monitor = m }
}

// WithHTTPMiddleware wraps the server's HTTP handler with mw. Wrappers
// added first run outermost.
func WithHTTPMiddleware(mw func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) { s.config.Wrappers = append(s.config.Wrappers, mw) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.config.Logger = l; s.logger = l }
}

// NewServer creates a new transport server with the given options.
// Default middleware (recovery, request ID, logging) is applied to every
// route registered through Handle.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		config: DefaultServerConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.adapter = NewAdapter(Config{
		MaxBodySize:  s.config.MaxBodySize,
		AllowOrigin:  s.config.AllowOrigin,
		Codec:        s.config.Codec,
		StreamBuffer: s.config.StreamBuffer,
		Monitor:      s.config.Monitor,
		Logger:       s.logger,
	},
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(s.logger),
	)

	handler := s.adapter.Handler()
	for i := len(s.config.Wrappers) - 1; i >= 0; i-- {
		handler = s.config.Wrappers[i](handler)
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	return s
}

// Adapter returns the adapter routes are registered on.
func (s *Server) Adapter() *Adapter {
	return s.adapter
}

// Handle registers h for pattern on the server's adapter.
func (s *Server) Handle(pattern string, h transport.Handler, opts ...RouteOption) {
	s.adapter.Handle(pattern, h, opts...)
}

// ListenAndServe starts the server and blocks until a shutdown signal
// (SIGINT or SIGTERM) is received. It then gracefully shuts down,
// waiting for in-flight requests to complete within the configured timeout.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Shutdown is
// called, then shuts down gracefully. It returns the first serving error.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		// Serve always returns non-nil, which also releases the goroutine below.
		return s.httpServer.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Shutdown gracefully shuts down the server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
