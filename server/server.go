package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jonwraymond/cellexec/backend"
	"github.com/jonwraymond/cellexec/exec"
)

// ErrInvalidOptions indicates an Options value that cannot be used.
var ErrInvalidOptions = errors.New("server: invalid options")

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 4 << 20

// Options configures a Server.
type Options struct {
	// Exec executes cells.
	// Required.
	Exec *exec.Exec

	// Logger receives access and lifecycle logs.
	// Default: zerolog.Nop()
	Logger *zerolog.Logger

	// BasePath prefixes every route. Empty or "/kernel" style.
	BasePath string

	// RateLimit and RateBurst configure per-client admission. A zero
	// RateLimit disables it.
	RateLimit float64
	RateBurst int

	// MaxBodyBytes bounds request bodies.
	// Default: 4 MiB
	MaxBodyBytes int64

	// EnableMCP mounts the MCP endpoint at /mcp.
	EnableMCP bool

	// Gatherer is served at /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// Version is reported to MCP clients.
	Version string
}

// Server serves the kernel routes.
type Server struct {
	exec     *exec.Exec
	registry *backend.Registry
	agg      *backend.Aggregator
	mcp      *mcp.Server
	limiter  *clientLimiter
	logger   zerolog.Logger
	opts     Options
	handler  http.Handler
}

// New creates a Server. The kernel's local backend is registered with an
// internal registry whose aggregator backs /tools and /mcp.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Exec == nil {
		return nil, fmt.Errorf("%w: Exec is required", ErrInvalidOptions)
	}
	if opts.BasePath != "" && (!strings.HasPrefix(opts.BasePath, "/") || strings.HasSuffix(opts.BasePath, "/")) {
		return nil, fmt.Errorf("%w: BasePath %q", ErrInvalidOptions, opts.BasePath)
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		exec:     opts.Exec,
		registry: backend.NewRegistry(),
		limiter:  newClientLimiter(opts.RateLimit, opts.RateBurst),
		logger:   zerolog.Nop(),
		opts:     opts,
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	if err := s.registry.Register(opts.Exec.Backend()); err != nil {
		return nil, err
	}
	if err := s.registry.StartAll(ctx); err != nil {
		return nil, errors.Join(err, s.registry.StopAll())
	}
	s.agg = backend.NewAggregator(s.registry)

	if opts.EnableMCP {
		srv, err := NewMCPServer(ctx, s.agg, &mcp.Implementation{Name: "cellexec", Version: opts.Version})
		if err != nil {
			return nil, err
		}
		s.mcp = srv
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	base := s.opts.BasePath
	limited := s.limiter.middleware

	if base == "" {
		mux.HandleFunc("GET /{$}", s.handleLive)
	} else {
		mux.HandleFunc("GET "+base, s.handleLive)
		mux.HandleFunc("GET "+base+"/{$}", s.handleLive)
	}
	mux.Handle("POST "+base+"/run", limited(http.HandlerFunc(s.handleRun)))
	mux.Handle("GET "+base+"/tools", limited(http.HandlerFunc(s.handleTools)))
	mux.Handle("GET "+base+"/tools/{id}", limited(http.HandlerFunc(s.handleToolDoc)))
	if s.opts.Gatherer != nil {
		mux.Handle("GET "+base+"/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.mcp != nil {
		mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
		mux.Handle(base+"/mcp", limited(mcpHandler))
	}
	return s.accessLog(mux)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCP returns the MCP server, or nil when MCP is disabled.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Close stops and unregisters every backend. Afterwards /tools lists nothing
// and tool calls fail with backend.ErrBackendNotFound. Close is idempotent.
func (s *Server) Close() error {
	var errs []error
	for _, name := range s.registry.Names() {
		if err := s.registry.Unregister(name); err != nil {
			errs = append(errs, fmt.Errorf("unregister %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info().Str("addr", ln.Addr().String()).Str("basePath", s.opts.BasePath).Msg("listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
