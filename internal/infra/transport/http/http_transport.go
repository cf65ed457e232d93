package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/vcloset/internal/infra/logging"
)

// HTTPTransportConfig contains configuration parameters for HTTP servers.
type HTTPTransportConfig struct {
	// ServerAddr is the network address to listen on
	ServerAddr string `env:"SERVER_ADDR" default:":8080"`

	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" default:"30s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds the graceful shutdown once the context is cancelled
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`

	CORS CORSConfig `envPrefix:"CORS_"`
}

// HTTPTransport defines the interface for HTTP handlers that can serve requests.
type HTTPTransport interface {
	http.Handler
}

// Routable is implemented by transports that register their routes on a shared router.
type Routable interface {
	Routes(r chi.Router)
}

// Middleware is the chi-compatible middleware signature.
type Middleware = func(http.Handler) http.Handler

// NewRouter creates a router serving /health and the routes of every transport.
func NewRouter(transports ...Routable) chi.Router {
	router := chi.NewRouter()
	router.Get("/health", HandleHealth)

	for _, transport := range transports {
		transport.Routes(router)
	}

	return router
}

// ListenAndServe serves handler on cfg.ServerAddr until ctx is cancelled and then shuts
// the server down gracefully. The handler is wrapped with CORS, tracing, logging and
// panic recovery.
func ListenAndServe(ctx context.Context, handler HTTPTransport, cfg HTTPTransportConfig) (err error) {
	log := logging.GetLogger("infra.transport.http")

	sock, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return Serve(ctx, sock, WrapHandler(handler, cfg, log), cfg)
}

// WrapHandler applies the standard middleware chain. The outermost middleware runs first.
func WrapHandler(handler http.Handler, cfg HTTPTransportConfig, log logging.Logger) http.Handler {
	handler = RescueingMiddleware(handler, log)
	handler = LoggingMiddleware(handler, log)
	handler = TracingMiddleware(handler)
	handler = CORSMiddleware(cfg.CORS)(handler)

	return handler
}

// Serve runs an http.Server on sock until ctx is cancelled.
func Serve(ctx context.Context, sock net.Listener, handler http.Handler, cfg HTTPTransportConfig) error {
	log := logging.GetLogger("infra.transport.http")

	//nolint:exhaustruct
	server := &http.Server{
		Handler:           handler,
		ErrorLog:          logging.GetLogLogger(log, logging.LevelError),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		log.InfoContext(ctx, "listening", "addr", sock.Addr().String())
		errCh <- server.Serve(sock)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	log.InfoContext(ctx, "shutting down", "timeout", cfg.ShutdownTimeout)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
