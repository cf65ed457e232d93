package stylistsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/vcloset/internal/infra/logging"
	http_ "github.com/mkrupp/vcloset/internal/infra/transport/http"
)

// HTTPTransportConfig contains configuration parameters for the stylist route.
type HTTPTransportConfig struct {
	// MaxBodySize caps the request body in bytes
	MaxBodySize int64 `env:"MAX_BODY_SIZE" default:"65536"`

	RateLimit http_.RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// HTTPTransport handles HTTP requests for the stylist proxy.
type HTTPTransport struct {
	stylistSvc *StylistService
	router     chi.Router
	log        logging.Logger
	cfg        HTTPTransportConfig
}

var (
	_ http_.HTTPTransport = (*HTTPTransport)(nil)
	_ http_.Routable      = (*HTTPTransport)(nil)
)

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(stylistSvc *StylistService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		stylistSvc: stylistSvc,
		log:        logging.GetLogger("svc.stylistsvc.http_transport"),
		cfg:        cfg,
	}

	ht.router = http_.NewRouter(ht)

	return ht
}

// Routes registers POST /api/stylist behind the inbound rate limit.
func (ht *HTTPTransport) Routes(router chi.Router) {
	router.With(http_.RateLimitMiddleware(ht.cfg.RateLimit)).Post("/api/stylist", ht.HandleStylist)
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

// HandleStylist relays the request body to the upstream stylist.
func (ht *HTTPTransport) HandleStylist(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleStylist(w, r)
}

func (ht *HTTPTransport) handleStylist(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.DebugContext(ctx, "stylist request failed", "error", err)
		}
	}(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, ht.cfg.MaxBodySize))
	if err != nil {
		http_.WriteError(w, http.StatusRequestEntityTooLarge, "")

		return fmt.Errorf("read body: %w", err)
	}

	reply, err := ht.stylistSvc.Ask(r.Context(), body)

	switch {
	case errors.Is(err, ErrInvalidRequest):
		http_.WriteError(w, http.StatusBadRequest, "Invalid request body.")

		return err
	case errors.Is(err, ErrBusy):
		http_.WriteError(w, http.StatusServiceUnavailable, "Stylist is busy, try again later.")

		return err
	case errors.Is(err, ErrUpstreamTooLarge):
		http_.WriteError(w, http.StatusBadGateway, "Stylist reply too large.")

		return err
	case err != nil:
		http_.WriteError(w, http.StatusBadGateway, "Stylist is unavailable.")

		return err
	}

	contentType := "text/plain; charset=utf-8"
	if reply.JSON {
		contentType = "application/json; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(reply.Body)))
	w.WriteHeader(reply.Status)

	if _, err := w.Write(reply.Body); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}

	return nil
}
