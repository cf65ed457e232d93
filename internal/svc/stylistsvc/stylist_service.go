// Package stylistsvc relays styling questions to the upstream stylist backend.
package stylistsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/infra/logging"
)

const traceIDHeader = "X-Request-ID"

var (
	// ErrInvalidRequest is returned for request bodies that are not JSON.
	ErrInvalidRequest = errors.New("invalid stylist request")
	// ErrUpstreamUnavailable is returned when the upstream could not be reached.
	ErrUpstreamUnavailable = errors.New("stylist upstream unavailable")
	// ErrBusy is returned when the outbound rate limit cannot be met before the
	// request's deadline.
	ErrBusy = errors.New("stylist busy")
	// ErrUpstreamTooLarge is returned when the upstream reply exceeds MaxResponseSize.
	ErrUpstreamTooLarge = errors.New("stylist reply too large")
)

// StylistConfig holds configuration parameters for the stylist proxy.
type StylistConfig struct {
	UpstreamURL string        `env:"UPSTREAM_URL" default:"http://localhost:3000/api/gemini-stylist"`
	Timeout     time.Duration `env:"TIMEOUT" default:"60s"`

	// Rate is the sustained number of upstream calls per second, 0 disables the limit.
	Rate  float64 `env:"RATE" default:"2"`
	Burst int     `env:"BURST" default:"5"`

	// MaxResponseSize caps the relayed upstream body in bytes.
	MaxResponseSize int64 `env:"MAX_RESPONSE_SIZE" default:"1048576"`
}

// Reply is the upstream answer as relayed to the client.
type Reply struct {
	Status int
	Body   []byte
	// JSON reports whether Body parsed as JSON.
	JSON bool
}

// StylistService forwards requests to the upstream stylist.
type StylistService struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     StylistConfig
	log     logging.Logger
}

// NewStylistService creates a new StylistService. If client is nil a client with
// the configured timeout is used.
func NewStylistService(cfg StylistConfig, client *http.Client) *StylistService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout} //nolint:exhaustruct
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	return &StylistService{
		client:  client,
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		cfg:     cfg,
		log:     logging.GetLogger("svc.stylistsvc.stylist_service"),
	}
}

// Ask posts body to the upstream and returns its reply. Upstream error statuses are
// relayed in the Reply, not returned as errors.
func (svc *StylistService) Ask(ctx context.Context, body []byte) (_ Reply, err error) {
	defer func() {
		if err != nil {
			svc.log.WarnContext(ctx, "stylist request failed", "upstream", svc.cfg.UpstreamURL, "error", err)
		}
	}()

	if !json.Valid(body) {
		return Reply{}, ErrInvalidRequest
	}

	if err := svc.limiter.Wait(ctx); err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrBusy, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.cfg.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if traceID, ok := context_.TraceIDFromContext(ctx); ok && traceID != "" {
		req.Header.Set(traceIDHeader, traceID)
	}

	resp, err := svc.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, svc.cfg.MaxResponseSize+1))
	if err != nil {
		return Reply{}, fmt.Errorf("%w: read body: %w", ErrUpstreamUnavailable, err)
	} else if int64(len(data)) > svc.cfg.MaxResponseSize {
		return Reply{}, fmt.Errorf("%w: exceeds %d bytes", ErrUpstreamTooLarge, svc.cfg.MaxResponseSize)
	}

	svc.log.DebugContext(ctx, "stylist replied", "status", resp.StatusCode, "size", len(data))

	return Reply{Status: resp.StatusCode, Body: data, JSON: json.Valid(data)}, nil
}
