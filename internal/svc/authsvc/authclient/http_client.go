package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mkrupp/vcloset/internal/domain"
	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/infra/logging"
)

const (
	TraceIDHeader       = "X-Request-ID"
	AuthorizationHeader = "Authorization"
)

// HTTPClientConfig holds configuration for the HTTP auth client.
type HTTPClientConfig struct {
	// AuthURL is the token validation endpoint of the auth service
	AuthURL string `env:"URL" default:"http://localhost:8080/api/auth/validate"`

	Timeout time.Duration `env:"TIMEOUT" default:"5s"`
}

// HTTPClient implements AuthClient by calling the auth service's validate endpoint.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ AuthClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient. If httpClient is nil a client with the
// configured timeout is used.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout} //nolint:exhaustruct
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.authsvc.authclient.http_client"),
		cfg:        cfg,
	}
}

// Validate implements AuthClient.Validate.
func (hc *HTTPClient) Validate(ctx context.Context, token string) (_ domain.Subject, _ bool, err error) {
	defer func() {
		if err != nil {
			hc.log.ErrorContext(ctx, "validate token failed", "error", err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hc.cfg.AuthURL, nil)
	if err != nil {
		return domain.Subject{}, false, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set(AuthorizationHeader, "Bearer "+token)

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return domain.Subject{}, false, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusBadRequest:
		return domain.Subject{}, false, nil
	default:
		return domain.Subject{}, false, fmt.Errorf("%w: status %d", domain.ErrInvalidAuthToken, resp.StatusCode)
	}

	var subject domain.Subject
	if err := json.NewDecoder(resp.Body).Decode(&subject); err != nil {
		return domain.Subject{}, false, fmt.Errorf("decode subject: %w", err)
	}

	return subject, true, nil
}
