package tryonsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/vcloset/internal/infra/logging"
	http_ "github.com/mkrupp/vcloset/internal/infra/transport/http"
	"github.com/mkrupp/vcloset/internal/mannequin"
	"github.com/mkrupp/vcloset/internal/util/validation"
)

const maxBodyBytes = 16 << 10

// HTTPTransportConfig contains configuration parameters for the try-on routes.
type HTTPTransportConfig struct {
	// RateLimit applies to avatar requests per client IP, each one fetches a remote asset
	RateLimit http_.RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// MannequinRequest is the JSON body of mannequin previews. Missing measurements
// default to 5 ft 7 in and 154 lb.
type MannequinRequest struct {
	HeightFeet   *float64 `json:"heightFeet"`
	HeightInches *float64 `json:"heightInches"`
	WeightLbs    *float64 `json:"weightLbs"`
	BodyType     string   `json:"bodyType"    validate:"max=20"`
	TopColor     string   `json:"topColor"    validate:"max=32"`
	BottomColor  string   `json:"bottomColor" validate:"max=32"`
}

// AvatarRequest is the JSON body of avatar previews.
type AvatarRequest struct {
	URL          string   `json:"url"          validate:"omitempty,url,max=2048"`
	HeightFeet   *float64 `json:"heightFeet"`
	HeightInches *float64 `json:"heightInches"`
}

// HTTPTransport handles HTTP requests for the try-on service.
type HTTPTransport struct {
	tryOnSvc  *TryOnService
	validator *validation.Validator
	router    chi.Router
	log       logging.Logger
	cfg       HTTPTransportConfig
}

var (
	_ http_.HTTPTransport = (*HTTPTransport)(nil)
	_ http_.Routable      = (*HTTPTransport)(nil)
)

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(tryOnSvc *TryOnService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		tryOnSvc:  tryOnSvc,
		validator: validation.New(),
		log:       logging.GetLogger("svc.tryonsvc.http_transport"),
		cfg:       cfg,
	}

	ht.router = http_.NewRouter(ht)

	return ht
}

// Routes registers the try-on endpoints:
// - POST /api/tryon/mannequin: Build a mannequin from body measurements
// - POST /api/tryon/avatar: Load and fit an external glTF avatar.
func (ht *HTTPTransport) Routes(router chi.Router) {
	router.Route("/api/tryon", func(r chi.Router) {
		r.Post("/mannequin", ht.HandleMannequin)
		r.With(http_.RateLimitMiddleware(ht.cfg.RateLimit)).Post("/avatar", ht.HandleAvatar)
	})
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

// HandleMannequin renders a mannequin preview.
func (ht *HTTPTransport) HandleMannequin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleMannequin(w, r)
}

func (ht *HTTPTransport) handleMannequin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.DebugContext(ctx, "mannequin preview failed", "error", err)
		}
	}(r.Context())

	var req MannequinRequest
	if err := ht.decode(w, r, &req); err != nil {
		return err
	}

	params, err := req.Params()
	if err != nil {
		http_.WriteError(w, http.StatusBadRequest, err.Error())

		return err
	}

	return http_.WriteJSON(w, http.StatusOK, ht.tryOnSvc.Mannequin(r.Context(), params))
}

// HandleAvatar renders an avatar preview.
func (ht *HTTPTransport) HandleAvatar(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleAvatar(w, r)
}

func (ht *HTTPTransport) handleAvatar(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.DebugContext(ctx, "avatar preview failed", "error", err)
		}
	}(r.Context())

	var req AvatarRequest
	if err := ht.decode(w, r, &req); err != nil {
		return err
	}

	params := mannequin.DefaultParams()
	params.HeightCm, _ = mannequin.ToMetric(imperial(req.HeightFeet, req.HeightInches, nil))

	return http_.WriteJSON(w, http.StatusOK, ht.tryOnSvc.Avatar(r.Context(), params, req.URL))
}

func (ht *HTTPTransport) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http_.WriteError(w, http.StatusBadRequest, "Invalid request body.")

		return fmt.Errorf("decode body: %w", err)
	}

	if err := ht.validator.Validate(v); err != nil {
		http_.WriteError(w, http.StatusBadRequest, err.Error())

		return err
	}

	return nil
}

// Params clamps and converts the request to mannequin parameters.
func (req MannequinRequest) Params() (mannequin.Params, error) {
	params := mannequin.DefaultParams()
	params.HeightCm, params.WeightKg = mannequin.ToMetric(imperial(req.HeightFeet, req.HeightInches, req.WeightLbs))

	bodyType, err := mannequin.ParseBodyType(req.BodyType)
	if err != nil {
		return mannequin.Params{}, fmt.Errorf("parse body type: %w", err)
	}

	params.BodyType = bodyType

	if req.TopColor != "" {
		if params.TopColor, err = mannequin.ParseColor(req.TopColor); err != nil {
			return mannequin.Params{}, fmt.Errorf("parse top color: %w", err)
		}
	}

	if req.BottomColor != "" {
		if params.BottomColor, err = mannequin.ParseColor(req.BottomColor); err != nil {
			return mannequin.Params{}, fmt.Errorf("parse bottom color: %w", err)
		}
	}

	return params, nil
}

// imperial fills missing measurements with the defaults and clamps the result.
func imperial(feet, inches, pounds *float64) mannequin.Imperial {
	m := mannequin.DefaultImperial()

	if feet != nil {
		m.Feet = *feet
	}

	if inches != nil {
		m.Inches = *inches
	}

	if pounds != nil {
		m.Pounds = *pounds
	}

	return mannequin.ClampImperial(m)
}
