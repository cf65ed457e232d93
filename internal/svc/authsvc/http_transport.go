package authsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	http_ "github.com/mkrupp/vcloset/internal/infra/transport/http"
	"github.com/mkrupp/vcloset/internal/util/validation"
)

const (
	msgCredentialsRequired = "Email and password are required."
	msgUserExists          = "User already exists."
	msgUserNotFound        = "User not found."
	msgInvalidPassword     = "Invalid password."
	msgInvalidBody         = "Invalid request body."
	msgInvalidToken        = "Invalid token."
)

// maxBodyBytes bounds register and login request bodies.
const maxBodyBytes = 64 << 10

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// RateLimit applies to register and login per client IP
	RateLimit http_.RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// CredentialsRequest is the JSON body of register and login requests.
type CredentialsRequest struct {
	Name     string `json:"name"     validate:"max=200"`
	Email    string `json:"email"    validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// HTTPTransport handles HTTP requests for the authentication service.
// It provides endpoints for user registration, login, and token validation.
type HTTPTransport struct {
	authSvc   *AuthService
	validator *validation.Validator
	router    chi.Router
	log       logging.Logger
	cfg       HTTPTransportConfig
}

var (
	_ http_.HTTPTransport = (*HTTPTransport)(nil)
	_ http_.Routable      = (*HTTPTransport)(nil)
)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// It requires an AuthService for handling authentication operations.
func NewHTTPTransport(
	authSvc *AuthService,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc:   authSvc,
		validator: validation.New(),
		log:       logging.GetLogger("svc.authsvc.http_transport"),
		cfg:       cfg,
	}

	ht.router = http_.NewRouter(ht)

	return ht
}

// Routes registers the auth service endpoints:
// - POST /api/auth/register: Register a new user
// - POST /api/auth/login: Login and get an auth token
// - POST /api/auth/validate: Validate an auth token.
func (ht *HTTPTransport) Routes(router chi.Router) {
	router.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(http_.RateLimitMiddleware(ht.cfg.RateLimit))
			r.Post("/register", ht.HandleRegister)
			r.Post("/login", ht.HandleLogin)
		})

		r.Post("/validate", ht.HandleValidate)
		r.Get("/validate", ht.HandleValidate)
	})
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

// HandleRegister processes user registration requests.
// Expects a JSON body: {name, email, password}.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	req, err := ht.decodeCredentials(w, r)
	if err != nil {
		return err
	}

	resp, err := ht.authSvc.RegisterUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			http_.WriteError(w, http.StatusConflict, msgUserExists)
		} else {
			http_.WriteError(w, http.StatusInternalServerError, "")
		}

		return fmt.Errorf("register user: %w", err)
	}

	return http_.WriteJSON(w, http.StatusCreated, resp)
}

// HandleLogin processes user login requests.
// Expects a JSON body: {email, password}.
// Returns the user and an auth token on successful login.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	req, err := ht.decodeCredentials(w, r)
	if err != nil {
		return err
	}

	resp, err := ht.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			http_.WriteError(w, http.StatusBadRequest, msgUserNotFound)
		case errors.Is(err, domain.ErrInvalidCredentials):
			http_.WriteError(w, http.StatusBadRequest, msgInvalidPassword)
		default:
			http_.WriteError(w, http.StatusInternalServerError, "")
		}

		return fmt.Errorf("login user: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, resp)
}

// HandleValidate processes token validation requests.
// Expects the token in the Authorization header with Bearer scheme.
// Returns the token's subject {sub, email} if valid.
func (ht *HTTPTransport) HandleValidate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleValidate(w, r)
}

func (ht *HTTPTransport) handleValidate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.DebugContext(ctx, "user token validation failed", "error", err)
		} else {
			log.DebugContext(ctx, "user token validated")
		}
	}(r.Context())

	tokenString, ok := http_.BearerToken(r)
	if !ok {
		http_.WriteError(w, http.StatusUnauthorized, "Authentication required.")

		return domain.ErrNoAuthToken
	}

	subject, err := ht.authSvc.ValidateToken(r.Context(), tokenString)
	if err != nil {
		http_.WriteError(w, http.StatusUnauthorized, msgInvalidToken)

		return fmt.Errorf("validate token: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, subject)
}

func (ht *HTTPTransport) decodeCredentials(w http.ResponseWriter, r *http.Request) (*CredentialsRequest, error) {
	var req CredentialsRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http_.WriteError(w, http.StatusBadRequest, msgInvalidBody)

		return nil, fmt.Errorf("decode body: %w", err)
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		http_.WriteError(w, http.StatusBadRequest, msgCredentialsRequired)

		return nil, fmt.Errorf("decode body: %w", validation.ErrValidation)
	}

	if err := ht.validator.Validate(req); err != nil {
		http_.WriteError(w, http.StatusBadRequest, err.Error())

		return nil, err
	}

	return &req, nil
}
