package http

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig limits requests per client IP and endpoint.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per Window, 0 disables the limit
	Requests int           `env:"REQUESTS" default:"20"`
	Window   time.Duration `env:"WINDOW" default:"1m"`
}

// RateLimitMiddleware rejects clients exceeding cfg with 429 Too Many Requests.
func RateLimitMiddleware(cfg RateLimitConfig) Middleware {
	if cfg.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, http.StatusTooManyRequests, "Too many requests.")
		}),
	)
}
