package http

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSConfig configures cross-origin access for the browser frontend.
type CORSConfig struct {
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" default:"http://localhost:3001"`
	AllowCredentials bool     `env:"ALLOW_CREDENTIALS" default:"true"`
	MaxAge           int      `env:"MAX_AGE" default:"300"`
}

// CORSMiddleware answers preflight requests and sets the CORS response headers for
// the configured origins.
func CORSMiddleware(cfg CORSConfig) Middleware {
	//nolint:exhaustruct
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", TraceIDHeader},
		ExposedHeaders:   []string{TraceIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
