package http

import (
	"net/http"
	"strings"

	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	"github.com/mkrupp/vcloset/internal/svc/authsvc/authclient"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

// AuthorizingMiddleware rejects requests without a valid bearer token with
// 401 Unauthorized. On success the token's subject is stored in the request context.
func AuthorizingMiddleware(
	next http.Handler,
	authClient authclient.AuthClient,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			log.WarnContext(r.Context(), "no token provided")
			WriteError(w, http.StatusUnauthorized, "Authentication required.")

			return
		}

		subject, ok, err := authClient.Validate(r.Context(), token)
		if err != nil {
			log.ErrorContext(r.Context(), "validate token failed", "error", err)
			WriteError(w, http.StatusUnauthorized, "Invalid token.")

			return
		} else if !ok {
			log.WarnContext(r.Context(), "invalid token")
			WriteError(w, http.StatusUnauthorized, "Invalid token.")

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithSubject(r.Context(), subject)))
	})
}

// Authorizing adapts AuthorizingMiddleware to the Middleware signature.
func Authorizing(authClient authclient.AuthClient, log logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return AuthorizingMiddleware(next, authClient, log)
	}
}
