package authclient

import (
	"context"

	"github.com/mkrupp/vcloset/internal/domain"
)

// AuthClient validates bearer tokens issued by the auth service.
type AuthClient interface {
	// Validate checks the token. It returns the token's subject and true if the
	// token is valid, false if it was rejected, and an error if the check itself
	// failed.
	Validate(ctx context.Context, token string) (domain.Subject, bool, error)
}
