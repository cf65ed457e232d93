package authsvc

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/vcloset/internal/domain"
)

// Claims is the JWT payload of an auth token. The registered "sub" claim holds the
// decimal user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs a PS256 token for the user, valid for duration.
func IssueToken(user *domain.User, key *rsa.PrivateKey, issuer string, duration time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodPS256, Claims{
		Email: user.Email,
		//nolint:exhaustruct
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	})

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken validates an authentication token by:
// - Verifying the RSA-PSS signature with the public key
// - Checking the issuer and the expiration
// - Parsing the subject back into a user ID
// Returns domain.ErrInvalidAuthToken for any validation failure.
func ValidateToken(tokenString, issuer string, publicKey *rsa.PublicKey) (domain.Subject, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodPS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return domain.Subject{}, errors.Join(domain.ErrInvalidAuthToken, err)
	} else if !token.Valid {
		return domain.Subject{}, domain.ErrInvalidAuthToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.Subject{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("parse subject: %w", err))
	}

	return domain.Subject{UserID: userID, Email: claims.Email}, nil
}
