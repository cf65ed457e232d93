package authsvc

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	"github.com/mkrupp/vcloset/internal/repo/user"
)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// SigningKeyFile is the path to the RSA private key file, generated if missing
	SigningKeyFile string `env:"SIGNING_KEY_FILE" default:"var/storage/authsvc.key"`

	// TokenDuration is the validity duration of auth tokens
	TokenDuration time.Duration `env:"TOKEN_DURATION" default:"168h"` // 7d

	// Issuer is written to and required in the "iss" claim
	Issuer string `env:"ISSUER" default:"vcloset"`

	// BcryptCost is the bcrypt work factor for password hashes
	BcryptCost int `env:"BCRYPT_COST" default:"10"`
}

// AuthService provides authentication and user management functionality.
// It handles user registration, login, and token validation.
type AuthService struct {
	Config     AuthConfig
	UserRepo   user.Repository
	Log        logging.Logger
	SigningKey *rsa.PrivateKey
}

// NewAuthService creates a new AuthService with the given user repository factory and configuration.
// Returns an error if the signing key cannot be loaded or the user repository cannot be created.
func NewAuthService(ctx context.Context, repoFactory user.RepositoryFactory, cfg AuthConfig) (*AuthService, error) {
	signingKey, err := GetPrivateKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("get private key: %w", err)
	}

	userRepo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &AuthService{
		Config:     cfg,
		UserRepo:   userRepo,
		Log:        logging.GetLogger("svc.authsvc.auth_service"),
		SigningKey: signingKey,
	}, nil
}

// NormalizeEmail trims and lowercases an email address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser creates a new account and returns it together with a fresh token.
// A taken email yields domain.ErrUserAlreadyExists and stores nothing.
func (s *AuthService) RegisterUser(
	ctx context.Context,
	name, email, password string,
) (_ *domain.AuthResponse, err error) {
	email = NormalizeEmail(email)
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.UserRepo.CreateUser(ctx, strings.TrimSpace(name), email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.authResponse(created)
}

// Login authenticates a user by email and password and returns the user with a
// signed token. Unknown emails yield domain.ErrUserNotFound, wrong passwords
// domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ *domain.AuthResponse, err error) {
	email = NormalizeEmail(email)
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	found, ok, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	} else if !ok {
		return nil, domain.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword(found.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrInvalidCredentials
		}

		return nil, fmt.Errorf("compare password: %w", err)
	}

	return s.authResponse(found)
}

// ValidateToken verifies a token's signature and expiration.
// Returns the token's subject if valid, or an error wrapping domain.ErrInvalidAuthToken.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (subject domain.Subject, err error) {
	defer func() {
		if err != nil {
			s.Log.DebugContext(ctx, "validate token failed", "error", err)
		} else {
			s.Log.DebugContext(ctx, "token validated", logging.Group("token", "sub", subject.UserID))
		}
	}()

	subject, err = ValidateToken(tokenString, s.Config.Issuer, &s.SigningKey.PublicKey)
	if err != nil {
		return domain.Subject{}, fmt.Errorf("validate token: %w", err)
	}

	return subject, nil
}

// Close releases resources held by the service, such as database connections.
// Returns an error if cleanup fails.
func (s *AuthService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}

func (s *AuthService) authResponse(u *domain.User) (*domain.AuthResponse, error) {
	token, err := IssueToken(u, s.SigningKey, s.Config.Issuer, s.Config.TokenDuration)
	if err != nil {
		return nil, err
	}

	public := *u
	public.PasswordHash = nil

	return &domain.AuthResponse{User: &public, Token: token}, nil
}

func (s *AuthService) bcryptCost() int {
	if s.Config.BcryptCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}

	return s.Config.BcryptCost
}
