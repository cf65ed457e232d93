package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/vcloset/internal/domain"
)

// ErrUnknownDriver is returned for an unsupported USER_DRIVER setting.
var ErrUnknownDriver = errors.New("unknown user repository driver")

// Repository defines the interface for user persistence.
type Repository interface {
	// CreateUser inserts a new user unless the email is taken. A taken email yields
	// domain.ErrUserAlreadyExists and leaves the stored users untouched.
	CreateUser(ctx context.Context, name, email string, passwordHash []byte) (*domain.User, error)

	// GetUserByEmail returns the user with the given email and true. A missing
	// user yields false and a nil error.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// RepositoryConfig selects and configures the user storage backend.
type RepositoryConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `env:"DRIVER" default:"sqlite"`

	SQLite   SQLiteUserRepositoryConfig   `envPrefix:"SQLITE_"`
	Postgres PostgresUserRepositoryConfig `envPrefix:"POSTGRES_"`
}

// NewRepositoryFactory returns the factory for the configured driver.
func NewRepositoryFactory(cfg RepositoryConfig) (RepositoryFactory, error) {
	switch cfg.Driver {
	case "sqlite":
		return SQLiteUserRepositoryFactory(cfg.SQLite), nil
	case "postgres":
		return PostgresUserRepositoryFactory(cfg.Postgres), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
