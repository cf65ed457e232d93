package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/database"
	"github.com/mkrupp/vcloset/internal/infra/logging"
)

// SQLiteUserRepositoryConfig holds configuration for the SQLite user repository.
type SQLiteUserRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/users.db"`
}

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
type SQLiteUserRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory creates a RepositoryFactory for SQLite.
func SQLiteUserRepositoryFactory(cfg SQLiteUserRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteUserRepository(ctx, cfg)
	}
}

// NewSQLiteUserRepository opens the database and migrates the schema.
func NewSQLiteUserRepository(ctx context.Context, cfg SQLiteUserRepositoryConfig) (*SQLiteUserRepository, error) {
	log := logging.GetLogger("repo.user.sqlite_user_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := database.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := database.Migrate(ctx, db, goose.DialectSQLite3, migrationsFS("sqlite")); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteUserRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

// CreateUser implements Repository.CreateUser.
func (r *SQLiteUserRepository) CreateUser(
	ctx context.Context,
	name, email string,
	passwordHash []byte,
) (_ *domain.User, err error) {
	defer func() {
		if err != nil && !errors.Is(err, domain.ErrUserAlreadyExists) {
			r.log.ErrorContext(ctx, "insert user failed", "error", err)
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	var (
		user      = domain.User{PasswordHash: passwordHash}
		createdAt int64
	)

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, name, email, created_at`,
		name, email, passwordHash, time.Now().Unix(),
	).Scan(&user.ID, &user.Name, &user.Email, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("insert user: %w", domain.ErrUserAlreadyExists)
		}

		return nil, fmt.Errorf("insert user: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &user, nil
}

// GetUserByEmail implements Repository.GetUserByEmail.
func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	var (
		user      domain.User
		createdAt int64
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?",
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("query user: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &user, true, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteUserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
