package wardrobe

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

const itemColumns = "item_id, owner_id, item_name, type, color, season, tags, photo_id, image_url, is_favorite, created_at"

// SQLiteWardrobeRepositoryConfig holds configuration for the SQLite wardrobe repository.
type SQLiteWardrobeRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/wardrobe.db"`
}

// SQLiteWardrobeRepository implements Repository on SQLite.
type SQLiteWardrobeRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex
}

var _ Repository = (*SQLiteWardrobeRepository)(nil)

// SQLiteWardrobeRepositoryFactory creates a RepositoryFactory for SQLite.
func SQLiteWardrobeRepositoryFactory(cfg SQLiteWardrobeRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteWardrobeRepository(ctx, cfg)
	}
}

// NewSQLiteWardrobeRepository opens the database and migrates the schema.
func NewSQLiteWardrobeRepository(
	ctx context.Context,
	cfg SQLiteWardrobeRepositoryConfig,
) (*SQLiteWardrobeRepository, error) {
	db, err := database.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := database.Migrate(ctx, db, goose.DialectSQLite3, migrationsFS()); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteWardrobeRepository{
		db: db,
		log: logging.GetLogger("repo.wardrobe.sqlite_wardrobe_repository").With(
			logging.Group("db", "path", cfg.DatabasePath),
		),
		writeLock: new(sync.Mutex),
	}, nil
}

// CreateItem implements Repository.CreateItem.
func (r *SQLiteWardrobeRepository) CreateItem(ctx context.Context, item *domain.ClothingItem) (err error) {
	log := r.log.With(logging.Group("item", "id", item.ID, "owner", item.OwnerID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "insert item failed", "error", err)
		} else {
			log.DebugContext(ctx, "item inserted")
		}
	}()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO clothing_items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.OwnerID, item.Name, item.Type, item.Color, string(item.Season), item.Tags,
		item.PhotoID.String(), item.ImageURL, item.IsFavorite, item.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	return nil
}

// ListItems implements Repository.ListItems.
func (r *SQLiteWardrobeRepository) ListItems(ctx context.Context, ownerID int64) ([]*domain.ClothingItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM clothing_items WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.ClothingItem, 0)

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return items, nil
}

// GetItem implements Repository.GetItem.
func (r *SQLiteWardrobeRepository) GetItem(
	ctx context.Context,
	ownerID int64,
	itemID string,
) (*domain.ClothingItem, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM clothing_items WHERE owner_id = ? AND item_id = ?",
		ownerID, itemID,
	)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Join(domain.ErrItemNotFound, err)
	}

	return item, err
}

// Close implements Repository.Close.
func (r *SQLiteWardrobeRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*domain.ClothingItem, error) {
	var (
		item      domain.ClothingItem
		season    string
		photoID   string
		createdAt int64
	)

	err := row.Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Type, &item.Color, &season, &item.Tags,
		&photoID, &item.ImageURL, &item.IsFavorite, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}

	item.Season = domain.Season(season)
	item.PhotoID = domain.PhotoID(photoID)
	item.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &item, nil
}
