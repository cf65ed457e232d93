// Package wardrobe persists clothing items.
package wardrobe

import (
	"context"
	"embed"
	"io/fs"

	"github.com/mkrupp/vcloset/internal/domain"
)

// Repository defines the interface for clothing item persistence.
type Repository interface {
	// CreateItem stores a new item. The item ID must be set by the caller.
	CreateItem(ctx context.Context, item *domain.ClothingItem) error

	// ListItems returns the owner's items, newest first.
	ListItems(ctx context.Context, ownerID int64) ([]*domain.ClothingItem, error)

	// GetItem returns a single item of the owner or domain.ErrItemNotFound.
	GetItem(ctx context.Context, ownerID int64, itemID string) (*domain.ClothingItem, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)

//go:embed migrations/*.sql
var migrations embed.FS

func migrationsFS() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}

	return sub
}
