package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/vcloset/internal/domain"
)

// ErrUnknownDriver is returned for an unsupported BLOB_DRIVER setting.
var ErrUnknownDriver = errors.New("unknown blob repository driver")

// Repository defines the interface for blob storage operations.
type Repository interface {
	// Exists checks if a blob with the given ID exists.
	Exists(ctx context.Context, id domain.BlobID) bool

	// Store persists a blob in the repository, replacing any previous content.
	Store(ctx context.Context, blob *domain.Blob) error

	// Fetch retrieves a blob by its ID.
	// Returns domain.ErrBlobNotFound if there is no such blob.
	Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error)

	// Delete removes a blob with the given ID.
	// Returns an error if the blob doesn't exist or if deletion fails.
	Delete(ctx context.Context, id domain.BlobID) error

	// DeleteAll removes all blobs whose ID is id followed by something matching
	// pattern, e.g. DeleteAll(ctx, id, "_*") removes every derived blob.
	DeleteAll(ctx context.Context, id domain.BlobID, pattern string) error

	// URL returns a URL clients can fetch the blob from directly, if the store
	// exposes one.
	URL(id domain.BlobID) (string, bool)
}

// RepositoryFactory is a function that creates a new Repository instance.
// Parameters:
// - name: namespace for the repository (subdirectory or key prefix)
// - ext: file extension for stored blobs
// Returns an error if initialization fails.
type RepositoryFactory func(
	ctx context.Context,
	name string,
	ext string,
) (Repository, error)

// RepositoryConfig selects and configures the blob storage backend.
type RepositoryConfig struct {
	// Driver is "filesystem" or "s3"
	Driver string `env:"DRIVER" default:"filesystem"`

	FileSystem FileSystemBlobRepositoryConfig `envPrefix:"FS_"`
	S3         S3BlobRepositoryConfig         `envPrefix:"S3_"`
}

// NewRepositoryFactory returns the factory for the configured driver.
func NewRepositoryFactory(cfg RepositoryConfig) (RepositoryFactory, error) {
	switch cfg.Driver {
	case "filesystem", "fs":
		return FileSystemBlobRepositoryFactory(cfg.FileSystem), nil
	case "s3":
		return S3BlobRepositoryFactory(cfg.S3), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
