// Package photosvc stores garment photos and serves resized renditions of them.
package photosvc

import (
	"context"
	"errors"

	"github.com/mkrupp/vcloset/internal/domain"
)

// ErrInvalidWidth is returned for a negative or too large rendition width.
var ErrInvalidWidth = errors.New("invalid width")

// PhotoService defines the interface for managing garment photos.
type PhotoService interface {
	// CheckUploadConstraints checks the size, extension and, if data is not nil, the
	// magic number of an upload. Returns the photo's MIME type.
	CheckUploadConstraints(filename string, size int64, data []byte) (string, error)

	// Store persists the given photo. Storing the same photo twice is a no-op.
	Store(ctx context.Context, photo domain.Photo) error

	// Fetch retrieves the photo with the specified ID. A width of 0 returns the
	// original, any other width a rendition of that width, maintaining aspect ratio.
	Fetch(ctx context.Context, photoID domain.PhotoID, width int) (domain.Photo, error)

	// Delete removes the photo and its renditions. Only the owner may delete a photo.
	Delete(ctx context.Context, photoID domain.PhotoID) error

	// URL returns the URL clients load the photo from.
	URL(photoID domain.PhotoID) string

	// MaxSize returns the maximum allowed file size in bytes.
	MaxSize() int64
}
