package photosvc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mkrupp/vcloset/internal/domain"
	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	"github.com/mkrupp/vcloset/internal/repo/blob"
)

// BlobPhotoService implements PhotoService using blob storage.
// It keeps photo data, metadata and resized renditions in separate repositories.
// Photo IDs are content addressed and cover the owner, so stored blobs never change.
type BlobPhotoService struct {
	dataRepo  blob.Repository
	metaRepo  blob.Repository
	cacheRepo blob.Repository
	baseURL   string
	cfg       PhotoConfig
	log       logging.Logger
}

var _ PhotoService = (*BlobPhotoService)(nil)

// NewBlobPhotoService creates a new BlobPhotoService with the given configuration.
// It initializes three blob repositories:
// - data: for storing the uploaded photos
// - meta: for storing photo metadata
// - cache: for storing resized renditions
// baseURL is the public URL of the media route, photo URLs are "<baseURL>/<id>" unless
// the data repository exposes its own.
func NewBlobPhotoService(
	ctx context.Context,
	repoFactory blob.RepositoryFactory,
	baseURL string,
	cfg PhotoConfig,
) (*BlobPhotoService, error) {
	if _, err := getInterpolatorByName(cfg.Interpolator); err != nil {
		return nil, err
	}

	dataRepo, err := repoFactory(ctx, "data", "bin")
	if err != nil {
		return nil, fmt.Errorf("new data repository: %w", err)
	}

	metaRepo, err := repoFactory(ctx, "meta", "json")
	if err != nil {
		return nil, fmt.Errorf("new meta repository: %w", err)
	}

	cacheRepo, err := repoFactory(ctx, "cache", "bin")
	if err != nil {
		return nil, fmt.Errorf("new cache repository: %w", err)
	}

	return &BlobPhotoService{
		dataRepo:  dataRepo,
		metaRepo:  metaRepo,
		cacheRepo: cacheRepo,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cfg:       cfg,
		log:       logging.GetLogger("svc.photosvc.blob_photo_service"),
	}, nil
}

// MaxSize implements PhotoService.MaxSize.
func (photoSvc *BlobPhotoService) MaxSize() int64 {
	return photoSvc.cfg.MaxSize
}

// URL implements PhotoService.URL.
func (photoSvc *BlobPhotoService) URL(photoID domain.PhotoID) string {
	if u, ok := photoSvc.dataRepo.URL(photoID); ok {
		return u
	}

	return photoSvc.baseURL + "/" + photoID.String()
}

// CheckUploadConstraints implements PhotoService.CheckUploadConstraints.
func (photoSvc *BlobPhotoService) CheckUploadConstraints(filename string, size int64, data []byte) (string, error) {
	if size > photoSvc.MaxSize() {
		return "", fmt.Errorf("%w: %d exceeds %d", domain.ErrPhotoTooLarge, size, photoSvc.MaxSize())
	}

	ext := strings.ToLower(filepath.Ext(filename))

	mimeType, ok := MIMETypeForExt(ext)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrPhotoTypeNotSupported, ext)
	}

	if data == nil || photoMagic[mimeType](data) {
		return mimeType, nil
	}

	return "", fmt.Errorf("%w: %q", domain.ErrPhotoTypeMismatch, ext)
}

// Store implements PhotoService.Store.
func (photoSvc *BlobPhotoService) Store(ctx context.Context, photo domain.Photo) (err error) {
	log := photoSvc.log.With(logging.Group("photo",
		"id", photo.ID(),
		"size", photo.Size(),
		"type", photo.MIMEType(),
	))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "photo store failed", "error", err)
		} else {
			log.DebugContext(ctx, "photo stored")
		}
	}()

	mimeType, err := photoSvc.CheckUploadConstraints(photo.Meta().Filename, photo.Size(), photo.Bytes())
	if err != nil {
		return fmt.Errorf("check upload constraints: %w", err)
	} else if mimeType != photo.MIMEType() {
		return fmt.Errorf("%w: %q is not %q", domain.ErrPhotoTypeMismatch, photo.MIMEType(), mimeType)
	}

	metaBlob, err := photo.Meta().AsBlob()
	if err != nil {
		return fmt.Errorf("convert meta to blob: %w", err)
	}

	if photoSvc.metaRepo.Exists(ctx, metaBlob.ID) {
		return nil
	}

	if err := photoSvc.dataRepo.Store(ctx, photo.AsBlob()); err != nil {
		return fmt.Errorf("store data: %w", err)
	}

	// Metadata goes last, a photo without it is not visible to Fetch.
	if err := photoSvc.metaRepo.Store(ctx, metaBlob); err != nil {
		_ = photoSvc.dataRepo.Delete(ctx, photo.ID())

		return fmt.Errorf("store meta: %w", err)
	}

	return nil
}

// Fetch implements PhotoService.Fetch with support for resizing. Renditions are
// cached under "<id>_<width>".
func (photoSvc *BlobPhotoService) Fetch(
	ctx context.Context,
	photoID domain.PhotoID,
	width int,
) (photo domain.Photo, err error) {
	log := photoSvc.log.With(logging.Group("photo", "id", photoID, "width", width))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "photo fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "photo fetched")
		}
	}()

	if width < 0 || width > photoSvc.cfg.MaxWidth {
		return domain.Photo{}, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}

	meta, err := photoSvc.fetchMeta(ctx, photoID)
	if err != nil {
		return domain.Photo{}, err
	}

	if width > 0 {
		cacheID := photoID.Derived(strconv.Itoa(width))

		if cached, err := photoSvc.cacheRepo.Fetch(ctx, cacheID); err == nil {
			log = log.With(logging.Group("photo", "cached", true))

			return domain.LoadPhoto(nil, meta).WithData(cached.Bytes(), encodedType(meta.MIMEType)), nil
		} else if !errors.Is(err, domain.ErrBlobNotFound) {
			return domain.Photo{}, fmt.Errorf("fetch cache: %w", err)
		}
	}

	dataBlob, err := photoSvc.dataRepo.Fetch(ctx, photoID)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("fetch data: %w", err)
	}

	original := domain.LoadPhoto(dataBlob.Bytes(), meta)
	if width == 0 {
		return original, nil
	}

	resized, mimeType, err := photoSvc.resizeImage(ctx, original.Bytes(), meta.MIMEType, width)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("resize image: %w", err)
	}

	cacheBlob := domain.NewBlob(photoID.Derived(strconv.Itoa(width)), resized).WithContentType(mimeType)
	if err := photoSvc.cacheRepo.Store(ctx, cacheBlob); err != nil {
		log.WarnContext(ctx, "photo cache store failed", "error", err)
	}

	return original.WithData(resized, mimeType), nil
}

// Delete implements PhotoService.Delete.
func (photoSvc *BlobPhotoService) Delete(ctx context.Context, photoID domain.PhotoID) (err error) {
	log := photoSvc.log.With(logging.Group("photo", "id", photoID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "photo delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "photo deleted")
		}
	}()

	meta, err := photoSvc.fetchMeta(ctx, photoID)
	if err != nil {
		return err
	}

	subject, ok := context_.SubjectFromContext(ctx)
	if !ok || subject.UserID != meta.Owner {
		return fmt.Errorf("%w: user %d is not owner %d", domain.ErrUnauthorized, subject.UserID, meta.Owner)
	}

	if err := photoSvc.metaRepo.Delete(ctx, photoID); err != nil {
		return fmt.Errorf("delete meta: %w", err)
	}

	if err := photoSvc.dataRepo.Delete(ctx, photoID); err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
		return fmt.Errorf("delete data: %w", err)
	}

	if err := photoSvc.cacheRepo.DeleteAll(ctx, photoID, "_*"); err != nil {
		return fmt.Errorf("delete cache: %w", err)
	}

	return nil
}

func (photoSvc *BlobPhotoService) fetchMeta(ctx context.Context, photoID domain.PhotoID) (domain.PhotoMeta, error) {
	metaBlob, err := photoSvc.metaRepo.Fetch(ctx, photoID)
	if err != nil {
		return domain.PhotoMeta{}, fmt.Errorf("fetch meta: %w", err)
	}

	meta, err := domain.NewPhotoMetaFromBlob(metaBlob)
	if err != nil {
		return domain.PhotoMeta{}, fmt.Errorf("convert meta blob: %w", err)
	}

	return meta, nil
}

func (photoSvc *BlobPhotoService) resizeImage(
	ctx context.Context,
	data []byte,
	ctype string,
	width int,
) (resized []byte, mimeType string, err error) {
	log := photoSvc.log.With(logging.Group("image",
		"type", ctype,
		logging.Group("target", "width", width),
	))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "image resize failed", "error", err)
		} else {
			log.DebugContext(ctx, "image resized", "size", len(resized))
		}
	}()

	return resizeImage(data, ctype, width, photoSvc.cfg.Interpolator)
}
