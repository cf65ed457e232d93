// Package wardrobesvc manages the clothing items of a user's closet.
package wardrobesvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/vcloset/internal/domain"
	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	"github.com/mkrupp/vcloset/internal/repo/wardrobe"
	"github.com/mkrupp/vcloset/internal/svc/photosvc"
)

// ErrUploadFailed is returned when the photo of a new item could not be stored.
var ErrUploadFailed = errors.New("upload failed")

// ItemInput holds the descriptive fields of a new clothing item.
type ItemInput struct {
	Name     string `json:"itemName" validate:"max=200"`
	Type     string `json:"type"     validate:"max=100"`
	Color    string `json:"color"    validate:"max=100"`
	Season   string `json:"season"   validate:"max=20"`
	Tags     string `json:"tags"     validate:"max=1000"`
	Favorite bool   `json:"favorite"`
}

// Upload is the photo file of a new clothing item.
type Upload struct {
	Filename string
	Data     []byte
}

// WardrobeService adds and lists clothing items. Every operation acts on behalf of the
// subject stored in the context.
type WardrobeService struct {
	repo     wardrobe.Repository
	photoSvc photosvc.PhotoService
	now      func() time.Time
	log      logging.Logger
}

// NewWardrobeService creates a new WardrobeService.
func NewWardrobeService(
	ctx context.Context,
	repoFactory wardrobe.RepositoryFactory,
	photoSvc photosvc.PhotoService,
) (*WardrobeService, error) {
	repo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new wardrobe repository: %w", err)
	}

	return &WardrobeService{
		repo:     repo,
		photoSvc: photoSvc,
		now:      time.Now,
		log:      logging.GetLogger("svc.wardrobesvc.wardrobe_service"),
	}, nil
}

// Close releases the underlying repository.
func (svc *WardrobeService) Close() error {
	if err := svc.repo.Close(); err != nil {
		return fmt.Errorf("close wardrobe repository: %w", err)
	}

	return nil
}

// AddItem stores the photo and creates an item for it. A missing season means "all".
// A photo stored before a failing insert is kept; it is content addressed and
// uploading the same picture again reuses it.
func (svc *WardrobeService) AddItem(
	ctx context.Context,
	input ItemInput,
	upload Upload,
) (item *domain.ClothingItem, err error) {
	log := svc.log.With(logging.Group("upload", "filename", upload.Filename, "size", len(upload.Data)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "add item failed", "error", err)
		} else {
			log.DebugContext(ctx, "item added", logging.Group("item", "id", item.ID))
		}
	}()

	subject, ok := context_.SubjectFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	season, err := domain.ParseSeason(input.Season)
	if err != nil {
		return nil, err
	}

	mimeType, err := svc.photoSvc.CheckUploadConstraints(upload.Filename, int64(len(upload.Data)), upload.Data)
	if err != nil {
		return nil, fmt.Errorf("check upload constraints: %w", err)
	}

	photo := domain.NewPhoto(upload.Data, domain.PhotoMeta{ //nolint:exhaustruct
		Filename: upload.Filename,
		Owner:    subject.UserID,
		MIMEType: mimeType,
	})

	if err := svc.photoSvc.Store(ctx, photo); err != nil {
		return nil, fmt.Errorf("store photo: %w: %w", ErrUploadFailed, err)
	}

	item = &domain.ClothingItem{
		ID:         uuid.NewString(),
		OwnerID:    subject.UserID,
		Name:       input.Name,
		Type:       input.Type,
		Color:      input.Color,
		Season:     season,
		Tags:       input.Tags,
		PhotoID:    photo.ID(),
		ImageURL:   svc.photoSvc.URL(photo.ID()),
		IsFavorite: input.Favorite,
		CreatedAt:  svc.now().UTC().Truncate(time.Millisecond),
	}

	if err := svc.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	return item, nil
}

// ListItems returns the subject's items, newest first.
func (svc *WardrobeService) ListItems(ctx context.Context) ([]*domain.ClothingItem, error) {
	subject, ok := context_.SubjectFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	items, err := svc.repo.ListItems(ctx, subject.UserID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	for _, item := range items {
		svc.resolveImageURL(item)
	}

	return items, nil
}

// GetItem returns one of the subject's items.
func (svc *WardrobeService) GetItem(ctx context.Context, itemID string) (*domain.ClothingItem, error) {
	subject, ok := context_.SubjectFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	item, err := svc.repo.GetItem(ctx, subject.UserID, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	svc.resolveImageURL(item)

	return item, nil
}

// resolveImageURL points the item at the current photo location, which changes when
// the blob store or public URL is reconfigured.
func (svc *WardrobeService) resolveImageURL(item *domain.ClothingItem) {
	if item.PhotoID != "" {
		item.ImageURL = svc.photoSvc.URL(item.PhotoID)
	}
}
