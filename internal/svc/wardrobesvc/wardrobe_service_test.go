package wardrobesvc_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/vcloset/internal/domain"
	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/repo/blob"
	"github.com/mkrupp/vcloset/internal/repo/wardrobe"
	"github.com/mkrupp/vcloset/internal/svc/photosvc"

	. "github.com/mkrupp/vcloset/internal/svc/wardrobesvc"
)

func setupTestService(t *testing.T) *WardrobeService {
	t.Helper()

	ctx := context.Background()
	dir := t.TempDir()

	photoSvc, err := photosvc.NewBlobPhotoService(ctx,
		blob.FileSystemBlobRepositoryFactory(blob.FileSystemBlobRepositoryConfig{Basedir: filepath.Join(dir, "blob")}),
		"http://localhost:8081/media",
		photosvc.PhotoConfig{MaxSize: 1 << 20, MaxWidth: 2048, Interpolator: "bilinear"},
	)
	require.NoError(t, err)

	svc, err := NewWardrobeService(ctx,
		wardrobe.SQLiteWardrobeRepositoryFactory(wardrobe.SQLiteWardrobeRepositoryConfig{
			DatabasePath: filepath.Join(dir, "wardrobe.db"),
		}),
		photoSvc,
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = svc.Close() })

	return svc
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	return buf.Bytes()
}

func asUser(userID int64) context.Context {
	return context_.WithSubject(context.Background(), domain.Subject{UserID: userID, Email: "user@example.com"})
}

func TestWardrobeService_AddItem(t *testing.T) {
	t.Parallel()

	svc := setupTestService(t)

	item, err := svc.AddItem(asUser(1), ItemInput{
		Name:     "Linen shirt",
		Type:     "top",
		Color:    "white",
		Tags:     "summer,casual",
		Favorite: true,
	}, Upload{Filename: "shirt.png", Data: testPNG(t)})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, int64(1), item.OwnerID)
	assert.Equal(t, domain.SeasonAll, item.Season)
	assert.True(t, item.IsFavorite)
	assert.Equal(t, "http://localhost:8081/media/"+item.PhotoID.String(), item.ImageURL)
	assert.WithinDuration(t, time.Now(), item.CreatedAt, time.Minute)

	got, err := svc.GetItem(asUser(1), item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, item.ImageURL, got.ImageURL)
}

func TestWardrobeService_AddItem_Errors(t *testing.T) {
	t.Parallel()

	svc := setupTestService(t)

	tests := []struct {
		name    string
		ctx     context.Context //nolint:containedctx
		input   ItemInput
		upload  Upload
		wantErr error
	}{
		{
			name:    "anonymous",
			ctx:     context.Background(),
			upload:  Upload{Filename: "shirt.png", Data: testPNG(t)},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "bad season",
			ctx:     asUser(1),
			input:   ItemInput{Season: "monsoon"},
			upload:  Upload{Filename: "shirt.png", Data: testPNG(t)},
			wantErr: domain.ErrInvalidSeason,
		},
		{
			name:    "not an image",
			ctx:     asUser(1),
			upload:  Upload{Filename: "shirt.png", Data: []byte("hello")},
			wantErr: domain.ErrPhotoTypeMismatch,
		},
		{
			name:    "unsupported type",
			ctx:     asUser(1),
			upload:  Upload{Filename: "shirt.bmp", Data: []byte("BM")},
			wantErr: domain.ErrPhotoTypeNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.AddItem(tt.ctx, tt.input, tt.upload)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWardrobeService_ListItems(t *testing.T) {
	t.Parallel()

	svc := setupTestService(t)

	first, err := svc.AddItem(asUser(1), ItemInput{Name: "first", Season: "winter"}, Upload{Filename: "a.png", Data: testPNG(t)})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	second, err := svc.AddItem(asUser(1), ItemInput{Name: "second"}, Upload{Filename: "a.png", Data: testPNG(t)})
	require.NoError(t, err)

	_, err = svc.AddItem(asUser(2), ItemInput{Name: "someone else's"}, Upload{Filename: "b.png", Data: testPNG(t)})
	require.NoError(t, err)

	items, err := svc.ListItems(asUser(1))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
	assert.Equal(t, domain.SeasonWinter, items[1].Season)
	assert.Equal(t, first.PhotoID, second.PhotoID, "same picture, same owner, same photo")

	_, err = svc.GetItem(asUser(2), first.ID)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = svc.ListItems(context.Background())
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
