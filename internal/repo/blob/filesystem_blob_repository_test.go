//go:build integration || all

package blob_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/logging"

	. "github.com/mkrupp/vcloset/internal/repo/blob"
)

func setupFileSystemBlobTestRepo(t *testing.T) (repo *FileSystemRepository, tempDir string) {
	t.Helper()

	logging.Configure(context.TODO(), logging.LoggerConfig{
		OutputHandle: os.Stderr,
		Level:        "debug",
	}, "test")

	tempDir = t.TempDir()

	repo, err := NewFileSystemBlobRepository(context.TODO(), "test", "bin", FileSystemBlobRepositoryConfig{
		Basedir: tempDir,
	})
	require.NoError(t, err)

	return repo, tempDir
}

func verifyFileSystemBlobContent(t *testing.T, path string, expectedContent []byte) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	if !bytes.Equal(expectedContent, content) {
		t.Errorf("content mismatch\nwant: %d bytes\ngot:  %d bytes", len(expectedContent), len(content))
	}
}

func TestFileSystemBlobRepository_Store(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)

	tests := []struct {
		name     string
		blob     *domain.Blob
		wantBody []byte
	}{
		{
			name:     "handles new blob",
			blob:     domain.NewBlob("newblob000001", []byte("original content")),
			wantBody: []byte("original content"),
		},
		{
			name:     "handles empty blob",
			blob:     domain.NewBlob("emptyblob0001", []byte("")),
			wantBody: []byte(""),
		},
		{
			name:     "handles large blob",
			blob:     domain.NewBlob("largeblob0001", make([]byte, 16*1024*1024)),
			wantBody: make([]byte, 16*1024*1024),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, repo.Store(context.TODO(), tt.blob))

			storedPath := repo.GetFilename(tt.blob.ID)
			assert.FileExists(t, storedPath)
			assert.True(t, repo.Exists(context.TODO(), tt.blob.ID))

			verifyFileSystemBlobContent(t, storedPath, tt.wantBody)
		})
	}
}

func TestFileSystemBlobRepository_StoreReplaces(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	require.NoError(t, repo.Store(ctx, domain.NewBlob("existingblob", []byte("original content"))))
	require.NoError(t, repo.Store(ctx, domain.NewBlob("existingblob", []byte("new"))))

	verifyFileSystemBlobContent(t, repo.GetFilename("existingblob"), []byte("new"))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(repo.GetFilename("existingblob")), ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileSystemBlobRepository_Fetch(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	require.NoError(t, repo.Store(ctx, domain.NewBlob("existingblob", []byte("test content"))))

	blob, err := repo.Fetch(ctx, "existingblob")
	require.NoError(t, err)
	assert.Equal(t, []byte("test content"), blob.Bytes())

	blob, err = repo.Fetch(ctx, "missingblob")
	require.ErrorIs(t, err, domain.ErrBlobNotFound)
	assert.Nil(t, blob)
}

func TestFileSystemBlobRepository_Delete(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	require.NoError(t, repo.Store(ctx, domain.NewBlob("existingblob", []byte("test content"))))
	require.NoError(t, repo.Delete(ctx, "existingblob"))
	assert.NoFileExists(t, repo.GetFilename("existingblob"))

	require.ErrorIs(t, repo.Delete(ctx, "missingblob"), domain.ErrBlobNotFound)
}

func TestFileSystemBlobRepository_DeleteAll(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)
	ctx := context.TODO()

	original := domain.BlobID("q83v0cz6d2yq")

	for _, id := range []domain.BlobID{original, original.Derived("320"), original.Derived("640"), "q83v0cz6d2yz"} {
		require.NoError(t, repo.Store(ctx, domain.NewBlob(id, []byte(id))))
	}

	require.NoError(t, repo.DeleteAll(ctx, original, "_*"))

	assert.True(t, repo.Exists(ctx, original))
	assert.True(t, repo.Exists(ctx, "q83v0cz6d2yz"))
	assert.False(t, repo.Exists(ctx, original.Derived("320")))
	assert.False(t, repo.Exists(ctx, original.Derived("640")))

	require.NoError(t, repo.DeleteAll(ctx, "nothingstored", "_*"))
}

func TestFileSystemBlobRepository_URL(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)

	_, ok := repo.URL("existingblob")
	assert.False(t, ok)
}
