package blob_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/vcloset/internal/domain"

	. "github.com/mkrupp/vcloset/internal/repo/blob"
)

type fakeObject struct {
	body        []byte
	contentType string
}

// fakeS3 is an in-memory bucket implementing S3API.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	pageSize int
}

var _ S3API = (*fakeS3)(nil)

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject), pageSize: 2}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.objects[aws.ToString(in.Key)] = fakeObject{body: body, contentType: aws.ToString(in.ContentType)}

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	object, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}

	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(object.body)),
		ContentType: aws.String(object.contentType),
	}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}

	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(
	_ context.Context,
	in *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, aws.ToString(in.Key))

	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(
	_ context.Context,
	in *s3.DeleteObjectsInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, object := range in.Delete.Objects {
		delete(f.objects, aws.ToString(object.Key))
	}

	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(
	_ context.Context,
	in *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string

	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) && key > aws.ToString(in.ContinuationToken) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}

	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}

	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}

	return out, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func TestS3Repository_StoreFetch(t *testing.T) {
	t.Parallel()

	client := newFakeS3()
	repo := NewS3BlobRepository(client, "photos", "jpg", S3BlobRepositoryConfig{Bucket: "b", Prefix: "closet/"})
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, domain.NewBlob("abc", []byte("jpeg")).WithContentType("image/jpeg")))
	assert.Equal(t, []string{"closet/photos/abc.jpg"}, client.keys())
	assert.True(t, repo.Exists(ctx, "abc"))

	blob, err := repo.Fetch(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), blob.Bytes())
	assert.Equal(t, "image/jpeg", blob.ContentType)

	_, err = repo.Fetch(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrBlobNotFound)
	assert.False(t, repo.Exists(ctx, "missing"))
}

func TestS3Repository_Delete(t *testing.T) {
	t.Parallel()

	client := newFakeS3()
	repo := NewS3BlobRepository(client, "photos", "jpg", S3BlobRepositoryConfig{Bucket: "b"})
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, domain.NewBlob("abc", []byte("jpeg"))))
	require.NoError(t, repo.Delete(ctx, "abc"))
	assert.Empty(t, client.keys())

	require.ErrorIs(t, repo.Delete(ctx, "abc"), domain.ErrBlobNotFound)
}

func TestS3Repository_DeleteAll(t *testing.T) {
	t.Parallel()

	client := newFakeS3()
	repo := NewS3BlobRepository(client, "photos", "jpg", S3BlobRepositoryConfig{Bucket: "b"})
	ctx := context.Background()

	original := domain.BlobID("abc")
	for _, id := range []domain.BlobID{
		original,
		original.Derived("100"),
		original.Derived("200"),
		original.Derived("300"),
		"abcd",
	} {
		require.NoError(t, repo.Store(ctx, domain.NewBlob(id, []byte(id))))
	}

	require.NoError(t, repo.DeleteAll(ctx, original, "_*"))
	assert.Equal(t, []string{"photos/abc.jpg", "photos/abcd.jpg"}, client.keys())
}

func TestS3Repository_URL(t *testing.T) {
	t.Parallel()

	repo := NewS3BlobRepository(newFakeS3(), "photos", "png", S3BlobRepositoryConfig{Bucket: "b"})
	_, ok := repo.URL("abc")
	assert.False(t, ok)

	repo = NewS3BlobRepository(newFakeS3(), "photos", "png", S3BlobRepositoryConfig{
		Bucket:    "b",
		PublicURL: "https://cdn.example.com/closet/",
	})

	u, ok := repo.URL("abc")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/closet/photos/abc.png", u)
}

func TestNewRepositoryFactory(t *testing.T) {
	t.Parallel()

	factory, err := NewRepositoryFactory(RepositoryConfig{
		Driver:     "filesystem",
		FileSystem: FileSystemBlobRepositoryConfig{Basedir: t.TempDir()},
	})
	require.NoError(t, err)

	repo, err := factory(context.Background(), "photos", "jpg")
	require.NoError(t, err)
	assert.IsType(t, &FileSystemRepository{}, repo)

	_, err = NewRepositoryFactory(RepositoryConfig{Driver: "ftp"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}
