package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/logging"
)

// S3 accepts at most this many keys per DeleteObjects call.
const s3DeleteBatchSize = 1000

// ErrDeleteObjects is returned when S3 reports a failure for a key in a batch delete.
var ErrDeleteObjects = errors.New("delete objects")

// S3BlobRepositoryConfig holds configuration for the S3 blob repository. Any
// S3-compatible store (MinIO, R2, ...) works when Endpoint is set.
type S3BlobRepositoryConfig struct {
	Bucket          string `env:"BUCKET" default:"vcloset"`
	Region          string `env:"REGION" default:"us-east-1"`
	Endpoint        string `env:"ENDPOINT" default:""`
	AccessKeyID     string `env:"ACCESS_KEY_ID" default:""`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY" default:""`
	UsePathStyle    bool   `env:"USE_PATH_STYLE" default:"false"`

	// Prefix is prepended to every object key
	Prefix string `env:"PREFIX" default:""`

	// PublicURL is the base URL objects are publicly readable under, e.g. a CDN
	PublicURL string `env:"PUBLIC_URL" default:""`
}

// S3API is the subset of the S3 client used by S3Repository.
type S3API interface {
	s3.ListObjectsV2APIClient

	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(
		ctx context.Context,
		in *s3.DeleteObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
	DeleteObjects(
		ctx context.Context,
		in *s3.DeleteObjectsInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectsOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// S3BlobRepositoryFactory creates a RepositoryFactory for S3.
func S3BlobRepositoryFactory(cfg S3BlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context, name string, ext string) (Repository, error) {
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}

		return NewS3BlobRepository(client, name, ext, cfg), nil
	}
}

// NewS3Client builds an S3 client from the configuration. Static credentials are
// used when both keys are set, the default AWS credential chain otherwise.
func NewS3Client(ctx context.Context, cfg S3BlobRepositoryConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}), nil
}

// S3Repository implements Repository on an S3 bucket. Keys have the form
// "<prefix><name>/<id>.<ext>".
type S3Repository struct {
	client S3API
	name   string
	ext    string
	cfg    S3BlobRepositoryConfig
	log    logging.Logger
}

var _ Repository = (*S3Repository)(nil)

// NewS3BlobRepository creates a repository storing blobs through client.
func NewS3BlobRepository(client S3API, name string, ext string, cfg S3BlobRepositoryConfig) *S3Repository {
	return &S3Repository{
		client: client,
		name:   name,
		ext:    ext,
		cfg:    cfg,
		log: logging.GetLogger("repo.blob.s3_repository").With(
			logging.Group("repo",
				"bucket", cfg.Bucket,
				"name", name,
				"ext", ext,
			),
		),
	}
}

func (r *S3Repository) keyPrefix(id domain.BlobID) string {
	return r.cfg.Prefix + path.Join(r.name, strings.ReplaceAll(string(id), "/", ""))
}

// Key returns the object key for a blob with the given ID.
func (r *S3Repository) Key(id domain.BlobID) string {
	return r.keyPrefix(id) + "." + r.ext
}

func (r *S3Repository) Exists(ctx context.Context, id domain.BlobID) bool {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(r.Key(id)),
	})

	return err == nil
}

func (r *S3Repository) Store(ctx context.Context, blob *domain.Blob) (err error) {
	key := r.Key(blob.ID)

	defer func() {
		log := r.log.With(logging.Group("blob", "id", blob.ID, "key", key))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", blob.Size())
		}
	}()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(r.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(blob.Bytes()),
		ContentLength: aws.Int64(blob.Size()),
	}

	if blob.ContentType != "" {
		input.ContentType = aws.String(blob.ContentType)
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	return nil
}

func (r *S3Repository) Fetch(ctx context.Context, id domain.BlobID) (_ *domain.Blob, err error) {
	key := r.Key(id)

	defer func() {
		if err != nil {
			r.log.DebugContext(ctx, "blob fetch failed", logging.Group("blob", "id", id, "key", key), "error", err)
		}
	}()

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Join(domain.ErrBlobNotFound, err)
		}

		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	blob := domain.NewBlob(id, nil)
	if _, err := blob.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if out.ContentType != nil {
		blob.ContentType = *out.ContentType
	}

	return blob, nil
}

// Delete implements Repository.Delete. S3 deletes are idempotent, so the object
// is checked first to report missing blobs like the filesystem store does.
func (r *S3Repository) Delete(ctx context.Context, id domain.BlobID) error {
	key := r.Key(id)

	if !r.Exists(ctx, id) {
		return fmt.Errorf("delete %s: %w", key, domain.ErrBlobNotFound)
	}

	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	r.log.DebugContext(ctx, "blob deleted", logging.Group("blob", "id", id, "key", key))

	return nil
}

func (r *S3Repository) DeleteAll(ctx context.Context, id domain.BlobID, pattern string) (err error) {
	prefix := r.keyPrefix(id)
	match := prefix + pattern + "." + r.ext

	defer func() {
		log := r.log.With(logging.Group("blob", "id", id, "pattern", pattern))
		if err != nil {
			log.ErrorContext(ctx, "blob delete pattern failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob pattern deleted")
		}
	}()

	var keys []types.ObjectIdentifier

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.cfg.Bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}

		for _, object := range page.Contents {
			key := aws.ToString(object.Key)

			if matched, err := path.Match(match, key); err != nil {
				return fmt.Errorf("match: %w", err)
			} else if matched {
				keys = append(keys, types.ObjectIdentifier{Key: aws.String(key)})
			}
		}
	}

	for start := 0; start < len(keys); start += s3DeleteBatchSize {
		batch := keys[start:min(start+s3DeleteBatchSize, len(keys))]

		out, err := r.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(r.cfg.Bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}

		if len(out.Errors) > 0 {
			return fmt.Errorf("%w: %s: %s",
				ErrDeleteObjects, aws.ToString(out.Errors[0].Key), aws.ToString(out.Errors[0].Message))
		}
	}

	return nil
}

// URL implements Repository.URL. Objects have a public URL only when PublicURL is set.
func (r *S3Repository) URL(id domain.BlobID) (string, bool) {
	if r.cfg.PublicURL == "" {
		return "", false
	}

	u, err := url.JoinPath(r.cfg.PublicURL, r.Key(id))
	if err != nil {
		return "", false
	}

	return u, true
}

func isNotFound(err error) bool {
	var (
		noSuchKey *types.NoSuchKey
		notFound  *types.NotFound
	)

	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
