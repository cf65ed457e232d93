package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/logging"
)

var (
	ErrBytesWrittenMismatch = errors.New("bytes written mismatch")
	ErrBytesReadMismatch    = errors.New("bytes read mismatch")
)

const (
	dirPrefixLength = 2 // 32^2 = 1024 directories
	dirPrefixDepth  = 3 // 1024^3 = 1,073,741,824 directories
	idMinLength     = dirPrefixDepth * dirPrefixLength
)

// FileSystemBlobRepositoryConfig holds configuration for the filesystem-based blob repository.
type FileSystemBlobRepositoryConfig struct {
	// Basedir is the root directory for blob storage
	Basedir string `env:"BASEDIR" default:"var/storage/blob"`
}

// FileSystemBlobRepositoryFactory creates a factory function that returns a new FileSystemRepository.
// The factory function implements the RepositoryFactory type.
func FileSystemBlobRepositoryFactory(cfg FileSystemBlobRepositoryConfig) RepositoryFactory {
	return func(
		ctx context.Context,
		subdir string,
		ext string,
	) (Repository, error) {
		return NewFileSystemBlobRepository(ctx, subdir, ext, cfg)
	}
}

// NewFileSystemBlobRepository creates a new FileSystemRepository with the given parameters:
// - subdir: subdirectory name for organizing blobs
// - ext: file extension for blob files
// - cfg: repository configuration
// Returns an error if initialization fails.
func NewFileSystemBlobRepository(
	ctx context.Context,
	subdir string,
	ext string,
	cfg FileSystemBlobRepositoryConfig,
) (*FileSystemRepository, error) {
	log := logging.GetLogger("repo.blob.filesystem_repository").With(
		logging.Group("repo",
			"basedir", cfg.Basedir,
			"subdir", subdir,
			"ext", ext,
		),
	)

	repo := &FileSystemRepository{
		subdir: subdir,
		ext:    ext,
		cfg:    cfg,
		log:    log,
	}

	if err := repo.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}

	return repo, nil
}

// FileSystemRepository implements Repository using the local filesystem.
// It organizes blobs in a directory hierarchy to improve performance with large numbers of files.
// Writes go to a temporary file that is renamed into place, so readers never see a
// partially written blob.
type FileSystemRepository struct {
	subdir string
	ext    string
	cfg    FileSystemBlobRepositoryConfig
	log    logging.Logger
}

var _ Repository = (*FileSystemRepository)(nil)

func (fsRepo *FileSystemRepository) Exists(_ context.Context, id domain.BlobID) bool {
	_, err := os.Stat(fsRepo.GetFilename(id))

	return err == nil
}

func (fsRepo *FileSystemRepository) Delete(ctx context.Context, id domain.BlobID) error {
	if err := fsRepo.deleteBlob(ctx, id); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) DeleteAll(ctx context.Context, id domain.BlobID, pattern string) error {
	if err := fsRepo.deleteBlobPattern(ctx, id, pattern); err != nil {
		return fmt.Errorf("delete blob pattern: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error) {
	blob, err := fsRepo.fetchBlob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}

	return blob, nil
}

func (fsRepo *FileSystemRepository) Store(ctx context.Context, blob *domain.Blob) error {
	if err := fsRepo.storeBlob(ctx, blob); err != nil {
		return fmt.Errorf("store blob: %w", err)
	}

	return nil
}

// URL implements Repository.URL. Local files are only reachable through the service.
func (fsRepo *FileSystemRepository) URL(domain.BlobID) (string, bool) {
	return "", false
}

func (fsRepo *FileSystemRepository) initStorage(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			fsRepo.log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			fsRepo.log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(filepath.Join(fsRepo.cfg.Basedir, fsRepo.subdir), 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) getBasename(id domain.BlobID) string {
	// Pad the id with zeros to the left to make it fit the directory structure
	basename := strings.ReplaceAll(string(id), "/", "")
	basename = strings.ReplaceAll(fmt.Sprintf("%*s", idMinLength, basename), " ", "0")

	// Split the filename into dirPrefixDepth chunks of dirPrefixLength characters
	// and create a directory structure like this:
	//   q8/3v/0c/q83v0cz6d2yq0m4tx1kq3v8c5p0a2r6w9n7e1b4f3h5j8k0m2s6t.jpg
	var prefixes []string
	for i := 0; i < dirPrefixLength*dirPrefixDepth && i < len(basename)-dirPrefixLength; i += dirPrefixLength {
		prefixes = append(prefixes, basename[i:i+dirPrefixLength])
	}

	return filepath.Join(append(append([]string{fsRepo.cfg.Basedir, fsRepo.subdir}, prefixes...), basename)...)
}

func (fsRepo *FileSystemRepository) getFilenames(id domain.BlobID, pattern string) (filenames []string, err error) {
	basename := fsRepo.getBasename(id)
	pattern = fmt.Sprintf("%s%s.%s", basename, pattern, fsRepo.ext)

	err = filepath.WalkDir(filepath.Dir(basename), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if entry.IsDir() {
			return nil
		}

		if matched, err := filepath.Match(pattern, path); err != nil {
			return fmt.Errorf("match: %w", err)
		} else if matched {
			filenames = append(filenames, path)
		}

		return nil
	})

	return filenames, err
}

// GetFilename returns the full filesystem path for a blob with the given ID.
func (fsRepo *FileSystemRepository) GetFilename(id domain.BlobID) string {
	return fmt.Sprintf("%s.%s", fsRepo.getBasename(id), fsRepo.ext)
}

func (fsRepo *FileSystemRepository) storeBlob(ctx context.Context, blob *domain.Blob) (err error) {
	filename := fsRepo.GetFilename(blob.ID)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", blob.ID, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", blob.Size())
		}
	}()

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(file.Name())
		}
	}()

	bytes, err := blob.WriteTo(file)
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("write: %w", err)
	} else if bytes != blob.Size() {
		_ = file.Close()

		return fmt.Errorf("%w: expected %d, got %d", ErrBytesWrittenMismatch, blob.Size(), bytes)
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()

		return fmt.Errorf("sync: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Chmod(file.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(file.Name(), filename); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) fetchBlob(
	ctx context.Context,
	blobID domain.BlobID,
) (blob *domain.Blob, err error) {
	filename := fsRepo.GetFilename(blobID)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", blobID, "filename", filename))
		if err != nil {
			log.DebugContext(ctx, "blob fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob fetched")
		}
	}()

	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(domain.ErrBlobNotFound, err)
		}

		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	data := domain.NewBlob(blobID, nil)
	if n, err := data.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	} else if info, err := file.Stat(); err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	} else if n != info.Size() || n != data.Size() {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrBytesReadMismatch, info.Size(), n)
	}

	return data, nil
}

func (fsRepo *FileSystemRepository) deleteBlob(ctx context.Context, id domain.BlobID) (err error) {
	filename := fsRepo.GetFilename(id)

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob deleted")
		}
	}()

	if err := os.Remove(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Join(domain.ErrBlobNotFound, err)
		}

		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) deleteBlobPattern(
	ctx context.Context,
	blobID domain.BlobID,
	pattern string,
) (err error) {
	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", blobID, "pattern", pattern))
		if err != nil {
			log.ErrorContext(ctx, "blob delete pattern failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob pattern deleted")
		}
	}()

	filenames, err := fsRepo.getFilenames(blobID, pattern)
	if err != nil {
		return fmt.Errorf("get filenames: %w", err)
	}

	for _, filename := range filenames {
		if err := os.Remove(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove: %w", err)
		}
	}

	return nil
}
