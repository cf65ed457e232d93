package domain

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mkrupp/vcloset/internal/util/encoding"
)

var (
	// ErrNoPhotoID is returned when a photo ID is required but not provided.
	ErrNoPhotoID = errors.New("no photo ID")
	// ErrPhotoTooLarge is returned when an upload exceeds the configured size limit.
	ErrPhotoTooLarge = errors.New("photo too large")
	// ErrPhotoTypeNotSupported is returned for file extensions that are not accepted.
	ErrPhotoTypeNotSupported = errors.New("photo type not supported")
	// ErrPhotoTypeMismatch is returned when the content does not match the file extension.
	ErrPhotoTypeMismatch = errors.New("photo ext does not match content type")
)

// PhotoID identifies a stored garment photo. Photos live in blob storage, so the
// ID doubles as a blob ID.
type PhotoID = BlobID

// PhotoMeta describes a stored garment photo.
type PhotoMeta struct {
	ID       PhotoID `json:"id"`
	Filename string  `json:"filename"`
	Hash     string  `json:"hash"`
	Size     int64   `json:"size"`
	Owner    int64   `json:"owner"`
	MIMEType string  `json:"mimeType"`
}

// Photo is an uploaded garment photograph together with its metadata.
type Photo struct {
	data []byte
	meta PhotoMeta
}

// NewPhoto creates a photo and derives its hash and ID from the content and metadata.
func NewPhoto(data []byte, meta PhotoMeta) Photo {
	photo := Photo{data: data, meta: meta}
	photo.meta.update(data)

	return photo
}

// LoadPhoto wraps stored data and metadata. Unlike NewPhoto it keeps the stored ID
// and hash.
func LoadPhoto(data []byte, meta PhotoMeta) Photo {
	return Photo{data: data, meta: meta}
}

// NewPhotoMetaFromBlob decodes metadata previously stored with PhotoMeta.AsBlob.
func NewPhotoMetaFromBlob(blob *Blob) (PhotoMeta, error) {
	var meta PhotoMeta
	if err := json.Unmarshal(blob.Bytes(), &meta); err != nil {
		return PhotoMeta{}, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return meta, nil
}

// ID returns the photo's unique identifier.
func (p Photo) ID() PhotoID {
	return p.meta.ID
}

// Meta returns the photo's metadata.
func (p Photo) Meta() PhotoMeta {
	return p.meta
}

// MIMEType returns the photo's MIME type.
func (p Photo) MIMEType() string {
	return p.meta.MIMEType
}

// Owner returns the ID of the user who uploaded the photo.
func (p Photo) Owner() int64 {
	return p.meta.Owner
}

// Bytes returns the photo's content.
func (p Photo) Bytes() []byte {
	return p.data
}

// Size returns the size of the photo's content in bytes.
func (p Photo) Size() int64 {
	return int64(len(p.data))
}

// AsBlob converts the photo to a blob keyed by the photo ID.
func (p Photo) AsBlob() *Blob {
	return NewBlob(p.meta.ID, p.data).WithContentType(p.meta.MIMEType)
}

// WithData returns a copy of the photo carrying different content, such as a
// resized rendition. The ID is kept.
func (p Photo) WithData(data []byte, mimeType string) Photo {
	p.data = data
	p.meta.MIMEType = mimeType
	p.meta.Size = int64(len(data))

	return p
}

// WriteTo writes the photo's content to the given writer.
func (p Photo) WriteTo(writer io.Writer) (int64, error) {
	n, err := writer.Write(p.data)
	if err != nil {
		return int64(n), fmt.Errorf("write: %w", err)
	}

	return int64(n), nil
}

// AsBlob encodes the metadata as a JSON blob keyed by the photo ID.
func (meta PhotoMeta) AsBlob() (*Blob, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return NewBlob(meta.ID, data).WithContentType("application/json"), nil
}

// update recalculates the content hash and the ID. The ID covers the owner, so two
// users uploading the same picture get separate photos.
func (meta *PhotoMeta) update(data []byte) {
	hasher := sha256.New()
	hasher.Write(data)
	meta.Hash = encoding.EncodeCrockfordB32LC(hasher.Sum(nil))
	meta.Size = int64(len(data))

	hasher.Reset()
	hasher.Write([]byte(meta.Hash))
	hasher.Write([]byte(meta.Filename))
	hasher.Write([]byte(meta.MIMEType))
	hasher.Write([]byte(strconv.FormatInt(meta.Owner, 10)))
	meta.ID = PhotoID(encoding.EncodeCrockfordB32LC(hasher.Sum(nil)))
}
