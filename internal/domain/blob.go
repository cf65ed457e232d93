package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrBlobNotFound is returned when a blob does not exist in a repository.
var ErrBlobNotFound = errors.New("blob not found")

// Blob is an opaque binary object addressed by ID.
type Blob struct {
	ID          BlobID
	Body        []byte
	ContentType string
}

// NewBlob creates a new Blob with the given ID and content.
func NewBlob(id BlobID, body []byte) *Blob {
	return &Blob{
		ID:   id,
		Body: body,
	}
}

// WithContentType sets the MIME type stores should record for the blob.
func (blob *Blob) WithContentType(contentType string) *Blob {
	blob.ContentType = contentType

	return blob
}

// Size returns the size of the blob's content in bytes.
func (blob *Blob) Size() int64 {
	return int64(len(blob.Body))
}

// Reader returns a reader over the blob's content.
func (blob *Blob) Reader() io.ReadSeeker {
	return bytes.NewReader(blob.Body)
}

// Bytes returns the blob's content as a byte slice.
func (blob *Blob) Bytes() []byte {
	return blob.Body
}

// WriteTo implements io.WriterTo.
func (blob *Blob) WriteTo(writer io.Writer) (int64, error) {
	n, err := writer.Write(blob.Body)
	if err != nil {
		return int64(n), fmt.Errorf("write: %w", err)
	}

	return int64(n), nil
}

// ReadFrom implements io.ReaderFrom, replacing the blob's content.
func (blob *Blob) ReadFrom(reader io.Reader) (int64, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return 0, fmt.Errorf("read all: %w", err)
	}

	blob.Body = body

	return int64(len(body)), nil
}
