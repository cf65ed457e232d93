package domain

import "strings"

// BlobID identifies a blob within a repository. Photo blobs use a Crockford
// base32 content hash, derived blobs append a suffix such as "_320".
type BlobID string

// String returns the string representation of the BlobID.
func (id BlobID) String() string {
	return string(id)
}

// Derived returns the ID of a blob derived from this one, e.g. a resized copy.
func (id BlobID) Derived(suffix string) BlobID {
	return BlobID(string(id) + "_" + strings.TrimPrefix(suffix, "_"))
}
