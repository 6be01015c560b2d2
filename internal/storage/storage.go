package storage

import (
	"context"
	"io"
)

// Storage defines the interface for object storage operations.
//
// Operations may fail transiently (network) or permanently (not-found,
// permission). The caller does not retry; a single failure is terminal for
// the event being processed.
type Storage interface {
	// Download opens the object at the given key for reading.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Upload stores a file and returns the result with key and public URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes the object at the given key.
	Delete(ctx context.Context, key string) error

	// SetMetadata merges the given custom metadata into the object's
	// existing metadata.
	SetMetadata(ctx context.Context, key string, metadata map[string]string) error

	// Move relocates an object to a new key within the same bucket.
	Move(ctx context.Context, key, newKey string) error
}

// UploadInput holds the parameters for uploading an object.
type UploadInput struct {
	Key          string
	ContentType  string
	CacheControl string
	Metadata     map[string]string
	Data         io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}
