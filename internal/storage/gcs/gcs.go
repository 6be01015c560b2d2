// Package gcs implements the storage gateway against Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"

	"github.com/utafrali/product-image-ingest/internal/storage"
)

// Storage implements storage.Storage backed by a GCS bucket.
type Storage struct {
	client *gcstorage.Client
	bucket string
}

// New creates a GCS-backed storage gateway for the given bucket.
func New(client *gcstorage.Client, bucket string) *Storage {
	return &Storage{
		client: client,
		bucket: bucket,
	}
}

// PublicURL returns the public URL for an object in the given bucket.
func PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

// Download opens the object at the given key for reading.
func (s *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return r, nil
}

// Upload writes the object and returns its public URL.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	obj := s.client.Bucket(s.bucket).Object(input.Key)

	w := obj.NewWriter(ctx)
	w.ContentType = input.ContentType
	w.CacheControl = input.CacheControl
	if len(input.Metadata) > 0 {
		w.Metadata = input.Metadata
	}

	if _, err := io.Copy(w, input.Data); err != nil {
		w.Close()
		return nil, fmt.Errorf("write object %s: %w", input.Key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize object %s: %w", input.Key, err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: PublicURL(s.bucket, input.Key),
	}, nil
}

// Delete removes the object at the given key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// SetMetadata merges the given custom metadata into the object's existing
// metadata. GCS replaces the whole metadata map on update, so the current
// map is read first and merged.
func (s *Storage) SetMetadata(ctx context.Context, key string, metadata map[string]string) error {
	obj := s.client.Bucket(s.bucket).Object(key)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("read attrs of %s: %w", key, err)
	}

	merged := make(map[string]string, len(attrs.Metadata)+len(metadata))
	for k, v := range attrs.Metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}

	if _, err := obj.Update(ctx, gcstorage.ObjectAttrsToUpdate{Metadata: merged}); err != nil {
		return fmt.Errorf("update metadata of %s: %w", key, err)
	}
	return nil
}

// Move relocates an object within the bucket via copy-then-delete.
func (s *Storage) Move(ctx context.Context, key, newKey string) error {
	bkt := s.client.Bucket(s.bucket)
	src := bkt.Object(key)
	dst := bkt.Object(newKey)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("copy %s to %s: %w", key, newKey, err)
	}
	if err := src.Delete(ctx); err != nil {
		return fmt.Errorf("delete source %s after copy: %w", key, err)
	}
	return nil
}
