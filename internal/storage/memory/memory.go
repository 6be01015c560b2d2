// Package memory provides an in-process storage gateway used by tests and
// local development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/utafrali/product-image-ingest/internal/storage"
)

// object holds one stored object with its data and attributes.
type object struct {
	Key          string
	ContentType  string
	CacheControl string
	Metadata     map[string]string
	Data         []byte
}

// Storage implements storage.Storage using an in-memory map.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]*object
	bucket  string
}

// New creates a new in-memory storage instance.
func New(bucket string) *Storage {
	return &Storage{
		objects: make(map[string]*object),
		bucket:  bucket,
	}
}

// Put seeds an object directly, bypassing the Upload path. Test helper.
func (s *Storage) Put(key string, data []byte, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	s.objects[key] = &object{Key: key, Metadata: md, Data: data}
}

// Exists reports whether an object is stored at the given key.
func (s *Storage) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[key]
	return ok
}

// Keys returns all stored object keys.
func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

// Metadata returns a copy of the custom metadata stored for the given key.
func (s *Storage) Metadata(key string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil
	}
	md := make(map[string]string, len(obj.Metadata))
	for k, v := range obj.Metadata {
		md[k] = v
	}
	return md
}

// CacheControl returns the cache directive stored for the given key.
func (s *Storage) CacheControl(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if obj, ok := s.objects[key]; ok {
		return obj.CacheControl
	}
	return ""
}

// Download opens the object at the given key for reading.
func (s *Storage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// Upload stores the object and returns its URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload data: %w", err)
	}

	md := make(map[string]string, len(input.Metadata))
	for k, v := range input.Metadata {
		md[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[input.Key] = &object{
		Key:          input.Key,
		ContentType:  input.ContentType,
		CacheControl: input.CacheControl,
		Metadata:     md,
		Data:         data,
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, input.Key),
	}, nil
}

// Delete removes the object at the given key.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object not found: %s", key)
	}
	delete(s.objects, key)
	return nil
}

// SetMetadata merges the given metadata into the object's existing metadata.
func (s *Storage) SetMetadata(_ context.Context, key string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	if !ok {
		return fmt.Errorf("object not found: %s", key)
	}
	if obj.Metadata == nil {
		obj.Metadata = make(map[string]string, len(metadata))
	}
	for k, v := range metadata {
		obj.Metadata[k] = v
	}
	return nil
}

// Move relocates an object to a new key.
func (s *Storage) Move(_ context.Context, key, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	if !ok {
		return fmt.Errorf("object not found: %s", key)
	}
	obj.Key = newKey
	s.objects[newKey] = obj
	delete(s.objects, key)
	return nil
}
