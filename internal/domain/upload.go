package domain

import "strings"

// Namespace prefixes in the storage bucket.
const (
	ProcessedPrefix  = "products/"
	DeadLetterPrefix = "dead-letter/"
)

// Reserved metadata keys written by this service.
const (
	MetaKeyStatus    = "status"
	MetaKeyProcessed = "processed"

	MetaStatusDeadLetter = "dead-letter"
	MetaProcessedTrue    = "true"
)

// UploadEvent is the ephemeral representation of one finalized storage
// object. It is consumed exactly once per invocation and never persisted.
type UploadEvent struct {
	Bucket   string
	Path     string
	Size     int64
	Metadata map[string]string
}

// UploadMeta is the normalized, typed form of the metadata this service
// requires on an uploaded object.
type UploadMeta struct {
	ProductID string
	Color     string
}

// ExtractUploadMeta normalizes the raw object metadata into a typed
// {productId, color} pair. Key lookup is case-insensitive; values are
// returned as-is. The second return is false when either key is absent or
// empty.
func ExtractUploadMeta(metadata map[string]string) (UploadMeta, bool) {
	var meta UploadMeta
	for k, v := range metadata {
		switch strings.ToLower(k) {
		case "productid":
			meta.ProductID = v
		case "color":
			meta.Color = v
		}
	}

	if meta.ProductID == "" || meta.Color == "" {
		return UploadMeta{}, false
	}
	return meta, true
}

// IsProcessedPath reports whether the object path already lives under the
// derived-variant namespace.
func IsProcessedPath(path string) bool {
	return strings.HasPrefix(path, ProcessedPrefix)
}

// IsDeadLetterPath reports whether the object path lives under the
// quarantine namespace.
func IsDeadLetterPath(path string) bool {
	return strings.HasPrefix(path, DeadLetterPrefix)
}

// IsDeadLettered reports whether the object metadata carries the
// dead-letter status marker.
func (e *UploadEvent) IsDeadLettered() bool {
	return e.Metadata[MetaKeyStatus] == MetaStatusDeadLetter
}

// IsProcessed reports whether the object metadata carries the processed
// marker written onto derived variants.
func (e *UploadEvent) IsProcessed() bool {
	return e.Metadata[MetaKeyProcessed] == MetaProcessedTrue
}
