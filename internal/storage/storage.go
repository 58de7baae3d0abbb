// Package storage persists generated artifacts (images, videos) either on
// the local filesystem or in an S3-compatible bucket with presigned access.
package storage

import (
	"context"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Result describes where a stored artifact ended up.
type Result struct {
	// Location is the access URL/path for the stored content: a local file
	// path, or a presigned URL for S3.
	Location string

	// ObjectKey is the storage-relative key (e.g. "2025/08/31/veo_video_....mp4").
	ObjectKey string

	// ExpiresAt is when the presigned URL stops working; nil for local storage.
	ExpiresAt *time.Time

	MIMEType string
	Size     int64
}

// Storage stores generated content and hands back retrievable references.
type Storage interface {
	// Store saves data under a name derived from prefix and mimeType.
	Store(ctx context.Context, data []byte, mimeType string, prefix string) (*Result, error)

	// Retrieve makes an object available as a local file, returning its path
	// and a cleanup func (nil-safe to ignore for local storage).
	Retrieve(ctx context.Context, objectKey string) (string, func(), error)

	// Delete removes an object by its key.
	Delete(ctx context.Context, objectKey string) error

	// Close releases resources (cleanup goroutines etc).
	Close() error

	// IsRemote reports whether stored objects live outside this host.
	IsRemote() bool
}

// extensionForMIME resolves a file extension for stored artifacts, falling
// back to a short table for types the detector library does not register.
func extensionForMIME(mimeType string) string {
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "video/mp4":
		return ".mp4"
	default:
		return ""
	}
}
