// Package storage defines the contract every storage backend implements
// (Supabase Storage, S3-compatible, Azure Blob, in-memory) together with
// the object model and key helpers the rest of the application shares.
package storage

import (
	"context"
	"time"
)

// Object is one entry returned by a bucket listing.
type Object struct {
	// Key is the full slash-separated key, e.g. "posts/2024/hello.mdx".
	Key string

	// ID is the backend identifier. An empty ID marks a placeholder
	// (folder-like) entry.
	ID string

	Size        int64
	UpdatedAt   string // backend timestamp, usually RFC 3339
	ContentType string
}

// IsPlaceholder reports whether the entry carries no backend identifier.
func (o Object) IsPlaceholder() bool {
	return o.ID == ""
}

// IsSentinel reports whether the key names an empty-folder sentinel file.
func (o Object) IsSentinel() bool {
	return IsSentinelKey(o.Key)
}

// Backend is the storage contract. Implementations must be safe for
// concurrent use: every user action runs its calls on its own goroutine.
type Backend interface {
	// Name identifies the backend in logs and the status bar.
	Name() string

	// List returns every object in the bucket, recursively, in any order.
	List(ctx context.Context) ([]Object, error)

	// Upload creates key. It returns an error matching ErrAlreadyExists
	// when the key is taken; callers then ask before calling Update.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// Update overwrites key, creating it when missing.
	Update(ctx context.Context, key string, data []byte, contentType string) error

	// Download returns the object's bytes. A missing key matches ErrNotFound.
	Download(ctx context.Context, key string) ([]byte, error)

	// Remove deletes all keys in one call. Missing keys are not an error.
	Remove(ctx context.Context, keys []string) error

	// PublicURL returns the shareable URL of key. It does not check that
	// the object exists.
	PublicURL(key string) (string, error)
}

// Pinger is implemented by backends that can check connectivity and
// credentials without listing the whole bucket.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ParseTime parses the backend timestamp formats seen in listings.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
