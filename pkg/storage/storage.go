// Package storage abstracts the object store holding gallery assets and
// finished download archives.
package storage

import (
	"context"
	"io"
	"time"
)

// Buckets used by the gallery pipeline.
const (
	BucketGalleryImages    = "gallery-images"
	BucketGalleryDownloads = "gallery-downloads"
)

// ObjectStorage stores and serves binary objects addressed by bucket and path.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, path string, reader io.Reader) error
	Open(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, bucket, path string) error
	// SignedURL returns a time-limited URL granting read access to one
	// object. A non-empty fileName is carried in the token and served as the
	// download attachment name.
	SignedURL(bucket, path, fileName string, ttl time.Duration) (string, error)
}
