// Package storage mediates every read and write against the encrypted object
// store. Keys are never listed or enumerated; callers resolve ownership through
// the record store before asking for bytes.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned when the key does not exist in the bucket.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrStoreUnavailable covers every other backend failure, including timeouts.
	ErrStoreUnavailable = errors.New("storage: store unavailable")
)

// PutObjectOptions describe an upload. Size is the exact byte count, or -1
// when unknown. Metadata is stored as user metadata on the object.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what the backend reports about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Encrypted    bool
}

// Storage is the object store gateway. Implementations apply the configured
// server-side encryption to every Put and are safe for concurrent use.
type Storage interface {
	// Put writes r under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get streams the object. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. It is used only to compensate failed uploads.
	Delete(ctx context.Context, key string) error
	// URL returns the address recorded for the object in the file record.
	URL(key string) string
	// Encrypted reports whether Put applies server-side encryption.
	Encrypted() bool
}
