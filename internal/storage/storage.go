package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// ObjectSource reads an object once and removes it after import.
type ObjectSource interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ObjectStore is the full bucket client. Put and Stat serve bucket seeding
// and inspection; the import path only needs ObjectSource.
type ObjectStore interface {
	ObjectSource
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// Presigner issues time-limited URLs that let a client write one object
// directly, bypassing the service.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
}

// UploadSource is what ingest depends on: presigned writes in, one read and
// an optional delete out.
type UploadSource interface {
	ObjectSource
	Presigner
}
