package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured reports that object storage is not set up, so the
	// presigned path is unavailable and callers should fall back to direct
	// uploads.
	ErrNotConfigured = errors.New("object storage is not configured")

	ErrPayloadTooLarge = errors.New("upload exceeds size limit")

	ErrKeyRequired = errors.New("object key is required")
)

// StorageError is an object-storage transfer failure.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
