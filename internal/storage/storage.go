// Package storage provides object storage for published definition tables.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the object store holding definition tables.
// Implementations include S3 and the local filesystem.
type ObjectStorage interface {
	// Put stores data under objectPath and returns the object's ETag.
	Put(ctx context.Context, objectPath string, data []byte) (string, error)

	// Get returns the content of objectPath.
	// Returns ErrObjectNotFound if the object does not exist.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

var (
	_ ObjectStorage = (*LocalStorage)(nil)
	_ ObjectStorage = (*S3Storage)(nil)
)
