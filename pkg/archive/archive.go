// Package archive uploads completed aggregation artifacts to object storage.
//
// Archiving is optional and best-effort: the local artifact on disk remains
// the contract served over HTTP, and an upload failure never fails the job
// that produced the artifact.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Archiver stores a finished artifact under a key.
type Archiver interface {
	Put(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// Sentinel errors for archive operations.
var (
	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnavailable indicates the storage service is unavailable.
	ErrUnavailable = errors.New("archive storage unavailable")
)

// ArchiveError wraps storage errors with context.
type ArchiveError struct {
	// Op is the operation that failed (e.g., "Put").
	Op string

	// Bucket is the target bucket name.
	Bucket string

	// Key is the object key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

func (e *ArchiveError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("archive %s: %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("archive %s: %s: %v", e.Op, e.Bucket, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsUnavailable returns true if the error indicates the service is unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
