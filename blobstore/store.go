// Package blobstore abstracts where persisted artifacts live. The
// persistence layer writes named blobs through this interface and never
// touches the filesystem or network directly.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates a blob that does not exist.
var ErrNotFound = errors.New("blob not found")

// Store is a flat named-blob store.
//
// Put must be atomic per object: readers see either the previous
// content or the new content, never a partial write.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
