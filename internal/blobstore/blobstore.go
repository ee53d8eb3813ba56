// Package blobstore stores statement binaries. Objects are write-once:
// a key is derived from company, bank and period, and an existing object is
// never overwritten.
package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrExists is returned by Put when the key is already occupied.
var ErrExists = errors.New("blobstore: object already exists")

// ErrNotFound is returned by Get when the key has no object.
var ErrNotFound = errors.New("blobstore: object not found")

// Store is the write-once object store for statement documents.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Key builds the canonical object key for a statement document.
func Key(companyID, bankID uuid.UUID, monthYear, filename string) string {
	return fmt.Sprintf("company/%s/bank/%s/%s/%s", companyID, bankID, monthYear, filename)
}
