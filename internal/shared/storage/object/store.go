package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving source document
// bytes. The pricing core references files by storage key only.
type ObjectStore interface {
	Save(ctx context.Context, quoteID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
