package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a storage key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for retrieving and saving binary objects.
// Session media (video, transcripts) is written by the recording front end;
// this service mostly reads.
type ObjectStore interface {
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
}
