package blob

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNoObjectID means the backend accepted the upload but its response
	// described no usable object variant.
	ErrNoObjectID = errors.New("backend response contains no object id")

	// ErrLocationMissing means the backend could not resolve an object id to
	// a fetchable location.
	ErrLocationMissing = errors.New("backend location missing")
)

// Store is the narrow contract the gateway holds against the blob-holding
// backend. Object ids are opaque; the gateway never interprets them beyond
// passing them back to ResolveLocation.
type Store interface {
	// Upload stores the content and returns the backend's object id.
	Upload(ctx context.Context, content io.Reader, filename, contentType string) (string, error)

	// ResolveLocation exchanges an object id for a time-limited fetch URL.
	ResolveLocation(ctx context.Context, objectID string) (string, error)

	// Fetch downloads the object bytes from a resolved location.
	Fetch(ctx context.Context, location string) ([]byte, error)
}
