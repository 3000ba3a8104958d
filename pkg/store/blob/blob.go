// Package blob defines the content store holding the data of stored
// resources as ordered chunks.
//
// Content is addressed by an opaque object id. A resource row points at its
// content with an internal URL carrying that id; external references and
// broken resources have no blobs at all. Chunks are written sequentially,
// optionally compressed, and read back in order through a callback so large
// objects never need to be held in memory whole.
package blob

import (
	"context"
	"errors"
)

// Object describes stored content.
type Object struct {
	// ID is the opaque content identifier
	ID string `json:"id"`

	// Size is the total uncompressed size in bytes
	Size int64 `json:"size"`

	// Chunks is the number of chunks written so far
	Chunks int `json:"chunks"`

	// Checksum is a rolling blake3 digest over the chunk digests,
	// hex-encoded. Extending the object extends the digest
	Checksum string `json:"checksum"`
}

// ErrNotFound is returned when no object matches an id.
var ErrNotFound = errors.New("object not found")

// Scannable is implemented by stores that can enumerate every object they
// hold. The garbage collector needs it to find orphaned content.
type Scannable interface {
	// ListIDs returns the ids of all stored objects, in no particular
	// order.
	ListIDs(ctx context.Context) ([]string, error)
}

// Store persists content blobs.
//
// Implementations must be safe for concurrent use across objects; chunks of
// a single object are written by one writer at a time.
type Store interface {
	// Create stores the first chunk of a new object and returns its
	// descriptor with a freshly assigned id.
	Create(ctx context.Context, data []byte, compress bool) (*Object, error)

	// AppendChunk stores the next chunk of an existing object and
	// returns the updated descriptor. Returns ErrNotFound for unknown
	// ids.
	AppendChunk(ctx context.Context, id string, data []byte, compress bool) (*Object, error)

	// Chunks streams the uncompressed chunks of an object in order,
	// calling fn once per chunk. Iteration stops at the first error.
	Chunks(ctx context.Context, id string, fn func(data []byte) error) error

	// Find returns the descriptor of an object, or ErrNotFound.
	Find(ctx context.Context, id string) (*Object, error)

	// DeleteAll removes an object and every chunk it holds. Deleting an
	// unknown id is not an error.
	DeleteAll(ctx context.Context, id string) error

	// Healthcheck verifies the store can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases backing resources.
	Close() error
}
