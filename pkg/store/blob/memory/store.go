// Package memory provides an in-memory blob store for tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/radium-data/radium/pkg/store/blob"
)

// MemoryBlobStoreConfig configures the in-memory blob store.
type MemoryBlobStoreConfig struct{}

// MemoryBlobStore implements blob.Store using in-memory maps protected by a
// read-write mutex. Chunks are kept in their stored (possibly compressed)
// encoding so behavior matches the persistent implementations.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string]*entry
}

type entry struct {
	object blob.Object
	chunks [][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore(_ MemoryBlobStoreConfig) *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string]*entry)}
}

// NewMemoryBlobStoreWithDefaults creates an in-memory blob store with the
// default configuration.
func NewMemoryBlobStoreWithDefaults() *MemoryBlobStore {
	return NewMemoryBlobStore(MemoryBlobStoreConfig{})
}

var (
	_ blob.Store     = (*MemoryBlobStore)(nil)
	_ blob.Scannable = (*MemoryBlobStore)(nil)
)

func (s *MemoryBlobStore) Create(ctx context.Context, data []byte, compress bool) (*blob.Object, error) {
	stored, err := blob.EncodeChunk(data, compress)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	e := &entry{
		object: blob.Object{
			ID:       id,
			Size:     int64(len(data)),
			Chunks:   1,
			Checksum: blob.ChecksumInit(data),
		},
		chunks: [][]byte{stored},
	}
	s.objects[id] = e
	out := e.object
	return &out, nil
}

func (s *MemoryBlobStore) AppendChunk(ctx context.Context, id string, data []byte, compress bool) (*blob.Object, error) {
	stored, err := blob.EncodeChunk(data, compress)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.objects[id]
	if !ok {
		return nil, blob.ErrNotFound
	}
	e.chunks = append(e.chunks, stored)
	e.object.Size += int64(len(data))
	e.object.Chunks++
	e.object.Checksum = blob.ChecksumExtend(e.object.Checksum, data)
	out := e.object
	return &out, nil
}

func (s *MemoryBlobStore) Chunks(ctx context.Context, id string, fn func(data []byte) error) error {
	s.mu.RLock()
	e, ok := s.objects[id]
	var chunks [][]byte
	if ok {
		chunks = make([][]byte, len(e.chunks))
		copy(chunks, e.chunks)
	}
	s.mu.RUnlock()

	if !ok {
		return blob.ErrNotFound
	}
	for _, stored := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := blob.DecodeChunk(stored)
		if err != nil {
			return err
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryBlobStore) Find(ctx context.Context, id string) (*blob.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[id]
	if !ok {
		return nil, blob.ErrNotFound
	}
	out := e.object
	return &out, nil
}

func (s *MemoryBlobStore) DeleteAll(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, id)
	return nil
}

func (s *MemoryBlobStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryBlobStore) Healthcheck(ctx context.Context) error { return nil }

func (s *MemoryBlobStore) Close() error { return nil }
