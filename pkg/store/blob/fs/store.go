// Package fs provides a blob store persisting objects as files on the
// local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/radium-data/radium/pkg/store/blob"
)

// FSBlobStoreConfig configures the filesystem blob store.
type FSBlobStoreConfig struct {
	// RootDir is the directory holding one subdirectory per object.
	RootDir string
}

// FSBlobStore implements blob.Store on the local filesystem.
//
// Storage model: every object owns the directory <root>/<id>/ holding its
// descriptor (info.json) and one file per chunk, named by zero-padded
// sequence number so lexical order is chunk order.
//
// Thread safety: a store-level mutex serializes descriptor updates; chunk
// files are written once and never modified.
type FSBlobStore struct {
	mu   sync.Mutex
	root string
}

var (
	_ blob.Store     = (*FSBlobStore)(nil)
	_ blob.Scannable = (*FSBlobStore)(nil)
)

// NewFSBlobStore creates the root directory if needed and returns a store.
func NewFSBlobStore(config FSBlobStoreConfig) (*FSBlobStore, error) {
	if config.RootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(config.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root directory %s: %w", config.RootDir, err)
	}
	return &FSBlobStore{root: config.RootDir}, nil
}

func (s *FSBlobStore) Create(ctx context.Context, data []byte, compress bool) (*blob.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	dir := s.objectDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}

	if err := s.writeChunk(dir, 0, data, compress); err != nil {
		return nil, err
	}
	object := &blob.Object{
		ID:       id,
		Size:     int64(len(data)),
		Chunks:   1,
		Checksum: blob.ChecksumInit(data),
	}
	if err := s.writeInfo(dir, object); err != nil {
		return nil, err
	}
	return object, nil
}

func (s *FSBlobStore) AppendChunk(ctx context.Context, id string, data []byte, compress bool) (*blob.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.objectDir(id)
	object, err := s.readInfo(dir)
	if err != nil {
		return nil, err
	}

	if err := s.writeChunk(dir, object.Chunks, data, compress); err != nil {
		return nil, err
	}
	object.Size += int64(len(data))
	object.Chunks++
	object.Checksum = blob.ChecksumExtend(object.Checksum, data)
	if err := s.writeInfo(dir, object); err != nil {
		return nil, err
	}
	return object, nil
}

func (s *FSBlobStore) Chunks(ctx context.Context, id string, fn func(data []byte) error) error {
	dir := s.objectDir(id)

	s.mu.Lock()
	object, err := s.readInfo(dir)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for seq := 0; seq < object.Chunks; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		stored, err := os.ReadFile(chunkPath(dir, seq))
		if err != nil {
			return fmt.Errorf("failed to read chunk %d of %s: %w", seq, id, err)
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

func (s *FSBlobStore) Find(ctx context.Context, id string) (*blob.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readInfo(s.objectDir(id))
}

func (s *FSBlobStore) DeleteAll(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.objectDir(id)); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", id, err)
	}
	return nil
}

func (s *FSBlobStore) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list root directory: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (s *FSBlobStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("root directory unavailable: %w", err)
	}
	return nil
}

func (s *FSBlobStore) Close() error { return nil }

func (s *FSBlobStore) objectDir(id string) string {
	return filepath.Join(s.root, id)
}

func chunkPath(dir string, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("%08d.chunk", seq))
}

func (s *FSBlobStore) writeChunk(dir string, seq int, data []byte, compress bool) error {
	stored, err := blob.EncodeChunk(data, compress)
	if err != nil {
		return err
	}
	if err := os.WriteFile(chunkPath(dir, seq), stored, 0o644); err != nil {
		return fmt.Errorf("failed to write chunk %d: %w", seq, err)
	}
	return nil
}

func (s *FSBlobStore) writeInfo(dir string, object *blob.Object) error {
	data, err := json.Marshal(object)
	if err != nil {
		return fmt.Errorf("failed to encode object descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "info.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write object descriptor: %w", err)
	}
	return nil
}

func (s *FSBlobStore) readInfo(dir string) (*blob.Object, error) {
	data, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if os.IsNotExist(err) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object descriptor: %w", err)
	}
	var object blob.Object
	if err := json.Unmarshal(data, &object); err != nil {
		return nil, fmt.Errorf("failed to decode object descriptor: %w", err)
	}
	return &object, nil
}
