package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/store/blob"
)

func newTestStore(t *testing.T) *FSBlobStore {
	t.Helper()
	store, err := NewFSBlobStore(FSBlobStoreConfig{RootDir: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFSBlobStore(FSBlobStoreConfig{RootDir: dir})
	require.NoError(t, err)

	object, err := store.Create(ctx, []byte("hello"), true)
	require.NoError(t, err)
	_, err = store.AppendChunk(ctx, object.ID, []byte(" world"), false)
	require.NoError(t, err)

	// a fresh store over the same directory sees the object
	reopened, err := NewFSBlobStore(FSBlobStoreConfig{RootDir: dir})
	require.NoError(t, err)

	found, err := reopened.Find(ctx, object.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), found.Size)
	assert.Equal(t, 2, found.Chunks)

	var content []byte
	err = reopened.Chunks(ctx, object.ID, func(data []byte) error {
		content = append(content, data...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestFindUnknown(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestDeleteAllRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	object, err := store.Create(ctx, []byte("data"), false)
	require.NoError(t, err)

	require.NoError(t, store.DeleteAll(ctx, object.ID))
	_, err = store.Find(ctx, object.ID)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	assert.ErrorIs(t, store.Chunks(ctx, object.ID, func([]byte) error { return nil }), blob.ErrNotFound)
}

func TestRequiresRootDir(t *testing.T) {
	_, err := NewFSBlobStore(FSBlobStoreConfig{})
	assert.Error(t, err)
}
