package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/store/blob"
)

func TestCreateAppendChunks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStoreWithDefaults()

	object, err := store.Create(ctx, []byte("first"), false)
	require.NoError(t, err)
	require.NotEmpty(t, object.ID)
	assert.Equal(t, int64(5), object.Size)
	assert.Equal(t, 1, object.Chunks)

	object, err = store.AppendChunk(ctx, object.ID, []byte("second"), true)
	require.NoError(t, err)
	assert.Equal(t, int64(11), object.Size)
	assert.Equal(t, 2, object.Chunks)

	var got [][]byte
	err = store.Chunks(ctx, object.ID, func(data []byte) error {
		got = append(got, data)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("first"), got[0])
	assert.Equal(t, []byte("second"), got[1])
}

func TestAppendUnknownObject(t *testing.T) {
	store := NewMemoryBlobStoreWithDefaults()
	_, err := store.AppendChunk(context.Background(), "missing", []byte("x"), false)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestFindAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStoreWithDefaults()

	object, err := store.Create(ctx, bytes.Repeat([]byte("z"), 100), true)
	require.NoError(t, err)

	found, err := store.Find(ctx, object.ID)
	require.NoError(t, err)
	assert.Equal(t, object.Checksum, found.Checksum)
	assert.Equal(t, int64(100), found.Size)

	require.NoError(t, store.DeleteAll(ctx, object.ID))
	_, err = store.Find(ctx, object.ID)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	// deleting again is a no-op
	assert.NoError(t, store.DeleteAll(ctx, object.ID))
}

func TestChecksumChangesOnAppend(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStoreWithDefaults()

	object, err := store.Create(ctx, []byte("a"), false)
	require.NoError(t, err)
	initial := object.Checksum

	object, err = store.AppendChunk(ctx, object.ID, []byte("b"), false)
	require.NoError(t, err)
	assert.NotEqual(t, initial, object.Checksum)
}
