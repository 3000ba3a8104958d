package gc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/gc"
	"github.com/radium-data/radium/pkg/store/blob"
	blobmem "github.com/radium-data/radium/pkg/store/blob/memory"
	"github.com/radium-data/radium/pkg/store/node"
	nodemem "github.com/radium-data/radium/pkg/store/node/memory"
)

// seedTree stores a small hierarchy with one blob-backed resource, one
// external reference, and one orphaned blob. Returns the referenced and
// orphaned object ids.
func seedTree(t *testing.T, nodes node.Store, blobs blob.Store) (referenced, orphaned string) {
	t.Helper()
	ctx := context.Background()

	kept, err := blobs.Create(ctx, []byte("kept content"), false)
	require.NoError(t, err)
	orphan, err := blobs.Create(ctx, []byte("orphan content"), false)
	require.NoError(t, err)

	rows := []*node.TreeNode{
		{Container: node.RootContainer, Name: node.RootName, UUID: "root"},
		{Container: "/", Name: "docs/", UUID: "docs"},
		{Container: "/docs/", Name: "data", UUID: "data",
			IsObject: true, ObjectURL: "radium:" + kept.ID},
		{Container: "/docs/", Name: "link", UUID: "link",
			IsObject: true, ObjectURL: "https://example.com/data"},
	}
	for _, row := range rows {
		require.NoError(t, nodes.Put(ctx, row))
	}
	return kept.ID, orphan.ID
}

func TestCollectDeletesOrphans(t *testing.T) {
	ctx := context.Background()
	nodes := nodemem.NewMemoryNodeStoreWithDefaults()
	blobs := blobmem.NewMemoryBlobStoreWithDefaults()
	kept, orphan := seedTree(t, nodes, blobs)

	collector, err := gc.NewCollector(nodes, blobs, gc.Config{})
	require.NoError(t, err)

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ReferencedCount)
	assert.Equal(t, uint64(2), stats.ExistingCount)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Equal(t, uint64(1), stats.DeletedCount)
	assert.Equal(t, uint64(0), stats.FailedCount)

	_, err = blobs.Find(ctx, kept)
	assert.NoError(t, err)
	_, err = blobs.Find(ctx, orphan)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestCollectDryRunKeepsOrphans(t *testing.T) {
	ctx := context.Background()
	nodes := nodemem.NewMemoryNodeStoreWithDefaults()
	blobs := blobmem.NewMemoryBlobStoreWithDefaults()
	_, orphan := seedTree(t, nodes, blobs)

	collector, err := gc.NewCollector(nodes, blobs, gc.Config{DryRun: true})
	require.NoError(t, err)

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Equal(t, uint64(0), stats.DeletedCount)

	_, err = blobs.Find(ctx, orphan)
	assert.NoError(t, err)
}

func TestCollectEmptyStore(t *testing.T) {
	nodes := nodemem.NewMemoryNodeStoreWithDefaults()
	blobs := blobmem.NewMemoryBlobStoreWithDefaults()

	collector, err := gc.NewCollector(nodes, blobs, gc.Config{})
	require.NoError(t, err)

	stats, err := collector.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.OrphanedCount)
	assert.Equal(t, uint64(0), stats.DeletedCount)
}
