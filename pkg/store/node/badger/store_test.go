package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/store/node"
)

func newTestStore(t *testing.T) *BadgerNodeStore {
	t.Helper()
	store, err := NewBadgerNodeStore(context.Background(), BadgerNodeStoreConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	row := &node.TreeNode{
		Container: "/docs/",
		Name:      "a/",
		Version:   0,
		UUID:      "uuid-a",
		SysMeta:   map[string]string{"radium_create_ts": "2026-01-01T00:00:00Z"},
		ACL:       map[string]acl.Ace{"grp1": {ACEType: acl.TypeAllow, Identifier: "grp1", ACEMask: 0x09}},
	}
	require.NoError(t, store.Put(ctx, row))

	got, err := store.Get(ctx, "/docs/", "a/", 0)
	require.NoError(t, err)
	assert.Equal(t, row.UUID, got.UUID)
	assert.Equal(t, row.SysMeta, got.SysMeta)
	assert.Equal(t, row.ACL, got.ACL)

	_, err = store.Get(ctx, "/docs/", "missing", 0)
	assert.True(t, node.IsNotFound(err))
}

func TestCurrentVersionResolvesHighest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, v := range []int{0, 3, 1} {
		require.NoError(t, store.Put(ctx, &node.TreeNode{
			Container: "/docs/", Name: "x", Version: v, IsObject: true,
		}))
	}

	got, err := store.Get(ctx, "/docs/", "x", node.CurrentVersion)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
}

func TestListScopedToContainer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Put(ctx, &node.TreeNode{Container: "/docs/", Name: "a/"}))
	require.NoError(t, store.Put(ctx, &node.TreeNode{Container: "/docs/", Name: "b", IsObject: true}))
	require.NoError(t, store.Put(ctx, &node.TreeNode{Container: "/docs/a/", Name: "nested", IsObject: true}))

	rows, err := store.List(ctx, "/docs/")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a/", rows[0].Name)
	assert.Equal(t, "b", rows[1].Name)
}

func TestDeleteAllVersions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Put(ctx, &node.TreeNode{Container: "/docs/", Name: "x", Version: 0}))
	require.NoError(t, store.Put(ctx, &node.TreeNode{Container: "/docs/", Name: "x", Version: 1}))

	require.NoError(t, store.Delete(ctx, "/docs/", "x"))
	_, err := store.Get(ctx, "/docs/", "x", node.CurrentVersion)
	assert.True(t, node.IsNotFound(err))

	assert.NoError(t, store.Delete(ctx, "/docs/", "x"))
}

func TestMergeACLUnions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Put(ctx, &node.TreeNode{Container: "/", Name: "top/"}))

	require.NoError(t, store.MergeACL(ctx, "/", "top/", 0, map[string]acl.Ace{
		"grp1": {ACEType: acl.TypeAllow, Identifier: "grp1", ACEMask: 0x09},
	}))
	require.NoError(t, store.MergeACL(ctx, "/", "top/", 0, map[string]acl.Ace{
		"grp2": {ACEType: acl.TypeAllow, Identifier: "grp2", ACEMask: 0x56},
	}))

	got, err := store.Get(ctx, "/", "top/", 0)
	require.NoError(t, err)
	assert.Len(t, got.ACL, 2)

	require.NoError(t, store.SetACL(ctx, "/", "top/", 0, map[string]acl.Ace{
		"grp3": {ACEType: acl.TypeAllow, Identifier: "grp3", ACEMask: 0x5F},
	}))
	got, err = store.Get(ctx, "/", "top/", 0)
	require.NoError(t, err)
	require.Len(t, got.ACL, 1)
	assert.Contains(t, got.ACL, "grp3")
}

func TestHealthcheck(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Healthcheck(context.Background()))

	require.NoError(t, store.Close())
	assert.Error(t, store.Healthcheck(context.Background()))
}
