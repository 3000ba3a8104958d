package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/store/node"
)

func newNode(container, name string, version int) *node.TreeNode {
	return &node.TreeNode{
		Container: container,
		Name:      name,
		Version:   version,
		UUID:      container + name,
		IsObject:  name != "" && name[len(name)-1] != '/',
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNodeStoreWithDefaults()

	require.NoError(t, store.Put(ctx, newNode("/docs/", "a/", 0)))

	got, err := store.Get(ctx, "/docs/", "a/", 0)
	require.NoError(t, err)
	assert.Equal(t, "/docs/a/", got.Path())
	assert.False(t, got.IsObject)

	_, err = store.Get(ctx, "/docs/", "missing", 0)
	assert.True(t, node.IsNotFound(err))
}

func TestGetCurrentVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNodeStoreWithDefaults()

	require.NoError(t, store.Put(ctx, newNode("/docs/", "x", 0)))
	require.NoError(t, store.Put(ctx, newNode("/docs/", "x", 2)))
	require.NoError(t, store.Put(ctx, newNode("/docs/", "x", 1)))

	got, err := store.Get(ctx, "/docs/", "x", node.CurrentVersion)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	got, err = store.Get(ctx, "/docs/", "x", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestPutOverwritesSameVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNodeStoreWithDefaults()

	first := newNode("/docs/", "x", 0)
	first.UUID = "first"
	require.NoError(t, store.Put(ctx, first))

	second := newNode("/docs/", "x", 0)
	second.UUID = "second"
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, "/docs/", "x", 0)
	require.NoError(t, err)
	assert.Equal(t, "second", got.UUID)

	rows, err := store.List(ctx, "/docs/")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestListOrdersByNameAndVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNodeStoreWithDefaults()

	require.NoError(t, store.Put(ctx, newNode("/docs/", "b", 0)))
	require.NoError(t, store.Put(ctx, newNode("/docs/", "a/", 0)))
	require.NoError(t, store.Put(ctx, newNode("/docs/", "b", 1)))
	require.NoError(t, store.Put(ctx, newNode("/other/", "c", 0)))

	rows, err := store.List(ctx, "/docs/")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a/", rows[0].Name)
	assert.Equal(t, "b", rows[1].Name)
	assert.Equal(t, 1, rows[1].Version)
	assert.Equal(t, "b", rows[2].Name)
	assert.Equal(t, 0, rows[2].Version)
}

func TestDeleteRemovesAllVersions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNodeStoreWithDefaults()

	require.NoError(t, store.Put(ctx, newNode("/docs/", "x", 0)))
	require.NoError(t, store.Put(ctx, newNode("/docs/", "x", 1)))

	require.NoError(t, store.Delete(ctx, "/docs/", "x"))
	_, err := store.Get(ctx, "/docs/", "x", node.CurrentVersion)
	assert.True(t, node.IsNotFound(err))

	// deleting again is a no-op
	assert.NoError(t, store.Delete(ctx, "/docs/", "x"))
}

func TestSetAndMergeACL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNodeStoreWithDefaults()

	require.NoError(t, store.Put(ctx, newNode("/docs/", "a/", 0)))

	readAce := acl.Ace{ACEType: acl.TypeAllow, Identifier: "grp1", ACEMask: 0x09}
	require.NoError(t, store.SetACL(ctx, "/docs/", "a/", 0, map[string]acl.Ace{"grp1": readAce}))

	got, err := store.Get(ctx, "/docs/", "a/", 0)
	require.NoError(t, err)
	assert.Equal(t, readAce, got.ACL["grp1"])

	writeAce := acl.Ace{ACEType: acl.TypeAllow, Identifier: "grp2", ACEMask: 0x56}
	rwAce := acl.Ace{ACEType: acl.TypeAllow, Identifier: "grp1", ACEMask: 0x5F}
	require.NoError(t, store.MergeACL(ctx, "/docs/", "a/", 0, map[string]acl.Ace{
		"grp1": rwAce,
		"grp2": writeAce,
	}))

	got, err = store.Get(ctx, "/docs/", "a/", 0)
	require.NoError(t, err)
	require.Len(t, got.ACL, 2)
	assert.Equal(t, rwAce, got.ACL["grp1"])
	assert.Equal(t, writeAce, got.ACL["grp2"])

	err = store.SetACL(ctx, "/docs/", "missing", 0, nil)
	assert.True(t, node.IsNotFound(err))
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNodeStoreWithDefaults()

	row := newNode("/docs/", "x", 0)
	row.UserMeta = map[string]string{"k": "v"}
	require.NoError(t, store.Put(ctx, row))

	got, err := store.Get(ctx, "/docs/", "x", 0)
	require.NoError(t, err)
	got.UserMeta["k"] = "mutated"

	again, err := store.Get(ctx, "/docs/", "x", 0)
	require.NoError(t, err)
	assert.Equal(t, "v", again.UserMeta["k"])
}
