package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/store/event"
)

func TestAppendAssignsDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStoreWithDefaults()

	n := &event.Notification{
		OpName: "create", OpType: "success", ObjType: "collection",
		ObjKey: "/docs/a/", Sender: "radium_lib", ReqID: "req-1", Processed: true,
	}
	require.NoError(t, store.Append(ctx, n))
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.When.IsZero())
	assert.Equal(t, event.DateBucket(n.When), n.Date)
}

func TestSetProcessed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStoreWithDefaults()

	n := &event.Notification{OpName: "create", Processed: true}
	require.NoError(t, store.Append(ctx, n))

	require.NoError(t, store.SetProcessed(ctx, n.ID, false))
	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Processed)

	assert.ErrorIs(t, store.SetProcessed(ctx, "missing", true), event.ErrNotFound)
}

func TestFindByReqIDReturnsNewest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStoreWithDefaults()

	base := time.Now().Add(-time.Minute)
	require.NoError(t, store.Append(ctx, &event.Notification{
		ReqID: "req-1", OpType: "request", When: base,
	}))
	require.NoError(t, store.Append(ctx, &event.Notification{
		ReqID: "req-1", OpType: "success", When: base.Add(time.Second),
	}))
	require.NoError(t, store.Append(ctx, &event.Notification{
		ReqID: "req-2", OpType: "request", When: base,
	}))

	got, err := store.FindByReqID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "success", got.OpType)

	_, err = store.FindByReqID(ctx, "missing")
	assert.ErrorIs(t, err, event.ErrNotFound)
}

func TestRecentNewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStoreWithDefaults()

	now := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, &event.Notification{
			OpName: "create", ObjKey: "/x", When: now.Add(time.Duration(i) * time.Second),
		}))
	}
	// yesterday's record comes after today's
	require.NoError(t, store.Append(ctx, &event.Notification{
		OpName: "delete", ObjKey: "/old", When: now.AddDate(0, 0, -1),
	}))
	// too old to show up at all
	require.NoError(t, store.Append(ctx, &event.Notification{
		OpName: "delete", ObjKey: "/ancient", When: now.AddDate(0, 0, -event.RecentDays-1),
	}))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "/x", records[0].ObjKey)
	assert.True(t, records[0].When.After(records[1].When))
	assert.Equal(t, "/old", records[4].ObjKey)

	records, err = store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
