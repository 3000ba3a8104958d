package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/store/event"
)

func newTestStore(t *testing.T) *BadgerEventStore {
	t.Helper()
	store, err := NewBadgerEventStore(context.Background(), BadgerEventStoreConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndFindByReqID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now().Add(-time.Minute)
	require.NoError(t, store.Append(ctx, &event.Notification{
		ReqID: "req-1", OpName: "create", OpType: "request", When: base,
	}))
	require.NoError(t, store.Append(ctx, &event.Notification{
		ReqID: "req-1", OpName: "create", OpType: "success", When: base.Add(time.Second),
	}))

	got, err := store.FindByReqID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "success", got.OpType)

	_, err = store.FindByReqID(ctx, "missing")
	assert.ErrorIs(t, err, event.ErrNotFound)
}

func TestSetProcessedRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	n := &event.Notification{ReqID: "req-1", OpName: "create", Processed: true}
	require.NoError(t, store.Append(ctx, n))
	require.NotEmpty(t, n.ID)

	require.NoError(t, store.SetProcessed(ctx, n.ID, false))
	got, err := store.FindByReqID(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, got.Processed)

	assert.ErrorIs(t, store.SetProcessed(ctx, "missing", true), event.ErrNotFound)
}

func TestRecentWalksDayBuckets(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	now := time.Now()
	require.NoError(t, store.Append(ctx, &event.Notification{ObjKey: "/today", When: now}))
	require.NoError(t, store.Append(ctx, &event.Notification{ObjKey: "/yesterday", When: now.AddDate(0, 0, -1)}))
	require.NoError(t, store.Append(ctx, &event.Notification{ObjKey: "/ancient", When: now.AddDate(0, 0, -event.RecentDays-1)}))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "/today", records[0].ObjKey)
	assert.Equal(t, "/yesterday", records[1].ObjKey)

	records, err = store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/today", records[0].ObjKey)
}
