// Package memory provides an in-memory event store for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radium-data/radium/pkg/store/event"
)

// MemoryEventStoreConfig configures the in-memory event store.
type MemoryEventStoreConfig struct{}

// MemoryEventStore implements event.Store using in-memory maps protected by
// a read-write mutex.
type MemoryEventStore struct {
	mu sync.RWMutex

	// buckets maps a day bucket to its records, newest first
	buckets map[string][]*event.Notification

	// byID maps a record id to the stored record
	byID map[string]*event.Notification
}

// NewMemoryEventStore creates an empty in-memory event store.
func NewMemoryEventStore(_ MemoryEventStoreConfig) *MemoryEventStore {
	return &MemoryEventStore{
		buckets: make(map[string][]*event.Notification),
		byID:    make(map[string]*event.Notification),
	}
}

// NewMemoryEventStoreWithDefaults creates an in-memory event store with the
// default configuration.
func NewMemoryEventStoreWithDefaults() *MemoryEventStore {
	return NewMemoryEventStore(MemoryEventStoreConfig{})
}

var _ event.Store = (*MemoryEventStore)(nil)

func (s *MemoryEventStore) Append(ctx context.Context, n *event.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.When.IsZero() {
		stored.When = time.Now()
	}
	if stored.Date == "" {
		stored.Date = event.DateBucket(stored.When)
	}

	bucket := append(s.buckets[stored.Date], &stored)
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].When.After(bucket[j].When)
	})
	s.buckets[stored.Date] = bucket
	s.byID[stored.ID] = &stored

	n.ID = stored.ID
	n.Date = stored.Date
	n.When = stored.When
	return nil
}

func (s *MemoryEventStore) SetProcessed(ctx context.Context, id string, processed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return event.ErrNotFound
	}
	record.Processed = processed
	return nil
}

func (s *MemoryEventStore) FindByReqID(ctx context.Context, reqID string) (*event.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *event.Notification
	for _, record := range s.byID {
		if record.ReqID != reqID {
			continue
		}
		if newest == nil || record.When.After(newest.When) {
			newest = record
		}
	}
	if newest == nil {
		return nil, event.ErrNotFound
	}
	out := *newest
	return &out, nil
}

func (s *MemoryEventStore) Recent(ctx context.Context, count int) ([]*event.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*event.Notification
	now := time.Now()
	for day := 0; day < event.RecentDays && len(out) < count; day++ {
		bucket := s.buckets[event.DateBucket(now.AddDate(0, 0, -day))]
		for _, record := range bucket {
			if len(out) >= count {
				break
			}
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryEventStore) Close() error { return nil }
