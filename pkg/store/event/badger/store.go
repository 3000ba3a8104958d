// Package badger provides a persistent event store backed by BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/store/event"
)

// BadgerEventStoreConfig configures the BadgerDB-backed event store.
type BadgerEventStoreConfig struct {
	// DBPath is the directory holding the BadgerDB files. Ignored when
	// InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without persistence, mainly for tests.
	InMemory bool
}

// BadgerEventStore implements event.Store using BadgerDB. Records cluster
// by day bucket with secondary indexes by request id and record id (see
// keys.go).
type BadgerEventStore struct {
	db *badger.DB
}

var _ event.Store = (*BadgerEventStore)(nil)

// NewBadgerEventStore opens (or creates) the database and returns a store.
func NewBadgerEventStore(ctx context.Context, config BadgerEventStoreConfig) (*BadgerEventStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := openWithRetry(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}
	return &BadgerEventStore{db: db}, nil
}

// openWithRetry opens the database with bounded retries and increasing
// backoff. Opening fails transiently while another process still holds the
// directory lock, typically during a rolling restart.
func openWithRetry(ctx context.Context, opts badger.Options) (*badger.DB, error) {
	var err error
	delay := 500 * time.Millisecond
	for attempt := 1; attempt <= 5; attempt++ {
		var db *badger.DB
		db, err = badger.Open(opts)
		if err == nil {
			return db, nil
		}
		logger.Warn("BadgerDB open attempt %d failed: %v", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, err
}

func (s *BadgerEventStore) Append(ctx context.Context, n *event.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.When.IsZero() {
		n.When = time.Now()
	}
	if n.Date == "" {
		n.Date = event.DateBucket(n.When)
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification %s: %w", n.ID, err)
	}

	nanos := n.When.UnixNano()
	key := eventKey(n.Date, nanos, n.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if n.ReqID != "" {
			if err := txn.Set(requestKey(n.ReqID, nanos, n.ID), key); err != nil {
				return err
			}
		}
		return txn.Set(idKey(n.ID), key)
	})
}

func (s *BadgerEventStore) SetProcessed(ctx context.Context, id string, processed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err == badger.ErrKeyNotFound {
			return event.ErrNotFound
		}
		if err != nil {
			return err
		}
		rowKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		record, err := getRecord(txn, rowKey)
		if err != nil {
			return err
		}
		record.Processed = processed
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(rowKey, data)
	})
}

func (s *BadgerEventStore) FindByReqID(ctx context.Context, reqID string) (*event.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *event.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   1,
			Prefix:         requestKeyPrefix(reqID),
		})
		defer it.Close()

		it.Rewind()
		if !it.Valid() {
			return event.ErrNotFound
		}
		rowKey, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		record, err = getRecord(txn, rowKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *BadgerEventStore) Recent(ctx context.Context, count int) ([]*event.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*event.Notification
	now := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		for day := 0; day < event.RecentDays && len(out) < count; day++ {
			date := event.DateBucket(now.AddDate(0, 0, -day))
			it := txn.NewIterator(badger.IteratorOptions{
				PrefetchValues: true,
				PrefetchSize:   100,
				Prefix:         eventKeyPrefix(date),
			})
			for it.Rewind(); it.Valid() && len(out) < count; it.Next() {
				err := it.Item().Value(func(val []byte) error {
					var record event.Notification
					if err := json.Unmarshal(val, &record); err != nil {
						return err
					}
					out = append(out, &record)
					return nil
				})
				if err != nil {
					it.Close()
					return err
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerEventStore) Close() error {
	return s.db.Close()
}

func getRecord(txn *badger.Txn, rowKey []byte) (*event.Notification, error) {
	item, err := txn.Get(rowKey)
	if err == badger.ErrKeyNotFound {
		return nil, event.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var record event.Notification
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
