// Package badger provides a persistent node store backed by BadgerDB.
package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/store/node"
)

// BadgerNodeStoreConfig configures the BadgerDB-backed node store.
type BadgerNodeStoreConfig struct {
	// DBPath is the directory holding the BadgerDB files. Ignored when
	// InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without persistence, mainly for tests.
	InMemory bool

	// BlockCacheSizeMB sets the BadgerDB block cache size (default 64).
	BlockCacheSizeMB int64

	// IndexCacheSizeMB sets the BadgerDB index cache size (default 32).
	IndexCacheSizeMB int64
}

// BadgerNodeStore implements node.Store using BadgerDB for persistence.
//
// BadgerDB transactions give each operation snapshot isolation, so no
// store-level locking is needed; the database handle is safe for concurrent
// use. Rows cluster by container in the key space (see keys.go), which keeps
// container listings a single range scan.
type BadgerNodeStore struct {
	db *badger.DB
}

var _ node.Store = (*BadgerNodeStore)(nil)

// NewBadgerNodeStore opens (or creates) the database and returns a store.
func NewBadgerNodeStore(ctx context.Context, config BadgerNodeStoreConfig) (*BadgerNodeStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	// Node rows are small JSON documents, so value-level compression buys
	// little over the block cache.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := openWithRetry(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}
	return &BadgerNodeStore{db: db}, nil
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

func (s *BadgerNodeStore) Get(ctx context.Context, container, name string, version int) (*node.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row *node.TreeNode
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		row, err = getNode(txn, container, name, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *BadgerNodeStore) List(ctx context.Context, container string) ([]*node.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*node.TreeNode
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Prefix:         containerKeyPrefix(container),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				row, err := decodeNode(val)
				if err != nil {
					return err
				}
				out = append(out, row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &node.StoreError{Code: node.ErrIOError, Message: err.Error(), Path: container}
	}
	return out, nil
}

func (s *BadgerNodeStore) Put(ctx context.Context, n *node.TreeNode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeNode(n)
	if err != nil {
		return &node.StoreError{Code: node.ErrInvalidArgument, Message: err.Error(), Path: n.Path()}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rowKey(n.Container, n.Name, n.Version), data)
	})
	if err != nil {
		return &node.StoreError{Code: node.ErrIOError, Message: err.Error(), Path: n.Path()}
	}
	return nil
}

func (s *BadgerNodeStore) Delete(ctx context.Context, container, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix: rowKeyPrefix(container, name),
		})

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &node.StoreError{Code: node.ErrIOError, Message: err.Error(), Path: node.Merge(container, name)}
	}
	return nil
}

func (s *BadgerNodeStore) SetACL(ctx context.Context, container, name string, version int, entries map[string]acl.Ace) error {
	return s.updateACL(ctx, container, name, version, func(row *node.TreeNode) {
		row.ACL = entries
	})
}

func (s *BadgerNodeStore) MergeACL(ctx context.Context, container, name string, version int, entries map[string]acl.Ace) error {
	return s.updateACL(ctx, container, name, version, func(row *node.TreeNode) {
		if row.ACL == nil {
			row.ACL = make(map[string]acl.Ace, len(entries))
		}
		for ident, ace := range entries {
			row.ACL[ident] = ace
		}
	})
}

func (s *BadgerNodeStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return &node.StoreError{Code: node.ErrUnavailable, Message: "database is closed"}
	}
	return nil
}

func (s *BadgerNodeStore) Close() error {
	return s.db.Close()
}

// updateACL applies a read-modify-write of one row's ACL inside a single
// transaction.
func (s *BadgerNodeStore) updateACL(ctx context.Context, container, name string, version int, apply func(*node.TreeNode)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		row, err := getNode(txn, container, name, version)
		if err != nil {
			return err
		}
		apply(row)
		data, err := encodeNode(row)
		if err != nil {
			return &node.StoreError{Code: node.ErrInvalidArgument, Message: err.Error(), Path: row.Path()}
		}
		return txn.Set(rowKey(row.Container, row.Name, row.Version), data)
	})
}

// getNode resolves one row inside a transaction. A negative version resolves
// to the highest version present: version keys are inverted, so the first
// key under the row prefix is the current version.
func getNode(txn *badger.Txn, container, name string, version int) (*node.TreeNode, error) {
	if version == node.CurrentVersion {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   1,
			Prefix:         rowKeyPrefix(container, name),
		})
		defer it.Close()

		it.Rewind()
		if !it.Valid() {
			return nil, node.NotFound(node.Merge(container, name))
		}
		var row *node.TreeNode
		err := it.Item().Value(func(val []byte) error {
			var err error
			row, err = decodeNode(val)
			return err
		})
		if err != nil {
			return nil, &node.StoreError{Code: node.ErrIOError, Message: err.Error(), Path: node.Merge(container, name)}
		}
		return row, nil
	}

	item, err := txn.Get(rowKey(container, name, version))
	if err == badger.ErrKeyNotFound {
		return nil, node.NotFound(node.Merge(container, name))
	}
	if err != nil {
		return nil, &node.StoreError{Code: node.ErrIOError, Message: err.Error(), Path: node.Merge(container, name)}
	}
	var row *node.TreeNode
	err = item.Value(func(val []byte) error {
		var err error
		row, err = decodeNode(val)
		return err
	})
	if err != nil {
		return nil, &node.StoreError{Code: node.ErrIOError, Message: err.Error(), Path: node.Merge(container, name)}
	}
	return row, nil
}
