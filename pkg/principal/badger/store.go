// Package badger provides a persistent principal store backed by BadgerDB.
//
// Key namespace: "u:<login>" holds user records, "g:<name>" holds group
// records, both JSON. Logins and names are unique keys, so point lookups
// cover every query except the full listings, which are prefix scans.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/principal"
)

const (
	prefixUser  = "u:"
	prefixGroup = "g:"
)

// BadgerPrincipalStoreConfig configures the BadgerDB-backed principal store.
type BadgerPrincipalStoreConfig struct {
	// DBPath is the directory holding the BadgerDB files. Ignored when
	// InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without persistence, mainly for tests.
	InMemory bool
}

// BadgerPrincipalStore implements principal.Store using BadgerDB.
type BadgerPrincipalStore struct {
	db *badger.DB
}

var _ principal.Store = (*BadgerPrincipalStore)(nil)

// NewBadgerPrincipalStore opens (or creates) the database and returns a
// store.
func NewBadgerPrincipalStore(ctx context.Context, config BadgerPrincipalStoreConfig) (*BadgerPrincipalStore, error) {
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
	return &BadgerPrincipalStore{db: db}, nil
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

func (s *BadgerPrincipalStore) PutUser(ctx context.Context, u *principal.User) error {
	return s.put(ctx, prefixUser+u.Login, u)
}

func (s *BadgerPrincipalStore) GetUser(ctx context.Context, login string) (*principal.User, error) {
	var u principal.User
	if err := s.get(ctx, prefixUser+login, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *BadgerPrincipalStore) ListUsers(ctx context.Context) ([]*principal.User, error) {
	var out []*principal.User
	err := s.scan(ctx, prefixUser, func(val []byte) error {
		var u principal.User
		if err := json.Unmarshal(val, &u); err != nil {
			return err
		}
		out = append(out, &u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerPrincipalStore) DeleteUser(ctx context.Context, login string) error {
	return s.delete(ctx, prefixUser+login)
}

func (s *BadgerPrincipalStore) PutGroup(ctx context.Context, g *principal.Group) error {
	return s.put(ctx, prefixGroup+g.Name, g)
}

func (s *BadgerPrincipalStore) GetGroup(ctx context.Context, name string) (*principal.Group, error) {
	var g principal.Group
	if err := s.get(ctx, prefixGroup+name, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *BadgerPrincipalStore) ListGroups(ctx context.Context) ([]*principal.Group, error) {
	var out []*principal.Group
	err := s.scan(ctx, prefixGroup, func(val []byte) error {
		var g principal.Group
		if err := json.Unmarshal(val, &g); err != nil {
			return err
		}
		out = append(out, &g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerPrincipalStore) DeleteGroup(ctx context.Context, name string) error {
	return s.delete(ctx, prefixGroup+name)
}

func (s *BadgerPrincipalStore) Close() error {
	return s.db.Close()
}

func (s *BadgerPrincipalStore) put(ctx context.Context, key string, record any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerPrincipalStore) get(ctx context.Context, key string, record any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return principal.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, record)
		})
	})
}

func (s *BadgerPrincipalStore) scan(ctx context.Context, prefix string, fn func(val []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Prefix:         []byte(prefix),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerPrincipalStore) delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
