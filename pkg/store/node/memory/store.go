// Package memory provides an in-memory node store, suitable for tests and
// single-process deployments where persistence is not required.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/store/node"
)

// MemoryNodeStoreConfig configures the in-memory node store. There are no
// tunables today; the type exists so the factory layer can decode a config
// section uniformly across store types.
type MemoryNodeStoreConfig struct{}

// MemoryNodeStore implements node.Store using in-memory maps.
//
// Thread safety: all operations are protected by a single read-write mutex,
// making the store safe for concurrent access from multiple goroutines.
//
// Storage model: rows index by container, then by name, then hold the
// version slice sorted descending so the first element is always the
// current version.
type MemoryNodeStore struct {
	mu sync.RWMutex

	// rows maps container -> name -> versions (descending)
	rows map[string]map[string][]*node.TreeNode
}

// NewMemoryNodeStore creates an empty in-memory node store.
func NewMemoryNodeStore(_ MemoryNodeStoreConfig) *MemoryNodeStore {
	return &MemoryNodeStore{
		rows: make(map[string]map[string][]*node.TreeNode),
	}
}

// NewMemoryNodeStoreWithDefaults creates an in-memory node store with the
// default configuration.
func NewMemoryNodeStoreWithDefaults() *MemoryNodeStore {
	return NewMemoryNodeStore(MemoryNodeStoreConfig{})
}

var _ node.Store = (*MemoryNodeStore)(nil)

func (s *MemoryNodeStore) Get(ctx context.Context, container, name string, version int) (*node.TreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, err := s.locked(container, name, version)
	if err != nil {
		return nil, err
	}
	return cloneNode(row), nil
}

func (s *MemoryNodeStore) List(ctx context.Context, container string) ([]*node.TreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := s.rows[container]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*node.TreeNode
	for _, name := range names {
		for _, row := range byName[name] {
			out = append(out, cloneNode(row))
		}
	}
	return out, nil
}

func (s *MemoryNodeStore) Put(ctx context.Context, n *node.TreeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.rows[n.Container]
	if !ok {
		byName = make(map[string][]*node.TreeNode)
		s.rows[n.Container] = byName
	}

	stored := cloneNode(n)
	versions := byName[n.Name]
	for i, row := range versions {
		if row.Version == n.Version {
			versions[i] = stored
			return nil
		}
	}
	versions = append(versions, stored)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})
	byName[n.Name] = versions
	return nil
}

func (s *MemoryNodeStore) Delete(ctx context.Context, container, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.rows[container]
	if !ok {
		return nil
	}
	delete(byName, name)
	if len(byName) == 0 {
		delete(s.rows, container)
	}
	return nil
}

func (s *MemoryNodeStore) SetACL(ctx context.Context, container, name string, version int, entries map[string]acl.Ace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.locked(container, name, version)
	if err != nil {
		return err
	}
	row.ACL = cloneACL(entries)
	return nil
}

func (s *MemoryNodeStore) MergeACL(ctx context.Context, container, name string, version int, entries map[string]acl.Ace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.locked(container, name, version)
	if err != nil {
		return err
	}
	if row.ACL == nil {
		row.ACL = make(map[string]acl.Ace, len(entries))
	}
	for ident, ace := range entries {
		row.ACL[ident] = ace
	}
	return nil
}

func (s *MemoryNodeStore) Healthcheck(ctx context.Context) error { return nil }

func (s *MemoryNodeStore) Close() error { return nil }

// locked resolves a row under the caller's lock. Returns the stored row,
// not a copy.
func (s *MemoryNodeStore) locked(container, name string, version int) (*node.TreeNode, error) {
	versions := s.rows[container][name]
	if len(versions) == 0 {
		return nil, node.NotFound(node.Merge(container, name))
	}
	if version == node.CurrentVersion {
		return versions[0], nil
	}
	for _, row := range versions {
		if row.Version == version {
			return row, nil
		}
	}
	return nil, node.NotFound(node.Merge(container, name))
}

func cloneNode(n *node.TreeNode) *node.TreeNode {
	out := *n
	out.SysMeta = cloneStrings(n.SysMeta)
	out.UserMeta = cloneStrings(n.UserMeta)
	out.ACL = cloneACL(n.ACL)
	return &out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneACL(m map[string]acl.Ace) map[string]acl.Ace {
	if m == nil {
		return nil
	}
	out := make(map[string]acl.Ace, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
