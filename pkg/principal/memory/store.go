// Package memory provides an in-memory principal store for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/radium-data/radium/pkg/principal"
)

// MemoryPrincipalStoreConfig configures the in-memory principal store.
type MemoryPrincipalStoreConfig struct{}

// MemoryPrincipalStore implements principal.Store using maps protected by a
// read-write mutex.
type MemoryPrincipalStore struct {
	mu     sync.RWMutex
	users  map[string]*principal.User
	groups map[string]*principal.Group
}

// NewMemoryPrincipalStore creates an empty in-memory principal store.
func NewMemoryPrincipalStore(_ MemoryPrincipalStoreConfig) *MemoryPrincipalStore {
	return &MemoryPrincipalStore{
		users:  make(map[string]*principal.User),
		groups: make(map[string]*principal.Group),
	}
}

// NewMemoryPrincipalStoreWithDefaults creates an in-memory principal store
// with the default configuration.
func NewMemoryPrincipalStoreWithDefaults() *MemoryPrincipalStore {
	return NewMemoryPrincipalStore(MemoryPrincipalStoreConfig{})
}

var _ principal.Store = (*MemoryPrincipalStore)(nil)

func (s *MemoryPrincipalStore) PutUser(ctx context.Context, u *principal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.Login] = cloneUser(u)
	return nil
}

func (s *MemoryPrincipalStore) GetUser(ctx context.Context, login string) (*principal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[login]
	if !ok {
		return nil, principal.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryPrincipalStore) ListUsers(ctx context.Context) ([]*principal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logins := make([]string, 0, len(s.users))
	for login := range s.users {
		logins = append(logins, login)
	}
	sort.Strings(logins)

	out := make([]*principal.User, 0, len(logins))
	for _, login := range logins {
		out = append(out, cloneUser(s.users[login]))
	}
	return out, nil
}

func (s *MemoryPrincipalStore) DeleteUser(ctx context.Context, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, login)
	return nil
}

func (s *MemoryPrincipalStore) PutGroup(ctx context.Context, g *principal.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *g
	s.groups[g.Name] = &copied
	return nil
}

func (s *MemoryPrincipalStore) GetGroup(ctx context.Context, name string) (*principal.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[name]
	if !ok {
		return nil, principal.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *MemoryPrincipalStore) ListGroups(ctx context.Context) ([]*principal.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*principal.Group, 0, len(names))
	for _, name := range names {
		copied := *s.groups[name]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryPrincipalStore) DeleteGroup(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.groups, name)
	return nil
}

func (s *MemoryPrincipalStore) Close() error { return nil }

func cloneUser(u *principal.User) *principal.User {
	copied := *u
	if u.Groups != nil {
		copied.Groups = append([]string(nil), u.Groups...)
	}
	return &copied
}
