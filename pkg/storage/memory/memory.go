// Package memory provides an in-memory implementation of storage.UserStore
// for tests and lightweight deployments. Users are lost when the process
// restarts. Optional eviction of the oldest user limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/bote/pkg/storage"
	"github.com/rhuss/bote/pkg/value"
)

// Store is an in-memory UserStore with optional size-bounded eviction.
type Store struct {
	mu      sync.RWMutex
	users   map[int64]*entry
	order   *list.List // front = newest, back = oldest
	maxSize int        // 0 = unlimited
}

type entry struct {
	user storage.User
	elem *list.Element
}

// Ensure Store implements storage.UserStore at compile time.
var _ storage.UserStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the oldest user is evicted when the
// limit is reached.
func New(maxSize int) *Store {
	return &Store{
		users:   make(map[int64]*entry),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// AddUser stores u. It returns storage.ErrConflict if the ID is taken.
func (s *Store) AddUser(_ context.Context, u storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return storage.ErrConflict
	}

	if s.maxSize > 0 && len(s.users) >= s.maxSize {
		s.evictOldest()
	}

	s.users[u.ID] = &entry{user: u, elem: s.order.PushFront(u.ID)}
	return nil
}

// DeleteUser removes the user with the given ID.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.order.Remove(e.elem)
	delete(s.users, id)
	return nil
}

// ListUsers returns a cursor over a snapshot of all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) (value.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	users := make([]storage.User, 0, len(s.users))
	for _, e := range s.users {
		users = append(users, e.user)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return storage.UserRows(users), nil
}

// FindUser returns a cursor with the user with the given ID, or an empty
// cursor if there is none.
func (s *Store) FindUser(ctx context.Context, id int64) (value.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.users[id]; ok {
		return storage.UserRows([]storage.User{e.user}), nil
	}
	return storage.UserRows(nil), nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Ping always returns nil for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// evictOldest removes the least recently added user. Must be called with
// s.mu held.
func (s *Store) evictOldest() {
	back := s.order.Back()
	if back == nil {
		return
	}
	id := back.Value.(int64)
	s.order.Remove(back)
	delete(s.users, id)
}
