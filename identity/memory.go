package identity

import (
	"context"
	"sync"

	"github.com/MrEthical07/goAuthz/permission"
)

// MemoryStore is a concurrency-safe in-process identity store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[int64]memoryUser
}

type memoryUser struct {
	role    permission.Role
	hasRole bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]memoryUser)}
}

// Put creates or replaces id with role. An empty role stores the identity
// without a role record.
func (s *MemoryStore) Put(id int64, role permission.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = memoryUser{role: role, hasRole: role != ""}
}

// Delete removes id.
func (s *MemoryStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// Len returns the number of stored identities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *MemoryStore) Exists(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *MemoryStore) CurrentRole(ctx context.Context, id int64) (permission.Role, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || !u.hasRole {
		return "", false, nil
	}
	return u.role, true, nil
}
