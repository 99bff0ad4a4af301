package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"veraz/internal/core"
)

// MemoryStore keeps users in a map. Used by tests and USER_BACKEND=memory.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

var (
	_ CredentialStore = (*MemoryStore)(nil)
	_ UserWriter      = (*MemoryStore)(nil)
)

func NewMemoryStore(users ...User) *MemoryStore {
	s := &MemoryStore{users: make(map[string]User)}
	for _, u := range users {
		_ = s.SaveUser(context.Background(), u)
	}
	return s
}

func (s *MemoryStore) Lookup(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, u User) error {
	if strings.TrimSpace(u.Username) == "" {
		return core.ErrEmptyUsername
	}
	if !u.Role.IsValid() {
		return core.ErrInvalidRole
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(u.Username)] = u
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out, nil
}
