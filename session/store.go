// Package session tracks which authenticated users are currently connected.
// The store is an explicitly owned dependency injected into the runtime, not
// an ambient singleton.
package session

import (
	"sort"
	"sync"

	"chat-relay/domain"
)

// Store is a process-wide presence registry keyed by user ID. A user appears
// at most once regardless of how many connections they open; the last Add
// wins. All operations are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewStore() *Store {
	return &Store{users: make(map[string]domain.User)}
}

// Add upserts the user. Calling it twice for the same user leaves the
// registry in the same state as calling it once.
func (s *Store) Add(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// Remove deletes the user if present. Removing an absent user is a no-op.
func (s *Store) Remove(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, user.ID)
}

// Users returns a snapshot of connected users sorted by username.
func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Count reports how many users are online.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
