// Package memorystorage keeps users in process memory. Contents are lost when
// the process exits.
package memorystorage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/patric-chuzhbe/usersapi/internal/models"
)

// MemoryStorage is the authoritative user collection. Users are kept in
// insertion order and ids come from a counter that never goes back, so an id
// freed by Delete is not handed out again.
type MemoryStorage struct {
	mu     sync.RWMutex
	users  []models.User
	lastID int64
	closed bool
}

// ErrClosed is returned by Ping once the storage has been closed.
var ErrClosed = errors.New("memorystorage: closed")

// New returns an empty storage whose first id is 1.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users: []models.User{},
	}, nil
}

// List returns a copy of all users in insertion order. It is never nil.
func (s *MemoryStorage) List(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.User, len(s.users))
	copy(result, s.users)

	return result, nil
}

// GetByID reports found=false when no user has the id.
func (s *MemoryStorage) GetByID(ctx context.Context, id int64) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx == -1 {
		return models.User{}, false, nil
	}

	return s.users[idx], true, nil
}

// Create assigns the next id and appends the user.
func (s *MemoryStorage) Create(ctx context.Context, newUser models.NewUser) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	usr := models.User{
		ID:    s.lastID,
		Name:  newUser.Name,
		Email: newUser.Email,
	}
	s.users = append(s.users, usr)

	return usr, nil
}

// Update merges the non-nil patch fields into the stored user. Nothing is
// changed when the id is unknown.
func (s *MemoryStorage) Update(ctx context.Context, id int64, patch models.UserPatch) (models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		return models.User{}, false, nil
	}
	s.users[idx] = patch.Apply(s.users[idx])

	return s.users[idx], true, nil
}

// Delete removes the user and reports whether anything was removed.
func (s *MemoryStorage) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		return false, nil
	}
	s.users = slices.Delete(s.users, idx, idx+1)

	return true, nil
}

// Count returns the number of stored users.
func (s *MemoryStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users), nil
}

// Ping reports whether the storage still accepts work.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	return nil
}

// Close marks the storage as shut down. The users stay readable so that
// requests still in flight during shutdown complete normally.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// indexOf must be called with s.mu held.
func (s *MemoryStorage) indexOf(id int64) int {
	return slices.IndexFunc(s.users, func(u models.User) bool {
		return u.ID == id
	})
}
