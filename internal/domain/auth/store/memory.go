package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tensosense-server-go/internal/domain/auth/model"
)

type memoryStore struct {
	items map[string]model.User
	mutex sync.RWMutex
}

// NewMemory builds an in-memory user store.
func NewMemory() Store {
	return &memoryStore{
		items: make(map[string]model.User),
	}
}

func (s *memoryStore) Get(_ context.Context, username string) (model.User, error) {
	s.mutex.RLock()
	user, ok := s.items[username]
	s.mutex.RUnlock()
	if !ok {
		return model.User{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	return user, nil
}

func (s *memoryStore) Put(_ context.Context, user model.User) error {
	if user.Username == "" {
		return fmt.Errorf("username required")
	}
	s.mutex.Lock()
	s.items[user.Username] = user
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]model.User, error) {
	s.mutex.RLock()
	users := make([]model.User, 0, len(s.items))
	for _, u := range s.items {
		users = append(users, u)
	}
	s.mutex.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return map[string]any{
		"type":  "memory",
		"total": len(s.items),
	}, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}
