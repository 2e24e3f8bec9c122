package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is a map-backed Store used by unit tests. Bearer tokens are
// the literal string "token:<id>".
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: map[string]*User{}}
}

// AddUser seeds a principal and returns its id.
func (s *InMemoryStore) AddUser(user User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Claims == nil {
		user.Claims = map[string]string{}
	}
	s.users[user.ID] = &user
	return user.ID
}

func (s *InMemoryStore) LookupByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *InMemoryStore) LookupByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Create(_ context.Context, email, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[id] = &User{ID: id, Email: email, Claims: map[string]string{}}
	return id, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

func (s *InMemoryStore) AttachClaims(_ context.Context, id string, claims map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range claims {
		user.Claims[k] = v
	}
	return nil
}

func (s *InMemoryStore) VerifyCredential(_ context.Context, token string) (string, error) {
	var id string
	if _, err := fmt.Sscanf(token, "token:%s", &id); err != nil {
		return "", fmt.Errorf("malformed credential")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[id]; !ok {
		return "", ErrNotFound
	}
	return id, nil
}
