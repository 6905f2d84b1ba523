package auth

import (
	"context"
	"sync"
	"time"
)

// credential is one stored record.
type credential struct {
	hash      string
	createdAt time.Time
}

// MemoryStore keeps credential records in memory. Used when no durable
// backend is configured; records are lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]credential),
	}
}

// UsernameExists reports whether a record exists for name.
func (s *MemoryStore) UsernameExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[name]
	return ok, nil
}

// CreateUser stores a new record, hashing the password first.
func (s *MemoryStore) CreateUser(_ context.Context, name, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; ok {
		return ErrUsernameTaken
	}
	s.users[name] = credential{hash: hash, createdAt: time.Now()}
	return nil
}

// VerifyCredentials reports whether name exists and password matches.
func (s *MemoryStore) VerifyCredentials(_ context.Context, name, password string) (bool, error) {
	s.mu.Lock()
	cred, ok := s.users[name]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	return checkPassword(cred.hash, password), nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
