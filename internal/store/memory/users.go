package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/auth"
)

// Users is a volatile auth.UserStore for the memory backend and tests.
type Users struct {
	mu    sync.Mutex
	users map[string]auth.User // keyed by lowercased email
}

func NewUsers() *Users {
	return &Users{users: make(map[string]auth.User)}
}

func (s *Users) CreateUser(_ context.Context, email, passwordHash string) (auth.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return auth.User{}, auth.ErrUserExists
	}
	u := auth.User{
		ID:           uuid.NewString(),
		Email:        key,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[key] = u
	return u, nil
}

func (s *Users) GetUserByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}
