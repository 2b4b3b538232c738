// Package auth resolves credentials to user identities and tracks signed-in
// sessions. Passwords are verified against bcrypt hashes; sessions are
// opaque uuid tokens held in process memory.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pzielke/todolists/internal/domain"
)

// CredentialSource looks up the stored account record for a username.
// Satisfied by the todo store.
type CredentialSource interface {
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Service signs users in and out and resolves session tokens to owner ids.
type Service struct {
	users CredentialSource

	mu       sync.RWMutex
	sessions map[string]uint
}

func NewService(users CredentialSource) *Service {
	return &Service{
		users:    users,
		sessions: make(map[string]uint),
	}
}

// SignIn verifies the credentials and returns a fresh session token.
// A wrong username and a wrong password are indistinguishable to the
// caller; both yield ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.UserByUsername(ctx, username)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = user.ID
	s.mu.Unlock()
	return token, nil
}

// Resolve maps a session token to the owning user id.
func (s *Service) Resolve(token string) (uint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sessions[token]
	return userID, ok
}

// SignOut invalidates a session token. Unknown tokens are ignored.
func (s *Service) SignOut(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// HashPassword produces a bcrypt hash for storing on a user record.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
