// Package identity covers sign-in for the board: the Provider interface,
// the user Directory used for assignment, and session persistence.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nhle/leadboard/internal/model"
)

var (
	// ErrNoSession means nobody is signed in.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidCredentials means the email or password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken means an account with the email already exists.
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// MinPasswordLength matches the hosted backend's password rule.
const MinPasswordLength = 8

// Session is an authenticated login.
type Session struct {
	ID        string
	UserID    string
	Secret    string
	ExpiresAt time.Time
}

// Provider signs users in and out.
type Provider interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Signup(ctx context.Context, name, email, password string) (*Session, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Directory lists the users leads can be assigned to.
type Directory interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

// SessionStore persists the current session secret between runs.
type SessionStore interface {
	Load() (string, error)
	Save(secret string) error
	Clear() error
}

// MemorySessionStore keeps the session secret in memory.
type MemorySessionStore struct {
	mu     sync.Mutex
	secret string
}

func (m *MemorySessionStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secret, nil
}

func (m *MemorySessionStore) Save(secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = secret
	return nil
}

func (m *MemorySessionStore) Clear() error {
	return m.Save("")
}

// ValidateSignup checks signup input before it is sent anywhere.
func ValidateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	if err := ValidateLogin(email, password); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// ValidateLogin checks login input.
func ValidateLogin(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("a valid email is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}
