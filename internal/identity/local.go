package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

// DefaultSessionTTL is how long a local login stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Local is a Provider backed by the users and sessions tables of a SQL
// store. Passwords are kept as bcrypt hashes.
type Local struct {
	store    *store.SQLStore
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
}

var (
	_ Provider  = (*Local)(nil)
	_ Directory = (*Local)(nil)
)

// NewLocal returns a local provider remembering the session in sessions.
func NewLocal(s *store.SQLStore, sessions SessionStore) *Local {
	return &Local{store: s, sessions: sessions, ttl: DefaultSessionTTL, now: time.Now}
}

// Login checks the password and opens a session.
func (l *Local) Login(ctx context.Context, email, password string) (*Session, error) {
	if err := ValidateLogin(email, password); err != nil {
		return nil, err
	}

	acct, err := l.store.AccountByEmail(ctx, email)
	if store.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	rec, err := l.store.CreateSession(ctx, acct.User.ID, secret, l.now().Add(l.ttl))
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if err := l.sessions.Save(secret); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return &Session{ID: rec.ID, UserID: rec.UserID, Secret: secret, ExpiresAt: rec.ExpiresAt}, nil
}

// Signup creates an account and logs it in.
func (l *Local) Signup(ctx context.Context, name, email, password string) (*Session, error) {
	if err := ValidateSignup(name, email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if _, err := l.store.CreateAccount(ctx, strings.TrimSpace(name), email, string(hash)); err != nil {
		if store.IsConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return l.Login(ctx, email, password)
}

// Logout ends the current session.
func (l *Local) Logout(ctx context.Context) error {
	secret, err := l.sessions.Load()
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if secret == "" {
		return ErrNoSession
	}
	if err := l.store.DeleteSession(ctx, secret); err != nil {
		return err
	}
	return l.sessions.Clear()
}

// CurrentUser returns the signed-in user, or ErrNoSession. A stale stored
// session is cleared.
func (l *Local) CurrentUser(ctx context.Context) (*model.User, error) {
	secret, err := l.sessions.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if secret == "" {
		return nil, ErrNoSession
	}

	u, err := l.store.UserBySession(ctx, secret)
	if errors.Is(err, store.ErrNotFound) {
		_ = l.sessions.Clear()
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	return u, nil
}

// ListUsers returns every local account.
func (l *Local) ListUsers(ctx context.Context) ([]model.User, error) {
	return l.store.ListUsers(ctx)
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
