package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/leadboard/internal/model"
)

// KindUser labels errors from the users and sessions tables.
const KindUser model.EntityKind = "user"

// Account is a locally stored user together with its password hash.
type Account struct {
	User         model.User
	PasswordHash string
}

// SessionRecord is a persisted login session.
type SessionRecord struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Secret    string    `db:"secret"`
	ExpiresAt time.Time `db:"-"`
}

type accountRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

// CreateAccount registers a user. A duplicate email reports ErrStoreConflict.
func (s *SQLStore) CreateAccount(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	r := accountRow{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    s.stamp(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (:id, :name, :email, :password_hash, :created_at)`, r)
	if err != nil {
		return nil, classify("creating", KindUser, r.Email, err)
	}
	return &model.User{ID: r.ID, Name: r.Name, Email: r.Email}, nil
}

// AccountByEmail looks a user up by (case-insensitive) email.
func (s *SQLStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	var r accountRow
	err := s.db.GetContext(ctx, &r, s.q("SELECT * FROM users WHERE email = ?"),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, classify("getting", KindUser, email, err)
	}
	return &Account{
		User:         model.User{ID: r.ID, Name: r.Name, Email: r.Email},
		PasswordHash: r.PasswordHash,
	}, nil
}

// ListUsers returns every registered user, ordered by name.
func (s *SQLStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT id, name, email FROM users ORDER BY name, id"); err != nil {
		return nil, classify("listing", KindUser, "", err)
	}
	return users, nil
}

// CreateSession persists a session for userID.
func (s *SQLStore) CreateSession(ctx context.Context, userID, secret string, expiresAt time.Time) (*SessionRecord, error) {
	rec := &SessionRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Secret:    secret,
		ExpiresAt: expiresAt.UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO sessions (id, user_id, secret, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.Secret, millis(rec.ExpiresAt), s.stamp(),
	)
	if err != nil {
		return nil, classify("creating", KindUser, userID, err)
	}
	return rec, nil
}

// UserBySession resolves a session secret to its user. Expired sessions
// report ErrNotFound.
func (s *SQLStore) UserBySession(ctx context.Context, secret string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.q(`
		SELECT u.id, u.name, u.email
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.secret = ? AND s.expires_at > ?`), secret, s.stamp())
	if err != nil {
		return nil, classify("getting", KindUser, "session", err)
	}
	return &u, nil
}

// DeleteSession removes a session by secret. Deleting an unknown session
// is not an error.
func (s *SQLStore) DeleteSession(ctx context.Context, secret string) error {
	if _, err := s.db.ExecContext(ctx, s.q("DELETE FROM sessions WHERE secret = ?"), secret); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
