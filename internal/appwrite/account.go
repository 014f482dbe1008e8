package appwrite

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nhle/leadboard/internal/identity"
	"github.com/nhle/leadboard/internal/model"
)

// Account is an identity.Provider and identity.Directory over the hosted
// account and users APIs. The session secret is kept in sessions and
// attached to the client for every later call.
type Account struct {
	client   *Client
	sessions identity.SessionStore
}

var (
	_ identity.Provider  = (*Account)(nil)
	_ identity.Directory = (*Account)(nil)
)

// NewAccount returns an identity provider for c.
func NewAccount(c *Client, sessions identity.SessionStore) *Account {
	return &Account{client: c, sessions: sessions}
}

type sessionDoc struct {
	ID     string `json:"$id"`
	UserID string `json:"userId"`
	Secret string `json:"secret"`
	Expire string `json:"expire"`
}

type userDoc struct {
	ID    string `json:"$id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u userDoc) toModel() model.User {
	return model.User{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Login opens an email/password session.
func (a *Account) Login(ctx context.Context, email, password string) (*identity.Session, error) {
	if err := identity.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	var doc sessionDoc
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	header, err := a.client.send(ctx, request{
		method:      http.MethodPost,
		path:        "/account/sessions/email",
		body:        body,
		contentType: "application/json",
	}, &doc)
	switch StatusOf(err) {
	case http.StatusUnauthorized, http.StatusBadRequest:
		return nil, identity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	secret := doc.Secret
	if secret == "" {
		secret = sessionCookie(header, a.client.Project())
	}
	if secret == "" {
		return nil, errors.New("creating session: no session secret in response")
	}

	a.client.SetSession(secret)
	if err := a.sessions.Save(secret); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return &identity.Session{
		ID:        doc.ID,
		UserID:    doc.UserID,
		Secret:    secret,
		ExpiresAt: parseTime(doc.Expire),
	}, nil
}

// Signup creates an account and logs it in.
func (a *Account) Signup(ctx context.Context, name, email, password string) (*identity.Session, error) {
	if err := identity.ValidateSignup(name, email, password); err != nil {
		return nil, err
	}

	body := map[string]string{
		"userId":   "unique()",
		"email":    email,
		"password": password,
		"name":     name,
	}
	err := a.client.doJSON(ctx, http.MethodPost, "/account", nil, body, nil)
	if StatusOf(err) == http.StatusConflict {
		return nil, identity.ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return a.Login(ctx, email, password)
}

// Logout deletes the current session.
func (a *Account) Logout(ctx context.Context) error {
	if err := a.resume(); err != nil {
		return err
	}
	if a.client.Session() == "" {
		return identity.ErrNoSession
	}

	err := a.client.doJSON(ctx, http.MethodDelete, "/account/sessions/current", nil, nil, nil)
	if err != nil && StatusOf(err) != http.StatusUnauthorized {
		return fmt.Errorf("deleting session: %w", err)
	}
	a.client.SetSession("")
	return a.sessions.Clear()
}

// CurrentUser returns the signed-in user. A session the server no longer
// accepts is cleared and reported as identity.ErrNoSession.
func (a *Account) CurrentUser(ctx context.Context) (*model.User, error) {
	if err := a.resume(); err != nil {
		return nil, err
	}
	if a.client.Session() == "" {
		return nil, identity.ErrNoSession
	}

	var doc userDoc
	err := a.client.doJSON(ctx, http.MethodGet, "/account", nil, nil, &doc)
	if StatusOf(err) == http.StatusUnauthorized {
		a.client.SetSession("")
		_ = a.sessions.Clear()
		return nil, identity.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}
	u := doc.toModel()
	return &u, nil
}

// ListUsers lists every project user. It needs an API key; without one
// only the signed-in user is returned.
func (a *Account) ListUsers(ctx context.Context) ([]model.User, error) {
	if a.client.apiKey == "" {
		u, err := a.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		return []model.User{*u}, nil
	}

	var out struct {
		Total int       `json:"total"`
		Users []userDoc `json:"users"`
	}
	q, err := encodeQueries(limitQuery(100))
	if err != nil {
		return nil, err
	}
	if _, err := a.client.send(ctx, request{method: http.MethodGet, path: "/users", query: q, apiKey: true}, &out); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]model.User, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, u.toModel())
	}
	return users, nil
}

// resume loads a stored session into the client if none is set.
func (a *Account) resume() error {
	if a.client.Session() != "" {
		return nil
	}
	secret, err := a.sessions.Load()
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	a.client.SetSession(secret)
	return nil
}

func sessionCookie(h http.Header, project string) string {
	resp := http.Response{Header: h}
	for _, c := range resp.Cookies() {
		if c.Name == "a_session_"+project && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
