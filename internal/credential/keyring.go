// Package credential stores secrets (session secrets, the API key, the IMAP
// password) in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "leadboard"

// Well-known keys.
const (
	KeyAPIKey = "appwrite-api-key"
)

// SessionKey returns the key holding the session secret for a profile.
func SessionKey(profile string) string {
	if profile == "" {
		profile = "default"
	}
	return "session-" + profile
}

// IMAPKey returns the key holding the IMAP password for username.
func IMAPKey(username string) string {
	return "imap-" + username
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/leadboard/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("leadboard-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Lookup is Get, except a missing key returns "" and no error.
func Lookup(key string) (string, error) {
	v, err := Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Label: "leadboard " + key,
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring. Deleting a
// missing key is not an error.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// SessionStore keeps a profile's session secret in the keyring.
type SessionStore struct {
	Profile string
}

func (s SessionStore) Load() (string, error) { return Lookup(SessionKey(s.Profile)) }

func (s SessionStore) Save(secret string) error { return Set(SessionKey(s.Profile), secret) }

func (s SessionStore) Clear() error { return Delete(SessionKey(s.Profile)) }
