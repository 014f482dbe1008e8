package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/leadboard/internal/appwrite"
	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/credential"
	"github.com/nhle/leadboard/internal/identity"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

// Identity is a provider that can also list assignable users.
type Identity interface {
	identity.Provider
	identity.Directory
}

// Backend is the entity store, blob store and identity provider selected
// by the config.
type Backend struct {
	Store    store.Store
	Blobs    blob.Store
	Identity Identity
	Timeout  time.Duration

	close func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// NewBoard returns an unloaded board over the backend.
func (b *Backend) NewBoard(log *slog.Logger) *board.Board {
	return board.New(b.Store, board.Options{
		Blobs:   b.Blobs,
		Users:   b.Identity,
		Logger:  log,
		Timeout: b.Timeout,
	})
}

// newSessionStore returns where a profile's session secret is kept.
var newSessionStore = func(profile string) identity.SessionStore {
	return credential.SessionStore{Profile: profile}
}

// lookupSecret reads an optional secret from the keyring.
var lookupSecret = credential.Lookup

// openBackend wires the backend named by cfg.Backend.Driver.
func openBackend(cfg *model.AppConfig) (*Backend, error) {
	timeout := time.Duration(cfg.Backend.TimeoutSec) * time.Second
	policy := blob.Policy{MaxBytes: cfg.Uploads.MaxBytes, AllowedTypes: cfg.Uploads.AllowedTypes}

	switch cfg.Backend.Driver {
	case model.DriverAppwrite:
		apiKey, err := lookupSecret(credential.KeyAPIKey)
		if err != nil {
			return nil, fmt.Errorf("reading api key: %w", err)
		}
		opts := []appwrite.Option{appwrite.WithTimeout(timeout)}
		if apiKey != "" {
			opts = append(opts, appwrite.WithAPIKey(apiKey))
		}
		client := appwrite.NewClient(cfg.Backend.Endpoint, cfg.Backend.ProjectID, opts...)
		cols := appwrite.Collections{
			Columns:   cfg.Backend.Collections.Columns,
			Leads:     cfg.Backend.Collections.Leads,
			Customers: cfg.Backend.Collections.Customers,
		}
		return &Backend{
			Store:    appwrite.NewDocuments(client, cfg.Backend.DatabaseID, cols),
			Blobs:    blob.Guarded{Store: appwrite.NewStorage(client, cfg.Backend.BucketID), Policy: policy},
			Identity: appwrite.NewAccount(client, newSessionStore(cfg.Backend.ProjectID)),
			Timeout:  timeout,
		}, nil

	case model.DriverSQLite, model.DriverPostgres:
		if cfg.Backend.Driver == model.DriverSQLite && cfg.Backend.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Backend.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		s, err := store.Open(cfg.Backend.Driver, cfg.Backend.DSN)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store:    s,
			Blobs:    blob.Guarded{Store: s.Files(cfg.Backend.DSN), Policy: policy},
			Identity: identity.NewLocal(s, newSessionStore("local-"+cfg.Backend.Driver)),
			Timeout:  timeout,
			close:    s.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
}

// openLoadedBoard opens the backend and loads the board from it. The
// caller closes both.
func openLoadedBoard(ctx context.Context, cfg *model.AppConfig, log *slog.Logger) (*Backend, *board.Board, error) {
	be, err := openBackend(cfg)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "opening backend", err)
	}
	b := be.NewBoard(log)
	if err := b.Load(ctx); err != nil {
		b.Close()
		be.Close()
		return nil, nil, WrapExitError(ExitFailure, "loading board", err)
	}
	return be, b, nil
}
