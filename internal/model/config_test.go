package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverAppwrite, cfg.Backend.Driver)
	assert.Equal(t, "crm_db", cfg.Backend.DatabaseID)
	assert.Equal(t, "customer-documents", cfg.Backend.BucketID)
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, "INBOX", cfg.Intake.Mailbox)
	assert.Equal(t, 30, cfg.Display.ReminderCheckSec)
	assert.NotEmpty(t, cfg.Log.Path)

	// The hosted backend needs a project.
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "backend:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "b.db") + "\nintake:\n  host: imap.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("LEADBOARD_INTAKE_USERNAME", "sales@example.com")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverSQLite, cfg.Backend.Driver)
	assert.Equal(t, "imap.example.com", cfg.Intake.Host)
	assert.Equal(t, "sales@example.com", cfg.Intake.Username)
	assert.Equal(t, 993, cfg.Intake.Port)
}

func TestValidate(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.Backend.ProjectID = "crm"
	assert.NoError(t, cfg.Validate())

	cfg.Backend.Driver = DriverPostgres
	assert.ErrorContains(t, cfg.Validate(), "backend.dsn")

	cfg.Backend.Driver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "unknown backend driver")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Backend.ProjectID = "crm"
	cfg.Intake.Host = "imap.example.com"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "crm", loaded.Backend.ProjectID)
	assert.Equal(t, "imap.example.com", loaded.Intake.Host)
}
