package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend drivers.
const (
	DriverAppwrite = "appwrite"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EnvPrefix prefixes environment variables that override config keys,
// e.g. LEADBOARD_BACKEND_ENDPOINT for backend.endpoint.
const EnvPrefix = "LEADBOARD"

// CollectionsConfig names the document collections on the hosted backend.
type CollectionsConfig struct {
	Columns   string `mapstructure:"columns" yaml:"columns"`
	Leads     string `mapstructure:"leads" yaml:"leads"`
	Customers string `mapstructure:"customers" yaml:"customers"`
}

// BackendConfig selects and addresses the entity, blob and identity backends.
type BackendConfig struct {
	// Driver is one of "appwrite", "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Endpoint is the root URL of the hosted REST API.
	Endpoint    string            `mapstructure:"endpoint" yaml:"endpoint"`
	ProjectID   string            `mapstructure:"project_id" yaml:"project_id"`
	DatabaseID  string            `mapstructure:"database_id" yaml:"database_id"`
	Collections CollectionsConfig `mapstructure:"collections" yaml:"collections"`
	BucketID    string            `mapstructure:"bucket_id" yaml:"bucket_id"`

	// DSN is the sqlite file path or postgres connection URL.
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// UploadConfig is the blob store allow-list.
type UploadConfig struct {
	MaxBytes     int64    `mapstructure:"max_bytes" yaml:"max_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types" yaml:"allowed_types"`
}

// IntakeConfig configures mailbox lead intake over IMAP.
// The password is kept in the system keyring, never in this file.
type IntakeConfig struct {
	Host          string `mapstructure:"host" yaml:"host"`
	Port          int    `mapstructure:"port" yaml:"port"`
	Username      string `mapstructure:"username" yaml:"username"`
	TLS           bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox       string `mapstructure:"mailbox" yaml:"mailbox"`
	SinceDays     int    `mapstructure:"since_days" yaml:"since_days"`
	Limit         int    `mapstructure:"limit" yaml:"limit"`
	SaveCustomers bool   `mapstructure:"save_customers" yaml:"save_customers"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme            string `mapstructure:"theme" yaml:"theme"`
	ReminderCheckSec int    `mapstructure:"reminder_check_sec" yaml:"reminder_check_sec"`
}

// LogConfig controls the structured log output.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Uploads UploadConfig  `mapstructure:"uploads" yaml:"uploads"`
	Intake  IntakeConfig  `mapstructure:"intake" yaml:"intake"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/leadboard.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "leadboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/leadboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

var defaults = map[string]any{
	"backend.driver":                DriverAppwrite,
	"backend.endpoint":              "https://cloud.appwrite.io/v1",
	"backend.project_id":            "",
	"backend.database_id":           "crm_db",
	"backend.collections.columns":   "columns",
	"backend.collections.leads":     "leads",
	"backend.collections.customers": "customers",
	"backend.bucket_id":             "customer-documents",
	"backend.dsn":                   "",
	"backend.timeout_sec":           30,
	"uploads.max_bytes":             int64(10 << 20),
	"uploads.allowed_types":         []string{"image/jpeg", "image/png", "image/webp", "application/pdf"},
	"intake.host":                   "",
	"intake.port":                   993,
	"intake.username":               "",
	"intake.tls":                    true,
	"intake.mailbox":                "INBOX",
	"intake.since_days":             7,
	"intake.limit":                  25,
	"intake.save_customers":         false,
	"display.theme":                 "default",
	"display.reminder_check_sec":    30,
	"log.path":                      "",
	"log.level":                     "info",
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			Driver:     DriverAppwrite,
			Endpoint:   "https://cloud.appwrite.io/v1",
			DatabaseID: "crm_db",
			Collections: CollectionsConfig{
				Columns:   "columns",
				Leads:     "leads",
				Customers: "customers",
			},
			BucketID:   "customer-documents",
			TimeoutSec: 30,
		},
		Uploads: UploadConfig{
			MaxBytes:     10 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "application/pdf"},
		},
		Intake: IntakeConfig{
			Port:      993,
			TLS:       true,
			Mailbox:   "INBOX",
			SinceDays: 7,
			Limit:     25,
		},
		Display: DisplayConfig{
			Theme:            "default",
			ReminderCheckSec: 30,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file next to the config (or in the working directory) is loaded
// first, and LEADBOARD_* environment variables override file values.
// If the file does not exist, defaults plus environment are returned.
func LoadConfig(path string) (*AppConfig, error) {
	loadEnvFiles(filepath.Join(filepath.Dir(path), ".env"), ".env")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDerivedDefaults()
	return cfg, nil
}

func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// Existing process variables win over file entries.
		_ = godotenv.Load(p)
	}
}

func (c *AppConfig) applyDerivedDefaults() {
	if c.Backend.Driver == DriverSQLite && c.Backend.DSN == "" {
		c.Backend.DSN = filepath.Join(ConfigDir(), "board.db")
	}
	if c.Log.Path == "" {
		c.Log.Path = filepath.Join(ConfigDir(), "leadboard.log")
	}
	if c.Display.ReminderCheckSec <= 0 {
		c.Display.ReminderCheckSec = 30
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = 30
	}
}

// Validate checks that the selected backend is fully addressed.
func (c *AppConfig) Validate() error {
	switch c.Backend.Driver {
	case DriverAppwrite:
		if c.Backend.ProjectID == "" {
			return fmt.Errorf("backend.project_id is required for the %s driver", DriverAppwrite)
		}
		if c.Backend.Endpoint == "" {
			return fmt.Errorf("backend.endpoint is required for the %s driver", DriverAppwrite)
		}
	case DriverSQLite, DriverPostgres:
		if c.Backend.DSN == "" {
			return fmt.Errorf("backend.dsn is required for the %s driver", c.Backend.Driver)
		}
	default:
		return fmt.Errorf("unknown backend driver %q", c.Backend.Driver)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("uploads", cfg.Uploads)
	v.Set("intake", cfg.Intake)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
