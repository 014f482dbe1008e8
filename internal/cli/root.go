package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/leadboard/internal/model"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the leadboard CLI. With no
// subcommand it runs the board.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	boardCmd := NewBoardCommand(opts)

	cmd := &cobra.Command{
		Use:   "leadboard",
		Short: "Leadboard - a terminal lead pipeline",
		Long: `A kanban board for sales leads and customers.

Leads move through columns by keyboard drag. Changes show at once and are
persisted in the background; a change the backend rejects is rolled back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          boardCmd.RunE,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", model.DefaultConfigPath(), "config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(boardCmd)
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewSignupCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewBootstrapCommand(opts))
	cmd.AddCommand(NewIntakeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewSetSecretCommand(opts))

	return cmd
}

// loadConfig reads and validates the config named by the flags.
func loadConfig(opts *RootOptions) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// newLogger returns a text logger on w at the configured level. Verbose
// forces debug.
func newLogger(w io.Writer, cfg *model.AppConfig, verbose bool) *slog.Logger {
	level := parseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openLogFile opens the log file for appending. The TUI owns the terminal,
// so the board logs here instead of stderr.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
