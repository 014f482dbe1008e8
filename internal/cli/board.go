package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/leadboard/internal/app"
	"github.com/nhle/leadboard/internal/identity"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/reminder"
)

// NewBoardCommand creates the board command, which runs the TUI.
func NewBoardCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "board",
		Short:         "Open the lead board",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(commandContext(cmd), rootOpts)
		},
	}

	return cmd
}

func runBoard(ctx context.Context, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logFile, err := openLogFile(cfg.Log.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening log file", err)
	}
	defer logFile.Close()
	log := newLogger(logFile, cfg, opts.Verbose)

	be, err := openBackend(cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "opening backend", err)
	}
	defer be.Close()

	user, err := ensureSession(ctx, be.Identity)
	if err != nil {
		return err
	}

	b := be.NewBoard(log)
	defer b.Close()
	if err := b.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "loading board", err)
	}
	log.Info("board loaded", "driver", cfg.Backend.Driver, "user", user.ID,
		"columns", len(b.State().Columns()), "leads", len(b.State().Leads()))

	watcher := reminder.New(b.State(), time.Duration(cfg.Display.ReminderCheckSec)*time.Second)
	m := app.New(app.Options{
		Board:    b,
		Watcher:  watcher,
		User:     user,
		Importer: newImporter(cfg, b, log),
		Timeout:  be.Timeout,
		Logger:   log,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return WrapExitError(ExitFailure, "running board", err)
	}

	// Give queued writes a moment to land before the process exits.
	settleCtx, cancel := context.WithTimeout(context.Background(), be.Timeout)
	defer cancel()
	if err := b.Settle(settleCtx); err != nil {
		log.Warn("exiting with unsaved changes", "error", err)
	}
	return nil
}

// ensureSession returns the signed-in user, asking for a login when there
// is no session.
func ensureSession(ctx context.Context, p Identity) (*model.User, error) {
	u, err := p.CurrentUser(ctx)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, identity.ErrNoSession) {
		return nil, WrapExitError(ExitFailure, "checking session", err)
	}

	creds, err := promptLogin(true)
	if err != nil {
		return nil, err
	}
	if creds.signup {
		_, err = p.Signup(ctx, creds.name, creds.email, creds.password)
	} else {
		_, err = p.Login(ctx, creds.email, creds.password)
	}
	if err != nil {
		return nil, WrapExitError(ExitFailure, "signing in", err)
	}

	u, err = p.CurrentUser(ctx)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "checking session", err)
	}
	fmt.Printf("Signed in as %s\n", u.DisplayName())
	return u, nil
}
