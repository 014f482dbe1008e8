package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/credential"
	"github.com/nhle/leadboard/internal/intake"
	"github.com/nhle/leadboard/internal/model"
)

// newImporter returns an importer for the configured mailbox, or nil when
// intake is not configured.
func newImporter(cfg *model.AppConfig, b *board.Board, log *slog.Logger) *intake.Importer {
	ic := cfg.Intake
	if ic.Host == "" || ic.Username == "" {
		return nil
	}
	return &intake.Importer{
		Board:         b,
		Mailbox:       &keyringMailbox{cfg: ic},
		SaveCustomers: ic.SaveCustomers,
		Logger:        log,
		Timeout:       time.Duration(cfg.Backend.TimeoutSec) * time.Second,
	}
}

// keyringMailbox reads the IMAP password from the keyring on first use.
type keyringMailbox struct {
	cfg  model.IntakeConfig
	imap *intake.IMAPMailbox
}

var _ intake.Mailbox = (*keyringMailbox)(nil)

func (m *keyringMailbox) open() (*intake.IMAPMailbox, error) {
	if m.imap != nil {
		return m.imap, nil
	}
	password, err := lookupSecret(credential.IMAPKey(m.cfg.Username))
	if err != nil {
		return nil, fmt.Errorf("reading imap password: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("no imap password stored for %s", m.cfg.Username)
	}
	m.imap = intake.NewIMAPMailbox(intake.IMAPConfig{
		Host:      m.cfg.Host,
		Port:      m.cfg.Port,
		Username:  m.cfg.Username,
		Password:  password,
		TLS:       m.cfg.TLS,
		Mailbox:   m.cfg.Mailbox,
		SinceDays: m.cfg.SinceDays,
		Limit:     m.cfg.Limit,
	})
	return m.imap, nil
}

func (m *keyringMailbox) FetchUnseen(ctx context.Context) ([]intake.Message, error) {
	mb, err := m.open()
	if err != nil {
		return nil, err
	}
	return mb.FetchUnseen(ctx)
}

func (m *keyringMailbox) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	mb, err := m.open()
	if err != nil {
		return err
	}
	return mb.MarkSeen(ctx, uids)
}

// NewIntakeCommand creates the intake command.
func NewIntakeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Import unseen mail as leads",
		Long: `Fetch unseen messages from the configured IMAP mailbox and add each as a
lead at the end of the first column.

A message is marked seen only after its lead is saved, so failures are
retried on the next run. The password is read from the keyring; store it
with "leadboard set-secret imap".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntake(rootOpts, cmd)
		},
	}

	return cmd
}

func runIntake(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Intake.Host == "" || cfg.Intake.Username == "" {
		return NewExitError(ExitCommandError, "intake.host and intake.username must be set")
	}
	log := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)

	ctx := commandContext(cmd)
	be, b, err := openLoadedBoard(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.Close()
	defer b.Close()

	res, err := newImporter(cfg, b, log).Run(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "intake failed", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d lead(s), %d failed\n", res.Imported, res.Failed)
	if res.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d message(s) not imported", res.Failed))
	}
	return nil
}
