package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/leadboard/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Format string
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Write a snapshot of the board",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", string(export.FormatYAML), "output format (yaml|json)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(rootOpts *RootOptions, opts *ExportOptions, cmd *cobra.Command) error {
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid format", err)
	}
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg, rootOpts.Verbose)

	ctx, cancel := context.WithTimeout(commandContext(cmd), time.Duration(cfg.Backend.TimeoutSec)*time.Second)
	defer cancel()
	be, b, err := openLoadedBoard(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.Close()
	defer b.Close()

	w := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "creating output file", err)
		}
		defer f.Close()
		w = f
	}

	if err := export.Write(w, export.Take(b.State(), time.Now()), format); err != nil {
		return WrapExitError(ExitFailure, "writing export", err)
	}
	return nil
}
