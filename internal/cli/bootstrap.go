package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the default columns on an empty board",
		Long: `Load the board once and create the default columns if it has none.

Running it against a board that already has columns changes nothing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(rootOpts, cmd)
		},
	}

	return cmd
}

func runBootstrap(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)

	be, err := openBackend(cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "opening backend", err)
	}
	defer be.Close()

	b := be.NewBoard(log)
	defer b.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), be.Timeout)
	defer cancel()
	n, err := b.Bootstrap(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "bootstrapping board", err)
	}

	out := cmd.OutOrStdout()
	if n == 0 {
		fmt.Fprintf(out, "Board already has %d column(s)\n", len(b.State().Columns()))
		return nil
	}
	fmt.Fprintf(out, "Created %d default column(s)\n", n)
	if opts.Verbose {
		for _, c := range b.State().Columns() {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %d %s (%s)\n", c.Order, c.Title, c.ID)
		}
	}
	return nil
}
