package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/leadboard/internal/credential"
)

// Secret names accepted by set-secret.
const (
	SecretAPIKey = "api-key"
	SecretIMAP   = "imap"
)

// storeSecret writes a keyring entry.
var storeSecret = credential.Set

// NewSetSecretCommand creates the set-secret command.
func NewSetSecretCommand(rootOpts *RootOptions) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set-secret <api-key|imap>",
		Short: "Store a secret in the system keyring",
		Long: `Store a secret in the system keyring instead of the config file.

  api-key  the hosted backend API key, used to list assignable users
  imap     the password for intake.username`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{SecretAPIKey, SecretIMAP},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secretKey(rootOpts, args[0])
			if err != nil {
				return err
			}
			if value == "" {
				err := huh.NewForm(huh.NewGroup(
					huh.NewInput().
						Title(args[0]).
						EchoMode(huh.EchoModePassword).
						Value(&value).
						Validate(required(args[0])),
				)).Run()
				if err != nil {
					return formError(err)
				}
			}
			if err := storeSecret(key, strings.TrimSpace(value)); err != nil {
				return WrapExitError(ExitFailure, "storing secret", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "secret value (prompted when empty)")

	return cmd
}

// secretKey maps a secret name to its keyring key.
func secretKey(opts *RootOptions, name string) (string, error) {
	switch name {
	case SecretAPIKey:
		return credential.KeyAPIKey, nil
	case SecretIMAP:
		cfg, err := loadConfig(opts)
		if err != nil {
			return "", err
		}
		if cfg.Intake.Username == "" {
			return "", NewExitError(ExitCommandError, "intake.username must be set first")
		}
		return credential.IMAPKey(cfg.Intake.Username), nil
	}
	return "", NewExitError(ExitCommandError, fmt.Sprintf("unknown secret %q: must be one of %s, %s", name, SecretAPIKey, SecretIMAP))
}
