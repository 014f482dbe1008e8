package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/leadboard/internal/identity"
)

type credentials struct {
	signup   bool
	name     string
	email    string
	password string
}

// promptLogin asks for credentials on the terminal. With allowSignup the
// user may create an account instead.
func promptLogin(allowSignup bool) (credentials, error) {
	var c credentials
	if allowSignup {
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("No active session").
				Affirmative("Create account").
				Negative("Log in").
				Value(&c.signup),
		)).Run()
		if err != nil {
			return c, formError(err)
		}
	}

	var fields []huh.Field
	if c.signup {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Value(&c.name).
			Validate(required("name")))
	}
	fields = append(fields,
		huh.NewInput().
			Title("Email").
			Value(&c.email).
			Validate(required("email")),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.password).
			Validate(func(s string) error {
				if c.signup && len(s) < identity.MinPasswordLength {
					return fmt.Errorf("password must be at least %d characters", identity.MinPasswordLength)
				}
				return required("password")(s)
			}),
	)

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return c, formError(err)
	}
	c.email = strings.TrimSpace(c.email)
	return c, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return NewExitError(ExitFailure, "cancelled")
	}
	return WrapExitError(ExitFailure, "reading input", err)
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "login",
		Short:         "Sign in and remember the session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdentity(cmd, rootOpts, func(ctx context.Context, p Identity) error {
				c, err := promptLogin(false)
				if err != nil {
					return err
				}
				if _, err := p.Login(ctx, c.email, c.password); err != nil {
					return WrapExitError(ExitFailure, "login failed", err)
				}
				return printUser(ctx, cmd, p)
			})
		},
	}

	return cmd
}

// NewSignupCommand creates the signup command.
func NewSignupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "signup",
		Short:         "Create an account and sign in",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdentity(cmd, rootOpts, func(ctx context.Context, p Identity) error {
				c := credentials{signup: true}
				form := huh.NewForm(huh.NewGroup(
					huh.NewInput().Title("Name").Value(&c.name).Validate(required("name")),
					huh.NewInput().Title("Email").Value(&c.email).Validate(required("email")),
					huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&c.password),
				))
				if err := form.Run(); err != nil {
					return formError(err)
				}
				if _, err := p.Signup(ctx, c.name, strings.TrimSpace(c.email), c.password); err != nil {
					return WrapExitError(ExitFailure, "signup failed", err)
				}
				return printUser(ctx, cmd, p)
			})
		},
	}

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "logout",
		Short:         "End the current session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdentity(cmd, rootOpts, func(ctx context.Context, p Identity) error {
				if err := p.Logout(ctx); err != nil && !errors.Is(err, identity.ErrNoSession) {
					return WrapExitError(ExitFailure, "logout failed", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}

	return cmd
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whoami",
		Short:         "Show the signed-in user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdentity(cmd, rootOpts, func(ctx context.Context, p Identity) error {
				return printUser(ctx, cmd, p)
			})
		},
	}

	return cmd
}

func withIdentity(cmd *cobra.Command, opts *RootOptions, fn func(context.Context, Identity) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	be, err := openBackend(cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "opening backend", err)
	}
	defer be.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), be.Timeout)
	defer cancel()
	return fn(ctx, be.Identity)
}

func printUser(ctx context.Context, cmd *cobra.Command, p Identity) error {
	u, err := p.CurrentUser(ctx)
	if errors.Is(err, identity.ErrNoSession) {
		return NewExitError(ExitFailure, "not signed in")
	}
	if err != nil {
		return WrapExitError(ExitFailure, "checking session", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", u.DisplayName(), u.Email, u.ID)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
