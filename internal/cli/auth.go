package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
)

func newLoginCmd(s *state) *cobra.Command {
	var creds model.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. Missing values are prompted for.

Examples:
  taskmaster login
  taskmaster login --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Email == "" || creds.Password == "" {
				if err := promptCredentials(&creds); err != nil {
					return err
				}
			}
			creds.Email = strings.TrimSpace(creds.Email)
			if err := model.ValidateCredentials(creds); err != nil {
				return err
			}

			env, err := s.environment()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			resp, err := env.Client.Login(ctx, creds)
			if err != nil {
				env.record(ctx, model.LevelError, "Login failed")
				return fmt.Errorf("login failed: %s", api.Message(err, "Login failed"))
			}
			return s.signIn(ctx, cmd, env, resp, "Welcome back!")
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newRegisterCmd(s *state) *cobra.Command {
	var reg model.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Name == "" || reg.Email == "" || reg.Password == "" {
				if err := promptRegistration(&reg); err != nil {
					return err
				}
			} else {
				reg.ConfirmPassword = reg.Password
			}
			reg.Name = strings.TrimSpace(reg.Name)
			reg.Email = strings.TrimSpace(reg.Email)
			if err := model.ValidateRegistration(reg); err != nil {
				return err
			}
			return s.register(cmd, reg, "Account created successfully!", "Registration failed")
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newGuestCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Continue as a throwaway guest account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
			return s.register(cmd, model.GuestRegistration(id), "Entered Guest Mode!", "Failed to enter guest mode")
		},
	}
}

func (s *state) register(cmd *cobra.Command, reg model.Registration, ok, fail string) error {
	env, err := s.environment()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	resp, err := env.Client.Register(ctx, reg)
	if err != nil {
		env.record(ctx, model.LevelError, fail)
		return fmt.Errorf("%s: %s", strings.ToLower(fail), api.Message(err, fail))
	}
	return s.signIn(ctx, cmd, env, resp, ok)
}

func (s *state) signIn(ctx context.Context, cmd *cobra.Command, env *Env, resp *model.AuthResponse, ok string) error {
	if _, err := env.Session.Login(resp.Tokens, resp.User); err != nil {
		return err
	}
	env.record(ctx, model.LevelSuccess, ok)
	if s.jsonOut {
		return printJSON(cmd.OutOrStdout(), resp.User)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n", colorGreen("✓"), resp.User.DisplayName())
	return nil
}

func newLogoutCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			_, notify := env.Session.Logout()
			if err := notify(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s server logout failed: %s\n", colorYellow("⚠"), api.Message(err, err.Error()))
			}
			env.record(ctx, model.LevelInfo, "Logged out")
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment()
			if err != nil {
				return err
			}
			if env.Session.Restore(cmd.Context()) != session.StateAuthenticated {
				return errNotLoggedIn
			}
			user, _ := env.Session.User()
			if s.jsonOut {
				return printJSON(cmd.OutOrStdout(), user)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:     %d\n", user.ID)
			fmt.Fprintf(out, "Name:   %s\n", user.Name)
			fmt.Fprintf(out, "Email:  %s\n", user.Email)
			if exp := env.Session.ExpiresAt(); !exp.IsZero() {
				fmt.Fprintf(out, "Expiry: %s\n", exp.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func promptCredentials(c *model.Credentials) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email Address").
				Value(&c.Email).
				Validate(model.ValidateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&c.Password),
		),
	).Run()
}

func promptRegistration(r *model.Registration) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Full Name").
				Value(&r.Name).
				Validate(model.ValidateName),
			huh.NewInput().
				Title("Email Address").
				Value(&r.Email).
				Validate(model.ValidateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&r.Password).
				Validate(model.ValidatePassword),
			huh.NewInput().
				Title("Confirm Password").
				EchoMode(huh.EchoModePassword).
				Value(&r.ConfirmPassword).
				Validate(func(s string) error {
					return model.ValidatePasswordMatch(r.Password, s)
				}),
		),
	).Run()
}
