package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
)

var (
	errNotLoggedIn    = errors.New("not logged in; run `taskmaster login` first")
	errSessionExpired = errors.New("session expired; run `taskmaster login` again")
)

// state is shared by the command tree of one run.
type state struct {
	open    opener
	opts    options
	jsonOut bool
	env     *Env
}

func (s *state) environment() (*Env, error) {
	if s.env != nil {
		return s.env, nil
	}
	env, err := s.open(s.opts)
	if err != nil {
		return nil, err
	}
	s.env = env
	return env, nil
}

// authenticated restores the stored session and fails when there is none.
func (s *state) authenticated(ctx context.Context) (*Env, error) {
	env, err := s.environment()
	if err != nil {
		return nil, err
	}
	if env.Session.Restore(ctx) != session.StateAuthenticated {
		return nil, errNotLoggedIn
	}
	return env, nil
}

// fail records a failed operation and maps authentication failures to a
// logged-out session.
func (s *state) fail(ctx context.Context, env *Env, err error, text string) error {
	if api.IsAuthError(err) {
		env.Session.Expire()
		return errSessionExpired
	}
	env.record(ctx, model.LevelError, text)
	if model.IsValidationError(err) {
		return err
	}
	return fmt.Errorf("%s: %s", text, api.Message(err, err.Error()))
}

// close releases the Env if a command opened one.
func (s *state) close() error {
	if s.env == nil {
		return nil
	}
	return s.env.Close()
}

func newRootCmd(open opener) (*cobra.Command, *state) {
	s := &state{open: open}

	root := &cobra.Command{
		Use:   "taskmaster",
		Short: "TaskMaster - manage your tasks from the terminal",
		Long: `TaskMaster is a terminal client for the TaskMaster task API.

Run without a subcommand to open the interactive dashboard.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, s)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&s.opts.configPath, "config", model.DefaultConfigPath(), "config file")
	root.PersistentFlags().StringVar(&s.opts.envFile, "env-file", "", "dotenv file to load (default ./.env)")
	root.PersistentFlags().BoolVar(&s.jsonOut, "json", false, "print JSON output")

	root.AddCommand(
		newLoginCmd(s),
		newRegisterCmd(s),
		newGuestCmd(s),
		newLogoutCmd(s),
		newWhoamiCmd(s),
		newTasksCmd(s),
	)
	return root, s
}

// Execute runs the command tree.
func Execute(version string) error {
	root, s := newRootCmd(openEnv)
	defer s.close()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
