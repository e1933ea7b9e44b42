package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/app"
	"github.com/nhle/taskmaster/internal/model"
	appsync "github.com/nhle/taskmaster/internal/sync"
	"github.com/nhle/taskmaster/internal/tasks"
)

// runTUI opens the interactive dashboard on the alternate screen.
func runTUI(cmd *cobra.Command, s *state) error {
	env, err := s.environment()
	if err != nil {
		return err
	}
	cfg := env.Config
	path := s.opts.configPath

	m := app.New(app.Deps{
		Session:  env.Session,
		Auth:     env.Client,
		Tasks:    env.Tasks,
		Debounce: tasks.NewDebouncer(cfg.DebounceWindow()),
		Store:    env.Store,
		Refresh:  appsync.New(cfg.RefreshInterval()),
		Config:   cfg,
		Logger:   env.Logger,
		SaveConfig: func(c *model.AppConfig) error {
			return model.SaveConfig(path, c)
		},
		Probe: func(ctx context.Context, baseURL string) error {
			return api.Ping(ctx, baseURL, cfg.RequestTimeout())
		},
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
