package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/credential"
	"github.com/nhle/taskmaster/internal/logging"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
	"github.com/nhle/taskmaster/internal/store"
	"github.com/nhle/taskmaster/internal/tasks"
	"github.com/nhle/taskmaster/internal/theme"
)

// historyKeep is how many notifications survive the startup prune.
const historyKeep = 500

// Env holds the services shared by every command.
type Env struct {
	Config  *model.AppConfig
	Logger  *slog.Logger
	Creds   *credential.Store
	Client  *api.Client
	Session *session.Manager
	Tasks   *tasks.Controller
	Store   store.Store

	closers []io.Closer
}

// options are the global flags that locate configuration.
type options struct {
	configPath string
	envFile    string
}

// opener builds the Env for a command run.
type opener func(opts options) (*Env, error)

// NewEnv wires the API client, session and task controller over the given
// configuration, credential store and notification log.
func NewEnv(cfg *model.AppConfig, creds *credential.Store, st store.Store, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := api.NewClient(cfg.API.BaseURL, credential.NewTokenSource(creds),
		api.WithTimeout(cfg.RequestTimeout()),
		api.WithLogger(logger),
	)
	return &Env{
		Config:  cfg,
		Logger:  logger,
		Creds:   creds,
		Client:  client,
		Session: session.NewManager(creds, client, logger),
		Tasks:   tasks.NewController(client, cfg.Tasks.PageSize, logger),
		Store:   st,
	}
}

// openEnv loads .env and the config file, then opens the log file, the
// keyring and the notification log.
func openEnv(opts options) (*Env, error) {
	if err := loadDotEnv(opts.envFile); err != nil {
		return nil, err
	}

	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	theme.Apply(cfg.Display.Theme)

	logger, logCloser, err := logging.Open(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	creds, err := credential.Open(model.ConfigDir())
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("opening notification log: %w", err)
	}
	if err := st.PruneNotifications(context.Background(), historyKeep); err != nil {
		logger.Warn("pruning notification log", slog.String("error", err.Error()))
	}

	env := NewEnv(cfg, creds, st, logger)
	env.closers = []io.Closer{st, logCloser}
	return env, nil
}

// loadDotEnv reads path, or ./.env when path is empty. A missing default
// file is not an error.
func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Close releases the notification log and the log file.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// record appends msg to the notification log. Failures are only logged.
func (e *Env) record(ctx context.Context, level model.NotificationLevel, msg string) {
	if e.Store == nil {
		return
	}
	if _, err := e.Store.CreateNotification(ctx, model.Notification{Level: level, Message: msg}); err != nil {
		e.Logger.Warn("saving notification", slog.String("error", err.Error()))
	}
}
