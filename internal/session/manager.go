package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/taskmaster/internal/credential"
	"github.com/nhle/taskmaster/internal/model"
)

// TokenStore persists the access/refresh token pair.
type TokenStore interface {
	Tokens() (model.Tokens, error)
	Save(model.Tokens) error
	Clear() error
}

// Authenticator is the subset of the API the session needs.
type Authenticator interface {
	Me(ctx context.Context) (*model.User, error)
	Logout(ctx context.Context, accessToken string) error
}

// Notifier performs the best-effort server logout.
type Notifier func(ctx context.Context) error

// Manager owns the current user and the persisted token pair. It is safe
// for concurrent use; Bubble Tea commands call it from goroutines.
type Manager struct {
	mu     sync.RWMutex
	store  TokenStore
	auth   Authenticator
	logger *slog.Logger
	now    func() time.Time

	state State
	user  *model.User

	// generation changes on every login, logout and expiry so a Restore
	// that settles afterwards does not overwrite the newer state.
	generation uint64
}

// NewManager returns a pending session. Call Restore to settle it.
func NewManager(store TokenStore, auth Authenticator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		store:  store,
		auth:   auth,
		logger: logger,
		now:    time.Now,
		state:  StatePending,
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns the current user; ok is false unless authenticated.
func (m *Manager) User() (model.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return model.User{}, false
	}
	return *m.user, true
}

// Restore settles a pending session from persisted tokens. Failures are an
// expected "not logged in" path: stored tokens are cleared, the session
// becomes anonymous, and nothing is returned to the caller.
func (m *Manager) Restore(ctx context.Context) State {
	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()

	tokens, err := m.store.Tokens()
	if err != nil {
		m.logger.Debug("reading stored tokens", slog.String("error", err.Error()))
		return m.fail(gen)
	}
	if tokens.AccessToken == "" {
		if tokens.RefreshToken != "" {
			// A lone refresh token cannot restore anything.
			return m.fail(gen)
		}
		return m.settle(gen, StateAnonymous, nil)
	}

	if credential.Expired(tokens.AccessToken, m.now()) {
		m.logger.Debug("stored access token expired")
		return m.fail(gen)
	}

	user, err := m.auth.Me(ctx)
	if err != nil {
		m.logger.Debug("restoring session", slog.String("error", err.Error()))
		return m.fail(gen)
	}

	return m.settle(gen, StateAuthenticated, user)
}

// fail clears stored tokens and settles anonymous, so a token never stays
// persisted without a validated user.
func (m *Manager) fail(gen uint64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return m.state
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing stored tokens", slog.String("error", err.Error()))
	}
	m.state = StateAnonymous
	m.user = nil
	return m.state
}

func (m *Manager) settle(gen uint64, state State, user *model.User) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return m.state
	}
	m.state = state
	m.user = user
	return m.state
}

// Login persists the token pair issued by a successful login or register
// exchange and marks the session authenticated. It performs no network I/O.
func (m *Manager) Login(tokens model.Tokens, user model.User) (Route, error) {
	if tokens.Empty() {
		return RouteNone, errors.New("login: server returned no access token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(tokens); err != nil {
		return RouteNone, fmt.Errorf("saving tokens: %w", err)
	}

	m.generation++
	m.state = StateAuthenticated
	m.user = &user

	m.logger.Info("logged in", slog.Int64("user_id", user.ID))
	return RouteDashboard, nil
}

// Logout clears the session locally and immediately. The returned notifier
// tells the server with the token captured before clearing; its failure is
// logged and never undoes the local logout.
func (m *Manager) Logout() (Route, Notifier) {
	m.mu.Lock()
	tokens, err := m.store.Tokens()
	if err != nil {
		m.logger.Debug("reading tokens for logout", slog.String("error", err.Error()))
	}
	m.teardown()
	m.mu.Unlock()

	access := tokens.AccessToken
	notify := func(ctx context.Context) error {
		if access == "" {
			return nil
		}
		if err := m.auth.Logout(ctx, access); err != nil {
			m.logger.Warn("server logout failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	}

	m.logger.Info("logged out")
	return RouteLogin, notify
}

// Expire recovers from an authentication failure: same local teardown as
// Logout, without notifying the server.
func (m *Manager) Expire() Route {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateAuthenticated {
		m.logger.Info("session expired")
	}
	m.teardown()
	return RouteLogin
}

// teardown must be called with m.mu held.
func (m *Manager) teardown() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing stored tokens", slog.String("error", err.Error()))
	}
	m.generation++
	m.state = StateAnonymous
	m.user = nil
}

// ExpiresAt returns the exp claim of the stored access token, or the zero
// time when unknown.
func (m *Manager) ExpiresAt() time.Time {
	tokens, err := m.store.Tokens()
	if err != nil {
		return time.Time{}
	}
	return credential.ExpiresAt(tokens.AccessToken)
}
