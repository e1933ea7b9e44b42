package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
	authview "github.com/nhle/taskmaster/internal/ui/auth"
)

// AuthService performs the credential exchanges of the auth screens.
type AuthService interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error)
}

type authKind int

const (
	kindLogin authKind = iota
	kindRegister
	kindGuest
)

// restoredMsg is sent once the persisted session has been settled.
type restoredMsg struct {
	state session.State
}

// authResultMsg carries the outcome of a login or register exchange.
type authResultMsg struct {
	kind authKind
	resp *model.AuthResponse
	err  error
}

// expiryMsg fires when the access token issued with exp at runs out.
type expiryMsg struct {
	at time.Time
}

// logoutNotifiedMsg reports the best-effort server logout.
type logoutNotifiedMsg struct {
	err error
}

func (m Model) restore() tea.Cmd {
	sess := m.session
	timeout := m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return restoredMsg{state: sess.Restore(ctx)}
	}
}

// goTo navigates to route, or to wherever the guard sends the current
// session instead.
func (m *Model) goTo(route session.Route) tea.Cmd {
	d := session.Guard(m.session.State(), session.AreaOf(route))
	switch d.Verdict {
	case session.Wait:
		m.currentView = ViewSplash
		return m.splash.Tick
	case session.Redirect:
		route = d.Route
	}

	switch route {
	case session.RouteLogin:
		m.currentView = ViewLogin
		return m.authView.SetMode(authview.ModeLogin)
	case session.RouteRegister:
		m.currentView = ViewRegister
		return m.authView.SetMode(authview.ModeRegister)
	case session.RouteDashboard:
		return m.enterDashboard()
	}
	return nil
}

func (m *Model) enterDashboard() tea.Cmd {
	m.currentView = ViewList
	m.previousView = ViewList
	return tea.Batch(
		m.taskList.Reload(),
		m.refresh.Start(),
		m.scheduleExpiry(),
		m.fetchUnreadCount(),
	)
}

func (m Model) login(creds model.Credentials) tea.Cmd {
	svc := m.auth
	timeout := m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := svc.Login(ctx, creds)
		return authResultMsg{kind: kindLogin, resp: resp, err: err}
	}
}

func (m Model) register(reg model.Registration, kind authKind) tea.Cmd {
	if err := model.ValidateRegistration(reg); err != nil {
		return func() tea.Msg { return authResultMsg{kind: kind, err: err} }
	}
	svc := m.auth
	timeout := m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := svc.Register(ctx, reg)
		return authResultMsg{kind: kind, resp: resp, err: err}
	}
}

// guestRegistration returns a throwaway account with a random identity.
func guestRegistration() model.Registration {
	return model.GuestRegistration(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

var authMessages = map[authKind]struct{ ok, fail string }{
	kindLogin:    {"Welcome back!", "Login failed"},
	kindRegister: {"Account created successfully!", "Registration failed"},
	kindGuest:    {"Entered Guest Mode!", "Failed to enter guest mode"},
}

func (m *Model) handleAuthResult(msg authResultMsg) tea.Cmd {
	text := authMessages[msg.kind]

	if msg.err != nil {
		reason := api.Message(msg.err, text.fail)
		if model.IsValidationError(msg.err) {
			reason = msg.err.Error()
		}
		if msg.kind == kindGuest {
			reason = text.fail
		}
		m.logger.Info("authentication failed", slog.String("error", msg.err.Error()))
		return tea.Batch(m.authView.Fail(reason), m.notify(model.LevelError, reason))
	}

	route, err := m.session.Login(msg.resp.Tokens, msg.resp.User)
	if err != nil {
		m.logger.Error("storing session", slog.String("error", err.Error()))
		return tea.Batch(m.authView.Fail(text.fail), m.notify(model.LevelError, text.fail))
	}
	return tea.Batch(m.notify(model.LevelSuccess, text.ok), m.goTo(route))
}

// logout ends the session locally at once and tells the server afterwards.
func (m *Model) logout() tea.Cmd {
	route, notify := m.session.Logout()
	m.resetSession()

	timeout := m.requestTimeout
	tell := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return logoutNotifiedMsg{err: notify(ctx)}
	}
	return tea.Batch(tell, m.notify(model.LevelInfo, "Logged out"), m.goTo(route))
}

// expire handles an authentication failure or a lapsed token.
func (m *Model) expire() tea.Cmd {
	route := m.session.Expire()
	m.resetSession()
	return tea.Batch(
		m.notify(model.LevelError, "Session expired, please log in again"),
		m.goTo(route),
	)
}

func (m *Model) resetSession() {
	m.refresh.Stop()
	m.ctrl.Reset()
	m.taskList.Reset()
}

// scheduleExpiry fires an expiryMsg at the access token's exp claim.
func (m Model) scheduleExpiry() tea.Cmd {
	at := m.session.ExpiresAt()
	if at.IsZero() {
		return nil
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return expiryMsg{at: at} })
}
