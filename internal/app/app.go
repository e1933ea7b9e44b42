package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/keys"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
	"github.com/nhle/taskmaster/internal/store"
	appsync "github.com/nhle/taskmaster/internal/sync"
	"github.com/nhle/taskmaster/internal/tasks"
	"github.com/nhle/taskmaster/internal/theme"
	"github.com/nhle/taskmaster/internal/ui"
	authview "github.com/nhle/taskmaster/internal/ui/auth"
	"github.com/nhle/taskmaster/internal/ui/command"
	"github.com/nhle/taskmaster/internal/ui/confirm"
	"github.com/nhle/taskmaster/internal/ui/detail"
	helpview "github.com/nhle/taskmaster/internal/ui/help"
	"github.com/nhle/taskmaster/internal/ui/history"
	"github.com/nhle/taskmaster/internal/ui/settings"
	"github.com/nhle/taskmaster/internal/ui/taskform"
	"github.com/nhle/taskmaster/internal/ui/tasklist"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultToastDuration  = 4 * time.Second
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewSplash ViewState = iota
	ViewLogin
	ViewRegister
	ViewList
	ViewDetail
	ViewTaskForm
	ViewConfirm
	ViewHelp
	ViewCommand
	ViewHistory
	ViewSettings
)

// Deps are the long-lived services the UI drives.
type Deps struct {
	Session  *session.Manager
	Auth     AuthService
	Tasks    *tasks.Controller
	Debounce *tasks.Debouncer
	Store    store.Store
	Refresh  *appsync.AutoRefresh
	Config   *model.AppConfig
	Logger   *slog.Logger

	// SaveConfig persists edits made in the settings view; Probe checks a
	// new server URL first. The view is unavailable without SaveConfig.
	SaveConfig settings.Saver
	Probe      settings.Prober
}

// Model is the root Bubble Tea model. It routes between the splash screen,
// the public auth screens and the protected dashboard by asking the session
// guard, and turns every failed operation into a notification.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	ready        bool
	keys         *keys.KeyMap

	session *session.Manager
	auth    AuthService
	ctrl     *tasks.Controller
	debounce *tasks.Debouncer
	store    store.Store
	refresh  *appsync.AutoRefresh
	config   *model.AppConfig
	saveCfg  settings.Saver
	logger   *slog.Logger

	requestTimeout time.Duration
	toastDuration  time.Duration

	splash       spinner.Model
	authView     authview.Model
	taskList     tasklist.Model
	detail       detail.Model
	taskForm     taskform.Model
	confirmView  confirm.Model
	helpView     helpview.Model
	commandView  command.Model
	historyView  history.Model
	settingsView settings.Model

	toast       *model.Notification
	toastSeq    int
	unreadCount int
}

// New creates the root model. The session starts pending; Init restores it.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()

	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	refresh := d.Refresh
	if refresh == nil {
		refresh = appsync.New(0)
	}
	debounce := d.Debounce
	if debounce == nil {
		debounce = tasks.NewDebouncer(tasks.DefaultDebounce)
	}

	requestTimeout, toastDuration := defaultRequestTimeout, defaultToastDuration
	if d.Config != nil {
		if t := d.Config.RequestTimeout(); t > 0 {
			requestTimeout = t
		}
		if t := d.Config.ToastDuration(); t > 0 {
			toastDuration = t
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		currentView:    ViewSplash,
		previousView:   ViewList,
		keys:           k,
		session:        d.Session,
		auth:           d.Auth,
		ctrl:           d.Tasks,
		debounce:       debounce,
		store:          d.Store,
		refresh:        refresh,
		config:         d.Config,
		saveCfg:        d.SaveConfig,
		logger:         logger,
		requestTimeout: requestTimeout,
		toastDuration:  toastDuration,
		splash:         sp,
		authView:       authview.New(authview.ModeLogin, 80, 24),
		taskList:       tasklist.New(d.Tasks, debounce, k, 80, 24),
		detail:         detail.New(k, 80, 24),
		taskForm:       taskform.New(80, 24),
		confirmView:    confirm.New(80, 24),
		helpView:       helpview.New(k, 80, 24),
		commandView:    command.New(80, 24),
		historyView:    history.New(d.Store, k, 80, 24),
		settingsView:   settings.New(d.SaveConfig, d.Probe, 80, 24),
	}
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// Init restores the persisted session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.splash.Tick, m.restore())
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.authView.SetSize(msg.Width, msg.Height)
		m.taskList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.confirmView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.historyView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		return m, nil

	case spinner.TickMsg:
		switch m.currentView {
		case ViewSplash:
			var cmd tea.Cmd
			m.splash, cmd = m.splash.Update(msg)
			return m, cmd
		case ViewLogin, ViewRegister:
			var cmd tea.Cmd
			m.authView, cmd = m.authView.Update(msg)
			return m, cmd
		case ViewSettings:
			var cmd tea.Cmd
			m.settingsView, cmd = m.settingsView.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd

	// Session
	case restoredMsg:
		return m, m.goTo(session.RouteDashboard)

	case authview.SwitchMsg:
		if msg.Mode == authview.ModeRegister {
			return m, m.goTo(session.RouteRegister)
		}
		return m, m.goTo(session.RouteLogin)

	case authview.LoginSubmitMsg:
		return m, m.login(msg.Credentials)

	case authview.RegisterSubmitMsg:
		return m, m.register(msg.Registration, kindRegister)

	case authview.GuestMsg:
		return m, m.register(guestRegistration(), kindGuest)

	case authResultMsg:
		return m, m.handleAuthResult(msg)

	case expiryMsg:
		if m.session.State() == session.StateAuthenticated && m.session.ExpiresAt().Equal(msg.at) {
			return m, m.expire()
		}
		return m, nil

	case logoutNotifiedMsg:
		return m, nil

	// Tasks
	case tasklist.ListResultMsg:
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, tea.Batch(cmd, m.handleListResult(msg))

	case appsync.RefreshMsg:
		if !m.refresh.Accept(msg) {
			return m, nil
		}
		m.refresh.Begin()
		return m, tea.Batch(m.taskList.Reload(), m.refresh.Next())

	case tasklist.SelectedTaskMsg:
		m.detail.SetTask(msg.Task)
		m.currentView = ViewDetail
		return m, nil

	case tasklist.NewTaskMsg:
		return m, m.openCreateForm()

	case tasklist.EditTaskMsg:
		return m, m.openEditForm(msg.Task)

	case tasklist.DeleteTaskMsg:
		return m, m.askDelete(msg.Task)

	case tasklist.ToggleTaskMsg:
		return m, m.toggleTask(msg.Task.ID)

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionEdit:
			return m, m.openEditForm(msg.Task)
		case detail.ActionDelete:
			return m, m.askDelete(msg.Task)
		case detail.ActionToggle:
			return m, m.toggleTask(msg.Task.ID)
		}
		return m, nil

	case taskform.SubmitMsg:
		if msg.ID == 0 {
			return m, m.createTask(msg.Input)
		}
		return m, m.updateTask(msg.ID, msg.Input)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case confirm.ResultMsg:
		m.currentView = m.previousView
		if !msg.Confirmed {
			return m, nil
		}
		return m, m.deleteTask(msg.Task.ID)

	case mutationResultMsg:
		return m, m.handleMutation(msg)

	// Palette, help and history
	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(command.Command(msg))

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case history.CloseMsg:
		m.currentView = m.previousView
		return m, m.fetchUnreadCount()

	case history.ChangedMsg:
		return m, m.fetchUnreadCount()

	case settings.SavedMsg:
		m.currentView = m.previousView
		return m, m.applySettings(msg.Config)

	case settings.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	// Notifications
	case notificationSavedMsg:
		if msg.err != nil {
			m.logger.Warn("saving notification", slog.String("error", msg.err.Error()))
		}
		return m, m.fetchUnreadCount()

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.refresh.Stop()
			return m, tea.Quit
		}
		if m.acceptsGlobalKeys() {
			if mdl, cmd, ok := m.handleGlobalKey(msg); ok {
				return mdl, cmd
			}
		}
	}

	return m.updateActiveView(msg)
}

// acceptsGlobalKeys reports whether single-letter shortcuts are free to use,
// i.e. no text input has focus.
func (m Model) acceptsGlobalKeys() bool {
	switch m.currentView {
	case ViewList:
		return !m.taskList.Searching()
	case ViewDetail, ViewHelp:
		return true
	}
	return false
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit) && m.currentView == ViewList:
		m.refresh.Stop()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return m, nil, true

	case key.Matches(msg, m.keys.Command) && m.currentView != ViewHelp:
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.History) && m.currentView == ViewList:
		return m, m.openHistory(), true

	case key.Matches(msg, m.keys.Settings) && m.currentView == ViewList:
		return m, m.openSettings(), true

	case key.Matches(msg, m.keys.Logout) && m.currentView == ViewList:
		return m, m.logout(), true
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin, ViewRegister:
		m.authView, cmd = m.authView.Update(msg)
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewConfirm:
		m.confirmView, cmd = m.confirmView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.currentView {
	case ViewSplash:
		return lipgloss.Place(m.layout.Width, m.layout.Height, lipgloss.Center, lipgloss.Center,
			m.splash.View()+" Restoring session...")
	case ViewLogin, ViewRegister:
		view := m.authView.View()
		if m.toast != nil {
			view = lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.NewStyle().MaxHeight(m.layout.Height-1).Render(view),
				m.layout.RenderNotification(*m.toast))
		}
		return view
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.welcome())
	content := m.renderContent()

	var statusBar string
	if m.toast != nil {
		statusBar = m.layout.RenderNotification(*m.toast)
	} else {
		statusBar = m.layout.RenderStatusBar(m.keyHints(), m.syncStatus())
	}

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewConfirm:
		return m.confirmView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewHistory:
		return m.historyView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	if m.unreadCount > 0 {
		return fmt.Sprintf("TaskMaster [%d new]", m.unreadCount)
	}
	return "TaskMaster"
}

// welcome returns the header greeting for the signed-in user.
func (m Model) welcome() string {
	user, ok := m.session.User()
	if !ok {
		return ""
	}
	return "Welcome, " + user.DisplayName()
}

// syncStatus returns a short string describing the refresh state.
func (m Model) syncStatus() string {
	st := m.refresh.Status()
	switch st.State {
	case appsync.SyncRunning:
		return "syncing..."
	case appsync.SyncError:
		return "⚠ sync failed"
	}
	if st.LastSync.IsZero() {
		return ""
	}
	return "synced " + tasklist.RelativeTime(st.LastSync)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | e edit | t toggle | d delete | j/k scroll"
	case ViewTaskForm:
		return "enter next | shift+tab back | esc cancel"
	case ViewConfirm:
		return "y yes | n no | esc cancel"
	case ViewHistory:
		return "m mark read | c clear | esc back"
	case ViewSettings:
		return "enter next | shift+tab back | esc cancel"
	default:
		if m.taskList.Searching() {
			return "enter apply | esc clear"
		}
		return "q quit | ? help | n new | / search | tab status | : command"
	}
}
