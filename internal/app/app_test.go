package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/credential"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
	"github.com/nhle/taskmaster/internal/store"
	"github.com/nhle/taskmaster/internal/tasks"
	"github.com/nhle/taskmaster/internal/testutil"
	authview "github.com/nhle/taskmaster/internal/ui/auth"
	"github.com/nhle/taskmaster/internal/ui/confirm"
	"github.com/nhle/taskmaster/internal/ui/settings"
	"github.com/nhle/taskmaster/internal/ui/taskform"
)

// cmdTimeout bounds how long drain waits for one command. Ticks (toasts,
// cursor blink, token expiry) outlive it and are dropped.
const cmdTimeout = 300 * time.Millisecond

type harness struct {
	t       *testing.T
	fake    *testutil.FakeAPI
	creds   *credential.Store
	session *session.Manager
	ctrl    *tasks.Controller
	log     *store.SQLiteStore
	model   tea.Model
	quit    bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test adjust the dependencies before the model is
// built.
func newHarnessWith(t *testing.T, adjust func(*Deps)) *harness {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	creds := credential.NewStore(keyring.NewArrayKeyring(nil))
	client := api.NewClient(fake.URL(), credential.NewTokenSource(creds))
	sess := session.NewManager(creds, client, nil)
	ctrl := tasks.NewController(client, 0, nil)
	log := testutil.NewTestStore(t)

	d := Deps{
		Session:  sess,
		Auth:     client,
		Tasks:    ctrl,
		Debounce: tasks.NewDebouncer(10 * time.Millisecond),
		Store:    log,
	}
	if adjust != nil {
		adjust(&d)
	}
	m := New(d)

	h := &harness{t: t, fake: fake, creds: creds, session: sess, ctrl: ctrl, log: log}
	h.model, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// signIn seeds a user and stores its tokens as if a previous run had
// logged in.
func (h *harness) signIn() model.User {
	h.t.Helper()
	user, tokens := h.fake.SeedUser("ada@example.com", "secret1", "Ada")
	require.NoError(h.t, h.creds.Save(tokens))
	return user
}

func (h *harness) init() {
	h.drain(h.model.Init())
}

func (h *harness) send(msg tea.Msg) {
	var cmd tea.Cmd
	h.model, cmd = h.model.Update(msg)
	h.drain(cmd)
}

// drain runs cmd and every command it leads to, feeding the resulting
// messages back into the model.
func (h *harness) drain(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 500; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		msg, ok := run(c)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case nil, spinner.TickMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg:
			h.quit = true
			continue
		}

		var next tea.Cmd
		h.model, next = h.model.Update(msg)
		queue = append(queue, next)
	}
}

func run(c tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(cmdTimeout):
		return nil, false
	}
}

func (h *harness) app() Model {
	return h.model.(Model)
}

func (h *harness) messages() []string {
	h.t.Helper()
	items, err := h.log.RecentNotifications(context.Background(), 50)
	require.NoError(h.t, err)
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.Message
	}
	return out
}

func TestApp_RestoreWithoutTokensShowsLogin(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, ViewSplash, h.app().CurrentView())

	h.init()

	assert.Equal(t, ViewLogin, h.app().CurrentView())
	assert.Equal(t, session.StateAnonymous, h.session.State())
}

func TestApp_RestoreWithTokensShowsDashboard(t *testing.T) {
	h := newHarness(t)
	user := h.signIn()
	h.fake.SeedTask(user.ID, "Write report", model.StatusPending)

	h.init()

	require.Equal(t, ViewList, h.app().CurrentView())
	view := h.model.View()
	assert.Contains(t, view, "Welcome, Ada")
	assert.Contains(t, view, "Write report")
}

func TestApp_LoginFlow(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser("ada@example.com", "secret1", "Ada")
	h.init()

	h.send(authview.LoginSubmitMsg{Credentials: model.Credentials{
		Email: "ada@example.com", Password: "secret1",
	}})

	assert.Equal(t, ViewList, h.app().CurrentView())
	assert.Equal(t, session.StateAuthenticated, h.session.State())
	assert.Contains(t, h.messages(), "Welcome back!")

	tokens, err := h.creds.Tokens()
	require.NoError(t, err)
	assert.False(t, tokens.Empty())
}

func TestApp_LoginFailureShowsServerMessage(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser("ada@example.com", "secret1", "Ada")
	h.init()

	h.send(authview.LoginSubmitMsg{Credentials: model.Credentials{
		Email: "ada@example.com", Password: "wrong-password",
	}})

	assert.Equal(t, ViewLogin, h.app().CurrentView())
	assert.Equal(t, session.StateAnonymous, h.session.State())
	assert.Contains(t, h.messages(), "Invalid credentials")
	assert.Contains(t, h.model.View(), "Invalid credentials")
}

func TestApp_GuestMode(t *testing.T) {
	h := newHarness(t)
	h.init()

	h.send(authview.GuestMsg{})

	require.Equal(t, session.StateAuthenticated, h.session.State())
	user, ok := h.session.User()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(user.Email, "guest_"))
	assert.True(t, strings.HasSuffix(user.Email, "@demo.com"))
	assert.Equal(t, "Guest User", user.Name)
	assert.Contains(t, h.messages(), "Entered Guest Mode!")
}

func TestApp_CreateTask(t *testing.T) {
	h := newHarness(t)
	user := h.signIn()
	h.init()

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	require.Equal(t, ViewTaskForm, h.app().CurrentView())

	h.send(taskform.SubmitMsg{Input: model.NewTaskInput("Buy milk", "", model.StatusAll)})

	assert.Equal(t, ViewList, h.app().CurrentView())
	stored := h.fake.Tasks(user.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, "Buy milk", stored[0].Title)
	assert.Contains(t, h.messages(), "Task created successfully")
	assert.Contains(t, h.model.View(), "Buy milk")
}

func TestApp_CreateFailureKeepsFormOpen(t *testing.T) {
	h := newHarness(t)
	user := h.signIn()
	h.init()
	h.fake.Fail("POST /api/tasks", 1)

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	h.send(taskform.SubmitMsg{Input: model.NewTaskInput("Buy milk", "", model.StatusAll)})

	assert.Equal(t, ViewTaskForm, h.app().CurrentView())
	assert.Empty(t, h.fake.Tasks(user.ID))
	assert.Contains(t, h.messages(), "Failed to create task")
}

func TestApp_ToggleTask(t *testing.T) {
	h := newHarness(t)
	user := h.signIn()
	task := h.fake.SeedTask(user.ID, "Report", model.StatusPending)
	h.init()

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})

	assert.Contains(t, h.messages(), "Task marked as in progress")
	got, err := h.ctrl.Find(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestApp_DeleteTask(t *testing.T) {
	h := newHarness(t)
	user := h.signIn()
	task := h.fake.SeedTask(user.ID, "Old task", model.StatusPending)
	h.init()

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.Equal(t, ViewConfirm, h.app().CurrentView())

	h.send(confirm.ResultMsg{Task: task, Confirmed: false})
	assert.Equal(t, ViewList, h.app().CurrentView())
	assert.Len(t, h.fake.Tasks(user.ID), 1)

	h.send(confirm.ResultMsg{Task: task, Confirmed: true})
	assert.Empty(t, h.fake.Tasks(user.ID))
	assert.Contains(t, h.messages(), "Task deleted successfully")
	_, err := h.ctrl.Find(task.ID)
	assert.ErrorIs(t, err, tasks.ErrNotFound)
}

func TestApp_RevokedTokenRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	user := h.signIn()
	h.fake.SeedTask(user.ID, "Private", model.StatusPending)
	h.init()
	require.Equal(t, ViewList, h.app().CurrentView())

	h.fake.RevokeAll()
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	assert.Equal(t, ViewLogin, h.app().CurrentView())
	assert.Equal(t, session.StateAnonymous, h.session.State())
	assert.Empty(t, h.ctrl.Snapshot().Tasks)
	tokens, err := h.creds.Tokens()
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}

func TestApp_ExpiryTick(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.init()

	// A tick for an older token is ignored.
	h.send(expiryMsg{at: time.Now().Add(-time.Hour)})
	assert.Equal(t, ViewList, h.app().CurrentView())

	h.send(expiryMsg{at: h.session.ExpiresAt()})
	assert.Equal(t, ViewLogin, h.app().CurrentView())
	assert.Equal(t, session.StateAnonymous, h.session.State())
}

func TestApp_Logout(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.init()

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")})

	assert.Equal(t, ViewLogin, h.app().CurrentView())
	assert.Equal(t, session.StateAnonymous, h.session.State())
	assert.Equal(t, 1, h.fake.LogoutCalls)
}

func TestApp_LoadFailureNotifies(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.fake.Fail("GET /api/tasks", 1)

	h.init()

	assert.Equal(t, ViewList, h.app().CurrentView())
	assert.Contains(t, h.messages(), "Failed to load tasks")
}

func TestApp_CommandPalette(t *testing.T) {
	h := newHarness(t)
	user := h.signIn()
	h.fake.SeedTask(user.ID, "Done thing", model.StatusCompleted)
	h.fake.SeedTask(user.ID, "Open thing", model.StatusPending)
	h.init()

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	require.Equal(t, ViewCommand, h.app().CurrentView())

	for _, r := range "status completed" {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	h.send(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewList, h.app().CurrentView())
	assert.Equal(t, model.StatusCompleted, h.ctrl.Filters().Status)
	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "Done thing", snap.Tasks[0].Title)
}

func TestApp_PublicScreensRedirectWhenAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.init()

	h.send(authview.SwitchMsg{Mode: authview.ModeRegister})

	assert.Equal(t, ViewList, h.app().CurrentView())
}

func TestApp_SettingsApplyPageSize(t *testing.T) {
	h := newHarnessWith(t, func(d *Deps) {
		d.Config = &model.AppConfig{
			API:     model.APIConfig{BaseURL: "http://tasks.test/api", TimeoutSec: 5},
			Display: model.DisplayConfig{Theme: "default"},
		}
		d.SaveConfig = func(*model.AppConfig) error { return nil }
	})
	user := h.signIn()
	for _, title := range []string{"One", "Two", "Three"} {
		h.fake.SeedTask(user.ID, title, model.StatusPending)
	}
	h.init()
	require.Len(t, h.ctrl.Snapshot().Tasks, 3)

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(",")})
	require.Equal(t, ViewSettings, h.app().CurrentView())
	assert.Contains(t, h.model.View(), "Server URL")

	cfg := *h.app().config
	cfg.Tasks.PageSize = 2
	h.send(settings.SavedMsg{Config: &cfg})

	assert.Equal(t, ViewList, h.app().CurrentView())
	assert.Equal(t, 2, h.ctrl.Filters().Limit)
	assert.Len(t, h.ctrl.Snapshot().Tasks, 2)
	assert.Contains(t, h.messages(), "Settings saved")
}

func TestApp_SettingsUnavailableWithoutConfig(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.init()

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(",")})

	assert.Equal(t, ViewList, h.app().CurrentView())
	assert.Contains(t, h.messages(), "Settings are not available")
}

func TestToggleMessage(t *testing.T) {
	assert.Equal(t, "Task marked as in progress",
		toggleMessage(&model.Task{Status: model.StatusInProgress}))
	assert.Equal(t, "Task marked as completed",
		toggleMessage(&model.Task{Status: model.StatusCompleted}))
}
