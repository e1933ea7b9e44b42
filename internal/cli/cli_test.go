package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/credential"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
	"github.com/nhle/taskmaster/internal/store"
	"github.com/nhle/taskmaster/internal/testutil"
)

type fixture struct {
	t     *testing.T
	fake  *testutil.FakeAPI
	creds *credential.Store
	log   *store.SQLiteStore
	cfg   *model.AppConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	return &fixture{
		t:     t,
		fake:  fake,
		creds: credential.NewStore(keyring.NewArrayKeyring(nil)),
		log:   testutil.NewTestStore(t),
		cfg: &model.AppConfig{
			API: model.APIConfig{BaseURL: fake.URL(), TimeoutSec: 5},
		},
	}
}

// run executes one command line against a fresh Env sharing the fixture's
// keyring and notification log, like separate invocations of the binary.
func (f *fixture) run(args ...string) (string, error) {
	f.t.Helper()
	root, s := newRootCmd(func(options) (*Env, error) {
		return NewEnv(f.cfg, f.creds, f.log, nil), nil
	})
	defer s.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *fixture) signIn() model.User {
	f.t.Helper()
	user, tokens := f.fake.SeedUser("ada@example.com", "secret1", "Ada")
	require.NoError(f.t, f.creds.Save(tokens))
	return user
}

func (f *fixture) messages() []string {
	f.t.Helper()
	ns, err := f.log.RecentNotifications(context.Background(), 50)
	require.NoError(f.t, err)
	var out []string
	for _, n := range ns {
		out = append(out, n.Message)
	}
	return out
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.fake.SeedUser("ada@example.com", "secret1", "Ada")

	out, err := f.run("login", "--email", "ada@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada")

	tokens, err := f.creds.Tokens()
	require.NoError(t, err)
	assert.False(t, tokens.Empty())
	assert.Contains(t, f.messages(), "Welcome back!")
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.fake.SeedUser("ada@example.com", "secret1", "Ada")

	_, err := f.run("login", "--email", "ada@example.com", "--password", "nope123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
	assert.Contains(t, f.messages(), "Login failed")

	tokens, err := f.creds.Tokens()
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}

func TestLoginRejectsInvalidEmailBeforeSending(t *testing.T) {
	f := newFixture(t)

	_, err := f.run("login", "--email", "not-an-email", "--password", "secret1")
	require.Error(t, err)
	assert.Empty(t, f.messages())
}

func TestGuest(t *testing.T) {
	f := newFixture(t)

	out, err := f.run("guest")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Guest User")
	assert.Contains(t, f.messages(), "Entered Guest Mode!")

	out, err = f.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "@demo.com")
}

func TestWhoami(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.run("whoami")
		assert.ErrorIs(t, err, errNotLoggedIn)
	})

	t.Run("logged in", func(t *testing.T) {
		f := newFixture(t)
		f.signIn()
		out, err := f.run("whoami")
		require.NoError(t, err)
		assert.Contains(t, out, "ada@example.com")
		assert.Contains(t, out, "Expiry:")
	})

	t.Run("json", func(t *testing.T) {
		f := newFixture(t)
		user := f.signIn()
		out, err := f.run("whoami", "--json")
		require.NoError(t, err)

		var got model.User
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, user.ID, got.ID)
	})
}

func TestTasksRequireSession(t *testing.T) {
	f := newFixture(t)
	for _, args := range [][]string{
		{"tasks", "list"},
		{"tasks", "add", "Buy milk"},
		{"tasks", "toggle", "1"},
		{"tasks", "rm", "1", "--yes"},
	} {
		_, err := f.run(args...)
		assert.ErrorIs(t, err, errNotLoggedIn, "%v", args)
	}
}

func TestTasksLifecycle(t *testing.T) {
	f := newFixture(t)
	user := f.signIn()

	out, err := f.run("tasks", "add", "Buy", "milk", "--description", "  2 litres ")
	require.NoError(t, err)
	assert.Contains(t, out, "Task created successfully")

	stored := f.fake.Tasks(user.ID)
	require.Len(t, stored, 1)
	task := stored[0]
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "2 litres", task.Description)
	assert.Equal(t, model.StatusPending, task.Status)

	out, err = f.run("tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "Page 1 of 1 (1 tasks)")

	out, err = f.run("tasks", "toggle", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Task marked as in progress")
	assert.Equal(t, model.StatusInProgress, f.fake.Tasks(user.ID)[0].Status)

	out, err = f.run("tasks", "edit", "1", "--title", "Buy oat milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Task updated successfully")
	got := f.fake.Tasks(user.ID)[0]
	assert.Equal(t, "Buy oat milk", got.Title)
	assert.Equal(t, "2 litres", got.Description)
	assert.Equal(t, model.StatusInProgress, got.Status)

	out, err = f.run("tasks", "rm", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Task deleted successfully")
	assert.Empty(t, f.fake.Tasks(user.ID))

	assert.Subset(t, f.messages(), []string{
		"Task created successfully",
		"Task marked as in progress",
		"Task updated successfully",
		"Task deleted successfully",
	})
}

func TestTasksListFilters(t *testing.T) {
	f := newFixture(t)
	user := f.signIn()
	f.fake.SeedTask(user.ID, "Write report", model.StatusPending)
	f.fake.SeedTask(user.ID, "Review report", model.StatusCompleted)
	f.fake.SeedTask(user.ID, "Groceries", model.StatusPending)

	out, err := f.run("tasks", "list", "--search", "report", "--status", "completed", "--json")
	require.NoError(t, err)

	var page model.TaskPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Review report", page.Tasks[0].Title)
	assert.Equal(t, 1, page.Pagination.Total)

	out, err = f.run("tasks", "list", "--search", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No task matches your filters")

	_, err = f.run("tasks", "list", "--status", "bogus")
	assert.Error(t, err)
}

func TestTasksEditNeedsAChange(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	_, err := f.run("tasks", "edit", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestTasksInvalidID(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	_, err := f.run("tasks", "toggle", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task id")
}

func TestTasksServerFailure(t *testing.T) {
	f := newFixture(t)
	user := f.signIn()
	f.fake.Fail("POST /api/tasks", 1)

	_, err := f.run("tasks", "add", "Buy milk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to create task")
	assert.Empty(t, f.fake.Tasks(user.ID))
	assert.Contains(t, f.messages(), "Failed to create task")

	// The session survives a non-auth failure.
	_, err = f.run("whoami")
	assert.NoError(t, err)
}

func TestRevokedTokenLogsOut(t *testing.T) {
	f := newFixture(t)
	f.signIn()
	f.fake.RevokeAll()

	_, err := f.run("tasks", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)

	tokens, err := f.creds.Tokens()
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}

func TestFailExpiresOnAuthError(t *testing.T) {
	f := newFixture(t)
	f.signIn()
	env := NewEnv(f.cfg, f.creds, f.log, nil)
	s := &state{env: env}
	ctx := context.Background()
	require.Equal(t, session.StateAuthenticated, env.Session.Restore(ctx))

	err := s.fail(ctx, env, &api.AuthError{StatusCode: 401}, "Failed to load tasks")
	assert.ErrorIs(t, err, errSessionExpired)

	tokens, err := f.creds.Tokens()
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
	assert.NotContains(t, f.messages(), "Failed to load tasks")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	out, err := f.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, 1, f.fake.LogoutCalls)

	tokens, err := f.creds.Tokens()
	require.NoError(t, err)
	assert.True(t, tokens.Empty())

	_, err = f.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}
