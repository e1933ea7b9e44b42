package tasklist

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskmaster/internal/keys"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/tasks"
)

type stubService struct {
	tasks   []model.Task
	queries []model.TaskFilters
}

func (s *stubService) ListTasks(_ context.Context, f model.TaskFilters) (*model.TaskPage, error) {
	s.queries = append(s.queries, f)
	return &model.TaskPage{
		Tasks:      s.tasks,
		Pagination: model.Pagination{Page: 1, Limit: 10, Total: len(s.tasks), TotalPages: 2},
	}, nil
}

func (s *stubService) CreateTask(context.Context, model.TaskInput) (*model.Task, error) {
	return nil, nil
}

func (s *stubService) UpdateTask(context.Context, int64, model.TaskInput) (*model.Task, error) {
	return nil, nil
}

func (s *stubService) DeleteTask(context.Context, int64) error { return nil }

func (s *stubService) ToggleTaskStatus(context.Context, int64) (*model.Task, error) {
	return nil, nil
}

func newTestModel(t *testing.T, svc *stubService) Model {
	t.Helper()
	ctrl := tasks.NewController(svc, 0, nil)
	return New(ctrl, tasks.NewDebouncer(tasks.DefaultDebounce), keys.DefaultKeyMap(), 100, 30)
}

// runList executes cmd and feeds the resulting list response back.
func runList(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msgs := []tea.Msg{cmd()}
	for len(msgs) > 0 {
		msg := msgs[0]
		msgs = msgs[1:]
		switch msg := msg.(type) {
		case tea.BatchMsg:
			for _, c := range msg {
				if c != nil {
					msgs = append(msgs, c())
				}
			}
		case ListResultMsg:
			m, _ = m.Update(msg)
			return m
		}
	}
	t.Fatal("command produced no ListResultMsg")
	return m
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func sample() []model.Task {
	return []model.Task{
		{ID: 1, Title: "Buy milk", Status: model.StatusPending},
		{ID: 2, Title: "Ship release", Status: model.StatusInProgress},
	}
}

func TestInit_LoadsTasks(t *testing.T) {
	m := newTestModel(t, &stubService{tasks: sample()})
	m = runList(t, m, m.Init())

	assert.Len(t, m.list.Items(), 2)
	assert.Contains(t, m.View(), "Buy milk")
	assert.Contains(t, m.View(), "page 1/2")
}

func TestSearch_DebouncesKeystrokes(t *testing.T) {
	svc := &stubService{}
	m := newTestModel(t, svc)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	require.True(t, m.Searching())
	m = typeText(m, "milk")

	// Ticks for the first three keystrokes are stale.
	for tag := uint64(1); tag <= 3; tag++ {
		var cmd tea.Cmd
		m, cmd = m.Update(searchSettledMsg{tag: tag})
		assert.Nil(t, cmd)
	}
	assert.Empty(t, m.ctrl.Filters().Search)

	m, cmd := m.Update(searchSettledMsg{tag: 4})
	m = runList(t, m, cmd)
	assert.Equal(t, "milk", m.ctrl.Filters().Search)
	require.Len(t, svc.queries, 1)
	assert.Equal(t, "milk", svc.queries[0].Search)
}

func TestSearch_EscClears(t *testing.T) {
	m := newTestModel(t, &stubService{})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m = typeText(m, "abc")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = runList(t, m, cmd)
	require.Equal(t, "abc", m.ctrl.Filters().Search)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = runList(t, m, cmd)
	assert.False(t, m.Searching())
	assert.Empty(t, m.ctrl.Filters().Search)
}

func TestStatusCycle_IsImmediate(t *testing.T) {
	svc := &stubService{}
	m := newTestModel(t, svc)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = runList(t, m, cmd)
	assert.Equal(t, model.StatusPending, m.ctrl.Filters().Status)
	require.Len(t, svc.queries, 1)
	assert.Equal(t, model.StatusPending, svc.queries[0].Status)

	for _, want := range []model.TaskStatus{model.StatusInProgress, model.StatusCompleted, model.StatusAll} {
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = runList(t, m, cmd)
		assert.Equal(t, want, m.ctrl.Filters().Status)
	}
}

func TestSupersededResultIgnored(t *testing.T) {
	m := newTestModel(t, &stubService{tasks: sample()})
	m = runList(t, m, m.Init())

	m, _ = m.Update(ListResultMsg{Err: tasks.ErrSuperseded})
	assert.Len(t, m.list.Items(), 2)
}

func TestEmptyStates(t *testing.T) {
	m := newTestModel(t, &stubService{})
	m = runList(t, m, m.Init())
	assert.Contains(t, m.View(), "create your first task")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = runList(t, m, cmd)
	assert.Contains(t, m.View(), "No task matches your filters")
}

func TestActionKeysEmitIntents(t *testing.T) {
	m := newTestModel(t, &stubService{tasks: sample()})
	m = runList(t, m, m.Init())

	tests := []struct {
		key  string
		want tea.Msg
	}{
		{"d", DeleteTaskMsg{Task: sample()[0]}},
		{"e", EditTaskMsg{Task: sample()[0]}},
		{"t", ToggleTaskMsg{Task: sample()[0]}},
		{"n", NewTaskMsg{}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestNextPage(t *testing.T) {
	svc := &stubService{tasks: sample()}
	m := newTestModel(t, svc)
	m = runList(t, m, m.Init())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}})
	m = runList(t, m, cmd)
	assert.Equal(t, 2, svc.queries[len(svc.queries)-1].Page)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	assert.Nil(t, cmd, "stub always answers page 1")
}
