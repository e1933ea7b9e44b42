package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskmaster/internal/keys"
	"github.com/nhle/taskmaster/internal/model"
)

func TestDetail_RendersTask(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetTask(model.Task{ID: 4, Title: "Ship release", Status: model.StatusCompleted})

	view := m.View()
	assert.Contains(t, view, "Ship release")
	assert.Contains(t, view, "Completed")
	assert.Contains(t, view, "No description")
	assert.Contains(t, view, "mark as pending")
}

func TestDetail_Actions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	task := model.Task{ID: 4, Title: "Ship release", Status: model.StatusPending}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	assert.Nil(t, cmd, "no task selected")

	m.SetTask(task)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Action: ActionToggle, Task: task}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}
