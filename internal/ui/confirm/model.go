package confirm

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/model"
)

// ResultMsg reports the user's answer for Task.
type ResultMsg struct {
	Task      model.Task
	Confirmed bool
}

// Model is a yes/no dialog guarding task deletion.
type Model struct {
	form     *huh.Form
	task     model.Task
	accepted *bool
	width    int
	height   int
}

// New creates an idle confirm dialog.
func New(width, height int) Model {
	return Model{accepted: new(bool), width: width, height: height}
}

// Ask opens the dialog for task.
func (m *Model) Ask(task model.Task) tea.Cmd {
	m.task = task
	*m.accepted = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Task returns the task the dialog is asking about.
func (m Model) Task() model.Task {
	return m.task
}

func (m Model) buildForm() *huh.Form {
	title := "Delete this task?"
	if m.task.Title != "" {
		title = fmt.Sprintf("Delete task %q?", m.task.Title)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description("This cannot be undone.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(m.accepted),
		),
	).WithWidth(m.formWidth())
}

// Update handles messages for the dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	task := m.task
	switch m.form.State {
	case huh.StateCompleted:
		ok := *m.accepted
		m.form = nil
		return m, func() tea.Msg { return ResultMsg{Task: task, Confirmed: ok} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return ResultMsg{Task: task} }
	}
	return m, cmd
}

// View renders the dialog.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}
