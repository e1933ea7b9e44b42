package taskform

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/theme"
)

// SubmitMsg is dispatched when the form is submitted. ID is zero for a new
// task.
type SubmitMsg struct {
	ID    int64
	Input model.TaskInput
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	status      model.TaskStatus
}

// Model is the Bubble Tea model for the task create/edit form. It stays
// open after a failed submit so the user can correct and retry.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	editMode   bool
	original   model.Task
	submitting bool
	err        string
	width      int
	height     int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{status: model.StatusPending},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for creating a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	m.fb.title = ""
	m.fb.description = ""
	m.fb.status = model.StatusPending
	return m.rebuild()
}

// StartEdit initializes the form for editing an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.original = task
	m.fb.title = task.Title
	m.fb.description = task.Description
	m.fb.status = task.Status
	return m.rebuild()
}

// Fail reopens the form with the entered values and shows msg.
func (m *Model) Fail(msg string) tea.Cmd {
	cmd := m.rebuild()
	m.err = msg
	return cmd
}

// Submitting reports whether a submit is awaiting the server.
func (m Model) Submitting() bool {
	return m.submitting
}

// EditMode reports whether an existing task is being edited.
func (m Model) EditMode() bool {
	return m.editMode
}

func (m *Model) rebuild() tea.Cmd {
	m.submitting = false
	m.err = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.submitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.submitting = true
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "Create New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render(titleText)}
	if m.err != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.err))
	}
	if m.submitting {
		label := "Creating..."
		if m.editMode {
			label = "Saving..."
		}
		parts = append(parts, theme.Muted().Render(label))
	} else {
		parts = append(parts, m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

// buildForm returns the form; the status select is only offered when
// editing, new tasks start as pending on the server.
func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("Task title").
			Value(&m.fb.title).
			Validate(model.ValidateTitle),
		huh.NewText().
			Title("Description").
			Placeholder("Add details about this task...").
			Value(&m.fb.description),
	}

	if m.editMode {
		opts := make([]huh.Option[model.TaskStatus], len(model.TaskStatuses))
		for i, s := range model.TaskStatuses {
			opts[i] = huh.NewOption(s.Label(), s)
		}
		fields = append(fields,
			huh.NewSelect[model.TaskStatus]().
				Title("Status").
				Options(opts...).
				Value(&m.fb.status),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

// handleSubmit builds the request body. Edits only carry changed fields.
func (m Model) handleSubmit() tea.Cmd {
	title := strings.TrimSpace(m.fb.title)
	desc := strings.TrimSpace(m.fb.description)

	if !m.editMode {
		in := model.NewTaskInput(title, desc, model.StatusAll)
		return func() tea.Msg { return SubmitMsg{Input: in} }
	}

	var in model.TaskInput
	if title != m.original.Title {
		in.Title = &title
	}
	if desc != m.original.Description {
		in.Description = &desc
	}
	if m.fb.status != m.original.Status {
		status := m.fb.status
		in.Status = &status
	}
	id := m.original.ID
	return func() tea.Msg { return SubmitMsg{ID: id, Input: in} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
