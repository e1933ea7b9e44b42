package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/keys"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Action is a task operation requested from the detail view.
type Action int

const (
	ActionEdit Action = iota
	ActionDelete
	ActionToggle
)

// ActionMsg signals the parent to execute an action on the current task.
type ActionMsg struct {
	Action Action
	Task   model.Task
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// SetTask shows task, scrolled to the top.
func (m *Model) SetTask(task model.Task) {
	m.task = &task
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Task returns the displayed task.
func (m Model) Task() (model.Task, bool) {
	if m.task == nil {
		return model.Task{}, false
	}
	return *m.task, true
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Edit):
			return m, m.action(ActionEdit)

		case key.Matches(msg, m.keys.Delete):
			return m, m.action(ActionDelete)

		case key.Matches(msg, m.keys.Toggle):
			return m, m.action(ActionToggle)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(a Action) tea.Cmd {
	if m.task == nil {
		return nil
	}
	task := *m.task
	return func() tea.Msg { return ActionMsg{Action: a, Task: task} }
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No task selected.")
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 2).
		Render(m.viewport.View())
}

func (m Model) renderContent() string {
	t := m.task
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(10)

	b.WriteString(titleStyle.Render(t.Title))
	b.WriteString("\n\n")

	badge := theme.StatusStyle(t.Status).Render(theme.StatusIcon(t.Status) + " " + t.Status.Label())
	fmt.Fprintf(&b, "%s%s\n", label.Render("Status"), badge)
	fmt.Fprintf(&b, "%s#%d\n", label.Render("ID"), t.ID)
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "%s%s\n", label.Render("Created"), t.CreatedAt.Local().Format("Jan 2, 2006 15:04"))
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "%s%s\n", label.Render("Updated"), t.UpdatedAt.Local().Format("Jan 2, 2006 15:04"))
	}

	b.WriteString("\n")
	if t.Description == "" {
		b.WriteString(theme.Muted().Render("No description"))
	} else {
		b.WriteString(lipgloss.NewStyle().Width(m.width - 10).Render(t.Description))
	}
	b.WriteString("\n\n")

	hints := []string{
		"e edit",
		"d delete",
		"t " + strings.ToLower(t.ToggleLabel()),
		"esc back",
	}
	b.WriteString(theme.HelpStyle.Render(strings.Join(hints, " · ")))

	return b.String()
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 8
	m.viewport.Height = height - 4
	if m.task != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
