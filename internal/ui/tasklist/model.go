package tasklist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/keys"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/tasks"
	"github.com/nhle/taskmaster/internal/theme"
)

// ListResultMsg carries the outcome of a list request. Err is
// tasks.ErrSuperseded for responses that lost the race.
type ListResultMsg struct {
	Snapshot tasks.Snapshot
	Err      error
}

// searchSettledMsg fires after the debounce window of a keystroke.
type searchSettledMsg struct {
	tag uint64
}

// SelectedTaskMsg is sent when a user selects a task to view details.
type SelectedTaskMsg struct{ Task model.Task }

// NewTaskMsg asks for the create form.
type NewTaskMsg struct{}

// EditTaskMsg asks for the edit form of Task.
type EditTaskMsg struct{ Task model.Task }

// DeleteTaskMsg asks to delete Task (after confirmation).
type DeleteTaskMsg struct{ Task model.Task }

// ToggleTaskMsg asks the server to advance Task's status.
type ToggleTaskMsg struct{ Task model.Task }

// statusCycle is the order the status filter steps through.
var statusCycle = []model.TaskStatus{
	model.StatusAll,
	model.StatusPending,
	model.StatusInProgress,
	model.StatusCompleted,
}

// Model is the dashboard task list: search box, status filter, paging and
// the task cards of the current page.
type Model struct {
	list        list.Model
	ctrl        *tasks.Controller
	debounce    *tasks.Debouncer
	keys        *keys.KeyMap
	searchMode  bool
	searchInput textinput.Model
	spinner     spinner.Model
	snap        tasks.Snapshot
	width       int
	height      int
}

// New creates a new task list model over ctrl.
func New(ctrl *tasks.Controller, debounce *tasks.Debouncer, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-1)
	l.Title = "My Tasks"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "Search tasks..."
	si.Prompt = "/ "
	si.Width = width - 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		list:        l,
		ctrl:        ctrl,
		debounce:    debounce,
		keys:        k,
		searchInput: si,
		spinner:     sp,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the first page.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Reload re-issues the list request with the committed filter.
func (m Model) Reload() tea.Cmd {
	ctrl := m.ctrl
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			snap, err := ctrl.List(context.Background())
			return ListResultMsg{Snapshot: snap, Err: err}
		},
	)
}

// Sync copies the controller's collection into the list, after local
// changes such as delete or toggle.
func (m *Model) Sync() {
	m.apply(m.ctrl.Snapshot())
}

// Reset clears the search box and the displayed tasks (logout).
func (m *Model) Reset() {
	m.searchMode = false
	m.searchInput.Reset()
	m.searchInput.Blur()
	m.debounce.Reset("")
	m.apply(tasks.Snapshot{})
}

func (m *Model) apply(snap tasks.Snapshot) {
	m.snap = snap
	items := make([]list.Item, len(snap.Tasks))
	for i, task := range snap.Tasks {
		items[i] = TaskItem{Task: task}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) && len(items) > 0 {
		idx = len(items) - 1
	}
	m.list.Select(idx)
}

// Selected returns the focused task.
func (m Model) Selected() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Searching reports whether the search box has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ListResultMsg:
		if errors.Is(msg.Err, tasks.ErrSuperseded) {
			return m, nil
		}
		m.apply(msg.Snapshot)
		return m, nil

	case searchSettledMsg:
		value, ok := m.debounce.Settle(msg.tag)
		if ok && m.ctrl.SetSearch(value) {
			return m, m.Reload()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.ctrl.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while the search box has focus.
// Keystrokes are debounced; enter commits immediately and esc clears.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searchMode = false
		m.searchInput.Blur()
		return m, m.commitSearch(m.searchInput.Value())

	case tea.KeyEsc:
		m.searchMode = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		return m, m.commitSearch("")
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() == before {
		return m, cmd
	}

	tag := m.debounce.Touch(m.searchInput.Value())
	settle := tea.Tick(m.debounce.Window(), func(time.Time) tea.Msg {
		return searchSettledMsg{tag: tag}
	})
	return m, tea.Batch(cmd, settle)
}

// commitSearch applies value without waiting for the debounce window.
func (m *Model) commitSearch(value string) tea.Cmd {
	m.debounce.Reset(strings.TrimSpace(value))
	if !m.ctrl.SetSearch(value) {
		return nil
	}
	return m.Reload()
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if task, ok := m.Selected(); ok {
			return m, func() tea.Msg { return SelectedTaskMsg{Task: task} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.ctrl.Filters().Search)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleStatus):
		return m, m.SetStatus(nextStatus(m.ctrl.Filters().Status))

	case key.Matches(msg, m.keys.ClearFilter):
		return m, m.ClearFilters()

	case key.Matches(msg, m.keys.NextPage):
		p := m.snap.Pagination
		if !p.HasNext() {
			return m, nil
		}
		return m, m.SetPage(p.Page + 1)

	case key.Matches(msg, m.keys.PrevPage):
		p := m.snap.Pagination
		if p.Page <= 1 {
			return m, nil
		}
		return m, m.SetPage(p.Page - 1)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Reload()

	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return NewTaskMsg{} }

	case key.Matches(msg, m.keys.Edit):
		if task, ok := m.Selected(); ok {
			return m, func() tea.Msg { return EditTaskMsg{Task: task} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if task, ok := m.Selected(); ok {
			return m, func() tea.Msg { return DeleteTaskMsg{Task: task} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if task, ok := m.Selected(); ok {
			return m, func() tea.Msg { return ToggleTaskMsg{Task: task} }
		}
		return m, nil
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetStatus applies a status filter immediately.
func (m *Model) SetStatus(status model.TaskStatus) tea.Cmd {
	if !m.ctrl.SetStatus(status) {
		return nil
	}
	return m.Reload()
}

// SetSearch applies a search value immediately, as the palette does.
func (m *Model) SetSearch(value string) tea.Cmd {
	m.searchInput.SetValue(value)
	return m.commitSearch(value)
}

// SetPage jumps to page.
func (m *Model) SetPage(page int) tea.Cmd {
	if !m.ctrl.SetPage(page) {
		return nil
	}
	return m.Reload()
}

// ClearFilters drops search and status filters.
func (m *Model) ClearFilters() tea.Cmd {
	m.searchInput.Reset()
	m.debounce.Reset("")
	changed := m.ctrl.SetSearch("")
	changed = m.ctrl.SetStatus(model.StatusAll) || changed
	if !changed {
		return nil
	}
	return m.Reload()
}

func nextStatus(current model.TaskStatus) model.TaskStatus {
	for i, s := range statusCycle {
		if s == current {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return model.StatusAll
}

// View renders the task list view.
func (m Model) View() string {
	bar := m.renderFilterBar()

	var body string
	switch {
	case !m.snap.Loaded && m.ctrl.Loading():
		body = m.centered(m.spinner.View() + " Loading tasks...")
	case len(m.list.Items()) == 0 && m.snap.Loaded:
		body = m.renderEmptyState()
	default:
		body = m.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, bar, body)
}

// renderFilterBar shows the search box, status filter and page position.
func (m Model) renderFilterBar() string {
	f := m.ctrl.Filters()

	search := m.searchInput.View()
	if !m.searchMode {
		text := f.Search
		if text == "" {
			text = theme.Muted().Render("Search tasks... (/)")
		}
		search = "/ " + text
	}

	status := theme.StatusStyle(f.Status).Render("[" + f.Status.Label() + "]")

	p := m.snap.Pagination
	pos := ""
	if p.TotalPages > 0 {
		pos = fmt.Sprintf("page %d/%d · %d tasks", p.Page, p.TotalPages, p.Total)
	} else if m.snap.Loaded {
		pos = fmt.Sprintf("%d tasks", len(m.snap.Tasks))
	}
	if m.ctrl.Loading() {
		pos = m.spinner.View() + " " + pos
	}

	left := lipgloss.JoinHorizontal(lipgloss.Top, search, "  ", status)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(pos) - 2
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(left + strings.Repeat(" ", gap) + theme.Muted().Render(pos))
}

// renderEmptyState shows guidance text when no tasks are available.
func (m Model) renderEmptyState() string {
	if m.ctrl.Filters().Active() {
		return m.centered("No tasks found.\n\nNo task matches your filters. Press x to clear them.")
	}
	return m.centered("No tasks found.\n\nPress n to create your first task.")
}

func (m Model) centered(s string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 1).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(s)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
	m.searchInput.Width = width - 4
}
