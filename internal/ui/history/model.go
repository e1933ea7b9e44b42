package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/keys"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/theme"
)

// Limit is the number of notifications loaded into the view.
const Limit = 200

// Log is the part of the notification store the viewer needs.
type Log interface {
	RecentNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	MarkAllRead(ctx context.Context) error
	PruneNotifications(ctx context.Context, keep int) error
}

// CloseMsg signals the parent to close the history view.
type CloseMsg struct{}

// ChangedMsg signals that the log was modified (marked read or cleared).
type ChangedMsg struct{}

type historyMode int

const (
	modeList historyMode = iota
	modeConfirmClear
)

var (
	markReadKey = key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mark all read"))
	clearKey    = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear history"))
)

type loadedMsg struct {
	items []model.Notification
	err   error
}

type markedMsg struct{ err error }
type clearedMsg struct{ err error }

// Model is the Bubble Tea model for the notification log.
type Model struct {
	mode        historyMode
	log         Log
	keys        *keys.KeyMap
	items       []model.Notification
	selectedIdx int
	offset      int
	confirmForm *huh.Form
	confirm     *bool
	statusMsg   string
	width       int
	height      int
}

// New creates a new notification log viewer.
func New(log Log, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:    modeList,
		log:     log,
		keys:    k,
		confirm: new(bool),
		width:   width, height: height,
	}
}

// Init loads notifications from the store.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Items returns the loaded notifications, newest first.
func (m Model) Items() []model.Notification {
	return m.items
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.items = msg.items
		if m.selectedIdx >= len(m.items) {
			m.selectedIdx = max(len(m.items)-1, 0)
		}
		m.clampOffset()
		return m, nil

	case markedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Marked all as read"
		}
		return m, tea.Batch(m.load(), func() tea.Msg { return ChangedMsg{} })

	case clearedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "History cleared"
		}
		m.mode = modeList
		return m, tea.Batch(m.load(), func() tea.Msg { return ChangedMsg{} })

	case tea.KeyMsg:
		if m.mode == modeConfirmClear {
			return m.updateConfirm(msg)
		}
		return m.handleListKey(msg)
	}

	if m.mode == modeConfirmClear {
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.History):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if m.selectedIdx < len(m.items)-1 {
			m.selectedIdx++
			m.clampOffset()
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.clampOffset()
		}
		return m, nil

	case key.Matches(msg, markReadKey):
		return m, m.markRead()

	case key.Matches(msg, clearKey):
		if len(m.items) == 0 {
			return m, nil
		}
		*m.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmClear
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Clear %d notifications?", len(m.items))).
				Affirmative("Yes, clear").
				Negative("Cancel").
				Value(m.confirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		if *m.confirm {
			return m, m.clear()
		}
		m.mode = modeList
		return m, nil
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the notification log.
func (m Model) View() string {
	if m.mode == modeConfirmClear && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Notification History"))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No notifications yet."))
	} else {
		end := min(m.offset+m.visibleRows(), len(m.items))
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderItem(i, m.items[i]))
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"j/k move | m mark all read | c clear | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) renderItem(idx int, n model.Notification) string {
	marker := " "
	if !n.Read {
		marker = "•"
	}
	when := n.CreatedAt.Local().Format("Jan 02 15:04:05")
	label := fmt.Sprintf("%s %s  %s  %s",
		marker,
		theme.Muted().Render(when),
		theme.LevelStyle(n.Level).Render(fmt.Sprintf("%-7s", n.Level)),
		n.Message,
	)
	if idx == m.selectedIdx {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clampOffset()
}

func (m Model) visibleRows() int {
	return max(m.height-10, 3)
}

func (m *Model) clampOffset() {
	rows := m.visibleRows()
	if m.selectedIdx < m.offset {
		m.offset = m.selectedIdx
	}
	if m.selectedIdx >= m.offset+rows {
		m.offset = m.selectedIdx - rows + 1
	}
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

func (m Model) load() tea.Cmd {
	l := m.log
	return func() tea.Msg {
		items, err := l.RecentNotifications(context.Background(), Limit)
		return loadedMsg{items: items, err: err}
	}
}

func (m Model) markRead() tea.Cmd {
	l := m.log
	return func() tea.Msg {
		return markedMsg{err: l.MarkAllRead(context.Background())}
	}
}

func (m Model) clear() tea.Cmd {
	l := m.log
	return func() tea.Msg {
		return clearedMsg{err: l.PruneNotifications(context.Background(), 0)}
	}
}
