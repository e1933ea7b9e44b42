package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/theme"
)

// Command is a parsed palette command.
type Command struct {
	Name string
	Arg  string
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg Command

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

// Entry documents one palette command.
type Entry struct {
	Name  string
	Usage string
	About string
}

// Commands lists every palette command.
var Commands = []Entry{
	{"new", "new", "create a task"},
	{"search", "search <text>", "search titles and descriptions"},
	{"status", "status <pending|in-progress|completed|all>", "filter by status"},
	{"page", "page <n>", "jump to a page"},
	{"clear", "clear", "clear search and status filters"},
	{"refresh", "refresh", "reload the task list"},
	{"history", "history", "show the notification log"},
	{"settings", "settings", "edit server and display settings"},
	{"help", "help", "show keyboard shortcuts"},
	{"logout", "logout", "log out"},
	{"quit", "quit", "exit taskmaster"},
}

// Parse splits a palette line into a known command and its argument.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	for _, c := range Commands {
		if c.Name == name {
			return Command{Name: name, Arg: strings.TrimSpace(arg)}, nil
		}
	}
	return Command{}, fmt.Errorf("unknown command %q", name)
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    string
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	suggestions := make([]string, len(Commands))
	for i, c := range Commands {
		suggestions[i] = c.Name
	}
	ti.SetSuggestions(suggestions)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			line := m.input.Value()
			if strings.TrimSpace(line) == "" {
				return m, nil
			}
			c, err := Parse(line)
			if err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.input.Reset()
			m.err = ""
			return m, func() tea.Msg { return CommandMsg(c) }

		case "esc":
			m.input.Reset()
			m.err = ""
			return m, func() tea.Msg { return CancelMsg{} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.err))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
