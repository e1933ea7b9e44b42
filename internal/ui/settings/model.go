package settings

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeForm   Mode = iota // Editing values
	ModeTesting            // Probing the server URL
	ModeResult             // Probe or save failed
)

// Saver persists a configuration.
type Saver func(cfg *model.AppConfig) error

// Prober checks that an API answers at baseURL.
type Prober func(ctx context.Context, baseURL string) error

// SavedMsg signals the edited configuration was written.
type SavedMsg struct {
	Config *model.AppConfig
}

// CloseMsg signals the view should close without saving.
type CloseMsg struct{}

type probeResultMsg struct {
	err error
}

type savedInternalMsg struct {
	cfg *model.AppConfig
	err error
}

// formBindings lives on the heap so huh's value pointers survive copies of
// the Model.
type formBindings struct {
	baseURL  string
	pageSize string
	debounce string
	refresh  string
	theme    string
}

// Model edits the server URL, paging, search and display settings. The
// server URL is probed before anything is saved.
type Model struct {
	mode    Mode
	form    *huh.Form
	fb      *formBindings
	current *model.AppConfig
	pending *model.AppConfig
	save    Saver
	probe   Prober
	spinner spinner.Model
	err     error

	// saveFailed distinguishes a failed write from a failed probe.
	saveFailed bool

	width, height int
}

// New creates a settings view. probe may be nil to skip the connection test.
func New(save Saver, probe Prober, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		save:    save,
		probe:   probe,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Open starts editing a copy of cfg.
func (m *Model) Open(cfg *model.AppConfig) tea.Cmd {
	m.current = cfg
	m.pending = nil
	m.err = nil
	m.fb = &formBindings{
		baseURL:  cfg.API.BaseURL,
		pageSize: strconv.Itoa(cfg.Tasks.PageSize),
		debounce: strconv.Itoa(cfg.Search.DebounceMS),
		refresh:  strconv.Itoa(cfg.Display.RefreshIntervalSec),
		theme:    cfg.Display.Theme,
	}
	if m.fb.theme == "" {
		m.fb.theme = "default"
	}
	return m.edit()
}

func (m *Model) edit() tea.Cmd {
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns the current mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case probeResultMsg:
		if m.mode != ModeTesting {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.saveFailed = false
			m.mode = ModeResult
			return m, nil
		}
		return m, m.persist(m.pending)

	case savedInternalMsg:
		if msg.err != nil {
			m.err = msg.err
			m.saveFailed = true
			m.mode = ModeResult
			return m, nil
		}
		m.form = nil
		cfg := msg.cfg
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.mode == ModeTesting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeTesting:
			if msg.String() == "esc" {
				m.pending = nil
				return m, m.edit()
			}
			return m, nil
		case ModeResult:
			return m.handleResultKeys(msg)
		}
	}

	return m.updateForm(msg)
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		if m.pending == nil {
			return m, nil
		}
		if m.saveFailed {
			return m, m.persist(m.pending)
		}
		return m, m.test(m.pending)
	case "e", "enter":
		m.err = nil
		return m, m.edit()
	case "esc":
		m.form = nil
		return m, func() tea.Msg { return CloseMsg{} }
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode != ModeForm {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.pending = m.apply()
		return m, m.test(m.pending)
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CloseMsg{} }
	}
	return m, cmd
}

// test probes the pending server URL, then saves.
func (m *Model) test(cfg *model.AppConfig) tea.Cmd {
	if m.probe == nil {
		return m.persist(cfg)
	}
	m.mode = ModeTesting
	m.err = nil
	probe := m.probe
	baseURL := cfg.API.BaseURL
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return probeResultMsg{err: probe(context.Background(), baseURL)}
		},
	)
}

func (m Model) persist(cfg *model.AppConfig) tea.Cmd {
	save := m.save
	return func() tea.Msg {
		if save == nil {
			return savedInternalMsg{cfg: cfg}
		}
		return savedInternalMsg{cfg: cfg, err: save(cfg)}
	}
}

// apply copies the current configuration and overlays the form values.
// The form validators guarantee the numbers parse.
func (m Model) apply() *model.AppConfig {
	cfg := *m.current
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	cfg.Tasks.PageSize, _ = strconv.Atoi(strings.TrimSpace(m.fb.pageSize))
	cfg.Search.DebounceMS, _ = strconv.Atoi(strings.TrimSpace(m.fb.debounce))
	cfg.Display.RefreshIntervalSec, _ = strconv.Atoi(strings.TrimSpace(m.fb.refresh))
	cfg.Display.Theme = m.fb.theme
	return &cfg
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("TaskMaster API root; applies on next start").
				Placeholder("http://localhost:3001/api").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Page Size").
				Description("Tasks per page, 0 for the server default").
				Value(&m.fb.pageSize).
				Validate(validateNumber("Page size")),
			huh.NewInput().
				Title("Search Delay (ms)").
				Value(&m.fb.debounce).
				Validate(validateNumber("Search delay")),
			huh.NewInput().
				Title("Auto Refresh (seconds)").
				Description("0 disables background refresh").
				Value(&m.fb.refresh).
				Validate(validateNumber("Refresh interval")),
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Default", "default"),
					huh.NewOption("Monochrome", "mono"),
				).
				Value(&m.fb.theme),
		),
	).WithWidth(m.formWidth())
}

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeTesting:
		return style.Render(fmt.Sprintf(
			"%s Testing connection...\n\nPress esc to cancel.",
			m.spinner.View(),
		))

	case ModeResult:
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		title := "Connection failed"
		if m.saveFailed {
			title = "Could not save settings"
		}
		return style.Render(errStyle.Render(title) + "\n\n" +
			m.errText() + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).Render("r retry | e edit | esc discard"))
	}

	if m.form == nil {
		return ""
	}
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	return style.Render(titleStyle.Render("Settings") + "\n\n" + m.form.View())
}

func (m Model) errText() string {
	if m.err == nil {
		return ""
	}
	return m.err.Error()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
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

// --- Validators ---

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com/api)")
	}
	return nil
}

func validateNumber(field string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a number", field)
		}
		if n < 0 {
			return fmt.Errorf("%s cannot be negative", field)
		}
		return nil
	}
}
