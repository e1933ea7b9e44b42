package auth

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/theme"
)

// Mode selects which form is shown.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// LoginSubmitMsg carries validated login input.
type LoginSubmitMsg struct {
	Credentials model.Credentials
}

// RegisterSubmitMsg carries validated registration input.
type RegisterSubmitMsg struct {
	Registration model.Registration
}

// GuestMsg asks the parent to create a throwaway account.
type GuestMsg struct{}

// SwitchMsg is dispatched when the user asks for the other form.
type SwitchMsg struct {
	Mode Mode
}

var (
	switchKey = key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "switch form"),
	)
	guestKey = key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("ctrl+g", "continue as guest"),
	)
)

type formBindings struct {
	name     string
	email    string
	password string
	confirm  string
}

// Model is the login/register screen.
type Model struct {
	mode       Mode
	form       *huh.Form
	fb         *formBindings
	spinner    spinner.Model
	submitting bool
	guest      bool
	err        string
	width      int
	height     int
}

// New creates the auth screen in the given mode.
func New(mode Mode, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	m := Model{
		mode:    mode,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Mode returns the form currently shown.
func (m Model) Mode() Mode {
	return m.mode
}

// Submitting reports whether a request is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// SetMode shows the other form with empty fields.
func (m *Model) SetMode(mode Mode) tea.Cmd {
	m.mode = mode
	*m.fb = formBindings{}
	return m.rebuild()
}

// Fail rebuilds the form with the entered values and shows msg.
func (m *Model) Fail(msg string) tea.Cmd {
	cmd := m.rebuild()
	m.err = msg
	return cmd
}

func (m *Model) rebuild() tea.Cmd {
	m.submitting = false
	m.guest = false
	m.err = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the auth screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}

	if m.submitting {
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, switchKey):
			next := ModeRegister
			if m.mode == ModeRegister {
				next = ModeLogin
			}
			return m, func() tea.Msg { return SwitchMsg{Mode: next} }
		case key.Matches(k, guestKey):
			m.submitting = true
			m.guest = true
			m.err = ""
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return GuestMsg{} })
		}
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.submitting = true
		m.err = ""
		return m, tea.Batch(m.spinner.Tick, m.handleSubmit())
	case huh.StateAborted:
		return m, tea.Quit
	}

	return m, cmd
}

func (m Model) handleSubmit() tea.Cmd {
	email := strings.TrimSpace(m.fb.email)
	if m.mode == ModeLogin {
		c := model.Credentials{Email: email, Password: m.fb.password}
		return func() tea.Msg { return LoginSubmitMsg{Credentials: c} }
	}
	r := model.Registration{
		Name:            strings.TrimSpace(m.fb.name),
		Email:           email,
		Password:        m.fb.password,
		ConfirmPassword: m.fb.confirm,
	}
	return func() tea.Msg { return RegisterSubmitMsg{Registration: r} }
}

func (m *Model) buildForm() *huh.Form {
	var fields []huh.Field
	if m.mode == ModeRegister {
		fields = append(fields,
			huh.NewInput().
				Title("Full Name").
				Placeholder("John Doe").
				Value(&m.fb.name).
				Validate(model.ValidateName),
		)
	}

	fields = append(fields,
		huh.NewInput().
			Title("Email Address").
			Placeholder("you@example.com").
			Value(&m.fb.email).
			Validate(model.ValidateEmail),
	)

	if m.mode == ModeLogin {
		fields = append(fields,
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(func(s string) error {
					if s == "" {
						return errPasswordRequired
					}
					return nil
				}),
		)
	} else {
		fb := m.fb
		fields = append(fields,
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(model.ValidatePassword),
			huh.NewInput().
				Title("Confirm Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm).
				Validate(func(s string) error {
					return model.ValidatePasswordMatch(fb.password, s)
				}),
		)
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithWidth(m.formWidth()).
		WithShowHelp(false)
}

var errPasswordRequired = errors.New("Password is required")

// View renders the auth card centered on screen.
func (m Model) View() string {
	brand := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBlue).
		Render("TaskMaster")

	subtitle, pending, other := "Sign in to your account", "Signing in...", "ctrl+n create an account"
	if m.mode == ModeRegister {
		subtitle, pending, other = "Create your account", "Creating account...", "ctrl+n sign in"
	}
	if m.guest {
		pending = "Entering guest mode..."
	}

	parts := []string{brand, theme.Muted().Render(subtitle), ""}
	if m.err != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.err), "")
	}
	if m.submitting {
		parts = append(parts, m.spinner.View()+" "+pending)
	} else {
		parts = append(parts, m.form.View())
	}
	parts = append(parts, "", theme.HelpStyle.Render(other+" · ctrl+g continue as guest · enter next"))

	card := theme.BorderStyle.
		Padding(1, 3).
		Width(m.formWidth() + 6).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form = m.form.WithWidth(m.formWidth())
}

func (m Model) formWidth() int {
	w := m.width - 12
	if w < 30 {
		w = 30
	}
	if w > 60 {
		w = 60
	}
	return w
}
