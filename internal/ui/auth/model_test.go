package auth

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskmaster/internal/model"
)

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case nil:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

func TestAuth_SwitchKey(t *testing.T) {
	m := New(ModeLogin, 80, 30)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, SwitchMsg{Mode: ModeRegister}, msgs[0])

	m.SetMode(ModeRegister)
	assert.Equal(t, ModeRegister, m.Mode())
	assert.Contains(t, m.View(), "Create your account")
}

func TestAuth_GuestKeyStartsSubmit(t *testing.T) {
	m := New(ModeRegister, 80, 30)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.True(t, next.Submitting())
	assert.Contains(t, next.View(), "Entering guest mode...")

	var sawGuest bool
	for _, msg := range collect(cmd) {
		if _, ok := msg.(GuestMsg); ok {
			sawGuest = true
		}
	}
	assert.True(t, sawGuest)

	// Input is ignored while the request is in flight.
	_, cmd = next.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Nil(t, cmd)
}

func TestAuth_SubmitMessages(t *testing.T) {
	login := New(ModeLogin, 80, 30)
	login.fb.email = "  ada@example.com "
	login.fb.password = "secret1"

	msgs := collect(login.handleSubmit())
	require.Len(t, msgs, 1)
	assert.Equal(t, LoginSubmitMsg{Credentials: model.Credentials{
		Email: "ada@example.com", Password: "secret1",
	}}, msgs[0])

	reg := New(ModeRegister, 80, 30)
	reg.fb.name = "Ada"
	reg.fb.email = "ada@example.com"
	reg.fb.password = "secret1"
	reg.fb.confirm = "secret1"

	msgs = collect(reg.handleSubmit())
	require.Len(t, msgs, 1)
	sub, ok := msgs[0].(RegisterSubmitMsg)
	require.True(t, ok)
	assert.Equal(t, "Ada", sub.Registration.Name)
	assert.NoError(t, model.ValidateRegistration(sub.Registration))
}

func TestAuth_FailKeepsValues(t *testing.T) {
	m := New(ModeLogin, 80, 30)
	m.fb.email = "ada@example.com"
	m.submitting = true

	m.Fail("Invalid credentials")

	assert.False(t, m.Submitting())
	assert.Equal(t, "ada@example.com", m.fb.email)
	assert.Contains(t, m.View(), "Invalid credentials")
}
