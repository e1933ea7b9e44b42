package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
	"github.com/nhle/taskmaster/internal/theme"
)

func (m *Model) openSettings() tea.Cmd {
	if m.config == nil || m.saveCfg == nil {
		return m.notify(model.LevelInfo, "Settings are not available")
	}
	m.previousView = m.currentView
	m.currentView = ViewSettings
	return m.settingsView.Open(m.config)
}

// applySettings switches to a saved configuration. Theme, paging, search
// delay and auto refresh apply immediately; the server URL at next start.
func (m *Model) applySettings(cfg *model.AppConfig) tea.Cmd {
	urlChanged := m.config.API.BaseURL != cfg.API.BaseURL
	m.config = cfg

	theme.Apply(cfg.Display.Theme)
	m.debounce.SetWindow(cfg.DebounceWindow())
	if t := cfg.ToastDuration(); t > 0 {
		m.toastDuration = t
	}

	var cmds []tea.Cmd
	m.refresh.SetInterval(cfg.RefreshInterval())
	if m.session.State() == session.StateAuthenticated {
		m.refresh.Stop()
		cmds = append(cmds, m.refresh.Start())
		if m.ctrl.SetLimit(cfg.Tasks.PageSize) {
			cmds = append(cmds, m.taskList.Reload())
		}
	}

	text := "Settings saved"
	if urlChanged {
		text = "Settings saved; restart to use the new server URL"
	}
	cmds = append(cmds, m.notify(model.LevelSuccess, text))
	return tea.Batch(cmds...)
}
