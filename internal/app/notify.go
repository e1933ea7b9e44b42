package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskmaster/internal/model"
)

// notificationSavedMsg reports the outcome of appending to the log.
type notificationSavedMsg struct {
	err error
}

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count int
}

// toastExpiredMsg hides toast seq once its display time is over.
type toastExpiredMsg struct {
	seq int
}

// notify shows text in the status bar and appends it to the log.
func (m *Model) notify(level model.NotificationLevel, text string) tea.Cmd {
	n := model.Notification{
		Level:     level,
		Message:   text,
		CreatedAt: time.Now(),
	}
	m.toast = &n
	m.toastSeq++
	seq := m.toastSeq

	hide := tea.Tick(m.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
	if m.store == nil {
		return hide
	}

	s := m.store
	save := func() tea.Msg {
		_, err := s.CreateNotification(context.Background(), n)
		return notificationSavedMsg{err: err}
	}
	return tea.Batch(hide, save)
}

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	if m.store == nil {
		return nil
	}
	s := m.store
	return func() tea.Msg {
		count, err := s.UnreadCount(context.Background())
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: count}
	}
}
