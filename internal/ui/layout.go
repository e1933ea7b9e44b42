package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top bar with the title on the left and right
// aligned text such as the welcome line.
func (l Layout) RenderHeader(title, right string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	rightRendered := theme.HeaderStyle.Align(lipgloss.Right).Render(right)
	return l.fill(theme.HeaderStyle, titleRendered, rightRendered)
}

// RenderStatusBar renders the bottom bar with keyboard hints on the left
// and sync state on the right.
func (l Layout) RenderStatusBar(hints, right string) string {
	left := theme.StatusBarStyle.Render(hints)
	if right == "" {
		return l.fill(theme.StatusBarStyle, left, "")
	}
	return l.fill(theme.StatusBarStyle, left, theme.StatusBarStyle.Render(right))
}

// RenderNotification renders a notification in place of the status bar.
func (l Layout) RenderNotification(n model.Notification) string {
	text := theme.StatusBarStyle.Render(
		theme.LevelStyle(n.Level).
			Inherit(theme.StatusBarStyle).
			UnsetPadding().
			Render(n.Message),
	)
	return l.fill(theme.StatusBarStyle, text, "")
}

// fill pads the gap between left and right with the bar's background.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	body := lipgloss.NewStyle().
		Width(l.ContentWidth()).
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		statusBar,
	)
}

// Centered places s in the middle of the content area.
func (l Layout) Centered(s string) string {
	return lipgloss.Place(l.ContentWidth(), l.ContentHeight(), lipgloss.Center, lipgloss.Center, s)
}
