package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskmaster/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

var (
	// HeaderStyle is used for top-level section headers and the application title.
	HeaderStyle lipgloss.Style

	// StatusBarStyle is used for the bottom status bar.
	StatusBarStyle lipgloss.Style

	// DetailPanelStyle wraps the detail view content area.
	DetailPanelStyle lipgloss.Style

	// ListItemStyle is the base style for items in a list.
	ListItemStyle lipgloss.Style

	// DimmedStyle renders completed tasks.
	DimmedStyle lipgloss.Style

	// SelectedItemStyle highlights the currently focused list item.
	SelectedItemStyle lipgloss.Style

	// HelpStyle is used for keyboard shortcut hints and help text.
	HelpStyle lipgloss.Style

	// BorderStyle provides a standard rounded border for panels.
	BorderStyle lipgloss.Style

	// ErrorStyle renders inline form and request errors.
	ErrorStyle lipgloss.Style

	mono bool
)

func init() {
	Apply("default")
}

// Apply selects a named theme. "mono" drops all colors; anything else
// uses the default palette.
func Apply(name string) {
	mono = strings.EqualFold(strings.TrimSpace(name), "mono")

	HeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	StatusBarStyle = lipgloss.NewStyle().Padding(0, 1)
	DetailPanelStyle = lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder())
	ListItemStyle = lipgloss.NewStyle().PaddingLeft(2)
	DimmedStyle = lipgloss.NewStyle().Faint(true)
	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, false, true)
	HelpStyle = lipgloss.NewStyle().Italic(true)
	BorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	ErrorStyle = lipgloss.NewStyle().Bold(true)

	if mono {
		HeaderStyle = HeaderStyle.Reverse(true)
		StatusBarStyle = StatusBarStyle.Reverse(true)
		return
	}

	HeaderStyle = HeaderStyle.Foreground(ColorWhite).Background(ColorBlue)
	StatusBarStyle = StatusBarStyle.Foreground(ColorWhite).Background(ColorSubtle)
	DetailPanelStyle = DetailPanelStyle.BorderForeground(ColorBorder)
	SelectedItemStyle = SelectedItemStyle.Foreground(ColorBlue).BorderForeground(ColorBlue)
	HelpStyle = HelpStyle.Foreground(ColorGray)
	DimmedStyle = DimmedStyle.Foreground(ColorGray)
	BorderStyle = BorderStyle.BorderForeground(ColorBorder)
	ErrorStyle = ErrorStyle.Foreground(ColorRed)
}

// Muted renders secondary text.
func Muted() lipgloss.Style {
	if mono {
		return lipgloss.NewStyle().Faint(true)
	}
	return lipgloss.NewStyle().Foreground(ColorGray)
}

// StatusStyle returns a color-coded style for a task status badge.
func StatusStyle(status model.TaskStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if mono {
		return base
	}

	switch status {
	case model.StatusPending:
		return base.Foreground(ColorYellow)
	case model.StatusInProgress:
		return base.Foreground(ColorBlue)
	case model.StatusCompleted:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// StatusIcon returns the badge glyph for a task status.
func StatusIcon(status model.TaskStatus) string {
	switch status {
	case model.StatusPending:
		return "○"
	case model.StatusInProgress:
		return "◐"
	case model.StatusCompleted:
		return "●"
	}
	return "·"
}

// LevelStyle returns the style of a notification.
func LevelStyle(level model.NotificationLevel) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if mono {
		return base
	}

	switch level {
	case model.LevelSuccess:
		return base.Foreground(ColorGreen)
	case model.LevelError:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorMagenta)
	}
}
