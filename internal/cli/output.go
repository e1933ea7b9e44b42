package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/theme"
)

func colorGreen(s string) string {
	return lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(s)
}

func colorYellow(s string) string {
	return lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(s)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// taskTable renders one page of tasks.
func taskTable(tasks []model.Task) string {
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = []string{
			strconv.FormatInt(t.ID, 10),
			t.Status.Label(),
			truncate(t.Title, 48),
			t.CreatedAt.Local().Format("Jan 02, 2006"),
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorGray)).
		Headers("ID", "STATUS", "TITLE", "CREATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			if col == 1 && row >= 0 && row < len(tasks) {
				return style.Inherit(theme.StatusStyle(tasks[row].Status))
			}
			return style
		}).
		String()
}

func printTask(w io.Writer, t model.Task) {
	fmt.Fprintf(w, "ID:          %d\n", t.ID)
	fmt.Fprintf(w, "Title:       %s\n", t.Title)
	fmt.Fprintf(w, "Status:      %s\n", t.Status.Label())
	if t.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", t.Description)
	}
	fmt.Fprintf(w, "Created:     %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
