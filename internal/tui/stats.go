package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/taskclock/internal/models"
)

const defaultTopN = 5

func newStatsTable(height int) table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "TASK", Width: 40},
			{Title: "LOGGED", Width: 10},
			{Title: "ID", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true).
		Foreground(cyanColor)
	s.Selected = s.Selected.
		Foreground(fgColor).
		Background(primaryColor).
		Bold(false)
	t.SetStyles(s)
	return t
}

func statsRows(top []models.TaskTotal) []table.Row {
	rows := make([]table.Row, len(top))
	for i, t := range top {
		rows[i] = table.Row{strconv.Itoa(i + 1), t.Title, formatMinutes(t.TotalMinutes), shortID(t.TaskID)}
	}
	return rows
}

func (a *App) renderStats() string {
	if a.stats == nil {
		return "\n  Loading stats...\n"
	}

	var b strings.Builder
	b.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(fmt.Sprintf("Top %d tasks by logged time", a.stats.N)) + "\n\n")
	if len(a.stats.Top) == 0 {
		b.WriteString("  " + helpStyle.Render("No time logged yet") + "\n")
	} else {
		b.WriteString(a.table.View() + "\n")
	}

	if m := a.stats.LastMonth; m != nil {
		label := lipgloss.NewStyle().Foreground(mutedColor).Render("Your time last month:")
		value := lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(formatMinutes(m.TotalMinutes))
		b.WriteString(fmt.Sprintf("\n  %s %s  %s\n", label, value, helpStyle.Render(monthLabel(m.From))))
	}
	return b.String()
}

// monthLabel renders an RFC 3339 month start as "January 2006".
func monthLabel(from string) string {
	t, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return from
	}
	return t.Format("January 2006")
}
