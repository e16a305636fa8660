package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Suggestions provides autocomplete for commands and task references.
type Suggestions struct {
	items       []SuggestionItem
	filtered    []SuggestionItem
	selectedIdx int
	visible     bool
	prefix      string // "/" or "@"
}

// SuggestionItem is a single autocomplete entry.
type SuggestionItem struct {
	Text        string
	Description string
	Type        string // "command" or "task"
}

var commandSuggestions = []SuggestionItem{
	{Text: "add", Description: "Create a new task", Type: "command"},
	{Text: "start", Description: "Start your timer on the selected task", Type: "command"},
	{Text: "finish", Description: "Stop your timer on the selected task", Type: "command"},
	{Text: "log", Description: "Log finished minutes on the selected task", Type: "command"},
	{Text: "complete", Description: "Mark the selected task completed", Type: "command"},
	{Text: "move", Description: "Move the selected task to a status", Type: "command"},
	{Text: "assign", Description: "Assign the selected task to a user", Type: "command"},
	{Text: "comment", Description: "Comment on the selected task", Type: "command"},
	{Text: "search", Description: "Find tasks by title", Type: "command"},
	{Text: "top", Description: "Show the tasks with the most logged time", Type: "command"},
	{Text: "quit", Description: "Leave taskclock", Type: "command"},
}

// NewSuggestions creates a new suggestions handler.
func NewSuggestions() *Suggestions {
	return &Suggestions{items: commandSuggestions}
}

// Update recomputes suggestions for input. tasks feeds the "@" references.
func (s *Suggestions) Update(input string, tasks []TaskItem) {
	switch {
	case strings.HasPrefix(input, "/"):
		s.prefix = "/"
		s.items = commandSuggestions
	case strings.HasPrefix(input, "@"):
		s.prefix = "@"
		s.items = make([]SuggestionItem, len(tasks))
		for i, t := range tasks {
			s.items[i] = SuggestionItem{Text: t.ID, Description: t.Title, Type: "task"}
		}
	default:
		s.visible = false
		s.filtered = nil
		s.prefix = ""
		return
	}
	s.visible = true
	s.filter(strings.ToLower(input[1:]))
}

func (s *Suggestions) filter(query string) {
	s.selectedIdx = 0
	if query == "" {
		s.filtered = s.items
		return
	}
	s.filtered = []SuggestionItem{}
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Text), query) || strings.Contains(strings.ToLower(item.Description), query) {
			s.filtered = append(s.filtered, item)
		}
	}
}

// Next moves to the next suggestion.
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion.
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the highlighted suggestion.
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.IsVisible() || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible.
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Dismiss hides the dropdown until the next Update.
func (s *Suggestions) Dismiss() {
	s.visible = false
}

// Render renders the suggestions dropdown.
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(max(width-4, 20))
	itemStyle := lipgloss.NewStyle().Foreground(fgColor)
	descStyle := lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	highlight := lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true)

	header := "Commands"
	if s.prefix == "@" {
		header = "Tasks"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(header))
	b.WriteString("\n")

	const maxVisible = 5
	for i, item := range s.filtered {
		if i >= maxVisible {
			b.WriteString(descStyle.Render(fmt.Sprintf("  ... and %d more", len(s.filtered)-maxVisible)))
			break
		}
		var line string
		if i == s.selectedIdx {
			line = highlight.Render("▶ " + item.Text)
			if item.Description != "" {
				line += " " + highlight.Render(item.Description)
			}
		} else {
			line = itemStyle.Render("  " + item.Text)
			if item.Description != "" {
				line += " " + descStyle.Render(item.Description)
			}
		}
		b.WriteString(line + "\n")
	}

	return boxStyle.Render(b.String())
}
