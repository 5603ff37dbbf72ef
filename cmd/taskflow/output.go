package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorSuccess = lipgloss.Color("#10B981")

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSubtitle = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleDone = lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(colorMuted)

	styleNote = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorMuted)
)

var priorityStyles = map[model.Priority]lipgloss.Style{
	model.PriorityUrgent: lipgloss.NewStyle().Bold(true).Foreground(colorError),
	model.PriorityHigh:   lipgloss.NewStyle().Foreground(colorWarning),
	model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
	model.PriorityLow:    lipgloss.NewStyle().Foreground(colorMuted),
}

// printNotifier shows dashboard notifications on stderr.
func printNotifier(cmd *cobra.Command) service.Notifier {
	return service.NotifierFunc(func(level service.Level, message string) {
		style := styleSubtitle
		switch level {
		case service.LevelSuccess:
			style = styleSuccess
		case service.LevelError:
			style = styleError
		}
		fmt.Fprintln(cmd.ErrOrStderr(), style.Render(message))
	})
}

func renderDashboard(header service.Header, groups []service.TaskGroup, now time.Time) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(header.Title))
	b.WriteByte('\n')
	b.WriteString(styleSubtitle.Render(header.Subtitle))
	b.WriteString("\n\n")

	if len(groups) == 0 {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(header.Empty.Title()))
		b.WriteByte('\n')
		b.WriteString(styleNote.Render(header.Empty.Description()))
		b.WriteByte('\n')
		return b.String()
	}

	for _, group := range groups {
		heading := lipgloss.NewStyle().Bold(true)
		if group.Category != nil && group.Category.Color != "" {
			heading = heading.Foreground(lipgloss.Color(group.Category.Color))
		}
		b.WriteString(heading.Render(group.Name()))
		b.WriteByte('\n')
		for _, task := range group.Tasks {
			b.WriteString(renderTask(task, now))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderTask(task model.Task, now time.Time) string {
	check := "[ ]"
	title := task.Title
	if task.Completed {
		check = "[x]"
		title = styleDone.Render(title)
	}

	line := fmt.Sprintf("  %s %4d  %s  %s", check, task.ID, title, priorityStyles[task.Priority].Render(string(task.Priority)))
	if task.DueDate != nil {
		due := "due " + model.FormatDate(*task.DueDate)
		switch model.DueStatus(task, now) {
		case model.DueOverdue:
			due = styleError.Render(due + " (overdue)")
		case model.DueToday:
			due = styleWarning.Render(due + " (today)")
		default:
			due = styleSubtitle.Render(due)
		}
		line += "  " + due
	}
	line += "\n"
	if task.Description != "" {
		line += "         " + styleNote.Render(task.Description) + "\n"
	}
	return line
}

func renderCategories(categories []model.Category) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Categories"))
	b.WriteByte('\n')
	if len(categories) == 0 {
		b.WriteString(styleNote.Render("No categories yet. Add one with: taskflow category add NAME"))
		b.WriteByte('\n')
		return b.String()
	}
	for _, c := range categories {
		name := lipgloss.NewStyle().Bold(true)
		if c.Color != "" {
			name = name.Foreground(lipgloss.Color(c.Color))
		}
		b.WriteString(fmt.Sprintf("  %4d  %s  %s\n", c.ID, name.Render(c.Name), styleSubtitle.Render(fmt.Sprintf("%d open", c.TaskCount))))
	}
	return b.String()
}
