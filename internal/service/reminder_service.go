package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"taskflow/internal/model"
)

// ReminderService builds the daily report sent by the scheduler.
type ReminderService struct {
	tasks      TaskRepository
	categories CategoryRepository
}

func NewReminderService(tasks TaskRepository, categories CategoryRepository) *ReminderService {
	return &ReminderService{tasks: tasks, categories: categories}
}

// DailySummary reads the current tasks and categories and renders the report.
func (s *ReminderService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return "", err
	}
	// Without categories the report still renders; tasks land in "Uncategorized".
	categories, err := s.categories.List(ctx)
	if err != nil {
		categories = nil
	}
	return Summary(tasks, categories, now), nil
}

// Summary renders the session's report.
func (d *Dashboard) Summary(now time.Time) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Summary(d.taskList, d.categoryList, now)
}

// Summary renders pending tasks grouped by category, overdue tasks first
// within each group, then by due date and newest first.
func Summary(tasks []model.Task, categories []model.Category, now time.Time) string {
	var pending []model.Task
	overdue := 0
	for _, task := range tasks {
		if task.Completed {
			continue
		}
		pending = append(pending, task)
		if model.DueStatus(task, now) == model.DueOverdue {
			overdue++
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		ao, bo := model.DueStatus(a, now) == model.DueOverdue, model.DueStatus(b, now) == model.DueOverdue
		switch {
		case ao != bo:
			return ao
		case a.DueDate == nil && b.DueDate == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	})

	var builder strings.Builder
	builder.WriteString("📋 Daily report\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("Mon, 02 Jan 2006")))
	builder.WriteString(fmt.Sprintf("%d pending, %d overdue\n\n", len(pending), overdue))

	if len(pending) == 0 {
		builder.WriteString("— no open tasks 🎉\n")
		return strings.TrimSpace(builder.String())
	}

	for _, group := range GroupByCategory(pending, categories) {
		builder.WriteString(fmt.Sprintf("📁 %s\n", group.Name()))
		for _, task := range group.Tasks {
			builder.WriteString(formatTaskLine(task, now))
		}
		builder.WriteByte('\n')
	}
	return strings.TrimSpace(builder.String())
}

func formatTaskLine(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch model.DueStatus(task, now) {
	case model.DueOverdue:
		icon = "⚠️"
	case model.DueToday:
		icon = "⏳"
	}
	sb.WriteString(fmt.Sprintf("%s %s [%s]", icon, strings.TrimSpace(task.Title), task.Priority))

	if task.DueDate != nil {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", model.FormatDate(*task.DueDate)))
		if status := model.DueStatus(task, now); status != model.DueUpcoming {
			sb.WriteString(" · " + status.String())
		}
	}
	if desc := strings.TrimSpace(task.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", desc))
	}

	sb.WriteByte('\n')
	return sb.String()
}
