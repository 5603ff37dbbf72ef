package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// DateLayout is the wire and display format of due dates.
const DateLayout = "2006-01-02"

// DueState classifies a task's due date relative to today.
type DueState int

const (
	DueNone DueState = iota
	DueUpcoming
	DueToday
	DueOverdue
)

func (s DueState) String() string {
	switch s {
	case DueUpcoming:
		return "upcoming"
	case DueToday:
		return "due today"
	case DueOverdue:
		return "overdue"
	default:
		return ""
	}
}

// DateOnly drops the clock part, keeping the calendar date t shows in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueStatus compares calendar dates only: a task due today is not overdue at 23:59.
// Completed tasks and tasks without a date have no status.
func DueStatus(task Task, now time.Time) DueState {
	if task.DueDate == nil || task.Completed {
		return DueNone
	}
	due := DateOnly(*task.DueDate)
	today := DateOnly(now)
	switch {
	case due.Before(today):
		return DueOverdue
	case due.Equal(today):
		return DueToday
	default:
		return DueUpcoming
	}
}

// FormatDate renders a due date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD due date.
func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(parsed), nil
}

// ParseDueDate accepts YYYY-MM-DD or natural language ("tomorrow", "next friday")
// relative to now.
func ParseDueDate(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("due date is required")
	}
	if parsed, err := ParseDate(input); err == nil {
		return parsed, nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse due date %q", input)
	}
	return DateOnly(result.Time), nil
}
