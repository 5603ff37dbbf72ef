package model

import (
	"strings"
	"time"
)

// Priority orders tasks on the dashboard.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank returns urgent=4, high=3, medium=2, low=1 and 0 for unknown values.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority accepts any casing; blank input means medium.
func ParsePriority(raw string) (Priority, bool) {
	value := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return PriorityMedium, true
	}
	return value, value.Valid()
}

// Task represents a single item on the dashboard.
type Task struct {
	ID          int64
	Title       string
	Description string
	CategoryID  int64
	Priority    Priority
	DueDate     *time.Time // date only, midnight UTC
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskDraft is the caller-supplied part of a new task.
type TaskDraft struct {
	Title       string
	Description string
	CategoryID  int64
	Priority    Priority
	DueDate     *time.Time
}

// TaskPatch carries the fields to change; nil fields stay as stored.
type TaskPatch struct {
	Title        *string
	Description  *string
	CategoryID   *int64
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
	Completed    *bool
}

// Clone returns a copy of t that shares no memory with it.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.CategoryID == nil && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.Completed == nil
}

// Apply returns a copy of t with the patch merged in.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := DateOnly(*p.DueDate)
		t.DueDate = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}
