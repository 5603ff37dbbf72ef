package service

import (
	"context"

	"taskflow/internal/model"
)

// TaskRepository is the task persistence the dashboard drives.
type TaskRepository interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, draft model.TaskDraft) (model.Task, error)
	Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error)
	ToggleComplete(ctx context.Context, id int64) (model.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteMany(ctx context.Context, ids []int64) ([]int64, error)
}

// CategoryRepository is the category persistence the dashboard drives.
type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, draft model.CategoryDraft) (model.Category, error)
	Update(ctx context.Context, id int64, patch model.CategoryPatch) (model.Category, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UpdateTaskCount(ctx context.Context, id int64, count int) (*model.Category, error)
}

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives user-facing messages about dashboard operations.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

type discardNotifier struct{}

func (discardNotifier) Notify(Level, string) {}
