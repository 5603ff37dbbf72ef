package model

// Category groups tasks by area (work, health, study, etc.).
type Category struct {
	ID    int64
	Name  string
	Color string
	Icon  string
	// TaskCount is the number of incomplete tasks in the category. The dashboard
	// recomputes it; the stored value is only a cache.
	TaskCount int
}

// CategoryDraft is the caller-supplied part of a new category.
type CategoryDraft struct {
	Name  string
	Color string
	Icon  string
}

// CategoryPatch carries the category fields to change.
type CategoryPatch struct {
	Name  *string
	Color *string
	Icon  *string
}
