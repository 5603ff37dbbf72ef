package service

import (
	"fmt"
	"strings"
)

// EmptyState selects the message shown when no task is visible.
type EmptyState string

const (
	EmptyTasks    EmptyState = "tasks"
	EmptySearch   EmptyState = "search"
	EmptyCategory EmptyState = "category"
)

func (e EmptyState) Title() string {
	switch e {
	case EmptySearch:
		return "No results found"
	case EmptyCategory:
		return "No tasks in this category"
	default:
		return "No tasks yet"
	}
}

func (e EmptyState) Description() string {
	switch e {
	case EmptySearch:
		return "We couldn't find any tasks matching your search. Try adjusting your search terms."
	case EmptyCategory:
		return "This category is empty. Add some tasks to get started organizing your work."
	default:
		return "Start organizing your day by creating your first task."
	}
}

// Header describes the current page.
type Header struct {
	Title    string
	Subtitle string
	Empty    EmptyState
}

// Header returns the page title, subtitle and empty state for the current filters.
func (d *Dashboard) Header() Header {
	d.mu.Lock()
	defer d.mu.Unlock()

	visible := VisibleTasks(d.taskList, d.activeCategory, d.query)
	completed := 0
	for _, task := range visible {
		if task.Completed {
			completed++
		}
	}
	pending := len(visible) - completed
	counts := fmt.Sprintf("%d pending, %d completed", pending, completed)

	h := Header{Title: "All Tasks", Subtitle: counts, Empty: EmptyTasks}
	if d.activeCategory != nil {
		h.Empty = EmptyCategory
		if c, ok := FindCategory(d.categoryList, *d.activeCategory); ok {
			h.Title = c.Name
		} else {
			h.Title = "Category"
			h.Subtitle = "Category tasks"
		}
	}
	if q := strings.TrimSpace(d.query); q != "" {
		h.Empty = EmptySearch
		h.Subtitle = fmt.Sprintf(`Found %d tasks matching "%s"`, len(visible), d.query)
	}
	return h
}
