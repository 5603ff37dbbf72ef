package service

import (
	"sort"
	"strings"

	"taskflow/internal/model"
)

// VisibleTasks filters all by category and search query, then orders the
// result: incomplete before completed, higher priority first, input order
// otherwise. The input slice is never modified.
func VisibleTasks(all []model.Task, activeCategoryID *int64, query string) []model.Task {
	needle := strings.ToLower(strings.TrimSpace(query))

	visible := make([]model.Task, 0, len(all))
	for _, task := range all {
		if activeCategoryID != nil && task.CategoryID != *activeCategoryID {
			continue
		}
		if needle != "" && !matches(task, needle) {
			continue
		}
		visible = append(visible, task)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		return a.Priority.Rank() > b.Priority.Rank()
	})
	return visible
}

func matches(task model.Task, needle string) bool {
	return strings.Contains(strings.ToLower(task.Title), needle) ||
		strings.Contains(strings.ToLower(task.Description), needle)
}

// PendingCounts counts incomplete tasks per category id.
func PendingCounts(tasks []model.Task) map[int64]int {
	counts := make(map[int64]int)
	for _, task := range tasks {
		if !task.Completed {
			counts[task.CategoryID]++
		}
	}
	return counts
}

// WithTaskCounts returns a copy of categories whose TaskCount is recomputed from tasks.
func WithTaskCounts(categories []model.Category, tasks []model.Task) []model.Category {
	counts := PendingCounts(tasks)
	out := make([]model.Category, len(categories))
	for i, c := range categories {
		c.TaskCount = counts[c.ID]
		out[i] = c
	}
	return out
}

// UncategorizedName labels tasks whose category is missing.
const UncategorizedName = "Uncategorized"

// TaskGroup is one category section of a grouped task list.
type TaskGroup struct {
	// Category is nil for the uncategorized group.
	Category *model.Category
	Tasks    []model.Task
}

// Name is the display name of the group.
func (g TaskGroup) Name() string {
	if g.Category == nil || strings.TrimSpace(g.Category.Name) == "" {
		return UncategorizedName
	}
	return g.Category.Name
}

// GroupByCategory splits tasks into groups following the order of categories.
// Empty groups are skipped; tasks referencing an unknown category go last.
func GroupByCategory(tasks []model.Task, categories []model.Category) []TaskGroup {
	index := make(map[int64]int, len(categories))
	groups := make([]TaskGroup, len(categories))
	for i := range categories {
		c := categories[i]
		index[c.ID] = i
		groups[i].Category = &c
	}

	var orphans []model.Task
	for _, task := range tasks {
		if i, ok := index[task.CategoryID]; ok {
			groups[i].Tasks = append(groups[i].Tasks, task)
			continue
		}
		orphans = append(orphans, task)
	}

	out := make([]TaskGroup, 0, len(groups)+1)
	for _, g := range groups {
		if len(g.Tasks) > 0 {
			out = append(out, g)
		}
	}
	if len(orphans) > 0 {
		out = append(out, TaskGroup{Tasks: orphans})
	}
	return out
}

// FindCategory looks a category up by id.
func FindCategory(categories []model.Category, id int64) (model.Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}
