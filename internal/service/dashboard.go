package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	errs "taskflow/internal/errors"
	"taskflow/internal/model"
)

// DashboardOptions configures a Dashboard.
type DashboardOptions struct {
	Notifier       Notifier
	Logger         *slog.Logger
	SearchDebounce time.Duration
	// OnSearch runs after a debounced query was applied.
	OnSearch func(query string)
}

// Dashboard holds one session's tasks and categories together with the
// active category filter and search query. Every mutation goes through the
// repositories; local state only ever takes the records they return.
type Dashboard struct {
	tasks      TaskRepository
	categories CategoryRepository
	notifier   Notifier
	log        *slog.Logger
	debounce   *Debouncer
	onSearch   func(string)

	mu             sync.Mutex
	taskList       []model.Task
	categoryList   []model.Category
	activeCategory *int64
	query          string
	closed         bool
}

func NewDashboard(tasks TaskRepository, categories CategoryRepository, opts DashboardOptions) *Dashboard {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dashboard{
		tasks:      tasks,
		categories: categories,
		notifier:   notifier,
		log:        log.With("component", "dashboard"),
		debounce:   NewDebouncer(opts.SearchDebounce),
		onSearch:   opts.OnSearch,
	}
}

// Load replaces the session state with the stored tasks and categories.
// Each list is only replaced when its fetch succeeded.
func (d *Dashboard) Load(ctx context.Context) error {
	tasks, taskErr := d.tasks.List(ctx)
	categories, catErr := d.categories.List(ctx)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	if taskErr == nil {
		d.taskList = tasks
	}
	if catErr == nil {
		d.categoryList = categories
	}
	d.mu.Unlock()

	if err := errors.Join(taskErr, catErr); err != nil {
		d.fail("Failed to load tasks", err)
		return err
	}
	return nil
}

// Close stops the search debouncer; results of calls still in flight are
// dropped from then on.
func (d *Dashboard) Close() {
	d.debounce.Stop()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Tasks returns a copy of every task in the session.
func (d *Dashboard) Tasks() []model.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneTasks(append([]model.Task(nil), d.taskList...))
}

// Visible returns the tasks matching the active category and query in display order.
func (d *Dashboard) Visible() []model.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneTasks(VisibleTasks(d.taskList, d.activeCategory, d.query))
}

// Task returns a copy of a session task.
func (d *Dashboard) Task(id int64) (model.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.taskIndex(id); i >= 0 {
		return d.taskList[i].Clone(), true
	}
	return model.Task{}, false
}

// Categories returns the categories with task counts recomputed from the session tasks.
func (d *Dashboard) Categories() []model.Category {
	d.mu.Lock()
	defer d.mu.Unlock()
	return WithTaskCounts(d.categoryList, d.taskList)
}

// Groups returns the visible tasks grouped by category.
func (d *Dashboard) Groups() []TaskGroup {
	d.mu.Lock()
	defer d.mu.Unlock()
	visible := cloneTasks(VisibleTasks(d.taskList, d.activeCategory, d.query))
	return GroupByCategory(visible, WithTaskCounts(d.categoryList, d.taskList))
}

// cloneTasks detaches tasks from session memory in place.
func cloneTasks(tasks []model.Task) []model.Task {
	for i := range tasks {
		tasks[i] = tasks[i].Clone()
	}
	return tasks
}

// SetActiveCategory filters by category id; nil shows every category.
func (d *Dashboard) SetActiveCategory(id *int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == nil {
		d.activeCategory = nil
		return
	}
	v := *id
	d.activeCategory = &v
}

func (d *Dashboard) ActiveCategory() *int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeCategory == nil {
		return nil
	}
	v := *d.activeCategory
	return &v
}

// SetSearchQuery applies query immediately and drops any pending debounced input.
func (d *Dashboard) SetSearchQuery(query string) {
	d.debounce.Cancel()
	d.mu.Lock()
	d.query = query
	d.mu.Unlock()
}

// SearchInput applies query once input has been idle for the debounce window.
// It is meant for front ends that see every keystroke; the bot and CLI get a
// finished query and use SetSearchQuery.
func (d *Dashboard) SearchInput(query string) {
	d.debounce.Trigger(func() {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return
		}
		d.query = query
		d.mu.Unlock()
		if d.onSearch != nil {
			d.onSearch(query)
		}
	})
}

func (d *Dashboard) SearchQuery() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// CreateTask stores draft and prepends the stored task.
func (d *Dashboard) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, bool) {
	task, err := d.tasks.Create(ctx, draft)
	if err != nil {
		d.fail("Failed to create task", err)
		return model.Task{}, false
	}
	if !d.reconcile(func() { d.taskList = append([]model.Task{task}, d.taskList...) }) {
		return model.Task{}, false
	}
	d.notifier.Notify(LevelSuccess, "Task created successfully!")
	return task, true
}

// UpdateTask applies patch through the repository and keeps the returned record.
func (d *Dashboard) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, bool) {
	task, err := d.tasks.Update(ctx, id, patch)
	if err != nil {
		d.fail("Failed to update task", err)
		return model.Task{}, false
	}
	if !d.reconcile(func() { d.replaceTask(task) }) {
		return model.Task{}, false
	}
	d.notifier.Notify(LevelSuccess, "Task updated successfully!")
	return task, true
}

// ToggleTask flips completion against the store and keeps the returned record.
func (d *Dashboard) ToggleTask(ctx context.Context, id int64) (model.Task, bool) {
	task, err := d.tasks.ToggleComplete(ctx, id)
	if err != nil {
		d.fail("Failed to update task", err)
		return model.Task{}, false
	}
	if !d.reconcile(func() { d.replaceTask(task) }) {
		return model.Task{}, false
	}
	if task.Completed {
		d.notifier.Notify(LevelSuccess, "Task completed! 🎉")
	} else {
		d.notifier.Notify(LevelSuccess, "Task reopened")
	}
	return task, true
}

// DeleteTask removes the task from the store, then from the session.
func (d *Dashboard) DeleteTask(ctx context.Context, id int64) bool {
	if _, err := d.tasks.Delete(ctx, id); err != nil {
		d.fail("Failed to delete task", err)
		return false
	}
	if !d.reconcile(func() { d.removeTasks(id) }) {
		return false
	}
	d.notifier.Notify(LevelSuccess, "Task deleted successfully")
	return true
}

// ClearCompleted deletes every completed task of the session in one batch.
// Tasks whose deletion failed stay in the session and each failure is reported.
func (d *Dashboard) ClearCompleted(ctx context.Context) int {
	d.mu.Lock()
	var ids []int64
	for _, task := range d.taskList {
		if task.Completed {
			ids = append(ids, task.ID)
		}
	}
	d.mu.Unlock()

	if len(ids) == 0 {
		d.notifier.Notify(LevelInfo, "No completed tasks")
		return 0
	}

	deleted, err := d.tasks.DeleteMany(ctx, ids)
	if len(deleted) > 0 && !d.reconcile(func() { d.removeTasks(deleted...) }) {
		return 0
	}

	if pb, ok := errs.AsPartialBatchFailure(err); ok {
		for _, failure := range pb.Failures {
			d.notifier.Notify(LevelError, "Failed to delete task "+failure.String())
		}
	} else if err != nil {
		d.fail("Failed to delete tasks", err)
		return 0
	}
	if len(deleted) > 0 {
		d.notifier.Notify(LevelSuccess, fmt.Sprintf("Cleared %d completed tasks", len(deleted)))
	}
	return len(deleted)
}

// AddCategory stores a category and appends it to the session.
func (d *Dashboard) AddCategory(ctx context.Context, draft model.CategoryDraft) (model.Category, bool) {
	category, err := d.categories.Create(ctx, draft)
	if err != nil {
		d.fail("Failed to create category", err)
		return model.Category{}, false
	}
	if !d.reconcile(func() { d.categoryList = append(d.categoryList, category) }) {
		return model.Category{}, false
	}
	d.notifier.Notify(LevelSuccess, "Category created successfully!")
	return category, true
}

// UpdateCategory applies patch and keeps the returned category.
func (d *Dashboard) UpdateCategory(ctx context.Context, id int64, patch model.CategoryPatch) (model.Category, bool) {
	category, err := d.categories.Update(ctx, id, patch)
	if err != nil {
		d.fail("Failed to update category", err)
		return model.Category{}, false
	}
	if !d.reconcile(func() { d.replaceCategory(category) }) {
		return model.Category{}, false
	}
	d.notifier.Notify(LevelSuccess, "Category updated successfully!")
	return category, true
}

// RemoveCategory deletes a category. Its tasks stay and show as uncategorized.
func (d *Dashboard) RemoveCategory(ctx context.Context, id int64) bool {
	if _, err := d.categories.Delete(ctx, id); err != nil {
		d.fail("Failed to delete category", err)
		return false
	}
	ok := d.reconcile(func() {
		for i, c := range d.categoryList {
			if c.ID == id {
				d.categoryList = append(d.categoryList[:i:i], d.categoryList[i+1:]...)
				break
			}
		}
		if d.activeCategory != nil && *d.activeCategory == id {
			d.activeCategory = nil
		}
	})
	if ok {
		d.notifier.Notify(LevelSuccess, "Category deleted successfully")
	}
	return ok
}

// PersistTaskCounts writes the recomputed task counts back to the store.
// Categories that vanished meanwhile are dropped from the session.
func (d *Dashboard) PersistTaskCounts(ctx context.Context) error {
	var failed []error
	for _, c := range d.Categories() {
		updated, err := d.categories.UpdateTaskCount(ctx, c.ID, c.TaskCount)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		if updated == nil {
			d.reconcile(func() {
				for i, existing := range d.categoryList {
					if existing.ID == c.ID {
						d.categoryList = append(d.categoryList[:i:i], d.categoryList[i+1:]...)
						break
					}
				}
			})
			continue
		}
		d.reconcile(func() { d.replaceCategory(*updated) })
	}
	if err := errors.Join(failed...); err != nil {
		d.fail("Failed to save task counts", err)
		return err
	}
	return nil
}

// reconcile applies fn under the lock unless the dashboard was closed.
func (d *Dashboard) reconcile(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.log.Debug("dropping late response")
		return false
	}
	fn()
	return true
}

func (d *Dashboard) fail(prefix string, err error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return
	}
	d.log.Warn(prefix, "error", err)
	d.notifier.Notify(LevelError, failureMessage(prefix, err))
}

// failureMessage keeps validation errors readable on their own.
func failureMessage(prefix string, err error) string {
	if ve, ok := errs.AsValidation(err); ok {
		if ve.Field == "category_id" {
			return "Please select a category"
		}
		return ve.Error()
	}
	if errs.IsNotFound(err) {
		return prefix + ": " + err.Error()
	}
	return prefix
}

func (d *Dashboard) taskIndex(id int64) int {
	for i, task := range d.taskList {
		if task.ID == id {
			return i
		}
	}
	return -1
}

func (d *Dashboard) replaceTask(task model.Task) {
	if i := d.taskIndex(task.ID); i >= 0 {
		d.taskList[i] = task
	}
}

func (d *Dashboard) removeTasks(ids ...int64) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]model.Task, 0, len(d.taskList))
	for _, task := range d.taskList {
		if _, ok := drop[task.ID]; !ok {
			kept = append(kept, task)
		}
	}
	d.taskList = kept
}

func (d *Dashboard) replaceCategory(category model.Category) {
	for i, c := range d.categoryList {
		if c.ID == category.ID {
			d.categoryList[i] = category
			return
		}
	}
}
