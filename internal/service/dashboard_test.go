package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "taskflow/internal/errors"
	"taskflow/internal/logging"
	"taskflow/internal/model"
)

var errBoom = errors.New("boom")

type fakeTasks struct {
	mu      sync.Mutex
	tasks   []model.Task
	nextID  int64
	failAll bool
	// rewrite lets a test alter what the store hands back on update.
	rewrite func(model.Task) model.Task
	// failDelete lists ids DeleteMany refuses.
	failDelete map[int64]bool
}

func (f *fakeTasks) List(context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return []model.Task{}, errs.WrapStoreFailure("list", "task", errBoom)
	}
	return append([]model.Task(nil), f.tasks...), nil
}

func (f *fakeTasks) Create(_ context.Context, draft model.TaskDraft) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return model.Task{}, errs.WrapStoreFailure("create", "task", errBoom)
	}
	if draft.CategoryID == 0 {
		return model.Task{}, errs.NewValidation("category_id", "select a category")
	}
	f.nextID++
	task := model.Task{ID: f.nextID, Title: draft.Title, CategoryID: draft.CategoryID, Priority: draft.Priority}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeTasks) find(id int64) int {
	for i, task := range f.tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeTasks) Update(_ context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return model.Task{}, errs.WrapStoreFailure("update", "task", errBoom)
	}
	i := f.find(id)
	if i < 0 {
		return model.Task{}, errs.NewNotFound("task", id)
	}
	task := patch.Apply(f.tasks[i])
	if f.rewrite != nil {
		task = f.rewrite(task)
	}
	f.tasks[i] = task
	return task, nil
}

func (f *fakeTasks) ToggleComplete(ctx context.Context, id int64) (model.Task, error) {
	f.mu.Lock()
	i := f.find(id)
	var completed bool
	if i >= 0 {
		completed = !f.tasks[i].Completed
	}
	f.mu.Unlock()
	return f.Update(ctx, id, model.TaskPatch{Completed: &completed})
}

func (f *fakeTasks) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return false, errs.NewNotFound("task", id)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return true, nil
}

func (f *fakeTasks) DeleteMany(ctx context.Context, ids []int64) ([]int64, error) {
	var deleted []int64
	var failures []errs.RecordFailure
	for _, id := range ids {
		if f.failDelete[id] {
			failures = append(failures, errs.RecordFailure{ID: id, Message: "locked"})
			continue
		}
		if _, err := f.Delete(ctx, id); err != nil {
			failures = append(failures, errs.RecordFailure{ID: id, Message: err.Error()})
			continue
		}
		deleted = append(deleted, id)
	}
	if len(failures) > 0 {
		return deleted, &errs.PartialBatchFailure{Op: "delete", Kind: "task", Succeeded: len(deleted), Failures: failures}
	}
	return deleted, nil
}

type fakeCategories struct {
	mu         sync.Mutex
	categories []model.Category
	nextID     int64
	counts     map[int64]int
}

func (f *fakeCategories) List(context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Category(nil), f.categories...), nil
}

func (f *fakeCategories) Create(_ context.Context, draft model.CategoryDraft) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(draft.Name) == "" {
		return model.Category{}, errs.NewValidation("Name", "is required")
	}
	f.nextID++
	c := model.Category{ID: f.nextID, Name: draft.Name, Color: draft.Color, Icon: draft.Icon}
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeCategories) Update(_ context.Context, id int64, patch model.CategoryPatch) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.categories {
		if c.ID == id {
			if patch.Name != nil {
				c.Name = *patch.Name
			}
			f.categories[i] = c
			return c, nil
		}
	}
	return model.Category{}, errs.NewNotFound("category", id)
}

func (f *fakeCategories) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.categories {
		if c.ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return true, nil
		}
	}
	return false, errs.NewNotFound("category", id)
}

func (f *fakeCategories) UpdateTaskCount(_ context.Context, id int64, count int) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.categories {
		if c.ID == id {
			c.TaskCount = count
			f.categories[i] = c
			if f.counts == nil {
				f.counts = map[int64]int{}
			}
			f.counts[id] = count
			return &c, nil
		}
	}
	return nil, nil
}

type notice struct {
	level   Level
	message string
}

type recorder struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{level, message})
}

func (r *recorder) errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.level == LevelError {
			out = append(out, n.message)
		}
	}
	return out
}

func (r *recorder) last() notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return notice{}
	}
	return r.notices[len(r.notices)-1]
}

func setupDashboard(t *testing.T) (*Dashboard, *fakeTasks, *fakeCategories, *recorder) {
	t.Helper()
	tasks := &fakeTasks{nextID: 100}
	categories := &fakeCategories{}
	rec := &recorder{}
	d := NewDashboard(tasks, categories, DashboardOptions{
		Notifier:       rec,
		Logger:         logging.Discard(),
		SearchDebounce: 20 * time.Millisecond,
	})
	t.Cleanup(d.Close)
	return d, tasks, categories, rec
}

func seed(tasks *fakeTasks, categories *fakeCategories) {
	categories.categories = []model.Category{{ID: 1, Name: "Work"}, {ID: 2, Name: "Home"}}
	categories.nextID = 2
	tasks.tasks = []model.Task{
		{ID: 1, Title: "Buy milk", CategoryID: 2, Priority: model.PriorityLow},
		{ID: 2, Title: "Report", CategoryID: 1, Priority: model.PriorityUrgent},
		{ID: 3, Title: "Slides", CategoryID: 1, Priority: model.PriorityUrgent, Completed: true},
	}
}

func TestDashboardLoad(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)

	require.NoError(t, d.Load(context.Background()))
	assert.Equal(t, []int64{2, 1, 3}, ids(d.Visible()))
	assert.Empty(t, rec.errors())

	cats := d.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, 1, cats[0].TaskCount)
	assert.Equal(t, 1, cats[1].TaskCount)
}

func TestDashboardLoadFailureKeepsState(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	tasks.failAll = true
	err := d.Load(context.Background())
	assert.ErrorIs(t, err, errs.ErrStoreFailure)
	assert.Len(t, d.Tasks(), 3)
	assert.Equal(t, []string{"Failed to load tasks"}, rec.errors())
}

func TestDashboardCreatePrepends(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	task, ok := d.CreateTask(context.Background(), model.TaskDraft{Title: "New", CategoryID: 1, Priority: model.PriorityMedium})
	require.True(t, ok)
	assert.Equal(t, int64(101), task.ID)
	assert.Equal(t, int64(101), d.Tasks()[0].ID)
	assert.Equal(t, notice{LevelSuccess, "Task created successfully!"}, rec.last())
}

func TestDashboardCreateValidation(t *testing.T) {
	d, _, _, rec := setupDashboard(t)

	_, ok := d.CreateTask(context.Background(), model.TaskDraft{Title: "No category"})
	assert.False(t, ok)
	assert.Empty(t, d.Tasks())
	assert.Equal(t, []string{"Please select a category"}, rec.errors())
}

func TestDashboardUpdateKeepsReturnedRecord(t *testing.T) {
	d, tasks, categories, _ := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	// The store normalises titles; the session must show its version.
	tasks.rewrite = func(task model.Task) model.Task {
		task.Title = strings.ToUpper(task.Title)
		return task
	}
	title := "report v2"
	updated, ok := d.UpdateTask(context.Background(), 2, model.TaskPatch{Title: &title})
	require.True(t, ok)

	local, found := d.Task(2)
	require.True(t, found)
	assert.Equal(t, updated, local)
	assert.Equal(t, "REPORT V2", local.Title)
}

func TestDashboardToggle(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	task, ok := d.ToggleTask(context.Background(), 1)
	require.True(t, ok)
	assert.True(t, task.Completed)
	assert.Equal(t, notice{LevelSuccess, "Task completed! 🎉"}, rec.last())
	assert.Equal(t, 0, d.Categories()[1].TaskCount)

	task, ok = d.ToggleTask(context.Background(), 1)
	require.True(t, ok)
	assert.False(t, task.Completed)
	assert.Equal(t, notice{LevelSuccess, "Task reopened"}, rec.last())
}

func TestDashboardFailedDeleteLeavesState(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))
	before := d.Tasks()

	assert.False(t, d.DeleteTask(context.Background(), 404))
	assert.Equal(t, before, d.Tasks())
	require.Len(t, rec.errors(), 1)
	assert.Contains(t, rec.errors()[0], "Failed to delete task")

	assert.True(t, d.DeleteTask(context.Background(), 1))
	assert.Equal(t, []int64{2, 3}, ids(d.Tasks()))
}

func TestDashboardStoreFailureLeavesState(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))
	before := d.Tasks()

	tasks.failAll = true
	title := "x"
	_, ok := d.UpdateTask(context.Background(), 1, model.TaskPatch{Title: &title})
	assert.False(t, ok)
	_, ok = d.CreateTask(context.Background(), model.TaskDraft{Title: "x", CategoryID: 1})
	assert.False(t, ok)

	assert.Equal(t, before, d.Tasks())
	assert.Equal(t, []string{"Failed to update task", "Failed to create task"}, rec.errors())
}

func TestDashboardClosedDropsResponses(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	d.Close()
	_, ok := d.CreateTask(context.Background(), model.TaskDraft{Title: "late", CategoryID: 1})
	assert.False(t, ok)
	assert.Len(t, d.Tasks(), 3)
	assert.Len(t, tasks.tasks, 4)
	assert.Empty(t, rec.errors())
}

func TestDashboardClearCompleted(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	tasks.tasks = append(tasks.tasks, model.Task{ID: 4, Title: "Old", CategoryID: 2, Completed: true})
	tasks.failDelete = map[int64]bool{4: true}
	require.NoError(t, d.Load(context.Background()))

	assert.Equal(t, 1, d.ClearCompleted(context.Background()))
	assert.Equal(t, []int64{1, 2, 4}, ids(d.Tasks()))
	assert.Equal(t, []string{"Failed to delete task #4 locked"}, rec.errors())
	assert.Equal(t, notice{LevelSuccess, "Cleared 1 completed tasks"}, rec.last())
}

func TestDashboardHeader(t *testing.T) {
	d, tasks, categories, _ := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	assert.Equal(t, Header{Title: "All Tasks", Subtitle: "2 pending, 1 completed", Empty: EmptyTasks}, d.Header())

	work := int64(1)
	d.SetActiveCategory(&work)
	assert.Equal(t, Header{Title: "Work", Subtitle: "1 pending, 1 completed", Empty: EmptyCategory}, d.Header())

	d.SetSearchQuery("slides")
	assert.Equal(t, Header{Title: "Work", Subtitle: `Found 1 tasks matching "slides"`, Empty: EmptySearch}, d.Header())

	gone := int64(42)
	d.SetActiveCategory(&gone)
	d.SetSearchQuery("")
	h := d.Header()
	assert.Equal(t, "Category", h.Title)
	assert.Equal(t, "Category tasks", h.Subtitle)
	assert.Empty(t, d.Visible())
}

func TestDashboardSearchInputDebounced(t *testing.T) {
	tasks := &fakeTasks{}
	categories := &fakeCategories{}
	seed(tasks, categories)

	applied := make(chan string, 4)
	d := NewDashboard(tasks, categories, DashboardOptions{
		Logger:         logging.Discard(),
		SearchDebounce: 20 * time.Millisecond,
		OnSearch:       func(q string) { applied <- q },
	})
	defer d.Close()
	require.NoError(t, d.Load(context.Background()))

	d.SearchInput("m")
	d.SearchInput("mi")
	d.SearchInput("milk")
	assert.Equal(t, "", d.SearchQuery())

	select {
	case q := <-applied:
		assert.Equal(t, "milk", q)
	case <-time.After(time.Second):
		t.Fatal("search was never applied")
	}
	assert.Equal(t, []int64{1}, ids(d.Visible()))

	select {
	case q := <-applied:
		t.Fatalf("unexpected extra search %q", q)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDashboardCategories(t *testing.T) {
	d, tasks, categories, rec := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	health, ok := d.AddCategory(context.Background(), model.CategoryDraft{Name: "Health", Color: "#10B981"})
	require.True(t, ok)
	assert.Len(t, d.Categories(), 3)

	_, ok = d.AddCategory(context.Background(), model.CategoryDraft{})
	assert.False(t, ok)
	assert.Equal(t, []string{"Name: is required"}, rec.errors())

	name := "Fitness"
	renamed, ok := d.UpdateCategory(context.Background(), health.ID, model.CategoryPatch{Name: &name})
	require.True(t, ok)
	assert.Equal(t, "Fitness", renamed.Name)

	work := int64(1)
	d.SetActiveCategory(&work)
	require.True(t, d.RemoveCategory(context.Background(), 1))
	assert.Nil(t, d.ActiveCategory())
	assert.Len(t, d.Categories(), 2)

	groups := d.Groups()
	require.NotEmpty(t, groups)
	assert.Equal(t, UncategorizedName, groups[len(groups)-1].Name())
}

func TestDashboardPersistTaskCounts(t *testing.T) {
	d, tasks, categories, _ := setupDashboard(t)
	seed(tasks, categories)
	require.NoError(t, d.Load(context.Background()))

	// Category 2 disappears from the store behind the session's back.
	categories.categories = categories.categories[:1]

	require.NoError(t, d.PersistTaskCounts(context.Background()))
	assert.Equal(t, map[int64]int{1: 1}, categories.counts)
	assert.Len(t, d.Categories(), 1)
}

func TestDashboardSummary(t *testing.T) {
	d, tasks, categories, _ := setupDashboard(t)
	seed(tasks, categories)
	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	tasks.tasks[0].DueDate = &due
	require.NoError(t, d.Load(context.Background()))

	out := d.Summary(time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "2 pending, 1 overdue")
	assert.Contains(t, out, "📁 Work")
	assert.Contains(t, out, "⚠️ Buy milk [low]")
	assert.Contains(t, out, "2026-10-01 · overdue")
	assert.NotContains(t, out, "Slides")
}

func TestReminderServiceDailySummary(t *testing.T) {
	tasks := &fakeTasks{}
	categories := &fakeCategories{}
	s := NewReminderService(tasks, categories)

	out, err := s.DailySummary(context.Background(), time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, out, "no open tasks")

	tasks.failAll = true
	_, err = s.DailySummary(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestDashboardReturnsDetachedTasks(t *testing.T) {
	d, tasks, categories, _ := setupDashboard(t)
	seed(tasks, categories)
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	tasks.tasks[0].DueDate = &due
	require.NoError(t, d.Load(context.Background()))

	shift := func(task model.Task) {
		if task.DueDate != nil {
			*task.DueDate = task.DueDate.AddDate(1, 0, 0)
		}
	}
	got, ok := d.Task(1)
	require.True(t, ok)
	shift(got)
	for _, task := range d.Tasks() {
		shift(task)
	}
	for _, task := range d.Visible() {
		shift(task)
	}
	for _, group := range d.Groups() {
		for _, task := range group.Tasks {
			shift(task)
		}
	}

	got, ok = d.Task(1)
	require.True(t, ok)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-10-20", model.FormatDate(*got.DueDate))
}
