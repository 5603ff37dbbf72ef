package repository

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errs "taskflow/internal/errors"
	"taskflow/internal/model"
	"taskflow/internal/recordstore"
)

const kindTask = recordstore.KindTask

// TaskRepository maps task records of the store to model.Task.
type TaskRepository struct {
	store recordstore.Client
	log   *slog.Logger
	now   func() time.Time
}

func NewTaskRepository(store recordstore.Client, log *slog.Logger) *TaskRepository {
	if log == nil {
		log = slog.Default()
	}
	return &TaskRepository{store: store, log: log.With("repository", "task"), now: time.Now}
}

// WithClock replaces the clock used for created_at/updated_at.
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	r.now = now
	return r
}

// List returns every task, newest first. On failure the slice is empty, not nil.
func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	return r.fetch(ctx, "list", recordstore.FetchParams{})
}

func (r *TaskRepository) ListByCategory(ctx context.Context, categoryID int64) ([]model.Task, error) {
	return r.fetch(ctx, "list by category", recordstore.FetchParams{
		Where: []recordstore.Condition{eq(fieldCategoryID, categoryID)},
	})
}

// Search matches query against title and description, case-insensitively.
// A blank query lists everything.
func (r *TaskRepository) Search(ctx context.Context, query string) ([]model.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx)
	}
	return r.fetch(ctx, "search", recordstore.FetchParams{
		WhereGroups: []recordstore.ConditionGroup{{
			Operator: recordstore.And,
			SubGroups: []recordstore.SubGroup{{
				Operator: recordstore.Or,
				Conditions: []recordstore.Condition{
					{FieldName: fieldTitle, Operator: recordstore.Contains, Values: []any{query}},
					{FieldName: fieldDescription, Operator: recordstore.Contains, Values: []any{query}},
				},
			}},
		}},
	})
}

func (r *TaskRepository) ListByPriority(ctx context.Context, priority model.Priority) ([]model.Task, error) {
	return r.fetch(ctx, "list by priority", recordstore.FetchParams{
		Where: []recordstore.Condition{eq(fieldPriority, string(priority))},
	})
}

func (r *TaskRepository) ListCompleted(ctx context.Context) ([]model.Task, error) {
	return r.fetch(ctx, "list completed", recordstore.FetchParams{
		Where: []recordstore.Condition{eq(fieldCompleted, true)},
	})
}

func (r *TaskRepository) ListPending(ctx context.Context) ([]model.Task, error) {
	return r.fetch(ctx, "list pending", recordstore.FetchParams{
		Where: []recordstore.Condition{eq(fieldCompleted, false)},
	})
}

// ListOverdue returns incomplete tasks whose due date is before now's date.
func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]model.Task, error) {
	return r.fetch(ctx, "list overdue", recordstore.FetchParams{
		Where: []recordstore.Condition{
			eq(fieldCompleted, false),
			{FieldName: fieldDueDate, Operator: recordstore.LessThan, Values: []any{model.FormatDate(now)}},
		},
		OrderBy: []recordstore.OrderBy{{FieldName: fieldDueDate, SortType: recordstore.Asc}},
	})
}

func (r *TaskRepository) fetch(ctx context.Context, op string, params recordstore.FetchParams) ([]model.Task, error) {
	params.Fields = taskFields
	if len(params.OrderBy) == 0 {
		params.OrderBy = []recordstore.OrderBy{{FieldName: fieldCreatedAt, SortType: recordstore.Desc}}
	}

	tasks := []model.Task{}
	resp, err := r.store.FetchRecords(ctx, kindTask, params)
	if err != nil {
		err = errs.WrapStoreFailure(op, string(kindTask), err)
		r.log.Error("fetch tasks", "op", op, "error", err)
		return tasks, err
	}
	if !resp.Success {
		err = errs.NewStoreFailure(op, string(kindTask), resp.Message)
		r.log.Error("fetch tasks", "op", op, "error", err)
		return tasks, err
	}

	for _, rec := range resp.Data {
		task, err := taskFromRecord(rec)
		if err != nil {
			r.log.Warn("skip malformed task record", "error", err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// GetByID returns a NotFoundError when the task does not exist.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (model.Task, error) {
	resp, err := r.store.GetRecordByID(ctx, kindTask, id, recordstore.GetParams{Fields: taskFields})
	if err != nil {
		err = errs.WrapStoreFailure("get", string(kindTask), err)
		r.log.Error("get task", "id", id, "error", err)
		return model.Task{}, err
	}
	if !resp.Success {
		if resp.Code == recordstore.CodeNotFound {
			return model.Task{}, errs.NewNotFound(string(kindTask), id)
		}
		err = errs.NewStoreFailure("get", string(kindTask), resp.Message)
		r.log.Error("get task", "id", id, "error", err)
		return model.Task{}, err
	}
	task, err := taskFromRecord(resp.Data)
	if err != nil {
		return model.Task{}, errs.WrapStoreFailure("get", string(kindTask), err)
	}
	return task, nil
}

// Create stores a new incomplete task stamped with the repository clock.
func (r *TaskRepository) Create(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	if blank(draft.Title) {
		return model.Task{}, errs.NewValidation(fieldTitle, "is required")
	}
	if draft.CategoryID <= 0 {
		return model.Task{}, errs.NewValidation(fieldCategoryID, "select a category")
	}
	priority, ok := model.ParsePriority(string(draft.Priority))
	if !ok {
		return model.Task{}, errs.NewValidation(fieldPriority, "must be one of low, medium, high, urgent")
	}

	stamp := formatTimestamp(r.now())
	rec := recordstore.Record{
		fieldTitle:       strings.TrimSpace(draft.Title),
		fieldDescription: draft.Description,
		fieldCategoryID:  draft.CategoryID,
		fieldPriority:    string(priority),
		fieldDueDate:     dueValue(draft.DueDate),
		fieldCompleted:   false,
		fieldCreatedAt:   stamp,
		fieldUpdatedAt:   stamp,
	}

	resp, err := r.store.CreateRecord(ctx, kindTask, recordstore.CreateParams{Records: []recordstore.Record{rec}})
	data, err := singleResult("create", kindTask, 0, resp, err)
	if err != nil {
		r.log.Error("create task", "error", err)
		return model.Task{}, err
	}
	task, err := taskFromRecord(data)
	if err != nil {
		return model.Task{}, errs.WrapStoreFailure("create", string(kindTask), err)
	}
	r.log.Info("task created", "id", task.ID)
	return task, nil
}

// Update merges patch onto the stored task and restamps updated_at.
func (r *TaskRepository) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	rec := recordstore.Record{recordstore.IDField: id}
	if patch.Title != nil {
		if blank(*patch.Title) {
			return model.Task{}, errs.NewValidation(fieldTitle, "is required")
		}
		rec[fieldTitle] = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		rec[fieldDescription] = *patch.Description
	}
	if patch.CategoryID != nil {
		if *patch.CategoryID <= 0 {
			return model.Task{}, errs.NewValidation(fieldCategoryID, "select a category")
		}
		rec[fieldCategoryID] = *patch.CategoryID
	}
	if patch.Priority != nil {
		p, ok := model.ParsePriority(string(*patch.Priority))
		if !ok {
			return model.Task{}, errs.NewValidation(fieldPriority, "must be one of low, medium, high, urgent")
		}
		rec[fieldPriority] = string(p)
	}
	if patch.ClearDueDate {
		rec[fieldDueDate] = nil
	} else if patch.DueDate != nil {
		rec[fieldDueDate] = dueValue(patch.DueDate)
	}
	if patch.Completed != nil {
		rec[fieldCompleted] = *patch.Completed
	}
	rec[fieldUpdatedAt] = formatTimestamp(r.now())

	resp, err := r.store.UpdateRecord(ctx, kindTask, recordstore.UpdateParams{Records: []recordstore.Record{rec}})
	data, err := singleResult("update", kindTask, id, resp, err)
	if err != nil {
		if !errs.IsNotFound(err) {
			r.log.Error("update task", "id", id, "error", err)
		}
		return model.Task{}, err
	}
	task, err := taskFromRecord(data)
	if err != nil {
		return model.Task{}, errs.WrapStoreFailure("update", string(kindTask), err)
	}
	return task, nil
}

// ToggleComplete reads the current state from the store before flipping it.
func (r *TaskRepository) ToggleComplete(ctx context.Context, id int64) (model.Task, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	completed := !current.Completed
	return r.Update(ctx, id, model.TaskPatch{Completed: &completed})
}

// Delete reports true once the task is gone, NotFoundError when it never existed.
func (r *TaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	resp, err := r.store.DeleteRecord(ctx, kindTask, recordstore.DeleteParams{RecordIDs: []int64{id}})
	if _, err := singleResult("delete", kindTask, id, resp, err); err != nil {
		if !errs.IsNotFound(err) {
			r.log.Error("delete task", "id", id, "error", err)
		}
		return false, err
	}
	r.log.Info("task deleted", "id", id)
	return true, nil
}

// DeleteMany deletes ids in one store call. It returns the ids that were
// deleted and, when any failed, a PartialBatchFailure listing each failure.
func (r *TaskRepository) DeleteMany(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	resp, err := r.store.DeleteRecord(ctx, kindTask, recordstore.DeleteParams{RecordIDs: ids})
	if err != nil {
		err = errs.WrapStoreFailure("delete", string(kindTask), err)
		r.log.Error("delete tasks", "count", len(ids), "error", err)
		return nil, err
	}
	if !resp.Success {
		err = errs.NewStoreFailure("delete", string(kindTask), resp.Message)
		r.log.Error("delete tasks", "count", len(ids), "error", err)
		return nil, err
	}

	deleted := make([]int64, 0, len(ids))
	var failures []errs.RecordFailure
	for i, id := range ids {
		if i >= len(resp.Results) {
			failures = append(failures, errs.RecordFailure{ID: id, Message: "no result returned"})
			continue
		}
		if result := resp.Results[i]; !result.Success {
			failures = append(failures, recordFailure(id, result))
			continue
		}
		deleted = append(deleted, id)
	}

	if len(failures) > 0 {
		err := &errs.PartialBatchFailure{Op: "delete", Kind: string(kindTask), Succeeded: len(deleted), Failures: failures}
		r.log.Warn("delete tasks partly failed", "error", err)
		return deleted, err
	}
	return deleted, nil
}

func eq(field string, value any) recordstore.Condition {
	return recordstore.Condition{FieldName: field, Operator: recordstore.EqualTo, Values: []any{value}}
}
