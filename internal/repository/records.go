package repository

import (
	"fmt"
	"strings"
	"time"

	errs "taskflow/internal/errors"
	"taskflow/internal/model"
	"taskflow/internal/recordstore"
)

// Wire field names.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldCategoryID  = "category_id"
	fieldPriority    = "priority"
	fieldDueDate     = "due_date"
	fieldCompleted   = "completed"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"

	fieldName      = "Name"
	fieldColor     = "color"
	fieldIcon      = "icon"
	fieldTaskCount = "task_count"
)

var (
	taskFields     = []string{fieldTitle, fieldDescription, fieldCategoryID, fieldPriority, fieldDueDate, fieldCompleted, fieldCreatedAt, fieldUpdatedAt}
	categoryFields = []string{fieldName, fieldColor, fieldIcon, fieldTaskCount}
)

func taskFromRecord(rec recordstore.Record) (model.Task, error) {
	id, ok := model.CoerceID(rec[recordstore.IDField])
	if !ok {
		return model.Task{}, fmt.Errorf("task record without id: %v", rec[recordstore.IDField])
	}
	task := model.Task{
		ID:          id,
		Title:       text(rec[fieldTitle]),
		Description: text(rec[fieldDescription]),
		Completed:   rec[fieldCompleted] == true,
		CreatedAt:   timestamp(rec[fieldCreatedAt]),
		UpdatedAt:   timestamp(rec[fieldUpdatedAt]),
	}
	// A dangling id is kept as is and groups as uncategorised; only a malformed
	// reference becomes 0.
	task.CategoryID, _ = model.CoerceID(rec[fieldCategoryID])

	if p, ok := model.ParsePriority(text(rec[fieldPriority])); ok {
		task.Priority = p
	} else {
		task.Priority = model.PriorityMedium
	}
	if raw := text(rec[fieldDueDate]); raw != "" {
		if due, err := model.ParseDate(raw); err == nil {
			task.DueDate = &due
		}
	}
	return task, nil
}

func categoryFromRecord(rec recordstore.Record) (model.Category, error) {
	id, ok := model.CoerceID(rec[recordstore.IDField])
	if !ok {
		return model.Category{}, fmt.Errorf("category record without id: %v", rec[recordstore.IDField])
	}
	return model.Category{
		ID:        id,
		Name:      text(rec[fieldName]),
		Color:     text(rec[fieldColor]),
		Icon:      text(rec[fieldIcon]),
		TaskCount: count(rec[fieldTaskCount]),
	}, nil
}

func text(v any) string {
	s, _ := v.(string)
	return s
}

func count(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func timestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func dueValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.FormatDate(*t)
}

// singleResult unpacks a one-record mutation into its data or a typed error.
func singleResult(op string, kind recordstore.Kind, id int64, resp *recordstore.MutationResponse, err error) (recordstore.Record, error) {
	if err != nil {
		return nil, errs.WrapStoreFailure(op, string(kind), err)
	}
	if !resp.Success {
		return nil, errs.NewStoreFailure(op, string(kind), resp.Message)
	}
	if len(resp.Results) == 0 {
		return nil, errs.NewStoreFailure(op, string(kind), "store returned no result")
	}
	result := resp.Results[0]
	if !result.Success {
		return nil, resultError(op, kind, id, result)
	}
	return result.Data, nil
}

func resultError(op string, kind recordstore.Kind, id int64, result recordstore.Result) error {
	switch {
	case result.Code == recordstore.CodeNotFound:
		return errs.NewNotFound(string(kind), id)
	case result.Code == recordstore.CodeValidation || len(result.Errors) > 0:
		if len(result.Errors) > 0 {
			return errs.NewValidation(result.Errors[0].FieldLabel, result.Errors[0].Message)
		}
		return errs.NewValidation("", result.Message)
	default:
		return errs.NewStoreFailure(op, string(kind), result.Message)
	}
}

func recordFailure(id int64, result recordstore.Result) errs.RecordFailure {
	failure := errs.RecordFailure{ID: id, Message: result.Message}
	for _, fe := range result.Errors {
		failure.Fields = append(failure.Fields, errs.FieldFailure{Label: fe.FieldLabel, Message: fe.Message})
	}
	return failure
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
