package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/recordstore"
)

type taskRow struct {
	ID          int64 `gorm:"primaryKey"`
	Title       string
	Description string
	CategoryID  int64     `gorm:"index"`
	Priority    string    `gorm:"default:medium"`
	DueDate     *string   `gorm:"index"`
	Completed   bool      `gorm:"default:false"`
	Created     time.Time `gorm:"column:created_at"`
	Updated     time.Time `gorm:"column:updated_at"`
	// Lowercased copies for Contains. SQLite's LOWER only folds ASCII.
	TitleFold       string
	DescriptionFold string
}

func (taskRow) TableName() string { return "tasks" }

type categoryRow struct {
	ID        int64 `gorm:"primaryKey"`
	Name      string
	Color     string
	Icon      string
	TaskCount int
	NameFold  string
}

func (categoryRow) TableName() string { return "categories" }

// kindSchema maps wire field names to columns. folded names the lowercased
// shadow column a text field is searched through.
type kindSchema struct {
	kind    recordstore.Kind
	model   any
	columns map[string]string
	folded  map[string]string
}

var schemas = map[recordstore.Kind]kindSchema{
	recordstore.KindTask: {
		kind:  recordstore.KindTask,
		model: &taskRow{},
		columns: map[string]string{
			recordstore.IDField: "id",
			"title":             "title",
			"description":       "description",
			"category_id":       "category_id",
			"priority":          "priority",
			"due_date":          "due_date",
			"completed":         "completed",
			"created_at":        "created_at",
			"updated_at":        "updated_at",
		},
		folded: map[string]string{
			"title":       "title_fold",
			"description": "description_fold",
		},
	},
	recordstore.KindCategory: {
		kind:  recordstore.KindCategory,
		model: &categoryRow{},
		columns: map[string]string{
			recordstore.IDField: "id",
			"Name":              "name",
			"color":             "color",
			"icon":              "icon",
			"task_count":        "task_count",
		},
		folded: map[string]string{
			"Name": "name_fold",
		},
	},
}

func (row *taskRow) toRecord(categoryNames map[int64]string) recordstore.Record {
	var category any = row.CategoryID
	if name, ok := categoryNames[row.CategoryID]; ok {
		category = map[string]any{recordstore.IDField: row.CategoryID, "Name": name}
	}
	var due any
	if row.DueDate != nil {
		due = *row.DueDate
	}
	return recordstore.Record{
		recordstore.IDField: row.ID,
		"title":             row.Title,
		"description":       row.Description,
		"category_id":       category,
		"priority":          row.Priority,
		"due_date":          due,
		"completed":         row.Completed,
		"created_at":        formatTime(row.Created),
		"updated_at":        formatTime(row.Updated),
	}
}

// apply merges rec into the row, collecting a FieldError per bad value.
func (row *taskRow) apply(rec recordstore.Record) []recordstore.FieldError {
	var errs []recordstore.FieldError
	for field, value := range rec {
		var err error
		switch field {
		case recordstore.IDField:
			continue
		case "title":
			row.Title, err = asString(value)
		case "description":
			row.Description, err = asString(value)
		case "category_id":
			if id, ok := model.CoerceID(value); ok {
				row.CategoryID = id
			} else if value == nil {
				row.CategoryID = 0
			} else {
				err = fmt.Errorf("must reference a category id")
			}
		case "priority":
			var raw string
			if raw, err = asString(value); err == nil {
				p, ok := model.ParsePriority(raw)
				if !ok {
					err = fmt.Errorf("must be one of low, medium, high, urgent")
				}
				row.Priority = string(p)
			}
		case "due_date":
			row.DueDate, err = asDate(value)
		case "completed":
			b, ok := value.(bool)
			if !ok {
				err = fmt.Errorf("must be a boolean")
			}
			row.Completed = b
		case "created_at":
			row.Created, err = asTime(value)
		case "updated_at":
			row.Updated, err = asTime(value)
		default:
			err = fmt.Errorf("unknown field")
		}
		if err != nil {
			errs = append(errs, recordstore.FieldError{FieldLabel: field, Message: err.Error()})
		}
	}
	row.refold()
	if strings.TrimSpace(row.Title) == "" {
		errs = append(errs, recordstore.FieldError{FieldLabel: "title", Message: "is required"})
	}
	if row.CategoryID == 0 {
		errs = append(errs, recordstore.FieldError{FieldLabel: "category_id", Message: "is required"})
	}
	return errs
}

func (row *categoryRow) toRecord() recordstore.Record {
	return recordstore.Record{
		recordstore.IDField: row.ID,
		"Name":              row.Name,
		"color":             row.Color,
		"icon":              row.Icon,
		"task_count":        row.TaskCount,
	}
}

func (row *categoryRow) apply(rec recordstore.Record) []recordstore.FieldError {
	var errs []recordstore.FieldError
	for field, value := range rec {
		var err error
		switch field {
		case recordstore.IDField:
			continue
		case "Name":
			row.Name, err = asString(value)
		case "color":
			row.Color, err = asString(value)
		case "icon":
			row.Icon, err = asString(value)
		case "task_count":
			row.TaskCount, err = asCount(value)
		default:
			err = fmt.Errorf("unknown field")
		}
		if err != nil {
			errs = append(errs, recordstore.FieldError{FieldLabel: field, Message: err.Error()})
		}
	}
	row.refold()
	if strings.TrimSpace(row.Name) == "" {
		errs = append(errs, recordstore.FieldError{FieldLabel: "Name", Message: "is required"})
	}
	return errs
}

func (row *taskRow) refold() {
	row.TitleFold = fold(row.Title)
	row.DescriptionFold = fold(row.Description)
}

func (row *categoryRow) refold() {
	row.NameFold = fold(row.Name)
}

// fold is the case folding Contains matches under, the same one the
// dashboard search applies in memory.
func fold(s string) string {
	return strings.ToLower(s)
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("must be text")
	}
}

func asDate(value any) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		parsed, err := model.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("must be a YYYY-MM-DD date")
		}
		formatted := model.FormatDate(parsed)
		return &formatted, nil
	case time.Time:
		formatted := model.FormatDate(v)
		return &formatted, nil
	default:
		return nil, fmt.Errorf("must be a YYYY-MM-DD date")
	}
}

func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("must be an RFC 3339 timestamp")
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("must be an RFC 3339 timestamp")
	}
}

func asCount(value any) (int, error) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return v, nil
		}
	case int64:
		if v >= 0 {
			return int(v), nil
		}
	case float64:
		if v >= 0 && v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("must be a non-negative integer")
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
