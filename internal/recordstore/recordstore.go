// Package recordstore describes the generic record storage the repositories talk
// to: fetch/get/create/update/delete over named record kinds keyed by an
// integer Id. Two implementations live in the sub-packages: sqlstore (local
// sqlite via gorm) and remote (HTTP client for a server exposing a store).
package recordstore

import (
	"context"
	"math"
)

// Kind names a record collection.
type Kind string

const (
	KindTask     Kind = "task"
	KindCategory Kind = "category"
)

// IDField is the primary key of every record kind.
const IDField = "Id"

// Record is one row as seen on the wire: field name to value.
type Record map[string]any

// ID returns the record's Id when present.
func (r Record) ID() (int64, bool) {
	switch v := r[IDField].(type) {
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	case float64:
		if v <= 0 || v >= math.MaxInt64 || v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// Operator compares a field against condition values.
type Operator string

const (
	EqualTo     Operator = "EqualTo"
	NotEqualTo  Operator = "NotEqualTo"
	Contains    Operator = "Contains"
	GreaterThan Operator = "GreaterThan"
	LessThan    Operator = "LessThan"
)

// Logic joins conditions inside a where-group.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// SortType is the direction of an OrderBy entry.
type SortType string

const (
	Asc  SortType = "ASC"
	Desc SortType = "DESC"
)

// Condition matches a field against one or more values. Multiple values
// match if any of them does.
type Condition struct {
	FieldName string   `json:"FieldName"`
	Operator  Operator `json:"Operator"`
	Values    []any    `json:"Values"`
}

// SubGroup joins its conditions with Operator.
type SubGroup struct {
	Operator   Logic       `json:"operator"`
	Conditions []Condition `json:"conditions"`
}

// ConditionGroup joins its sub-groups with Operator. Groups are ANDed with
// each other and with the plain Where conditions.
type ConditionGroup struct {
	Operator  Logic      `json:"operator"`
	SubGroups []SubGroup `json:"subGroups"`
}

// OrderBy sorts fetched records.
type OrderBy struct {
	FieldName string   `json:"fieldName"`
	SortType  SortType `json:"sorttype"`
}

// Paging limits fetched records.
type Paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchParams selects records of one kind. Empty Fields returns every field.
type FetchParams struct {
	Fields      []string         `json:"fields,omitempty"`
	Where       []Condition      `json:"where,omitempty"`
	WhereGroups []ConditionGroup `json:"whereGroups,omitempty"`
	OrderBy     []OrderBy        `json:"orderBy,omitempty"`
	Paging      *Paging          `json:"pagingInfo,omitempty"`
}

// GetParams selects the fields of a single record.
type GetParams struct {
	Fields []string `json:"fields,omitempty"`
}

// CreateParams carries the records to insert.
type CreateParams struct {
	Records []Record `json:"records"`
}

// UpdateParams carries partial records; each must contain Id.
type UpdateParams struct {
	Records []Record `json:"records"`
}

// DeleteParams lists the ids to delete.
type DeleteParams struct {
	RecordIDs []int64 `json:"RecordIds"`
}

// FetchResponse is the result of FetchRecords.
type FetchResponse struct {
	Success bool     `json:"success"`
	Data    []Record `json:"data"`
	Total   int      `json:"total"`
	Message string   `json:"message,omitempty"`
}

// GetResponse is the result of GetRecordByID.
type GetResponse struct {
	Success bool   `json:"success"`
	Data    Record `json:"data"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// FieldError is a per-field rejection of one record.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// Result codes for per-record failures.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION"
)

// Result is the outcome of one record in a mutation batch.
type Result struct {
	Success bool         `json:"success"`
	Data    Record       `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Message string       `json:"message,omitempty"`
	Code    string       `json:"code,omitempty"`
}

// MutationResponse is the result of Create/Update/DeleteRecord. Success is
// about the request as a whole; each record has its own Result.
type MutationResponse struct {
	Success bool     `json:"success"`
	Results []Result `json:"results"`
	Message string   `json:"message,omitempty"`
}

// Client is the record store. A non-nil error is a transport failure;
// Success=false in a response is a failure reported by the store.
type Client interface {
	FetchRecords(ctx context.Context, kind Kind, params FetchParams) (*FetchResponse, error)
	GetRecordByID(ctx context.Context, kind Kind, id int64, params GetParams) (*GetResponse, error)
	CreateRecord(ctx context.Context, kind Kind, params CreateParams) (*MutationResponse, error)
	UpdateRecord(ctx context.Context, kind Kind, params UpdateParams) (*MutationResponse, error)
	DeleteRecord(ctx context.Context, kind Kind, params DeleteParams) (*MutationResponse, error)
}

// Select returns r restricted to fields (plus Id). Empty fields returns r.
func Select(r Record, fields []string) Record {
	if len(fields) == 0 || r == nil {
		return r
	}
	out := Record{IDField: r[IDField]}
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}
