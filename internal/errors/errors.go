// Package errors defines the error taxonomy shared by the repositories and the
// dashboard: missing records, rejected input, failed store calls and batch calls
// that only partly succeeded.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels that the typed errors below unwrap to.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrStoreFailure = errors.New("store failure")
)

// NotFoundError reports that a record with the given id does not exist.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a NotFoundError.
func NewNotFound(kind string, id int64) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError represents input the caller can fix, e.g. a task without a category.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a ValidationError for field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StoreFailure wraps a failed record store call: either a transport error
// (Cause set) or a response with success=false (Message set).
type StoreFailure struct {
	Op      string
	Kind    string
	Message string
	Cause   error
}

func (e *StoreFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, msg)
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *StoreFailure) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrStoreFailure}
	}
	return []error{ErrStoreFailure, e.Cause}
}

// NewStoreFailure creates a StoreFailure from a response message.
func NewStoreFailure(op, kind, message string) *StoreFailure {
	return &StoreFailure{Op: op, Kind: kind, Message: message}
}

// WrapStoreFailure creates a StoreFailure from a transport error.
func WrapStoreFailure(op, kind string, cause error) *StoreFailure {
	return &StoreFailure{Op: op, Kind: kind, Cause: cause}
}

// RecordFailure describes one rejected record of a batch call.
type RecordFailure struct {
	ID      int64
	Message string
	Fields  []FieldFailure
}

// FieldFailure is a per-field rejection reported by the store.
type FieldFailure struct {
	Label   string
	Message string
}

func (f RecordFailure) String() string {
	parts := make([]string, 0, len(f.Fields)+1)
	for _, field := range f.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field.Label, field.Message))
	}
	if f.Message != "" {
		parts = append(parts, f.Message)
	}
	if len(parts) == 0 {
		parts = append(parts, "rejected")
	}
	if f.ID != 0 {
		return fmt.Sprintf("#%d %s", f.ID, strings.Join(parts, "; "))
	}
	return strings.Join(parts, "; ")
}

// PartialBatchFailure is returned alongside the successful subset of a batch call.
type PartialBatchFailure struct {
	Op        string
	Kind      string
	Succeeded int
	Failures  []RecordFailure
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%s %s: %d of %d records failed", e.Op, e.Kind, len(e.Failures), len(e.Failures)+e.Succeeded)
}

func (e *PartialBatchFailure) Unwrap() error { return ErrStoreFailure }

// IsNotFound reports whether err marks a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// AsPartialBatchFailure extracts a PartialBatchFailure from an error chain.
func AsPartialBatchFailure(err error) (*PartialBatchFailure, bool) {
	var pb *PartialBatchFailure
	ok := errors.As(err, &pb)
	return pb, ok
}

// AsValidation extracts a ValidationError from an error chain.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
