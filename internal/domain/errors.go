package domain

import (
	"errors"
	"fmt"
)

// ErrClassificationSkipped marks an event that lacks the data to classify
// (all three phase voltages missing). Non-fatal: skipped events are excluded
// from aggregates but counted so totals stay auditable.
var ErrClassificationSkipped = errors.New("event cannot be classified")

// ValidationError rejects an out-of-range or missing field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DuplicateError rejects a uniqueness violation on a threshold or weight key
type DuplicateError struct {
	Entity string
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.Key)
}

// NotFoundError means a referenced standard/profile/meter does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// StorageError wraps a collaborator I/O failure. Always surfaced, never
// swallowed; retry policy belongs to the storage collaborator.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RowError reports one failed row of a batch operation ("row N: <reason>")
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ImportResult is the structured outcome of a batch operation. Batch
// operations never abort on a single-row failure.
type ImportResult struct {
	Success int        `json:"success"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors"`
}
