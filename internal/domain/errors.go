// Package domain defines core types, capability interfaces, and errors for
// the regression-test service.
package domain

import (
	"errors"
	"fmt"
)

// ErrNoRows indicates a count query executed successfully but produced no row.
// Callers treat this as "count unknown, assume zero" rather than a failed query.
var ErrNoRows = errors.New("query returned no rows")

// NotFoundError indicates the object under test (procedure, table, or pipe)
// does not exist in the warehouse.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// GenerationError indicates the generation oracle call failed or its output
// did not validate against the requested schema. Stage-local: the pipeline
// records it and continues with whatever state it has.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string { return e.Message }

// ExecutionError indicates a warehouse statement or query failed during the
// execute/verify stage. Isolated per fixture; never aborts a batch.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string { return e.Message }

// ReportError indicates the report artifact could not be materialized.
// Always escalated to the caller: a run with no artifact is useless.
type ReportError struct {
	Message string
}

func (e *ReportError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrGeneration creates a GenerationError with a formatted message.
func ErrGeneration(format string, args ...interface{}) *GenerationError {
	return &GenerationError{Message: fmt.Sprintf(format, args...)}
}

// ErrExecution creates an ExecutionError with a formatted message.
func ErrExecution(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Message: fmt.Sprintf(format, args...)}
}

// ErrReport creates a ReportError with a formatted message.
func ErrReport(format string, args ...interface{}) *ReportError {
	return &ReportError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
