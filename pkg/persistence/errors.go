// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates a workflow execution was not found.
	ErrExecutionNotFound = errors.New("workflow execution not found")

	// ErrReminderNotFound indicates a scheduled reminder was not found.
	ErrReminderNotFound = errors.New("scheduled reminder not found")

	// ErrEntityNotFound indicates a session/lead/project was not found.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrGalleryNotFound indicates a gallery was not found.
	ErrGalleryNotFound = errors.New("gallery not found")

	// ErrDownloadJobNotFound indicates a download job was not found.
	ErrDownloadJobNotFound = errors.New("download job not found")

	// ErrSettingsNotFound indicates no settings row exists for the organization.
	ErrSettingsNotFound = errors.New("organization settings not found")
)

// RepositoryError wraps persistence errors with operation context.
type RepositoryError struct {
	Op  string // Operation being performed (e.g., "ExecutionByID", "SaveWorkflow")
	ID  string // Row identifier if applicable
	Err error  // Underlying error
}

func (e *RepositoryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func (e *RepositoryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRepositoryError creates a repository error with context.
func NewRepositoryError(op, id string, err error) *RepositoryError {
	return &RepositoryError{Op: op, ID: id, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsEntityNotFound checks if an error indicates an entity was not found.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsGalleryNotFound checks if an error indicates a gallery was not found.
func IsGalleryNotFound(err error) bool {
	return errors.Is(err, ErrGalleryNotFound)
}

// IsDownloadJobNotFound checks if an error indicates a download job was not found.
func IsDownloadJobNotFound(err error) bool {
	return errors.Is(err, ErrDownloadJobNotFound)
}

// IsReminderNotFound checks if an error indicates a reminder was not found.
func IsReminderNotFound(err error) bool {
	return errors.Is(err, ErrReminderNotFound)
}

// IsSettingsNotFound checks if an error indicates no settings row exists.
func IsSettingsNotFound(err error) bool {
	return errors.Is(err, ErrSettingsNotFound)
}
