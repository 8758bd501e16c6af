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

	// ErrWorkflowAlreadyExists indicates a workflow with the same name already exists.
	ErrWorkflowAlreadyExists = errors.New("workflow already exists")

	// ErrCredentialNotFound indicates no credential matches the given user and kind.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialAlreadyExists indicates the user already holds a credential with that name.
	ErrCredentialAlreadyExists = errors.New("credential already exists")

	// ErrExecutionNotFound indicates an execution record was not found.
	ErrExecutionNotFound = errors.New("execution record not found")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Create", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// CredentialError wraps credential-related errors with additional context.
type CredentialError struct {
	Op     string
	UserID string
	Kind   string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s operation failed for %s credential of user %s: %v", e.Op, e.Kind, e.UserID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for credential of user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

func (e *CredentialError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCredentialError creates a new credential error with context.
func NewCredentialError(op, userID, kind string, err error) *CredentialError {
	return &CredentialError{
		Op:     op,
		UserID: userID,
		Kind:   kind,
		Err:    err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowAlreadyExists checks if an error indicates a workflow name conflict.
func IsWorkflowAlreadyExists(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyExists)
}

// IsCredentialAlreadyExists checks if an error indicates a credential conflict.
func IsCredentialAlreadyExists(err error) bool {
	return errors.Is(err, ErrCredentialAlreadyExists)
}

// IsCredentialNotFound checks if an error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution record was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
