// Package services implements the application operations behind the
// HTTP surface: workflow and credential CRUD plus run orchestration.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrMultipleTriggerNodes = errors.New("workflow may hold at most one trigger node")
	ErrEdgeEndpointMissing  = errors.New("edge references a node not present in the workflow")
	ErrUnknownNodeKind      = errors.New("unknown node kind")
	ErrCredentialInvalid    = errors.New("credential fields are invalid for its kind")

	// Business logic conflicts (409 Conflict).
	ErrWorkflowNameTaken   = errors.New("a workflow with this name already exists")
	ErrCredentialKindTaken = errors.New("a credential of this kind already exists for the user")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrMultipleTriggerNodes) ||
		errors.Is(err, ErrEdgeEndpointMissing) ||
		errors.Is(err, ErrUnknownNodeKind) ||
		errors.Is(err, ErrCredentialInvalid)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowNameTaken) ||
		errors.Is(err, ErrCredentialKindTaken)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
