package engine

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a run lock is held for the workflow.
var ErrRunInProgress = errors.New("a run is already in progress for this workflow")

// ForbiddenError reports that the caller does not own the workflow it
// tried to run. Raised before any side effect.
type ForbiddenError struct {
	UserID     string
	WorkflowID string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %s is not allowed to run workflow %s", e.UserID, e.WorkflowID)
}

// IsForbidden checks whether an error is an ownership rejection.
func IsForbidden(err error) bool {
	var forbiddenErr *ForbiddenError

	return errors.As(err, &forbiddenErr)
}

// IsRunInProgress checks whether an error is a run lock rejection.
func IsRunInProgress(err error) bool {
	return errors.Is(err, ErrRunInProgress)
}
