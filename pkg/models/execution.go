package models

import "time"

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusPending         RunStatus = "pending"
	RunStatusResolving       RunStatus = "credentials_resolving"
	RunStatusRunning         RunStatus = "running"
	RunStatusSucceeded       RunStatus = "succeeded"
	RunStatusPartiallyFailed RunStatus = "partially_failed"
	RunStatusFailed          RunStatus = "failed"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusPartiallyFailed || s == RunStatusFailed
}

// OutcomeStatus is the final state of a single node dispatch.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
)

// NodeOutcome records the result of one action node's dispatch within a
// run, including how many attempts were made.
type NodeOutcome struct {
	NodeID     string        `json:"node_id"`
	Kind       NodeKind      `json:"kind"`
	Status     OutcomeStatus `json:"status"`
	Detail     string        `json:"detail,omitempty"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// ExecutionRecord is the persisted artifact of one workflow run. It is
// created at run start, appended to as nodes complete, and immutable once
// the run finishes (late outcomes from cancelled runs are the single
// best-effort exception).
type ExecutionRecord struct {
	ID         string        `json:"id"`
	WorkflowID string        `json:"workflow_id"`
	UserID     string        `json:"user_id"`
	Status     RunStatus     `json:"status"`
	Outcomes   []NodeOutcome `json:"outcomes"`
	Error      string        `json:"error,omitempty"` // Structural failure detail, empty for per-node failures
	Warnings   []string      `json:"warnings,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Aggregate derives the run's terminal status from its node outcomes:
// Succeeded when all succeeded, Failed when all failed or none were
// attempted, PartiallyFailed otherwise.
func (r *ExecutionRecord) Aggregate() RunStatus {
	if len(r.Outcomes) == 0 {
		return RunStatusFailed
	}

	succeeded := 0

	for _, outcome := range r.Outcomes {
		if outcome.Status == OutcomeSucceeded {
			succeeded++
		}
	}

	switch succeeded {
	case len(r.Outcomes):
		return RunStatusSucceeded
	case 0:
		return RunStatusFailed
	default:
		return RunStatusPartiallyFailed
	}
}
