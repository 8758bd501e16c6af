// Package events defines the run lifecycle notifications published on
// the event bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/pkg/models"
)

type EventType string

// Topic is the bus topic every run lifecycle event is published on.
const Topic = "hookline.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"
	RunFailedEvent   EventType = "run.failed"

	NodeSucceededEvent EventType = "node.succeeded"
	NodeFailedEvent    EventType = "node.failed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// RunStarted is published after the run's graph and credentials have
// been validated, right before the first node dispatch.
type RunStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	UserID      string `json:"user_id"`
	NodeCount   int    `json:"node_count"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunFinished is published once all node outcomes are in and the record
// is finalized, whatever the aggregate status.
type RunFinished struct {
	BaseEvent

	ExecutionID string           `json:"execution_id"`
	Status      models.RunStatus `json:"status"`
	DurationMs  int64            `json:"duration_ms"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
}

func (e RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// RunFailed is published when a run aborts before any node dispatch,
// over an invalid graph or an unresolvable credential.
type RunFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type NodeSucceeded struct {
	BaseEvent

	ExecutionID string          `json:"execution_id"`
	NodeID      string          `json:"node_id"`
	Kind        models.NodeKind `json:"kind"`
	Attempts    int             `json:"attempts"`
	DurationMs  int64           `json:"duration_ms"`
}

func (e NodeSucceeded) GetType() EventType {
	return NodeSucceededEvent
}

type NodeFailed struct {
	BaseEvent

	ExecutionID string          `json:"execution_id"`
	NodeID      string          `json:"node_id"`
	Kind        models.NodeKind `json:"kind"`
	Attempts    int             `json:"attempts"`
	Error       string          `json:"error"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}
