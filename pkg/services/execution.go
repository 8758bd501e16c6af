package services

import (
	"context"
	"fmt"

	"github.com/hookline/hookline/pkg/engine"
	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// Execution triggers workflow runs and exposes run history.
type Execution struct {
	persistence persistence.Persistence
	engine      *engine.Engine
}

// NewExecution creates a new execution service.
func NewExecution(persistence persistence.Persistence, engine *engine.Engine) *Execution {
	return &Execution{
		persistence: persistence,
		engine:      engine,
	}
}

// Execute runs a workflow on behalf of its owner.
func (e *Execution) Execute(ctx context.Context, workflowID, userID string) (*models.ExecutionRecord, error) {
	return e.engine.Run(ctx, workflowID, userID)
}

// ExecuteWebhook runs a workflow triggered by an inbound webhook. The
// workflow id in the URL path is the only credential, so the run
// executes as the workflow's owner.
func (e *Execution) ExecuteWebhook(ctx context.Context, workflowID string) (*models.ExecutionRecord, error) {
	workflow, err := e.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	trigger := workflow.TriggerNode()
	if trigger == nil || trigger.Kind != models.NodeKindWebhook {
		return nil, NewValidationError("ExecuteWebhook", "NOT_WEBHOOK_TRIGGERED",
			fmt.Sprintf("workflow %q is not webhook triggered", workflowID), ErrInvalidRequest)
	}

	return e.engine.Run(ctx, workflowID, workflow.UserID)
}

// History lists the persisted execution records of a workflow owned by
// userID, most recent first.
func (e *Execution) History(ctx context.Context, workflowID, userID string) ([]*models.ExecutionRecord, error) {
	workflow, err := e.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.UserID != userID {
		return nil, persistence.NewWorkflowError("History", workflowID, persistence.ErrWorkflowNotFound)
	}

	records, err := e.persistence.Executions().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return records, nil
}
