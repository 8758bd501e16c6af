package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
	"github.com/hookline/hookline/pkg/registry"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow provides owner-scoped workflow CRUD.
//
// Saving accepts action nodes with incomplete metadata; completeness is
// an execution-time concern so users can sketch a workflow before
// filling it in. Structural invariants (at most one trigger, edge
// endpoints present, known node kinds) are enforced here.
type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
		validate:    validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest carries a new workflow definition.
type CreateWorkflowRequest struct {
	Name   string `validate:"required,min=3"`
	UserID string `validate:"required"`
	Nodes  []*models.Node
	Edges  []*models.Edge
}

func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError("Create", "INVALID_WORKFLOW", err.Error(), ErrWorkflowNameRequired)
	}

	if err := w.validateStructure(req.Nodes, req.Edges); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:        uuid.New().String(),
		Name:      req.Name,
		UserID:    req.UserID,
		Nodes:     req.Nodes,
		Edges:     req.Edges,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := w.persistence.Workflows().Create(ctx, workflow); err != nil {
		if persistence.IsWorkflowAlreadyExists(err) {
			return nil, &ServiceError{Op: "Create", Code: "NAME_TAKEN", Err: ErrWorkflowNameTaken}
		}

		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces the nodes and edges of a workflow owned by userID.
func (w *Workflow) Update(ctx context.Context, workflowID, userID string, nodes []*models.Node, edges []*models.Edge) (*models.Workflow, error) {
	workflow, err := w.getOwned(ctx, workflowID, userID)
	if err != nil {
		return nil, err
	}

	if err := w.validateStructure(nodes, edges); err != nil {
		return nil, err
	}

	workflow.Nodes = nodes
	workflow.Edges = edges
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.Workflows().Update(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Get returns a workflow owned by userID.
func (w *Workflow) Get(ctx context.Context, workflowID, userID string) (*models.Workflow, error) {
	return w.getOwned(ctx, workflowID, userID)
}

// List returns all workflows owned by userID.
func (w *Workflow) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// Delete removes a workflow owned by userID.
func (w *Workflow) Delete(ctx context.Context, workflowID, userID string) error {
	if err := w.persistence.Workflows().Delete(ctx, workflowID, userID); err != nil {
		return err
	}

	return nil
}

// getOwned loads a workflow and hides its existence from non-owners.
func (w *Workflow) getOwned(ctx context.Context, workflowID, userID string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.UserID != userID {
		return nil, persistence.NewWorkflowError("getOwned", workflowID, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (w *Workflow) validateStructure(nodes []*models.Node, edges []*models.Edge) error {
	byID := make(map[string]bool, len(nodes))
	triggers := 0

	for _, node := range nodes {
		if err := w.validate.Struct(node); err != nil {
			return NewValidationError("validateStructure", "INVALID_NODE",
				fmt.Sprintf("node %q: %v", node.ID, err), ErrInvalidRequest)
		}

		if _, ok := registry.MetadataSchema(node.Kind); !ok {
			return NewValidationError("validateStructure", "UNKNOWN_NODE_KIND",
				fmt.Sprintf("node %q has unknown kind %q", node.ID, node.Kind), ErrUnknownNodeKind)
		}

		byID[node.ID] = true

		if node.IsTrigger() {
			triggers++
		}
	}

	if triggers > 1 {
		return NewValidationError("validateStructure", "MULTIPLE_TRIGGERS",
			"workflow may hold at most one trigger node", ErrMultipleTriggerNodes)
	}

	for _, edge := range edges {
		if !byID[edge.Source] || !byID[edge.Target] {
			return NewValidationError("validateStructure", "EDGE_ENDPOINT_MISSING",
				fmt.Sprintf("edge %q references a missing node", edge.ID), ErrEdgeEndpointMissing)
		}
	}

	return nil
}
