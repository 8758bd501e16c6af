// Package persistence provides the data storage abstraction for workflows,
// credentials and execution records.
package persistence

import (
	"context"

	"github.com/hookline/hookline/pkg/models"
)

// Persistence bundles the repositories backed by one store.
type Persistence interface {
	Workflows() WorkflowRepository
	Credentials() CredentialRepository
	Executions() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow documents. All reads and writes are
// scoped by the owning user where ownership matters.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	Update(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error)

	// ListAll returns every stored workflow. Used by the scheduler to
	// discover schedule-triggered workflows across all users.
	ListAll(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id, userID string) error

	// MarkExecuted flips the workflow's executed flag. Kept as a thin
	// write separate from Update so runs never rewrite graph state.
	MarkExecuted(ctx context.Context, id string) error
}

// CredentialRepository stores user credentials. A user holds at most one
// credential per kind.
type CredentialRepository interface {
	Create(ctx context.Context, credential *models.Credential) error
	GetByUserAndKind(ctx context.Context, userID string, kind models.CredentialKind) (*models.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
	Delete(ctx context.Context, id, userID string) error
}

// ExecutionRepository stores run records. Save upserts so a record can be
// written at run start and finalized in place.
type ExecutionRepository interface {
	Save(ctx context.Context, record *models.ExecutionRecord) error
	GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error)
}
