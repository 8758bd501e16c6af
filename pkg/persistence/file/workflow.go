package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

const fileMode = 0o644

// WorkflowRepository stores one JSON file per workflow under
// <root>/workflows.
type WorkflowRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{dir: filepath.Join(root, "workflows")}
}

func (r *WorkflowRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.listLocked()
	if err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	for _, other := range existing {
		if other.Name == workflow.Name {
			return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
		}
	}

	return r.writeLocked("Create", workflow)
}

func (r *WorkflowRepository) Update(ctx context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path(workflow.ID)); os.IsNotExist(err) {
		return persistence.NewWorkflowError("Update", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	return r.writeLocked("Update", workflow)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.readLocked(id)
}

func (r *WorkflowRepository) ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, err := r.listLocked()
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.UserID == userID {
			workflows = append(workflows, workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].CreatedAt.Before(workflows[j].CreatedAt) })

	return workflows, nil
}

func (r *WorkflowRepository) ListAll(ctx context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows, err := r.listLocked()
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].CreatedAt.Before(workflows[j].CreatedAt) })

	return workflows, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := r.readLocked(id)
	if err != nil {
		return err
	}

	if workflow.UserID != userID {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err := os.Remove(r.path(id)); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (r *WorkflowRepository) MarkExecuted(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := r.readLocked(id)
	if err != nil {
		return err
	}

	workflow.Executed = true

	return r.writeLocked("MarkExecuted", workflow)
}

func (r *WorkflowRepository) readLocked(id string) (*models.Workflow, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("corrupt workflow file: %w", err))
	}

	return &workflow, nil
}

func (r *WorkflowRepository) writeLocked(op string, workflow *models.Workflow) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return persistence.NewWorkflowError(op, workflow.ID, err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError(op, workflow.ID, err)
	}

	if err := os.WriteFile(r.path(workflow.ID), data, fileMode); err != nil {
		return persistence.NewWorkflowError(op, workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) listLocked() ([]*models.Workflow, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		workflow, err := r.readLocked(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}
