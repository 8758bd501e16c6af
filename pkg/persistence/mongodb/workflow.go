package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// workflowDocument is the BSON shape of a stored workflow. Node and edge
// lists are stored as extended JSON-compatible subdocuments.
type workflowDocument struct {
	ID        string         `bson:"_id"`
	Name      string         `bson:"name"`
	UserID    string         `bson:"user_id"`
	Nodes     []*models.Node `bson:"nodes"`
	Edges     []*models.Edge `bson:"edges"`
	Executed  bool           `bson:"executed"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

func toWorkflowDocument(workflow *models.Workflow) *workflowDocument {
	return &workflowDocument{
		ID:        workflow.ID,
		Name:      workflow.Name,
		UserID:    workflow.UserID,
		Nodes:     workflow.Nodes,
		Edges:     workflow.Edges,
		Executed:  workflow.Executed,
		CreatedAt: workflow.CreatedAt,
		UpdatedAt: workflow.UpdatedAt,
	}
}

func (d *workflowDocument) toModel() *models.Workflow {
	return &models.Workflow{
		ID:        d.ID,
		Name:      d.Name,
		UserID:    d.UserID,
		Nodes:     d.Nodes,
		Edges:     d.Edges,
		Executed:  d.Executed,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// WorkflowRepository stores workflows in a MongoDB collection.
type WorkflowRepository struct {
	collection *mongo.Collection
}

func NewWorkflowRepository(collection *mongo.Collection) *WorkflowRepository {
	return &WorkflowRepository{collection: collection}
}

func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	_, err := r.collection.InsertOne(ctx, toWorkflowDocument(workflow))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
		}

		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Update(ctx context.Context, workflow *models.Workflow) error {
	update := bson.M{"$set": bson.M{
		"nodes":      workflow.Nodes,
		"edges":      workflow.Edges,
		"updated_at": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": workflow.ID}, update)
	if err != nil {
		return persistence.NewWorkflowError("Update", workflow.ID, err)
	}

	if result.MatchedCount == 0 {
		return persistence.NewWorkflowError("Update", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var document workflowDocument

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return document.toModel(), nil
}

func (r *WorkflowRepository) ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		_ = cursor.Close(ctx)
	}()

	workflows := make([]*models.Workflow, 0)

	for cursor.Next(ctx) {
		var document workflowDocument
		if err := cursor.Decode(&document); err != nil {
			return nil, fmt.Errorf("failed to decode workflow: %w", err)
		}

		workflows = append(workflows, document.toModel())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) ListAll(ctx context.Context) ([]*models.Workflow, error) {
	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		_ = cursor.Close(ctx)
	}()

	workflows := make([]*models.Workflow, 0)

	for cursor.Next(ctx) {
		var document workflowDocument
		if err := cursor.Decode(&document); err != nil {
			return nil, fmt.Errorf("failed to decode workflow: %w", err)
		}

		workflows = append(workflows, document.toModel())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if result.DeletedCount == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) MarkExecuted(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"executed": true, "updated_at": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return persistence.NewWorkflowError("MarkExecuted", id, err)
	}

	if result.MatchedCount == 0 {
		return persistence.NewWorkflowError("MarkExecuted", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}
