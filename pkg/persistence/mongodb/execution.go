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

type executionDocument struct {
	ID         string               `bson:"_id"`
	WorkflowID string               `bson:"workflow_id"`
	UserID     string               `bson:"user_id"`
	Status     models.RunStatus     `bson:"status"`
	Outcomes   []models.NodeOutcome `bson:"outcomes"`
	Error      string               `bson:"error,omitempty"`
	Warnings   []string             `bson:"warnings,omitempty"`
	StartedAt  time.Time            `bson:"started_at"`
	FinishedAt *time.Time           `bson:"finished_at,omitempty"`
}

func toExecutionDocument(record *models.ExecutionRecord) *executionDocument {
	return &executionDocument{
		ID:         record.ID,
		WorkflowID: record.WorkflowID,
		UserID:     record.UserID,
		Status:     record.Status,
		Outcomes:   record.Outcomes,
		Error:      record.Error,
		Warnings:   record.Warnings,
		StartedAt:  record.StartedAt,
		FinishedAt: record.FinishedAt,
	}
}

func (d *executionDocument) toModel() *models.ExecutionRecord {
	return &models.ExecutionRecord{
		ID:         d.ID,
		WorkflowID: d.WorkflowID,
		UserID:     d.UserID,
		Status:     d.Status,
		Outcomes:   d.Outcomes,
		Error:      d.Error,
		Warnings:   d.Warnings,
		StartedAt:  d.StartedAt,
		FinishedAt: d.FinishedAt,
	}
}

// ExecutionRepository stores execution records in a MongoDB collection.
type ExecutionRepository struct {
	collection *mongo.Collection
}

func NewExecutionRepository(collection *mongo.Collection) *ExecutionRepository {
	return &ExecutionRepository{collection: collection}
}

// Save upserts the record so a run can persist its state transitions
// under the same identifier.
func (r *ExecutionRepository) Save(ctx context.Context, record *models.ExecutionRecord) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID},
		toExecutionDocument(record), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", record.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	var document executionDocument

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	return document.toModel(), nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"workflow_id": workflowID},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		_ = cursor.Close(ctx)
	}()

	records := make([]*models.ExecutionRecord, 0)

	for cursor.Next(ctx) {
		var document executionDocument
		if err := cursor.Decode(&document); err != nil {
			return nil, fmt.Errorf("failed to decode execution: %w", err)
		}

		records = append(records, document.toModel())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return records, nil
}
