// Package mongodb provides MongoDB persistence for workflows, credentials
// and execution records.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hookline/hookline/pkg/persistence"
)

const defaultDatabase = "hookline"

// Persistence implements the persistence layer for MongoDB.
type Persistence struct {
	client         *mongo.Client
	database       *mongo.Database
	logger         *slog.Logger
	workflowRepo   *WorkflowRepository
	credentialRepo *CredentialRepository
	executionRepo  *ExecutionRepository
}

// NewPersistence connects to MongoDB and ensures the indexes the
// repositories rely on.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(defaultDatabase)

	p := &Persistence{
		client:         client,
		database:       database,
		logger:         logger,
		workflowRepo:   NewWorkflowRepository(database.Collection("workflows")),
		credentialRepo: NewCredentialRepository(database.Collection("credentials")),
		executionRepo:  NewExecutionRepository(database.Collection("executions")),
	}

	if err := p.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Persistence) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		p.database.Collection("workflows"): {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		p.database.Collection("credentials"): {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}}},
		},
		p.database.Collection("executions"): {
			{Keys: bson.D{{Key: "workflow_id", Value: 1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := collection.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection.Name(), err)
		}
	}

	return nil
}

// Close disconnects from MongoDB.
func (p *Persistence) Close(ctx context.Context) error {
	if err := p.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	return nil
}

// HealthCheck verifies the MongoDB connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Credentials() persistence.CredentialRepository {
	return p.credentialRepo
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executionRepo
}
