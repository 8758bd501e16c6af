package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
	"github.com/hookline/hookline/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("hookline_test"),
			postgres.WithUsername("hookline"),
			postgres.WithPassword("hookline"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropTables(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropTables(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func dropTables(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	_, err = db.ExecContext(ctx,
		"DROP TABLE IF EXISTS workflows, credentials, executions, schema_migrations")
	require.NoError(t, err)
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	for _, table := range []string{"workflows", "credentials", "executions"} {
		var exists bool

		err = db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)", table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}
}

func TestWorkflowRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "Integration Test Workflow",
		UserID: "user-1",
		Nodes: []*models.Node{
			{ID: "t", Kind: models.NodeKindManual, Type: models.NodeTypeTrigger, PositionX: 100, PositionY: 100},
			{
				ID:   "mail",
				Kind: models.NodeKindEmail,
				Type: models.NodeTypeTarget,
				Metadata: models.NodeMetadata{
					Email: &models.EmailMetadata{To: "ops@example.com", Subject: "deploy", Message: "done"},
				},
			},
		},
		Edges:     []*models.Edge{{ID: "e1", Source: "t", Target: "mail"}},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.Workflows().Create(ctx, workflow))

	// Unique name conflict
	dup := &models.Workflow{
		ID:        uuid.New().String(),
		Name:      workflow.Name,
		UserID:    "user-2",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	err := p.Workflows().Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowAlreadyExists(err))

	loaded, err := p.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 2)
	require.NotNil(t, loaded.Nodes[1].Metadata.Email)
	assert.Equal(t, "ops@example.com", loaded.Nodes[1].Metadata.Email.To)
	require.Len(t, loaded.Edges, 1)

	// Update graph
	loaded.Nodes[1].Metadata.Email.Subject = "release"
	require.NoError(t, p.Workflows().Update(ctx, loaded))

	reloaded, err := p.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "release", reloaded.Nodes[1].Metadata.Email.Subject)
	assert.False(t, reloaded.Executed)

	require.NoError(t, p.Workflows().MarkExecuted(ctx, workflow.ID))

	reloaded, err = p.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Executed)

	workflows, err := p.Workflows().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, workflows, 1)

	require.NoError(t, p.Workflows().Delete(ctx, workflow.ID, "user-1"))

	_, err = p.Workflows().GetByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestCredentialRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	credential := &models.Credential{
		ID:        uuid.New().String(),
		UserID:    "user-1",
		Name:      "work smtp",
		Kind:      models.CredentialKindSMTP,
		SMTP:      &models.SMTPCredential{Host: "smtp.test", Port: 465, User: "u", Password: "p"},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.Credentials().Create(ctx, credential))

	loaded, err := p.Credentials().GetByUserAndKind(ctx, "user-1", models.CredentialKindSMTP)
	require.NoError(t, err)
	require.NotNil(t, loaded.SMTP)
	assert.Equal(t, "smtp.test", loaded.SMTP.Host)
	assert.Equal(t, 465, loaded.SMTP.Port)

	_, err = p.Credentials().GetByUserAndKind(ctx, "user-1", models.CredentialKindTelegram)
	assert.True(t, persistence.IsCredentialNotFound(err))

	require.NoError(t, p.Credentials().Delete(ctx, credential.ID, "user-1"))

	_, err = p.Credentials().GetByUserAndKind(ctx, "user-1", models.CredentialKindSMTP)
	assert.True(t, persistence.IsCredentialNotFound(err))
}

func TestExecutionRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	record := &models.ExecutionRecord{
		ID:         uuid.New().String(),
		WorkflowID: "wf-1",
		UserID:     "user-1",
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	require.NoError(t, p.Executions().Save(ctx, record))

	finished := time.Now().UTC()
	record.Status = models.RunStatusPartiallyFailed
	record.FinishedAt = &finished
	record.Outcomes = []models.NodeOutcome{
		{NodeID: "a", Kind: models.NodeKindEmail, Status: models.OutcomeSucceeded, Attempts: 1},
		{NodeID: "b", Kind: models.NodeKindTelegram, Status: models.OutcomeFailed, Detail: "timeout", Attempts: 3},
	}

	require.NoError(t, p.Executions().Save(ctx, record))

	loaded, err := p.Executions().GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPartiallyFailed, loaded.Status)
	require.Len(t, loaded.Outcomes, 2)
	assert.Equal(t, 3, loaded.Outcomes[1].Attempts)
	require.NotNil(t, loaded.FinishedAt)

	records, err := p.Executions().ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
