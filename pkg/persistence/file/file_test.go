package file

import (
	"context"
	"testing"
	"time"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkflow(id, name, userID string) *models.Workflow {
	return &models.Workflow{
		ID:        id,
		Name:      name,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Nodes: []*models.Node{
			{ID: "t", Kind: models.NodeKindManual, Type: models.NodeTypeTrigger},
		},
	}
}

func TestWorkflowRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	workflow := testWorkflow("wf-1", "First", "user-1")
	require.NoError(t, fp.Workflows().Create(ctx, workflow))

	loaded, err := fp.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "First", loaded.Name)
	assert.Equal(t, "user-1", loaded.UserID)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.NodeKindManual, loaded.Nodes[0].Kind)
}

func TestWorkflowRepository_CreateDuplicateName(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	require.NoError(t, fp.Workflows().Create(ctx, testWorkflow("wf-1", "Same", "user-1")))

	err := fp.Workflows().Create(ctx, testWorkflow("wf-2", "Same", "user-2"))
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowAlreadyExists(err))
}

func TestWorkflowRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	_, err := fp.Workflows().GetByID(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_DeleteScopedToOwner(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	require.NoError(t, fp.Workflows().Create(ctx, testWorkflow("wf-1", "Mine", "user-1")))

	err := fp.Workflows().Delete(ctx, "wf-1", "user-2")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	require.NoError(t, fp.Workflows().Delete(ctx, "wf-1", "user-1"))

	_, err = fp.Workflows().GetByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_MarkExecuted(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	require.NoError(t, fp.Workflows().Create(ctx, testWorkflow("wf-1", "Run me", "user-1")))
	require.NoError(t, fp.Workflows().MarkExecuted(ctx, "wf-1"))

	loaded, err := fp.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, loaded.Executed)
}

func TestCredentialRepository_GetByUserAndKind(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	smtp := &models.Credential{
		ID:     "cred-1",
		UserID: "user-1",
		Name:   "work smtp",
		Kind:   models.CredentialKindSMTP,
		SMTP:   &models.SMTPCredential{Host: "smtp.test", Port: 465, User: "u", Password: "p"},
	}
	telegram := &models.Credential{
		ID:       "cred-2",
		UserID:   "user-1",
		Name:     "bot",
		Kind:     models.CredentialKindTelegram,
		Telegram: &models.TelegramCredential{BotToken: "token"},
	}

	require.NoError(t, fp.Credentials().Create(ctx, smtp))
	require.NoError(t, fp.Credentials().Create(ctx, telegram))

	loaded, err := fp.Credentials().GetByUserAndKind(ctx, "user-1", models.CredentialKindSMTP)
	require.NoError(t, err)
	assert.Equal(t, "cred-1", loaded.ID)
	require.NotNil(t, loaded.SMTP)
	assert.Equal(t, 465, loaded.SMTP.Port)

	_, err = fp.Credentials().GetByUserAndKind(ctx, "user-2", models.CredentialKindSMTP)
	require.Error(t, err)
	assert.True(t, persistence.IsCredentialNotFound(err))
}

func TestCredentialRepository_DuplicateName(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	first := &models.Credential{
		ID:     "cred-1",
		UserID: "user-1",
		Name:   "bot",
		Kind:   models.CredentialKindTelegram,
	}
	require.NoError(t, fp.Credentials().Create(ctx, first))

	dup := &models.Credential{
		ID:     "cred-2",
		UserID: "user-1",
		Name:   "bot",
		Kind:   models.CredentialKindTelegram,
	}
	err := fp.Credentials().Create(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrCredentialAlreadyExists)
}

func TestExecutionRepository_SaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	record := &models.ExecutionRecord{
		ID:         "run-1",
		WorkflowID: "wf-1",
		UserID:     "user-1",
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, fp.Executions().Save(ctx, record))

	record.Status = models.RunStatusSucceeded
	record.Outcomes = []models.NodeOutcome{{NodeID: "a", Status: models.OutcomeSucceeded, Attempts: 1}}
	require.NoError(t, fp.Executions().Save(ctx, record))

	loaded, err := fp.Executions().GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, loaded.Status)
	require.Len(t, loaded.Outcomes, 1)
	assert.Equal(t, 1, loaded.Outcomes[0].Attempts)
}

func TestExecutionRepository_ListByWorkflow(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	for _, id := range []string{"run-1", "run-2"} {
		require.NoError(t, fp.Executions().Save(ctx, &models.ExecutionRecord{
			ID:         id,
			WorkflowID: "wf-1",
			StartedAt:  time.Now().UTC(),
		}))
	}

	require.NoError(t, fp.Executions().Save(ctx, &models.ExecutionRecord{
		ID:         "run-3",
		WorkflowID: "wf-2",
		StartedAt:  time.Now().UTC(),
	}))

	records, err := fp.Executions().ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
