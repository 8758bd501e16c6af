package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/pkg/auth"
	"github.com/hookline/hookline/pkg/credentials"
	"github.com/hookline/hookline/pkg/dispatch"
	"github.com/hookline/hookline/pkg/engine"
	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence/file"
	"github.com/hookline/hookline/pkg/registry"
	"github.com/hookline/hookline/pkg/services"
	"github.com/hookline/hookline/pkg/web"
)

type okDispatcher struct {
	kind models.NodeKind
}

func (d *okDispatcher) Kind() models.NodeKind { return d.kind }

func (d *okDispatcher) CredentialKind() models.CredentialKind {
	credentialKind, _ := models.CredentialKindFor(d.kind)

	return credentialKind
}

func (d *okDispatcher) Dispatch(_ context.Context, _ *models.Node, _ *models.Credential) (*dispatch.Outcome, error) {
	return &dispatch.Outcome{Detail: "delivered"}, nil
}

func setupTestApp(t *testing.T) (*fiber.App, *auth.Verifier) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())

	resolver := credentials.NewStoreResolver(store.Credentials())

	registryInstance := registry.NewRegistry(logger)
	registryInstance.RegisterDispatcher(&okDispatcher{kind: models.NodeKindEmail})
	registryInstance.RegisterDispatcher(&okDispatcher{kind: models.NodeKindTelegram})

	runEngine := engine.New(engine.Config{
		Logger:      logger,
		Persistence: store,
		Resolver:    resolver,
		Registry:    registryInstance,
	})

	workflowService := services.NewWorkflow(store)
	credentialService := services.NewCredential(store, resolver)
	executionService := services.NewExecution(store, runEngine)

	handlers := web.NewAPIHandlers(workflowService, credentialService, executionService,
		validator.New(validator.WithRequiredStructEnabled()), registryInstance)

	verifier := auth.NewVerifier("test-secret")

	app := fiber.New()

	authenticated := app.Group("/", web.Authenticate(verifier))

	w := authenticated.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/", handlers.GetWorkflows)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	cr := authenticated.Group("/credentials")
	cr.Post("/", handlers.CreateCredential)
	cr.Get("/", handlers.GetCredentials)
	cr.Delete("/:id", handlers.DeleteCredential)

	app.Post("/webhooks/:workflowID", handlers.Webhook)
	app.Get("/health", handlers.HealthCheck)
	app.Get("/nodes/schemas", handlers.NodeSchemas)

	return app, verifier
}

func bearerToken(t *testing.T, verifier *auth.Verifier, userID string) string {
	t.Helper()

	token, err := verifier.Sign(userID, time.Minute)
	require.NoError(t, err)

	return "Bearer " + token
}

func jsonRequest(t *testing.T, method, target, token string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", token)
	}

	return req
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func createWorkflow(t *testing.T, app *fiber.App, token string) models.Workflow {
	t.Helper()

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/workflows/", token, web.CreateWorkflowRequest{
		Name: "deploy notifications",
		Nodes: []*models.Node{
			{ID: "t", Kind: models.NodeKindManual, Type: models.NodeTypeTrigger},
			{
				ID:   "a",
				Kind: models.NodeKindEmail,
				Type: models.NodeTypeTarget,
				Metadata: models.NodeMetadata{
					Email: &models.EmailMetadata{To: "a@b.com", Subject: "s", Message: "m"},
				},
			},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "t", Target: "a"}},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow

	decodeBody(t, resp, &workflow)

	return workflow
}

func createSMTPCredential(t *testing.T, app *fiber.App, token string) {
	t.Helper()

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/credentials/", token, web.CreateCredentialRequest{
		Name: "personal smtp",
		Kind: models.CredentialKindSMTP,
		SMTP: &models.SMTPCredential{Host: "smtp.test", Port: 465, User: "u", Password: "p"},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestWorkflowLifecycle(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	workflow := createWorkflow(t, app, token)
	assert.Equal(t, "user-1", workflow.UserID)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/workflows/"+workflow.ID, token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodDelete, "/workflows/"+workflow.ID, token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/workflows/"+workflow.ID, token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWorkflowRequiresAuthentication(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/workflows/", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWorkflowOwnershipEnforced(t *testing.T) {
	app, verifier := setupTestApp(t)

	owner := bearerToken(t, verifier, "user-1")
	stranger := bearerToken(t, verifier, "user-2")

	workflow := createWorkflow(t, app, owner)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/workflows/"+workflow.ID, stranger, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateWorkflowValidation(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/workflows/", token,
		web.CreateWorkflowRequest{Name: "ab"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCredentialLifecycleWithRedaction(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	createSMTPCredential(t, app, token)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/credentials/", token, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed struct {
		Credentials []web.CredentialResponse `json:"credentials"`
	}

	decodeBody(t, resp, &listed)
	require.Len(t, listed.Credentials, 1)
	assert.Equal(t, models.CredentialKindSMTP, listed.Credentials[0].Kind)

	resp, err = app.Test(jsonRequest(t, http.MethodDelete, "/credentials/"+listed.Credentials[0].ID, token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCredentialCreateRejectsIncompleteSMTP(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/credentials/", token, web.CreateCredentialRequest{
		Name: "broken smtp",
		Kind: models.CredentialKindSMTP,
		SMTP: &models.SMTPCredential{Host: "smtp.test"},
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteWorkflow(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	workflow := createWorkflow(t, app, token)
	createSMTPCredential(t, app, token)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/workflows/"+workflow.ID+"/execute", token, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.ExecutionRecord

	decodeBody(t, resp, &record)
	assert.Equal(t, models.RunStatusSucceeded, record.Status)
	assert.Len(t, record.Outcomes, 1)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/workflows/"+workflow.ID+"/executions", token, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history struct {
		Executions []models.ExecutionRecord `json:"executions"`
	}

	decodeBody(t, resp, &history)
	assert.Len(t, history.Executions, 1)
}

func TestExecuteWorkflowMissingCredentialReturnsFailedRecord(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	workflow := createWorkflow(t, app, token)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/workflows/"+workflow.ID+"/execute", token, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.ExecutionRecord

	decodeBody(t, resp, &record)
	assert.Equal(t, models.RunStatusFailed, record.Status)
	assert.Empty(t, record.Outcomes)
}

func TestWebhookTrigger(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/workflows/", token, web.CreateWorkflowRequest{
		Name: "webhook workflow",
		Nodes: []*models.Node{
			{ID: "t", Kind: models.NodeKindWebhook, Type: models.NodeTypeTrigger},
			{
				ID:   "a",
				Kind: models.NodeKindEmail,
				Type: models.NodeTypeTarget,
				Metadata: models.NodeMetadata{
					Email: &models.EmailMetadata{To: "a@b.com", Subject: "s", Message: "m"},
				},
			},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "t", Target: "a"}},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow

	decodeBody(t, resp, &workflow)

	createSMTPCredential(t, app, token)

	// No Authorization header on the webhook path.
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/webhooks/"+workflow.ID, "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.ExecutionRecord

	decodeBody(t, resp, &record)
	assert.Equal(t, models.RunStatusSucceeded, record.Status)
	assert.Equal(t, "user-1", record.UserID)
}

func TestWebhookRejectsManualWorkflow(t *testing.T) {
	app, verifier := setupTestApp(t)
	token := bearerToken(t, verifier, "user-1")

	workflow := createWorkflow(t, app, token)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/webhooks/"+workflow.ID, "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/health", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNodeSchemasEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/nodes/schemas", "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Schemas map[string]any `json:"schemas"`
	}

	decodeBody(t, resp, &body)
	assert.Len(t, body.Schemas, 5)
}
