// Package web provides HTTP handlers and REST API endpoints for
// workflow and credential management and run triggering.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/registry"
	"github.com/hookline/hookline/pkg/services"
)

type APIHandlers struct {
	workflowService   *services.Workflow
	credentialService *services.Credential
	executionService  *services.Execution
	validator         *validator.Validate
	registry          *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	credentialService *services.Credential,
	executionService *services.Execution,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:   workflowService,
		credentialService: credentialService,
		executionService:  executionService,
		validator:         validator,
		registry:          registry,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryErr := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if registryErr == nil && repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	registryCheck := "Registry is healthy"
	if registryErr != nil {
		registryCheck = registryErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Create(c.Context(), services.CreateWorkflowRequest{
		Name:   req.Name,
		UserID: currentUserID(c),
		Nodes:  req.Nodes,
		Edges:  req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Get(c.Context(), id, currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	workflow, err := h.workflowService.Update(c.Context(), id, currentUserID(c), req.Nodes, req.Edges)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id, currentUserID(c)); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateCredential(c fiber.Ctx) error {
	var req CreateCredentialRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	credential, err := h.credentialService.Create(c.Context(), services.CreateCredentialRequest{
		UserID:   currentUserID(c),
		Name:     req.Name,
		Kind:     req.Kind,
		SMTP:     req.SMTP,
		Telegram: req.Telegram,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toCredentialResponse(credential))
}

func (h *APIHandlers) GetCredentials(c fiber.Ctx) error {
	credentials, err := h.credentialService.List(c.Context(), currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	responses := make([]CredentialResponse, 0, len(credentials))
	for _, credential := range credentials {
		responses = append(responses, toCredentialResponse(credential))
	}

	return c.JSON(fiber.Map{"credentials": responses})
}

func (h *APIHandlers) DeleteCredential(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Credential ID is required")
	}

	if err := h.credentialService.Delete(c.Context(), id, currentUserID(c)); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow triggers an authenticated execute-now run. The
// finalized execution record is the response body whatever the run's
// terminal status.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	record, err := h.executionService.Execute(c.Context(), id, currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

// Webhook triggers an unauthenticated run; the workflow id in the path
// is the only credential, and the run executes as the owner.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	id := c.Params("workflowID")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	record, err := h.executionService.ExecuteWebhook(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	records, err := h.executionService.History(c.Context(), id, currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": records})
}

// NodeSchemas serves the metadata JSON Schemas per node kind so editors
// can validate before saving.
func (h *APIHandlers) NodeSchemas(c fiber.Ctx) error {
	schemas := make(map[string]any)

	for _, kind := range []models.NodeKind{
		models.NodeKindManual,
		models.NodeKindWebhook,
		models.NodeKindSchedule,
		models.NodeKindEmail,
		models.NodeKindTelegram,
	} {
		if schema, ok := registry.MetadataSchema(kind); ok {
			schemas[string(kind)] = schema
		}
	}

	return c.JSON(fiber.Map{"schemas": schemas})
}
