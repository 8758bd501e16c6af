// Package main provides the Hookline API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/hookline/hookline/pkg/auth"
	"github.com/hookline/hookline/pkg/credentials"
	"github.com/hookline/hookline/pkg/engine"
	"github.com/hookline/hookline/pkg/eventbus"
	"github.com/hookline/hookline/pkg/persistence"
	"github.com/hookline/hookline/pkg/registry"
	"github.com/hookline/hookline/pkg/services"
	"github.com/hookline/hookline/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	verifier    *auth.Verifier
	lock        engine.RunLock
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	verifier *auth.Verifier,
	lock engine.RunLock,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		verifier:    verifier,
		lock:        lock,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	resolver := credentials.NewStoreResolver(a.persistence.Credentials())

	runEngine := engine.New(engine.Config{
		Logger:      a.logger,
		Persistence: a.persistence,
		Resolver:    resolver,
		Registry:    a.registry,
		EventBus:    a.eventBus,
		Lock:        a.lock,
		Tracer:      a.tracer,
	})

	workflowService := services.NewWorkflow(a.persistence)
	credentialService := services.NewCredential(a.persistence, resolver)
	executionService := services.NewExecution(a.persistence, runEngine)

	handlers := web.NewAPIHandlers(workflowService, credentialService, executionService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Hookline API")
	})

	authenticated := app.Group("/", web.Authenticate(a.verifier))

	w := authenticated.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	cr := authenticated.Group("/credentials")
	cr.Get("/", handlers.GetCredentials)
	cr.Post("/", handlers.CreateCredential)
	cr.Delete("/:id", handlers.DeleteCredential)

	app.Post("/webhooks/:workflowID", handlers.Webhook)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/nodes/schemas", handlers.NodeSchemas)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
