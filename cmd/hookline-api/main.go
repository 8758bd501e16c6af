package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/hookline/hookline/pkg/auth"
	"github.com/hookline/hookline/pkg/cmd"
	"github.com/hookline/hookline/pkg/engine"
	"github.com/hookline/hookline/pkg/log"
	"github.com/hookline/hookline/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "hookline-api",
		Usage:                 "Create and run workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (file://, postgres://, mongodb://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "Secret for signing and verifying bearer tokens",
				Required: true,
				Sources:  cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus transport (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the run lock; an in-process lock is used when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Hookline API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "hookline-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			lock, err := newRunLock(command.String("redis-url"))
			if err != nil {
				return err
			}

			tracer, err := newTracer(ctx)
			if err != nil {
				return err
			}

			api := NewAPI(
				logger,
				persistence,
				cmd.NewRegistry(logger),
				eventBus,
				auth.NewVerifier(command.String("jwt-secret")),
				lock,
				tracer,
			)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

// newTracer exports spans over OTLP when OTEL_ENABLED is set; the
// engine falls back to a noop tracer otherwise.
func newTracer(ctx context.Context) (trace.Tracer, error) {
	if os.Getenv("OTEL_ENABLED") != "true" {
		return nil, nil
	}

	return otelhelper.NewTracer(ctx, "hookline-api")
}

func newRunLock(redisURL string) (engine.RunLock, error) {
	if redisURL == "" {
		return engine.NewMemoryLock(), nil
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return engine.NewRedisLock(redis.NewClient(options)), nil
}
