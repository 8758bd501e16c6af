// Package main provides the Hookline scheduler: it runs cron triggers
// for every schedule-triggered workflow in the store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/hookline/hookline/pkg/cmd"
	"github.com/hookline/hookline/pkg/credentials"
	"github.com/hookline/hookline/pkg/engine"
	"github.com/hookline/hookline/pkg/log"
	"github.com/hookline/hookline/pkg/services"
	"github.com/hookline/hookline/pkg/triggers/schedule"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	command := &cli.Command{
		Name:                  "hookline-scheduler",
		Usage:                 "Run schedule-triggered workflows on cron ticks",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (file://, postgres://, mongodb://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus transport (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

			logger := log.WithModule("scheduler")

			logger.InfoContext(ctx, "Initializing Hookline scheduler")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "hookline-scheduler", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			runEngine := engine.New(engine.Config{
				Logger:      logger,
				Persistence: persistence,
				Resolver:    credentials.NewStoreResolver(persistence.Credentials()),
				Registry:    cmd.NewRegistry(logger),
				EventBus:    eventBus,
				Lock:        engine.NewMemoryLock(),
			})

			scheduler := schedule.NewScheduler(
				persistence,
				services.NewExecution(persistence, runEngine),
				logger,
			)

			if err := scheduler.Start(ctx); err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan

			logger.InfoContext(ctx, "Shutting down scheduler")
			scheduler.Stop(ctx)

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
