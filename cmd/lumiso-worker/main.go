package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/cmd"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/log"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/notify"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
)

func main() {
	command := &cli.Command{
		Name:                  "lumiso-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to run scheduled workflow executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the organization settings cache",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "notify-url",
				Usage:   "Base URL of the notification delivery service",
				Sources: cli.EnvVars("NOTIFY_URL"),
			},
			&cli.StringFlag{
				Name:    "notify-api-key",
				Usage:   "API key for the notification delivery service",
				Sources: cli.EnvVars("NOTIFY_API_KEY"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("lumiso-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing Lumiso Worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "lumiso-worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var cache *redis.Client

			if redisURL := command.String("redis-url"); redisURL != "" {
				opts, err := redis.ParseURL(redisURL)
				if err != nil {
					logger.WarnContext(ctx, "Invalid redis url, settings cache disabled", "error", err)
				} else {
					cache = redis.NewClient(opts)
				}
			}

			settingsService := settings.NewService(persistence, cache, logger)
			notifyClient := notify.NewHTTPClient(command.String("notify-url"), command.String("notify-api-key"))
			registry := cmd.NewRegistry(logger, notifyClient, notifyClient, settingsService, persistence)

			worker := NewWorkerManager(
				workerID,
				persistence,
				eventBus,
				logger,
				registry,
			)

			err := worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start event-driven worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
