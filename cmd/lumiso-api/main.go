package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/cmd"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/log"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "lumiso-api",
		Usage:                 "Serve the workflow, reminder and gallery download endpoints",
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
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the organization settings cache",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "auth-secret",
				Usage:    "HMAC secret for viewer tokens and signed object URLs",
				Required: true,
				Sources:  cli.EnvVars("AUTH_SECRET"),
			},
			&cli.StringFlag{
				Name:    "storage-root",
				Usage:   "Filesystem root for gallery object storage",
				Value:   "./data/objects",
				Sources: cli.EnvVars("STORAGE_ROOT"),
			},
			&cli.StringFlag{
				Name:    "public-url",
				Usage:   "Public base URL used when issuing signed download links",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("PUBLIC_URL"),
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

			logger.InfoContext(ctx, "Initializing Lumiso API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "lumiso-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(logger, persistence, eventBus, APIConfig{
				AuthSecret:   command.String("auth-secret"),
				StorageRoot:  command.String("storage-root"),
				PublicURL:    command.String("public-url"),
				NotifyURL:    command.String("notify-url"),
				NotifyAPIKey: command.String("notify-api-key"),
				RedisURL:     command.String("redis-url"),
			})

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
