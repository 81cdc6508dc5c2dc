package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/cmd"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/downloads"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/log"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/reminders"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

func main() {
	logger := log.WithModule("lumiso-scheduler")

	command := &cli.Command{
		Name:                  "lumiso-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Run the periodic reminder and download job processors",
		Flags: []cli.Flag{
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
				Name:    "auth-secret",
				Usage:   "HMAC secret for signed object URLs",
				Value:   "",
				Sources: cli.EnvVars("AUTH_SECRET"),
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
				Name:    "reminder-schedule",
				Usage:   "Cron expression for the session reminder processor",
				Value:   "* * * * *",
				Sources: cli.EnvVars("REMINDER_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "download-schedule",
				Usage:   "Cron expression for the download job processor",
				Value:   "* * * * *",
				Sources: cli.EnvVars("DOWNLOAD_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "cleanup-schedule",
				Usage:   "Cron expression for the expired download cleanup",
				Value:   "*/5 * * * *",
				Sources: cli.EnvVars("CLEANUP_SCHEDULE"),
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

			logger.InfoContext(ctx, "Initializing Lumiso Scheduler")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "lumiso-scheduler", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
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
			dispatcher := workflow.NewDispatcher(persistence, settingsService, eventBus, logger)
			reminderProcessor := reminders.NewProcessor(persistence, dispatcher, logger)

			objects := storage.NewFilesystem(
				command.String("storage-root"),
				command.String("public-url"),
				[]byte(command.String("auth-secret")),
			)
			zipBuilder := downloads.NewZipBuilder(persistence, objects, logger)
			downloadProcessor := downloads.NewProcessor(persistence, objects, zipBuilder, logger)

			scheduler := NewSchedulerManager(logger, reminderProcessor, downloadProcessor, Schedules{
				Reminders:       command.String("reminder-schedule"),
				DownloadJobs:    command.String("download-schedule"),
				DownloadCleanup: command.String("cleanup-schedule"),
			})

			err := scheduler.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start scheduler", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
