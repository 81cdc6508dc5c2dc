// Package main provides the Lumiso automation API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/cmd"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/downloads"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/eventbus"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/notify"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/reminders"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/web"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

type APIConfig struct {
	AuthSecret   string
	StorageRoot  string
	PublicURL    string
	NotifyURL    string
	NotifyAPIKey string
	RedisURL     string
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	config      APIConfig
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	config APIConfig,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		config:      config,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := a.handlers()

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Lumiso Automation API")
	})

	f := app.Group("/functions")
	f.Post("/workflow-executor", handlers.WorkflowExecutor)
	f.Post("/process-session-reminders", handlers.ProcessSessionReminders)
	f.Post("/gallery-download", handlers.GalleryDownload)
	f.Get("/gallery-download-stream", handlers.GalleryDownloadStream)
	f.Post("/gallery-download-stream", handlers.GalleryDownloadStream)
	f.Post("/gallery-download-processor", handlers.GalleryDownloadProcessor)

	app.Get("/objects", handlers.ServeObject)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/steps", handlers.GetWorkflowSteps)
	w.Post("/:id/steps", handlers.SaveWorkflowStep)

	return app
}

func (a *API) handlers() *web.APIHandlers {
	settingsService := settings.NewService(a.persistence, a.redisClient(), a.logger)
	notifyClient := notify.NewHTTPClient(a.config.NotifyURL, a.config.NotifyAPIKey)

	reg := cmd.NewRegistry(a.logger, notifyClient, notifyClient, settingsService, a.persistence)
	resolver := workflow.NewEntityResolver(a.persistence, a.logger)
	dispatcher := workflow.NewDispatcher(a.persistence, settingsService, a.eventBus, a.logger)
	executor := workflow.NewExecutor(a.persistence, reg, resolver, a.logger)
	reminderProcessor := reminders.NewProcessor(a.persistence, dispatcher, a.logger)

	objects := storage.NewFilesystem(a.config.StorageRoot, a.config.PublicURL, []byte(a.config.AuthSecret))
	downloadService := downloads.NewService(a.persistence, objects, a.logger)
	zipBuilder := downloads.NewZipBuilder(a.persistence, objects, a.logger)
	downloadProcessor := downloads.NewProcessor(a.persistence, objects, zipBuilder, a.logger)

	return web.NewAPIHandlers(
		a.persistence,
		dispatcher,
		executor,
		reminderProcessor,
		downloadService,
		downloadProcessor,
		zipBuilder,
		objects,
		a.validate,
		a.config.AuthSecret,
		a.logger,
	)
}

func (a *API) redisClient() *redis.Client {
	if a.config.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(a.config.RedisURL)
	if err != nil {
		a.logger.Warn("invalid redis url, settings cache disabled", "error", err)

		return nil
	}

	return redis.NewClient(opts)
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
