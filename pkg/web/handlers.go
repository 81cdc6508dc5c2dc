// Package web provides the HTTP function endpoints and the workflow admin API.
package web

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/downloads"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/reminders"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

type APIHandlers struct {
	persistence       persistence.Persistence
	dispatcher        *workflow.Dispatcher
	executor          *workflow.Executor
	reminderProcessor *reminders.Processor
	downloadService   *downloads.Service
	downloadProcessor *downloads.Processor
	zipBuilder        *downloads.ZipBuilder
	objects           *storage.Filesystem
	validator         *validator.Validate
	authSecret        string
	logger            *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	dispatcher *workflow.Dispatcher,
	executor *workflow.Executor,
	reminderProcessor *reminders.Processor,
	downloadService *downloads.Service,
	downloadProcessor *downloads.Processor,
	zipBuilder *downloads.ZipBuilder,
	objects *storage.Filesystem,
	validator *validator.Validate,
	authSecret string,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence:       p,
		dispatcher:        dispatcher,
		executor:          executor,
		reminderProcessor: reminderProcessor,
		downloadService:   downloadService,
		downloadProcessor: downloadProcessor,
		zipBuilder:        zipBuilder,
		objects:           objects,
		validator:         validator,
		authSecret:        authSecret,
		logger:            logger.With("module", "web"),
	}
}

type workflowFunctionRequest struct {
	Action      string `json:"action"`
	ExecutionID string `json:"execution_id"`

	workflow.TriggerRequest
}

// WorkflowExecutor is the single entrypoint for the trigger and execute
// phases. Triggering creates execution rows; executing runs the steps of one
// previously created execution.
func (h *APIHandlers) WorkflowExecutor(c fiber.Ctx) error {
	var req workflowFunctionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	switch req.Action {
	case "trigger":
		if err := h.validator.Struct(req.TriggerRequest); err != nil {
			return badRequest(c, "Invalid trigger request: "+err.Error())
		}

		result, err := h.dispatcher.Dispatch(c.Context(), req.TriggerRequest)
		if err != nil {
			return functionError(c, err)
		}

		return functionSuccess(c, "trigger", result)
	case "execute":
		if req.ExecutionID == "" {
			return badRequest(c, "execution_id is required for the execute action")
		}

		outcome, err := h.executor.Execute(c.Context(), req.ExecutionID)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				return notFound(c, "execution not found")
			}

			return functionError(c, err)
		}

		return functionSuccess(c, "execute", fiber.Map{
			"execution_id":   req.ExecutionID,
			"steps_executed": outcome.Executed,
			"steps_skipped":  outcome.Skipped,
			"steps_failed":   outcome.Failed,
		})
	default:
		return badRequest(c, "action must be 'trigger' or 'execute'")
	}
}

// ProcessSessionReminders runs one pass over due session reminders.
func (h *APIHandlers) ProcessSessionReminders(c fiber.Ctx) error {
	result, err := h.reminderProcessor.Run(c.Context())
	if err != nil {
		return functionError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"processed_reminders": result,
		"processed_at":        time.Now().UTC().Format(time.RFC3339),
	})
}

type galleryDownloadRequest struct {
	Action           string `json:"action"`
	GalleryID        string `json:"galleryId"`
	JobID            string `json:"jobId"`
	DownloadFileName string `json:"downloadFileName"`
}

// GalleryDownload requests an archive job or polls the status of one.
func (h *APIHandlers) GalleryDownload(c fiber.Ctx) error {
	viewerID, err := viewerFromBearer(c, h.authSecret)
	if err != nil {
		return unauthorized(c, err.Error())
	}

	var req galleryDownloadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	switch req.Action {
	case "request":
		if req.GalleryID == "" {
			return badRequest(c, "galleryId is required")
		}

		status, err := h.downloadService.Request(c.Context(), req.GalleryID, viewerID, req.DownloadFileName)
		if err != nil {
			return h.downloadError(c, err)
		}

		return functionSuccess(c, "request", status)
	case "status":
		if req.JobID == "" {
			return badRequest(c, "jobId is required")
		}

		status, err := h.downloadService.Status(c.Context(), req.JobID, viewerID)
		if err != nil {
			return h.downloadError(c, err)
		}

		return functionSuccess(c, "status", status)
	default:
		return badRequest(c, "action must be 'request' or 'status'")
	}
}

// GalleryDownloadStream builds the archive on the fly and streams it to the
// client, bypassing the job pipeline. Failed assets are listed in an error
// manifest inside the archive instead of aborting the download.
func (h *APIHandlers) GalleryDownloadStream(c fiber.Ctx) error {
	galleryID := c.Query("galleryId")
	if galleryID == "" {
		return badRequest(c, "galleryId is required")
	}

	var (
		viewerID string
		err      error
	)

	if token := c.Query("accessToken"); token != "" {
		viewerID, err = viewerFromToken(token, h.authSecret)
	} else {
		viewerID, err = viewerFromBearer(c, h.authSecret)
	}

	if err != nil {
		return unauthorized(c, err.Error())
	}

	gallery, err := h.downloadService.Authorize(c.Context(), galleryID, viewerID)
	if err != nil {
		return h.downloadError(c, err)
	}

	fileName := c.Query("downloadFileName")
	if fileName != "" {
		fileName = downloads.SanitizeArchiveName(fileName)
	} else {
		fileName = downloads.DefaultArchiveName(gallery)
	}

	c.Attachment(fileName)

	variant := downloads.ResolveAssetVariant(gallery.Type)

	written, failures, err := h.zipBuilder.Stream(c.Context(), galleryID, variant, c.Response().BodyWriter(), true)
	if err != nil {
		if written == 0 {
			c.Response().ResetBody()

			return functionError(c, err)
		}

		// Response already carries archive bytes; too late to change status.
		h.logger.ErrorContext(c.Context(), "archive stream ended early",
			"gallery_id", galleryID, "written", written, "error", err)

		return nil
	}

	if len(failures) > 0 {
		h.logger.WarnContext(c.Context(), "archive streamed with failed assets",
			"gallery_id", galleryID, "written", written, "failed", len(failures))
	}

	return nil
}

type downloadProcessorRequest struct {
	Action string `json:"action"`
}

// GalleryDownloadProcessor runs one processing tick. The default ("tick")
// claims and builds pending jobs, then purges expired ones; the two phases
// can also be invoked on their own.
func (h *APIHandlers) GalleryDownloadProcessor(c fiber.Ctx) error {
	var req downloadProcessorRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	action := req.Action
	if action == "" {
		action = "tick"
	}

	var (
		processed int
		cleaned   int
		err       error
	)

	switch action {
	case "tick", "process-pending":
		processed, err = h.downloadProcessor.ProcessPending(c.Context())
		if err != nil {
			return functionError(c, err)
		}
	case "cleanup-expired":
	default:
		return badRequest(c, "action must be 'process-pending', 'cleanup-expired' or 'tick'")
	}

	if action == "tick" || action == "cleanup-expired" {
		cleaned, err = h.downloadProcessor.CleanupExpired(c.Context())
		if err != nil {
			return functionError(c, err)
		}
	}

	return functionSuccess(c, action, fiber.Map{
		"processed_jobs": processed,
		"cleaned_jobs":   cleaned,
	})
}

// ServeObject serves a stored object referenced by a signed URL token.
func (h *APIHandlers) ServeObject(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return badRequest(c, "token is required")
	}

	bucket, path, fileName, err := h.objects.VerifyToken(token)
	if err != nil {
		return unauthorized(c, err.Error())
	}

	reader, err := h.objects.Open(c.Context(), bucket, path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return notFound(c, "object not found")
		}

		return internalError(c, err)
	}

	if fileName != "" {
		c.Attachment(fileName)
	}

	if strings.HasSuffix(path, ".zip") {
		c.Set(fiber.HeaderContentType, "application/zip")
	} else {
		c.Set(fiber.HeaderContentType, "application/octet-stream")
	}

	return c.SendStream(reader)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return badRequest(c, "organization_id is required")
	}

	workflows, err := h.persistence.Workflows(c.Context(), organizationID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var wf models.Workflow
	if err := c.Bind().JSON(&wf); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	wf.ID = ""

	if err := h.validator.Struct(wf); err != nil {
		return badRequest(c, "Invalid workflow: "+err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), &wf); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.persistence.WorkflowByID(c.Context(), id); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	var wf models.Workflow
	if err := c.Bind().JSON(&wf); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	wf.ID = id

	if err := h.validator.Struct(wf); err != nil {
		return badRequest(c, "Invalid workflow: "+err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), &wf); err != nil {
		return internalError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowSteps(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.persistence.WorkflowByID(c.Context(), id); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	steps, err := h.persistence.StepsByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"steps": steps})
}

func (h *APIHandlers) SaveWorkflowStep(c fiber.Ctx) error {
	var step models.WorkflowStep
	if err := c.Bind().JSON(&step); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	step.WorkflowID = c.Params("id")

	if _, err := h.persistence.WorkflowByID(c.Context(), step.WorkflowID); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	if err := h.validator.Struct(step); err != nil {
		return badRequest(c, "Invalid workflow step: "+err.Error())
	}

	if err := h.persistence.SaveWorkflowStep(c.Context(), &step); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(step)
}

func (h *APIHandlers) downloadError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, downloads.ErrAccessDenied):
		return forbidden(c, "you do not have access to this gallery")
	case errors.Is(err, downloads.ErrNoAssets):
		return badRequest(c, "gallery has no downloadable assets")
	case persistence.IsGalleryNotFound(err):
		return notFound(c, "gallery not found")
	case persistence.IsDownloadJobNotFound(err):
		return notFound(c, "download job not found")
	default:
		return functionError(c, err)
	}
}
