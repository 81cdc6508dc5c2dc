package web_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/downloads"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/eventbus"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/memory"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/registry"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/reminders"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/web"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

const testAuthSecret = "test-auth-secret"

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, eventbus.Event) error { return nil }

type testEnv struct {
	app     *fiber.App
	store   *memory.Persistence
	objects *storage.Filesystem
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewPersistence()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settingsService := settings.NewService(store, nil, logger)
	dispatcher := workflow.NewDispatcher(store, settingsService, nopPublisher{}, logger)
	resolver := workflow.NewEntityResolver(store, logger)
	executor := workflow.NewExecutor(store, registry.NewRegistry(logger), resolver, logger)
	reminderProcessor := reminders.NewProcessor(store, dispatcher, logger)

	objects := storage.NewFilesystem(t.TempDir(), "http://localhost:9091", []byte(testAuthSecret))
	downloadService := downloads.NewService(store, objects, logger)
	zipBuilder := downloads.NewZipBuilder(store, objects, logger)
	downloadProcessor := downloads.NewProcessor(store, objects, zipBuilder, logger)

	handlers := web.NewAPIHandlers(
		store,
		dispatcher,
		executor,
		reminderProcessor,
		downloadService,
		downloadProcessor,
		zipBuilder,
		objects,
		validator.New(validator.WithRequiredStructEnabled()),
		testAuthSecret,
		logger,
	)

	app := fiber.New()

	functions := app.Group("/functions")
	functions.Post("/workflow-executor", handlers.WorkflowExecutor)
	functions.Post("/process-session-reminders", handlers.ProcessSessionReminders)
	functions.Post("/gallery-download", handlers.GalleryDownload)
	functions.Get("/gallery-download-stream", handlers.GalleryDownloadStream)
	functions.Post("/gallery-download-processor", handlers.GalleryDownloadProcessor)

	app.Get("/objects", handlers.ServeObject)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/steps", handlers.GetWorkflowSteps)
	w.Post("/:id/steps", handlers.SaveWorkflowStep)

	return &testEnv{app: app, store: store, objects: objects}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func seedActiveWorkflow(t *testing.T, env *testEnv) *models.Workflow {
	t.Helper()

	wf := &models.Workflow{
		ID:                "wf-1",
		Name:              "Lead status automation",
		TriggerType:       models.TriggerLeadStatusChanged,
		TriggerEntityType: models.EntityLead,
		IsActive:          true,
		OrganizationID:    "org-1",
	}
	require.NoError(t, env.store.SaveWorkflow(context.Background(), wf))

	return wf
}

func seedGallery(t *testing.T, env *testEnv) {
	t.Helper()

	env.store.SeedOrganization(&models.Organization{ID: "org-1", OwnerID: "owner-1"})
	env.store.SeedGallery(&models.Gallery{
		ID:             "gallery-1",
		OrganizationID: "org-1",
		Title:          "Kaya Family Wedding",
		Type:           "final",
	})
}

func seedGalleryAsset(t *testing.T, env *testEnv, id, content string) {
	t.Helper()

	now := time.Now().UTC()
	webPath := "gallery-1/web/" + id + ".jpg"
	originalPath := "gallery-1/original/" + id + ".jpg"
	env.store.SeedGalleryAsset(&models.GalleryAsset{
		ID:                  id,
		GalleryID:           "gallery-1",
		StoragePathWeb:      webPath,
		StoragePathOriginal: originalPath,
		OriginalName:        id + ".jpg",
		Status:              "ready",
		CreatedAt:           now,
		UpdatedAt:           now,
	})

	for _, path := range []string{webPath, originalPath} {
		err := env.objects.Upload(context.Background(), storage.BucketGalleryImages, path, strings.NewReader(content))
		require.NoError(t, err)
	}
}

func viewerToken(t *testing.T, viewerID string) string {
	t.Helper()

	token, err := web.IssueViewerToken(viewerID, testAuthSecret, nil)
	require.NoError(t, err)

	return token
}

func TestWorkflowExecutor_Trigger(t *testing.T) {
	env := setupTestApp(t)
	seedActiveWorkflow(t, env)

	req := jsonRequest(t, http.MethodPost, "/functions/workflow-executor", fiber.Map{
		"action":              "trigger",
		"trigger_type":        "lead_status_changed",
		"trigger_entity_type": "lead",
		"trigger_entity_id":   "lead-1",
		"organization_id":     "org-1",
		"trigger_data":        fiber.Map{"new_status": "booked"},
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "trigger", body["action"])
	assert.NotEmpty(t, body["processed_at"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), result["triggered_workflows"])
	require.Len(t, result["execution_ids"], 1)
}

func TestWorkflowExecutor_TriggerValidation(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/workflow-executor", fiber.Map{
		"action":              "trigger",
		"trigger_type":        "lead_status_changed",
		"trigger_entity_type": "lead",
		"trigger_entity_id":   "lead-1",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWorkflowExecutor_UnknownAction(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/workflow-executor", fiber.Map{
		"action": "reticulate",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWorkflowExecutor_Execute(t *testing.T) {
	env := setupTestApp(t)
	seedActiveWorkflow(t, env)

	triggerReq := jsonRequest(t, http.MethodPost, "/functions/workflow-executor", fiber.Map{
		"action":              "trigger",
		"trigger_type":        "lead_status_changed",
		"trigger_entity_type": "lead",
		"trigger_entity_id":   "lead-1",
		"organization_id":     "org-1",
	})

	resp, err := env.app.Test(triggerReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)["result"].(map[string]any)
	executionID := result["execution_ids"].([]any)[0].(string)

	executeReq := jsonRequest(t, http.MethodPost, "/functions/workflow-executor", fiber.Map{
		"action":       "execute",
		"execution_id": executionID,
	})

	resp, err = env.app.Test(executeReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "execute", body["action"])

	executeResult, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, executionID, executeResult["execution_id"])
	assert.Equal(t, float64(0), executeResult["steps_failed"])
}

func TestWorkflowExecutor_ExecuteUnknownExecution(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/workflow-executor", fiber.Map{
		"action":       "execute",
		"execution_id": "missing",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWorkflowExecutor_ExecuteWithoutID(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/workflow-executor", fiber.Map{
		"action": "execute",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessSessionReminders(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/process-session-reminders", nil)

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	result, ok := body["processed_reminders"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), result["processed"])
}

func TestGalleryDownload_RequiresBearer(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download", fiber.Map{
		"action":    "request",
		"galleryId": "gallery-1",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGalleryDownload_RequestCreatesJob(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)
	seedGalleryAsset(t, env, "asset-1", "photo bytes")

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download", fiber.Map{
		"action":    "request",
		"galleryId": "gallery-1",
	})
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "owner-1"))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "request", body["action"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pending", result["status"])
	assert.NotEmpty(t, result["jobId"])
}

func TestGalleryDownload_StrangerForbidden(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)
	seedGalleryAsset(t, env, "asset-1", "photo bytes")

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download", fiber.Map{
		"action":    "request",
		"galleryId": "gallery-1",
	})
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "stranger"))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGalleryDownload_EmptyGallery(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download", fiber.Map{
		"action":    "request",
		"galleryId": "gallery-1",
	})
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "owner-1"))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGalleryDownload_UnknownGallery(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download", fiber.Map{
		"action":    "request",
		"galleryId": "missing",
	})
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "owner-1"))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGalleryDownload_StatusUnknownJob(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download", fiber.Map{
		"action": "status",
		"jobId":  "missing",
	})
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "owner-1"))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGalleryDownloadStream(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)
	seedGalleryAsset(t, env, "asset-1", "photo bytes")

	target := "/functions/gallery-download-stream?galleryId=gallery-1&accessToken=" +
		url.QueryEscape(viewerToken(t, "owner-1"))

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "Final_")

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, archive.File, 1)
	assert.Equal(t, "asset-1.jpg", archive.File[0].Name)
}

func TestGalleryDownloadStream_StrangerForbidden(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)
	seedGalleryAsset(t, env, "asset-1", "photo bytes")

	target := "/functions/gallery-download-stream?galleryId=gallery-1&accessToken=" +
		url.QueryEscape(viewerToken(t, "stranger"))

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGalleryDownloadStream_InvalidToken(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)

	target := "/functions/gallery-download-stream?galleryId=gallery-1&accessToken=not-a-jwt"

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGalleryDownloadProcessor(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)
	seedGalleryAsset(t, env, "asset-1", "photo bytes")

	job := &models.GalleryDownloadJob{
		GalleryID:    "gallery-1",
		ViewerID:     "owner-1",
		Status:       models.DownloadJobPending,
		AssetVariant: models.AssetVariantWeb,
		AssetCount:   1,
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, env.store.CreateDownloadJob(context.Background(), job))

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download-processor", nil)

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)["result"].(map[string]any)
	assert.Equal(t, float64(1), result["processed_jobs"])
	assert.Equal(t, float64(0), result["cleaned_jobs"])

	ready, err := env.store.DownloadJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobReady, ready.Status)
}

func TestGalleryDownloadProcessor_CleanupExpiredAction(t *testing.T) {
	env := setupTestApp(t)
	seedGallery(t, env)
	seedGalleryAsset(t, env, "asset-1", "photo bytes")

	pending := &models.GalleryDownloadJob{
		GalleryID:    "gallery-1",
		ViewerID:     "owner-1",
		Status:       models.DownloadJobPending,
		AssetVariant: models.AssetVariantWeb,
		AssetCount:   1,
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, env.store.CreateDownloadJob(context.Background(), pending))

	readyAt := time.Now().UTC().Add(-4 * time.Hour)
	expired := &models.GalleryDownloadJob{
		GalleryID:    "gallery-1",
		ViewerID:     "owner-1",
		Status:       models.DownloadJobReady,
		AssetVariant: models.AssetVariantWeb,
		AssetCount:   1,
		StoragePath:  "gallery-1/stale.zip",
		ReadyAt:      &readyAt,
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, env.store.CreateDownloadJob(context.Background(), expired))

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download-processor",
		map[string]any{"action": "cleanup-expired"})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)["result"].(map[string]any)
	assert.Equal(t, float64(0), result["processed_jobs"])
	assert.Equal(t, float64(1), result["cleaned_jobs"])

	untouched, err := env.store.DownloadJobByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobPending, untouched.Status)

	cleaned, err := env.store.DownloadJobByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobExpired, cleaned.Status)
}

func TestGalleryDownloadProcessor_UnknownAction(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/functions/gallery-download-processor",
		map[string]any{"action": "rebuild"})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeObject(t *testing.T) {
	env := setupTestApp(t)

	err := env.objects.Upload(context.Background(), storage.BucketGalleryDownloads,
		"gallery-1/job-1.zip", strings.NewReader("zip bytes"))
	require.NoError(t, err)

	signed, err := env.objects.SignedURL(storage.BucketGalleryDownloads, "gallery-1/job-1.zip", "Final_Kaya.zip", time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)

	target := "/objects?token=" + url.QueryEscape(parsed.Query().Get("token"))

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "Final_Kaya.zip")

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(data))
}

func TestServeObject_InvalidToken(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/objects?token=garbage", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWorkflowCRUD(t *testing.T) {
	env := setupTestApp(t)

	createReq := jsonRequest(t, http.MethodPost, "/workflows/", fiber.Map{
		"name":                "Booking confirmation",
		"trigger_type":        "lead_status_changed",
		"trigger_entity_type": "lead",
		"organization_id":     "org-1",
		"is_active":           true,
	})

	resp, err := env.app.Test(createReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NoError(t, resp.Body.Close())
	require.NotEmpty(t, created.ID)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/workflows/"+created.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/workflows/?organization_id=org-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	listBody := decodeBody(t, listResp)
	assert.Equal(t, float64(1), listBody["total_count"])

	updateReq := jsonRequest(t, http.MethodPatch, "/workflows/"+created.ID, fiber.Map{
		"name":                "Booking confirmation v2",
		"trigger_type":        "lead_status_changed",
		"trigger_entity_type": "lead",
		"organization_id":     "org-1",
		"is_active":           false,
	})

	resp, err = env.app.Test(updateReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := env.store.WorkflowByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Booking confirmation v2", updated.Name)
	assert.False(t, updated.IsActive)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodDelete, "/workflows/"+created.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/workflows/"+created.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateWorkflow_Validation(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/workflows/", fiber.Map{
		"name": "Xy",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflows_RequiresOrganization(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/workflows/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWorkflowSteps(t *testing.T) {
	env := setupTestApp(t)
	wf := seedActiveWorkflow(t, env)

	stepReq := jsonRequest(t, http.MethodPost, "/workflows/"+wf.ID+"/steps", fiber.Map{
		"action_type": "send_email",
		"step_order":  1,
		"is_active":   true,
		"action_config": fiber.Map{
			"subject": "Your session is booked",
			"body":    "Hi {{client_name}}!",
		},
	})

	resp, err := env.app.Test(stepReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	listResp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/workflows/"+wf.ID+"/steps", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	body := decodeBody(t, listResp)
	steps, ok := body["steps"].([]any)
	require.True(t, ok)
	assert.Len(t, steps, 1)
}

func TestWorkflowSteps_UnknownWorkflow(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/workflows/missing/steps", fiber.Map{
		"action_type": "send_email",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
