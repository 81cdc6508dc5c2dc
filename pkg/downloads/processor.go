package downloads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
)

const (
	// claimBatchSize bounds how many pending jobs one tick processes.
	claimBatchSize = 1
	// cleanupBatchSize bounds how many expired jobs one tick cleans up.
	cleanupBatchSize = 25
)

// Processor drives download jobs through their lifecycle: claiming pending
// jobs, building archives and expiring old ones.
type Processor struct {
	persistence persistence.Persistence
	objects     storage.ObjectStorage
	builder     *ZipBuilder
	logger      *slog.Logger
}

func NewProcessor(p persistence.Persistence, objects storage.ObjectStorage, builder *ZipBuilder, logger *slog.Logger) *Processor {
	return &Processor{
		persistence: p,
		objects:     objects,
		builder:     builder,
		logger:      logger.With("module", "download_processor"),
	}
}

// ProcessPending claims and processes up to claimBatchSize pending jobs.
// The conditional pending-to-processing update is the mutual exclusion
// between concurrent ticks.
func (p *Processor) ProcessPending(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	pending, err := p.persistence.PendingDownloadJobs(ctx, now, claimBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query pending jobs: %w", err)
	}

	processed := 0

	for _, job := range pending {
		claimed, err := p.persistence.ClaimDownloadJob(ctx, job.ID, time.Now().UTC())
		if err != nil {
			return processed, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
		}

		if !claimed {
			p.logger.InfoContext(ctx, "job claimed by a concurrent tick", "job_id", job.ID)

			continue
		}

		p.process(ctx, job)
		processed++
	}

	return processed, nil
}

// process builds the archive for one claimed job, piping the zip stream
// straight into object storage.
func (p *Processor) process(ctx context.Context, job *models.GalleryDownloadJob) {
	logger := p.logger.With("job_id", job.ID, "gallery_id", job.GalleryID)
	logger.InfoContext(ctx, "processing download job", "asset_count", job.AssetCount)

	objectPath := archivePath(job)

	pipeReader, pipeWriter := io.Pipe()
	uploadDone := make(chan error, 1)

	go func() {
		uploadDone <- p.objects.Upload(ctx, storage.BucketGalleryDownloads, objectPath, pipeReader)
	}()

	written, failures, buildErr := p.builder.Stream(ctx, job.GalleryID, job.AssetVariant, pipeWriter, false)

	// Closing the writer (with the build error, if any) releases the
	// uploader; uploads of aborted streams fail and are cleaned up below.
	_ = pipeWriter.CloseWithError(buildErr)

	uploadErr := <-uploadDone

	if buildErr != nil || uploadErr != nil {
		err := buildErr
		if err == nil {
			err = uploadErr
		}

		logger.ErrorContext(ctx, "download job failed", "error", err)
		p.markFailed(ctx, job, err)

		removeErr := p.objects.Remove(ctx, storage.BucketGalleryDownloads, objectPath)
		if removeErr != nil {
			logger.WarnContext(ctx, "failed to remove partial archive", "error", removeErr)
		}

		return
	}

	readyAt := time.Now().UTC()
	job.Status = models.DownloadJobReady
	job.StoragePath = objectPath
	job.ReadyAt = &readyAt

	if err := p.persistence.UpdateDownloadJob(ctx, job); err != nil {
		logger.ErrorContext(ctx, "failed to mark job ready", "error", err)

		return
	}

	logger.InfoContext(ctx, "download job ready",
		"written", written, "failed_assets", len(failures), "storage_path", objectPath)
}

// CleanupExpired removes the archives of jobs past expiry and marks them
// expired. Missing storage objects are tolerated.
func (p *Processor) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	expired, err := p.persistence.ExpiredDownloadJobs(ctx, now, cleanupBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query expired jobs: %w", err)
	}

	cleaned := 0

	for _, job := range expired {
		if job.StoragePath != "" {
			err := p.objects.Remove(ctx, storage.BucketGalleryDownloads, job.StoragePath)
			if err != nil {
				p.logger.WarnContext(ctx, "failed to remove expired archive",
					"job_id", job.ID, "error", err)
			}
		}

		expiredAt := time.Now().UTC()
		job.Status = models.DownloadJobExpired
		job.ExpiredAt = &expiredAt

		if err := p.persistence.UpdateDownloadJob(ctx, job); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark job expired",
				"job_id", job.ID, "error", err)

			continue
		}

		cleaned++
	}

	return cleaned, nil
}

func (p *Processor) markFailed(ctx context.Context, job *models.GalleryDownloadJob, cause error) {
	failedAt := time.Now().UTC()
	job.Status = models.DownloadJobFailed
	job.ErrorMessage = cause.Error()
	job.FailedAt = &failedAt

	if err := p.persistence.UpdateDownloadJob(ctx, job); err != nil {
		p.logger.ErrorContext(ctx, "failed to mark job failed",
			"job_id", job.ID, "error", err)
	}
}

func archivePath(job *models.GalleryDownloadJob) string {
	return job.GalleryID + "/" + job.ID + ".zip"
}
