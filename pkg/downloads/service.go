package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
)

const (
	// jobTTL is how long a job and its archive stay valid.
	jobTTL = 3 * time.Hour
	// signedURLTTL is the lifetime of one issued download URL.
	signedURLTTL = 15 * time.Minute
)

var (
	// ErrAccessDenied indicates the viewer may not download this gallery.
	ErrAccessDenied = errors.New("access to gallery denied")
	// ErrNoAssets indicates the gallery has no ready assets to download.
	ErrNoAssets = errors.New("gallery has no downloadable assets")
)

// JobStatus is the client-facing view of a download job.
type JobStatus struct {
	JobID        string     `json:"jobId"`
	Status       string     `json:"status"`
	DownloadURL  string     `json:"downloadUrl,omitempty"`
	URLExpiresAt *time.Time `json:"urlExpiresAt,omitempty"`
	JobExpiresAt time.Time  `json:"jobExpiresAt"`
	AssetCount   int        `json:"assetCount"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// Service handles download requests and status polls: access checks,
// fingerprint-based job reuse and signed URL issuance.
type Service struct {
	persistence persistence.Persistence
	objects     storage.ObjectStorage
	logger      *slog.Logger
}

func NewService(p persistence.Persistence, objects storage.ObjectStorage, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		objects:     objects,
		logger:      logger.With("module", "download_service"),
	}
}

// Request returns an existing live job for the gallery's current content,
// or creates a pending one. The fingerprint (ready-asset count + latest
// update timestamp) makes repeat requests against an unchanged gallery
// converge on a single job.
func (s *Service) Request(ctx context.Context, galleryID, viewerID, fileName string) (*JobStatus, error) {
	gallery, err := s.authorize(ctx, galleryID, viewerID)
	if err != nil {
		return nil, err
	}

	variant := ResolveAssetVariant(gallery.Type)

	if fileName != "" {
		fileName = SanitizeArchiveName(fileName)
	} else {
		fileName = DefaultArchiveName(gallery)
	}

	assetCount, assetsUpdatedAt, err := s.persistence.GalleryAssetStats(ctx, galleryID)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery asset stats: %w", err)
	}

	if assetCount == 0 {
		return nil, ErrNoAssets
	}

	now := time.Now().UTC()

	existing, err := s.persistence.ReusableDownloadJob(ctx, galleryID, variant, assetCount, assetsUpdatedAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to look up reusable job: %w", err)
	}

	if existing != nil {
		status, err := s.status(existing)
		if err == nil {
			s.logger.InfoContext(ctx, "reusing download job",
				"job_id", existing.ID, "status", existing.Status)

			return status, nil
		}

		// The archive exists but its URL cannot be minted; retire the job
		// and build a fresh one instead of surfacing the signing error.
		s.logger.WarnContext(ctx, "retiring unusable download job",
			"job_id", existing.ID, "error", err)
		s.markFailed(ctx, existing, err)
	}

	job := &models.GalleryDownloadJob{
		GalleryID:        galleryID,
		ViewerID:         viewerID,
		Status:           models.DownloadJobPending,
		GalleryType:      gallery.Type,
		AssetVariant:     variant,
		AssetCount:       assetCount,
		AssetsUpdatedAt:  assetsUpdatedAt,
		DownloadFileName: fileName,
		ExpiresAt:        now.Add(jobTTL),
	}

	err = s.persistence.CreateDownloadJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create download job: %w", err)
	}

	s.logger.InfoContext(ctx, "download job created",
		"job_id", job.ID, "gallery_id", galleryID, "asset_count", assetCount)

	return s.status(job)
}

// Status returns the current state of a job the viewer owns, with a fresh
// signed URL when the archive is ready.
func (s *Service) Status(ctx context.Context, jobID, viewerID string) (*JobStatus, error) {
	job, err := s.persistence.DownloadJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.ViewerID != viewerID {
		if _, err := s.authorize(ctx, job.GalleryID, viewerID); err != nil {
			return nil, err
		}
	}

	if job.Status != models.DownloadJobExpired && !job.ExpiresAt.After(time.Now().UTC()) {
		s.expire(ctx, job)
	}

	return s.status(job)
}

// expire retires a job whose TTL passed before the cleanup tick reached it,
// removing its archive so the poll response and storage agree.
func (s *Service) expire(ctx context.Context, job *models.GalleryDownloadJob) {
	if job.StoragePath != "" {
		err := s.objects.Remove(ctx, storage.BucketGalleryDownloads, job.StoragePath)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to remove expired archive",
				"job_id", job.ID, "error", err)
		}
	}

	expiredAt := time.Now().UTC()
	job.Status = models.DownloadJobExpired
	job.ExpiredAt = &expiredAt

	if err := s.persistence.UpdateDownloadJob(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark job expired",
			"job_id", job.ID, "error", err)
	}
}

func (s *Service) markFailed(ctx context.Context, job *models.GalleryDownloadJob, cause error) {
	failedAt := time.Now().UTC()
	job.Status = models.DownloadJobFailed
	job.ErrorMessage = cause.Error()
	job.FailedAt = &failedAt

	if err := s.persistence.UpdateDownloadJob(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark job failed",
			"job_id", job.ID, "error", err)
	}
}

// Authorize checks download access for direct streaming callers.
func (s *Service) Authorize(ctx context.Context, galleryID, viewerID string) (*models.Gallery, error) {
	return s.authorize(ctx, galleryID, viewerID)
}

// authorize grants access to the organization owner or a viewer holding an
// unexpired access grant.
func (s *Service) authorize(ctx context.Context, galleryID, viewerID string) (*models.Gallery, error) {
	gallery, err := s.persistence.GalleryByID(ctx, galleryID)
	if err != nil {
		return nil, err
	}

	organization, err := s.persistence.OrganizationByID(ctx, gallery.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery organization: %w", err)
	}

	if organization.OwnerID == viewerID {
		return gallery, nil
	}

	grant, err := s.persistence.AccessGrant(ctx, galleryID, viewerID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to check access grant: %w", err)
	}

	if grant == nil {
		return nil, ErrAccessDenied
	}

	return gallery, nil
}

func (s *Service) status(job *models.GalleryDownloadJob) (*JobStatus, error) {
	status := &JobStatus{
		JobID:        job.ID,
		Status:       string(job.Status),
		JobExpiresAt: job.ExpiresAt,
		AssetCount:   job.AssetCount,
		ErrorMessage: job.ErrorMessage,
	}

	if job.Status == models.DownloadJobReady && job.StoragePath != "" {
		url, err := s.objects.SignedURL(storage.BucketGalleryDownloads, job.StoragePath, job.DownloadFileName, signedURLTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to sign download URL: %w", err)
		}

		expires := time.Now().UTC().Add(signedURLTTL)
		status.DownloadURL = url
		status.URLExpiresAt = &expires
	}

	return status, nil
}
