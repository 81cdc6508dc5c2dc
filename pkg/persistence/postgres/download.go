package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
)

// DownloadRepository handles gallery and download job database operations.
type DownloadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDownloadRepository creates a new download repository.
func NewDownloadRepository(db *sql.DB, logger *slog.Logger) *DownloadRepository {
	return &DownloadRepository{db: db, logger: logger}
}

const downloadJobColumns = `
			id
		  , gallery_id
		  , viewer_id
		  , status
		  , gallery_type
		  , asset_variant
		  , asset_count
		  , assets_updated_at
		  , storage_path
		  , error_message
		  , expires_at
		  , processing_started_at
		  , ready_at
		  , failed_at
		  , expired_at
		  , created_at
`

// GalleryByID returns a gallery row.
func (r *DownloadRepository) GalleryByID(ctx context.Context, id string) (*models.Gallery, error) {
	query := `
		SELECT
			id
		  , organization_id
		  , title
		  , type
		  , session_id
		FROM galleries
		WHERE id = $1
	`

	var (
		gallery   models.Gallery
		sessionID sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&gallery.ID,
		&gallery.OrganizationID,
		&gallery.Title,
		&gallery.Type,
		&sessionID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrGalleryNotFound
		}

		return nil, fmt.Errorf("failed to query gallery: %w", err)
	}

	gallery.SessionID = sessionID.String

	return &gallery, nil
}

// OrganizationByID returns an organization row.
func (r *DownloadRepository) OrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `SELECT id, owner_id, name FROM organizations WHERE id = $1`

	var (
		organization models.Organization
		name         sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&organization.ID,
		&organization.OwnerID,
		&name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to query organization: %w", err)
	}

	organization.Name = name.String

	return &organization, nil
}

// AccessGrant returns an unexpired grant for the viewer, or nil.
func (r *DownloadRepository) AccessGrant(ctx context.Context, galleryID, viewerID string, now time.Time) (*models.GalleryAccessGrant, error) {
	query := `
		SELECT gallery_id, viewer_id, expires_at
		FROM gallery_access_grants
		WHERE gallery_id = $1 AND viewer_id = $2 AND expires_at > $3
	`

	var grant models.GalleryAccessGrant

	err := r.db.QueryRowContext(ctx, query, galleryID, viewerID, now).Scan(
		&grant.GalleryID,
		&grant.ViewerID,
		&grant.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query access grant: %w", err)
	}

	return &grant, nil
}

// GalleryAssetStats returns the ready-asset count and the latest updated_at.
func (r *DownloadRepository) GalleryAssetStats(ctx context.Context, galleryID string) (int, *time.Time, error) {
	query := `
		SELECT COUNT(*), MAX(updated_at)
		FROM gallery_assets
		WHERE gallery_id = $1 AND status = 'ready'
	`

	var (
		count  int
		latest sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, galleryID).Scan(&count, &latest)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query gallery asset stats: %w", err)
	}

	if !latest.Valid {
		return count, nil, nil
	}

	return count, &latest.Time, nil
}

// GalleryAssets returns a page of ready assets ordered by creation time.
func (r *DownloadRepository) GalleryAssets(ctx context.Context, galleryID string, offset, limit int) ([]*models.GalleryAsset, error) {
	query := `
		SELECT
			id
		  , gallery_id
		  , storage_path_web
		  , storage_path_original
		  , original_name
		  , status
		  , created_at
		  , updated_at
		FROM gallery_assets
		WHERE gallery_id = $1 AND status = 'ready'
		ORDER BY created_at
		OFFSET $2 LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, galleryID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query gallery assets: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	assets := make([]*models.GalleryAsset, 0)

	for rows.Next() {
		var (
			asset        models.GalleryAsset
			pathWeb      sql.NullString
			pathOriginal sql.NullString
			originalName sql.NullString
		)

		err := rows.Scan(
			&asset.ID,
			&asset.GalleryID,
			&pathWeb,
			&pathOriginal,
			&originalName,
			&asset.Status,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gallery asset: %w", err)
		}

		asset.StoragePathWeb = pathWeb.String
		asset.StoragePathOriginal = pathOriginal.String
		asset.OriginalName = originalName.String

		assets = append(assets, &asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gallery assets: %w", err)
	}

	return assets, nil
}

// CreateJob inserts a new download job.
func (r *DownloadRepository) CreateJob(ctx context.Context, job *models.GalleryDownloadJob) error {
	if job.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate job ID: %w", err)
		}

		job.ID = id.String()
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO gallery_download_jobs (id, gallery_id, viewer_id, status,
			gallery_type, asset_variant, asset_count, assets_updated_at,
			storage_path, error_message, expires_at, processing_started_at,
			ready_at, failed_at, expired_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.GalleryID,
		job.ViewerID,
		job.Status,
		job.GalleryType,
		job.AssetVariant,
		job.AssetCount,
		nullableTime(job.AssetsUpdatedAt),
		nullableString(job.StoragePath),
		nullableString(job.ErrorMessage),
		job.ExpiresAt,
		nullableTime(job.ProcessingStartedAt),
		nullableTime(job.ReadyAt),
		nullableTime(job.FailedAt),
		nullableTime(job.ExpiredAt),
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create download job: %w", err)
	}

	return nil
}

// JobByID returns a download job.
func (r *DownloadRepository) JobByID(ctx context.Context, id string) (*models.GalleryDownloadJob, error) {
	query := `
		SELECT ` + downloadJobColumns + `
		FROM gallery_download_jobs
		WHERE id = $1
	`

	job, err := r.scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrDownloadJobNotFound
		}

		return nil, fmt.Errorf("failed to scan download job: %w", err)
	}

	return job, nil
}

// Reusable returns the newest live job matching the variant and content
// fingerprint, or nil when the gallery changed since every existing job.
func (r *DownloadRepository) Reusable(ctx context.Context, galleryID, variant string, assetCount int, assetsUpdatedAt *time.Time, now time.Time) (*models.GalleryDownloadJob, error) {
	query := `
		SELECT ` + downloadJobColumns + `
		FROM gallery_download_jobs
		WHERE gallery_id = $1
		  AND asset_variant = $2
		  AND asset_count = $3
		  AND assets_updated_at IS NOT DISTINCT FROM $4
		  AND expires_at > $5
		  AND status IN ('pending', 'processing', 'ready')
		ORDER BY created_at DESC
		LIMIT 1
	`

	job, err := r.scanJob(r.db.QueryRowContext(ctx, query,
		galleryID, variant, assetCount, nullableTime(assetsUpdatedAt), now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan reusable job: %w", err)
	}

	return job, nil
}

// Pending returns the oldest unexpired pending jobs.
func (r *DownloadRepository) Pending(ctx context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error) {
	query := `
		SELECT ` + downloadJobColumns + `
		FROM gallery_download_jobs
		WHERE status = 'pending' AND expires_at > $1
		ORDER BY created_at
		LIMIT $2
	`

	return r.queryJobs(ctx, query, now, limit)
}

// Claim flips a job from pending to processing. A zero row count means a
// concurrent tick claimed the job first.
func (r *DownloadRepository) Claim(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE gallery_download_jobs
		SET status = 'processing', processing_started_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, startedAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim download job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claimed rows: %w", err)
	}

	return affected > 0, nil
}

// UpdateJob persists the mutable fields of a job.
func (r *DownloadRepository) UpdateJob(ctx context.Context, job *models.GalleryDownloadJob) error {
	query := `
		UPDATE gallery_download_jobs SET
			status = $2,
			storage_path = $3,
			error_message = $4,
			processing_started_at = $5,
			ready_at = $6,
			failed_at = $7,
			expired_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.Status,
		nullableString(job.StoragePath),
		nullableString(job.ErrorMessage),
		nullableTime(job.ProcessingStartedAt),
		nullableTime(job.ReadyAt),
		nullableTime(job.FailedAt),
		nullableTime(job.ExpiredAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update download job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrDownloadJobNotFound
	}

	return nil
}

// Expired returns jobs past expiry not yet marked expired.
func (r *DownloadRepository) Expired(ctx context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error) {
	query := `
		SELECT ` + downloadJobColumns + `
		FROM gallery_download_jobs
		WHERE status <> 'expired' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`

	return r.queryJobs(ctx, query, now, limit)
}

func (r *DownloadRepository) queryJobs(ctx context.Context, query string, args ...any) ([]*models.GalleryDownloadJob, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query download jobs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	jobs := make([]*models.GalleryDownloadJob, 0)

	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download job: %w", err)
		}

		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating download jobs: %w", err)
	}

	return jobs, nil
}

func (r *DownloadRepository) scanJob(row rowScanner) (*models.GalleryDownloadJob, error) {
	var (
		job             models.GalleryDownloadJob
		assetsUpdatedAt sql.NullTime
		storagePath     sql.NullString
		errorMessage    sql.NullString
		startedAt       sql.NullTime
		readyAt         sql.NullTime
		failedAt        sql.NullTime
		expiredAt       sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&job.GalleryID,
		&job.ViewerID,
		&job.Status,
		&job.GalleryType,
		&job.AssetVariant,
		&job.AssetCount,
		&assetsUpdatedAt,
		&storagePath,
		&errorMessage,
		&job.ExpiresAt,
		&startedAt,
		&readyAt,
		&failedAt,
		&expiredAt,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assetsUpdatedAt.Valid {
		job.AssetsUpdatedAt = &assetsUpdatedAt.Time
	}

	job.StoragePath = storagePath.String
	job.ErrorMessage = errorMessage.String

	if startedAt.Valid {
		job.ProcessingStartedAt = &startedAt.Time
	}

	if readyAt.Valid {
		job.ReadyAt = &readyAt.Time
	}

	if failedAt.Valid {
		job.FailedAt = &failedAt.Time
	}

	if expiredAt.Valid {
		job.ExpiredAt = &expiredAt.Time
	}

	return &job, nil
}
