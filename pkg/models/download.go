package models

import "time"

// DownloadJobStatus is the lifecycle state of a gallery download job.
type DownloadJobStatus string

const (
	DownloadJobPending    DownloadJobStatus = "pending"
	DownloadJobProcessing DownloadJobStatus = "processing"
	DownloadJobReady      DownloadJobStatus = "ready"
	DownloadJobFailed     DownloadJobStatus = "failed"
	DownloadJobExpired    DownloadJobStatus = "expired"
)

// Asset variants served by download jobs.
const (
	AssetVariantWeb      = "web"
	AssetVariantOriginal = "original"
)

// GalleryDownloadJob is a persisted unit of archive-building work.
// asset_count + assets_updated_at form the content fingerprint used to
// dedupe requests against an unchanged gallery.
type GalleryDownloadJob struct {
	ID                  string            `json:"id"`
	GalleryID           string            `json:"gallery_id"`
	ViewerID            string            `json:"viewer_id"`
	Status              DownloadJobStatus `json:"status"`
	GalleryType         string            `json:"gallery_type"`
	AssetVariant        string            `json:"asset_variant"`
	AssetCount          int               `json:"asset_count"`
	AssetsUpdatedAt     *time.Time        `json:"assets_updated_at,omitempty"`
	StoragePath         string            `json:"storage_path,omitempty"`
	DownloadFileName    string            `json:"download_file_name,omitempty"`
	ErrorMessage        string            `json:"error_message,omitempty"`
	ExpiresAt           time.Time         `json:"expires_at"`
	ProcessingStartedAt *time.Time        `json:"processing_started_at,omitempty"`
	ReadyAt             *time.Time        `json:"ready_at,omitempty"`
	FailedAt            *time.Time        `json:"failed_at,omitempty"`
	ExpiredAt           *time.Time        `json:"expired_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Gallery is a client-facing photo gallery attached to a session.
type Gallery struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
	Type           string `json:"type"` // "proof" or "final"
	SessionID      string `json:"session_id,omitempty"`
}

// GalleryAsset is one photo in a gallery, stored in two variants.
type GalleryAsset struct {
	ID                  string    `json:"id"`
	GalleryID           string    `json:"gallery_id"`
	StoragePathWeb      string    `json:"storage_path_web,omitempty"`
	StoragePathOriginal string    `json:"storage_path_original,omitempty"`
	OriginalName        string    `json:"original_name,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// StoragePath returns the object path for the requested variant.
func (a *GalleryAsset) StoragePath(variant string) string {
	if variant == AssetVariantOriginal {
		return a.StoragePathOriginal
	}

	return a.StoragePathWeb
}

// GalleryAccessGrant lets a non-owner viewer access a gallery until expiry.
type GalleryAccessGrant struct {
	GalleryID string    `json:"gallery_id"`
	ViewerID  string    `json:"viewer_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Organization is the owning tenant for sessions and galleries.
type Organization struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name,omitempty"`
}
