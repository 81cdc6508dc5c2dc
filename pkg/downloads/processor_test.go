package downloads

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/memory"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
)

func uploadAssetObject(t *testing.T, objects *memObjects, assetID string, content string) {
	t.Helper()

	path := testGalleryID + "/web/" + assetID + ".jpg"
	err := objects.Upload(context.Background(), storage.BucketGalleryImages, path, strings.NewReader(content))
	require.NoError(t, err)
}

func seedPendingJob(t *testing.T, store *memory.Persistence, assetCount int) *models.GalleryDownloadJob {
	t.Helper()

	job := &models.GalleryDownloadJob{
		GalleryID:    testGalleryID,
		ViewerID:     testOwnerID,
		Status:       models.DownloadJobPending,
		AssetVariant: models.AssetVariantWeb,
		AssetCount:   assetCount,
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, store.CreateDownloadJob(context.Background(), job))

	return job
}

func TestProcessor_ProcessPending_BuildsArchive(t *testing.T) {
	store := memory.NewPersistence()
	seedGalleryFixture(store)
	seedReadyAsset(store, "asset-1", "IMG_0001.jpg")
	seedReadyAsset(store, "asset-2", "IMG_0002.jpg")

	objects := newMemObjects()
	uploadAssetObject(t, objects, "asset-1", "first photo bytes")
	uploadAssetObject(t, objects, "asset-2", "second photo bytes")

	job := seedPendingJob(t, store, 2)

	builder := NewZipBuilder(store, objects, testLogger())
	processor := NewProcessor(store, objects, builder, testLogger())

	processed, err := processor.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	updated, err := store.DownloadJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobReady, updated.Status)
	assert.Equal(t, testGalleryID+"/"+job.ID+".zip", updated.StoragePath)
	require.NotNil(t, updated.ReadyAt)

	reader, err := objects.Open(context.Background(), storage.BucketGalleryDownloads, updated.StoragePath)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	archive, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, archive.File, 2)

	names := []string{archive.File[0].Name, archive.File[1].Name}
	assert.ElementsMatch(t, []string{"IMG_0001.jpg", "IMG_0002.jpg"}, names)
}

func TestProcessor_ProcessPending_NoPendingJobs(t *testing.T) {
	store := memory.NewPersistence()
	objects := newMemObjects()

	builder := NewZipBuilder(store, objects, testLogger())
	processor := NewProcessor(store, objects, builder, testLogger())

	processed, err := processor.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestProcessor_ProcessPending_IgnoresExpiredPendingJob(t *testing.T) {
	store := memory.NewPersistence()
	seedGalleryFixture(store)
	seedReadyAsset(store, "asset-1", "IMG_0001.jpg")

	job := &models.GalleryDownloadJob{
		GalleryID:    testGalleryID,
		ViewerID:     testOwnerID,
		Status:       models.DownloadJobPending,
		AssetVariant: models.AssetVariantWeb,
		AssetCount:   1,
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, store.CreateDownloadJob(context.Background(), job))

	objects := newMemObjects()
	builder := NewZipBuilder(store, objects, testLogger())
	processor := NewProcessor(store, objects, builder, testLogger())

	processed, err := processor.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)

	unchanged, err := store.DownloadJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobPending, unchanged.Status)
}

func TestProcessor_ProcessPending_AllAssetsMissingMarksJobFailed(t *testing.T) {
	store := memory.NewPersistence()
	seedGalleryFixture(store)
	seedReadyAsset(store, "asset-1", "IMG_0001.jpg")

	// No asset object in storage, so every fetch fails.
	objects := newMemObjects()
	job := seedPendingJob(t, store, 1)

	builder := NewZipBuilder(store, objects, testLogger())
	processor := NewProcessor(store, objects, builder, testLogger())

	processed, err := processor.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	failed, err := store.DownloadJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "no assets could be archived")
	require.NotNil(t, failed.FailedAt)

	assert.False(t, objects.has(storage.BucketGalleryDownloads, testGalleryID+"/"+job.ID+".zip"))
}

func TestProcessor_CleanupExpired(t *testing.T) {
	store := memory.NewPersistence()
	seedGalleryFixture(store)

	objects := newMemObjects()
	archivePath := testGalleryID + "/job-old.zip"
	err := objects.Upload(context.Background(), storage.BucketGalleryDownloads, archivePath, strings.NewReader("zip bytes"))
	require.NoError(t, err)

	job := &models.GalleryDownloadJob{
		GalleryID:    testGalleryID,
		ViewerID:     testOwnerID,
		Status:       models.DownloadJobReady,
		AssetVariant: models.AssetVariantWeb,
		AssetCount:   1,
		StoragePath:  archivePath,
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, store.CreateDownloadJob(context.Background(), job))

	builder := NewZipBuilder(store, objects, testLogger())
	processor := NewProcessor(store, objects, builder, testLogger())

	cleaned, err := processor.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	expired, err := store.DownloadJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobExpired, expired.Status)
	require.NotNil(t, expired.ExpiredAt)

	assert.False(t, objects.has(storage.BucketGalleryDownloads, archivePath))
}

func TestProcessor_CleanupExpired_MissingArchiveTolerated(t *testing.T) {
	store := memory.NewPersistence()

	job := &models.GalleryDownloadJob{
		GalleryID:    testGalleryID,
		ViewerID:     testOwnerID,
		Status:       models.DownloadJobFailed,
		AssetVariant: models.AssetVariantWeb,
		AssetCount:   1,
		StoragePath:  testGalleryID + "/job-gone.zip",
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, store.CreateDownloadJob(context.Background(), job))

	objects := newMemObjects()
	builder := NewZipBuilder(store, objects, testLogger())
	processor := NewProcessor(store, objects, builder, testLogger())

	cleaned, err := processor.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	expired, err := store.DownloadJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobExpired, expired.Status)
}

func TestProcessor_CleanupExpired_LeavesLiveJobsAlone(t *testing.T) {
	store := memory.NewPersistence()
	job := seedPendingJob(t, store, 1)

	objects := newMemObjects()
	builder := NewZipBuilder(store, objects, testLogger())
	processor := NewProcessor(store, objects, builder, testLogger())

	cleaned, err := processor.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, cleaned)

	unchanged, err := store.DownloadJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadJobPending, unchanged.Status)
}
