package downloads

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/storage"
)

// assetPageSize is how many assets one listing query returns.
const assetPageSize = 100

// errorManifestName collects per-asset fetch failures in the direct stream.
const errorManifestName = "_download_errors.txt"

// ZipBuilder streams gallery assets into a zip archive. Entries are stored
// uncompressed: the assets are already-compressed images, and skipping
// deflate keeps memory bounded to one asset at a time.
type ZipBuilder struct {
	repo    persistence.DownloadRepository
	objects storage.ObjectStorage
	logger  *slog.Logger
}

func NewZipBuilder(repo persistence.DownloadRepository, objects storage.ObjectStorage, logger *slog.Logger) *ZipBuilder {
	return &ZipBuilder{repo: repo, objects: objects, logger: logger.With("module", "zip_builder")}
}

// Stream writes every ready asset of the gallery into out. When
// includeErrorManifest is set, per-asset fetch failures become an
// _download_errors.txt entry instead of aborting the archive. Returns the
// number of assets written and the failure descriptions.
func (b *ZipBuilder) Stream(ctx context.Context, galleryID, variant string, out io.Writer, includeErrorManifest bool) (int, []string, error) {
	archive := zip.NewWriter(out)

	written := 0
	seen := make(map[string]int)

	var failures []string

	for offset := 0; ; offset += assetPageSize {
		assets, err := b.repo.GalleryAssets(ctx, galleryID, offset, assetPageSize)
		if err != nil {
			return written, failures, fmt.Errorf("failed to list gallery assets: %w", err)
		}

		if len(assets) == 0 {
			break
		}

		for _, asset := range assets {
			if err := ctx.Err(); err != nil {
				return written, failures, err
			}

			err := b.writeAsset(ctx, archive, asset, variant, seen)
			if err != nil {
				b.logger.WarnContext(ctx, "failed to archive asset",
					"asset_id", asset.ID, "error", err)
				failures = append(failures, fmt.Sprintf("%s: %v", entryName(asset, variant), err))

				continue
			}

			written++
		}

		if len(assets) < assetPageSize {
			break
		}
	}

	if includeErrorManifest && len(failures) > 0 {
		err := b.writeErrorManifest(archive, failures)
		if err != nil {
			return written, failures, err
		}
	}

	if err := archive.Close(); err != nil {
		return written, failures, fmt.Errorf("failed to finalize archive: %w", err)
	}

	if written == 0 && len(failures) > 0 {
		return 0, failures, fmt.Errorf("no assets could be archived (%d failures)", len(failures))
	}

	return written, failures, nil
}

func (b *ZipBuilder) writeAsset(ctx context.Context, archive *zip.Writer, asset *models.GalleryAsset, variant string, seen map[string]int) error {
	objectPath := asset.StoragePath(variant)
	if objectPath == "" {
		return fmt.Errorf("asset has no %s variant", variant)
	}

	reader, err := b.objects.Open(ctx, storage.BucketGalleryImages, objectPath)
	if err != nil {
		return err
	}

	defer func() { _ = reader.Close() }()

	entry, err := archive.CreateHeader(&zip.FileHeader{
		Name:   uniqueEntryName(entryName(asset, variant), seen),
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}

	_, err = io.Copy(entry, reader)
	if err != nil {
		return fmt.Errorf("failed to copy asset into archive: %w", err)
	}

	return nil
}

func (b *ZipBuilder) writeErrorManifest(archive *zip.Writer, failures []string) error {
	entry, err := archive.CreateHeader(&zip.FileHeader{
		Name:   errorManifestName,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to create error manifest: %w", err)
	}

	content := "The following files could not be included:\n\n" + strings.Join(failures, "\n") + "\n"

	_, err = io.WriteString(entry, content)
	if err != nil {
		return fmt.Errorf("failed to write error manifest: %w", err)
	}

	return nil
}

func entryName(asset *models.GalleryAsset, variant string) string {
	if asset.OriginalName != "" {
		return asset.OriginalName
	}

	objectPath := asset.StoragePath(variant)
	if objectPath != "" {
		return path.Base(objectPath)
	}

	return asset.ID + ".jpg"
}

// uniqueEntryName disambiguates colliding names with a numeric suffix before
// the extension.
func uniqueEntryName(name string, seen map[string]int) string {
	count := seen[name]
	seen[name] = count + 1

	if count == 0 {
		return name
	}

	extension := path.Ext(name)
	base := strings.TrimSuffix(name, extension)

	return fmt.Sprintf("%s_%d%s", base, count+1, extension)
}
