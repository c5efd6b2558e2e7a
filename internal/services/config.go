package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/sheetsync/internal/gcp"
	"github.com/Lllllllleong/sheetsync/internal/models"
)

// ErrMissingConfig is returned when a required environment variable is unset.
var ErrMissingConfig = errors.New("missing configuration")

// CatalogSource says where the catalog comes from. With no path the built-in
// district catalog is used; with a bucket the path is an object in it.
type CatalogSource struct {
	Path   string
	Bucket string
}

func catalogSourceFromEnv() CatalogSource {
	return CatalogSource{
		Path:   gcp.GetEnv("CATALOG_PATH", ""),
		Bucket: gcp.GetEnv("CATALOG_BUCKET", ""),
	}
}

// LoadCatalog reads, parses and validates the catalog. storageClient may be
// nil unless src.Bucket is set. AGGREGATE_UNIT_ID, when set, overrides the
// catalog's aggregate unit.
func LoadCatalog(ctx context.Context, storageClient *storage.Client, src CatalogSource) (*models.Catalog, error) {
	var catalog *models.Catalog
	switch {
	case src.Path == "":
		catalog = models.DefaultCatalog()
		slog.Info("Using built-in catalog.")
	case src.Bucket != "":
		if storageClient == nil {
			return nil, fmt.Errorf("%w: a storage client is required to read gs://%s/%s", ErrMissingConfig, src.Bucket, src.Path)
		}
		data, err := gcp.ReadGCSObject(ctx, storageClient.Bucket(src.Bucket), src.Path)
		if err != nil {
			return nil, err
		}
		if catalog, err = models.ParseCatalog(data); err != nil {
			return nil, err
		}
		slog.Info("Loaded catalog from GCS.", "bucket", src.Bucket, "object", src.Path)
	default:
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		if catalog, err = models.ParseCatalog(data); err != nil {
			return nil, err
		}
		slog.Info("Loaded catalog from file.", "path", src.Path)
	}

	catalog.AggregateUnitID = gcp.GetEnvInt("AGGREGATE_UNIT_ID", catalog.AggregateUnitID)
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}
