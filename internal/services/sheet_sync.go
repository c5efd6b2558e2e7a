package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/sheetsync/internal/gcp"
	"github.com/Lllllllleong/sheetsync/internal/models"
)

type SheetSyncConfig struct {
	ProjectID      string
	Catalog        CatalogSource
	ArchiveBucket  string
	RunsCollection string
}

// SheetSyncFunction holds the clients for one function instance. Each
// invocation builds a fresh Reconciler scoped to its run.
type SheetSyncFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	drive           *gcp.DriveClient
	sheets          *gcp.SheetsClient
	catalog         *models.Catalog
	config          SheetSyncConfig
}

func loadSheetSyncConfig() (*SheetSyncConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("%w: PROJECT_ID environment variable must be set", ErrMissingConfig)
	}
	return &SheetSyncConfig{
		ProjectID:      projectID,
		Catalog:        catalogSourceFromEnv(),
		ArchiveBucket:  gcp.GetEnv("ARCHIVE_BUCKET", ""),
		RunsCollection: gcp.GetEnv("RUNS_COLLECTION", "sync-runs"),
	}, nil
}

// NewSheetSync creates a new SheetSyncFunction instance.
func NewSheetSync(ctx context.Context) (*SheetSyncFunction, error) {
	config, err := loadSheetSyncConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	f := &SheetSyncFunction{config: *config}
	if config.ArchiveBucket != "" || config.Catalog.Bucket != "" {
		if f.storageClient, err = storage.NewClient(ctx); err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}
	if f.catalog, err = LoadCatalog(ctx, f.storageClient, config.Catalog); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if f.firestoreClient, err = gcp.NewFirestoreClient(ctx, config.ProjectID); err != nil {
		return nil, err
	}
	if f.drive, err = gcp.NewDriveClient(ctx); err != nil {
		return nil, err
	}
	if f.sheets, err = gcp.NewSheetsClient(ctx); err != nil {
		return nil, err
	}

	slog.Info("Sheet sync logic initialized.", "unitCount", len(f.catalog.Units), "archiveBucket", config.ArchiveBucket)
	return f, nil
}

// Process runs one reconciliation pass. The report is also stored in Firestore.
func (f *SheetSyncFunction) Process(ctx context.Context, runID string, req *models.SyncRequest) *models.RunReport {
	var exporterOpts []ExporterOption
	if f.config.ArchiveBucket != "" {
		prefix := archivePrefix(time.Now(), runID)
		exporterOpts = append(exporterOpts, WithArchive(gcp.NewExportArchive(f.storageClient.Bucket(f.config.ArchiveBucket), prefix)))
	}

	r := NewReconciler(
		f.catalog.WithUnits(req.Units),
		f.drive,
		f.sheets,
		WithExporter(NewExporter(f.drive, exporterOpts...)),
		WithLedger(gcp.NewRunLedger(f.firestoreClient, f.config.RunsCollection)),
	)
	return r.Reconcile(ctx, runID)
}

// archivePrefix keys the archive by UTC date and run, so every run keeps its
// own payloads and a redelivered event maps onto the run it repeats.
func archivePrefix(t time.Time, runID string) string {
	return path.Join(t.UTC().Format("2006-01-02"), runID)
}
