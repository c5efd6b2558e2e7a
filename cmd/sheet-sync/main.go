package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/sheetsync/internal/models"
	"github.com/Lllllllleong/sheetsync/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	syncInstance *services.SheetSyncFunction
	once         sync.Once
	initErr      error
)

// messagePublishedData is the CloudEvent payload of a Pub/Sub push.
type messagePublishedData struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Triggered by Cloud Scheduler through a Pub/Sub topic.
	functions.CloudEvent("SyncSheets", syncSheets)
}

// main is required by the Go Functions Framework.
func main() {}

// syncSheets is the Cloud Function entry point. A run never fails the
// invocation for per-artifact errors; those are in the stored run report.
func syncSheets(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		syncInstance, initErr = services.NewSheetSync(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	req, err := decodeSyncRequest(e.Data())
	if err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return err
	}

	report := syncInstance.Process(ctx, e.ID(), req)
	slog.Info("Sync finished.", "runId", report.RunID, "status", report.Status, "outcomes", len(report.Outcomes))
	return nil
}

// decodeSyncRequest reads the optional unit filter from the Pub/Sub message body.
func decodeSyncRequest(data []byte) (*models.SyncRequest, error) {
	req := &models.SyncRequest{}
	if len(data) == 0 {
		return req, nil
	}
	var msg messagePublishedData
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if len(msg.Message.Data) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(msg.Message.Data, req); err != nil {
		return nil, fmt.Errorf("json.Unmarshal message data: %w", err)
	}
	return req, nil
}
