package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/sheetsync/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RunLedger stores one document per run, keyed by run id.
type RunLedger struct {
	client     *firestore.Client
	collection string
}

func NewRunLedger(client *firestore.Client, collection string) *RunLedger {
	return &RunLedger{client: client, collection: collection}
}

// Record writes the report, replacing any earlier record of the same run.
func (l *RunLedger) Record(ctx context.Context, report *models.RunReport) error {
	if _, err := l.client.Collection(l.collection).Doc(report.RunID).Set(ctx, report); err != nil {
		return fmt.Errorf("failed to record run %s: %w", report.RunID, err)
	}
	return nil
}
