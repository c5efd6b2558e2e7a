package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			slog.Info("SKIPPING: Object already exists.", "object", objectName)
			return nil // Not a failure in an idempotent workflow.
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ReadGCSObject returns the full content of a GCS object.
func ReadGCSObject(ctx context.Context, bucket *storage.BucketHandle, objectName string) ([]byte, error) {
	reader, err := bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", objectName, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", objectName, err)
	}
	return data, nil
}

// ExportArchive keeps a copy of every exported payload under a per-run prefix:
// <prefix>/<folderId>/<name>. Objects are write-once, so within one prefix the
// first payload for a name is the one kept.
type ExportArchive struct {
	bucket *storage.BucketHandle
	prefix string
}

func NewExportArchive(bucket *storage.BucketHandle, prefix string) *ExportArchive {
	return &ExportArchive{bucket: bucket, prefix: prefix}
}

// Archive stores one payload.
func (a *ExportArchive) Archive(ctx context.Context, folderID, name, contentType string, content []byte) error {
	return SaveToGCSAtomically(ctx, a.bucket, a.ObjectName(folderID, name), contentType, content)
}

// ObjectName is the archive key for one artifact.
func (a *ExportArchive) ObjectName(folderID, name string) string {
	return path.Join(a.prefix, folderID, name)
}
