package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Lllllllleong/sheetsync/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	DefaultDownloadChunkSize = 1 << 20
	// DefaultMaxExportBytes matches the Drive export size limit.
	DefaultMaxExportBytes = 10 << 20
)

func init() {
	// Payload checks run in memory; pdfcpu must not touch a config dir.
	api.DisableConfigDir()
}

// ErrExportTooLarge is returned when an export exceeds the configured cap.
var ErrExportTooLarge = errors.New("export exceeds size limit")

// ExportSource is the document, or the single sheet of it, being exported.
type ExportSource struct {
	DocumentID string
	Sheet      *models.Sheet
}

// Exporter writes exported representations of a spreadsheet into Drive files.
type Exporter struct {
	drive     DriveStore
	archive   Archiver
	chunkSize int
	maxBytes  int
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithArchive also stores every downloaded payload through a.
func WithArchive(a Archiver) ExporterOption {
	return func(e *Exporter) { e.archive = a }
}

// WithChunkSize sets the download chunk size and the total size cap.
func WithChunkSize(chunkSize, maxBytes int) ExporterOption {
	return func(e *Exporter) {
		if chunkSize > 0 {
			e.chunkSize = chunkSize
		}
		if maxBytes > 0 {
			e.maxBytes = maxBytes
		}
	}
}

func NewExporter(drive DriveStore, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		drive:     drive,
		chunkSize: DefaultDownloadChunkSize,
		maxBytes:  DefaultMaxExportBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportAndStore exports src as mimeType into a file called name in folderID.
// With an empty existingID a new file is created first; otherwise the
// existing file's content is replaced and its id, name and parents are kept.
// The returned id is empty only if creation itself failed. An error means a
// step exhausted its retries; the caller moves on to the next artifact.
func (e *Exporter) ExportAndStore(ctx context.Context, logCtx *slog.Logger, src ExportSource, mimeType, name, folderID, existingID string) (string, error) {
	targetID := existingID
	if targetID == "" {
		id, err := Retry(ctx, logCtx, "create", func(ctx context.Context) (string, error) {
			return e.drive.CreateFile(ctx, name, mimeType, folderID)
		})
		if err != nil {
			return "", err
		}
		targetID = id
		logCtx.Info("Created empty destination file.", "fileId", targetID)
	}

	payload, err := Retry(ctx, logCtx, "export-download", func(ctx context.Context) ([]byte, error) {
		return e.download(ctx, src, mimeType)
	})
	if err != nil {
		return targetID, err
	}
	e.inspect(logCtx, payload, mimeType)

	if e.archive != nil {
		if err := e.archive.Archive(ctx, folderID, name, mimeType, payload); err != nil {
			logCtx.Warn("Failed to archive export payload.", "error", err)
		}
	}

	if _, err := Retry(ctx, logCtx, "export-upload", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.drive.UpdateContent(ctx, targetID, mimeType, bytes.NewReader(payload))
	}); err != nil {
		return targetID, err
	}

	logCtx.Info("File updated.", "fileId", targetID, "bytes", len(payload))
	return targetID, nil
}

// download pulls the export into memory chunk by chunk. The destination store
// cannot convert between its own files, so the bytes have to pass through here.
func (e *Exporter) download(ctx context.Context, src ExportSource, mimeType string) ([]byte, error) {
	rc, err := e.drive.Export(ctx, src.DocumentID, src.Sheet, mimeType)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	chunk := make([]byte, e.chunkSize)
	for {
		n, err := io.ReadFull(rc, chunk)
		buf.Write(chunk[:n])
		if buf.Len() > e.maxBytes {
			return nil, Permanent(fmt.Errorf("%w: more than %d bytes", ErrExportTooLarge, e.maxBytes))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read export chunk: %w", err)
		}
	}
}

// inspect logs when the payload does not look like what was requested. It
// never fails the export.
func (e *Exporter) inspect(logCtx *slog.Logger, payload []byte, mimeType string) {
	detected := mimetype.Detect(payload)
	if !detected.Is(mimeType) {
		logCtx.Warn("Export payload does not match requested type.", "requested", mimeType, "detected", detected.String())
		return
	}
	if mimeType != "application/pdf" {
		return
	}
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(bytes.NewReader(payload), cfg)
	if err != nil {
		logCtx.Warn("Exported PDF failed validation.", "error", err)
		return
	}
	logCtx.Info("Exported PDF validated.", "pageCount", pages)
}
