package services

import (
	"context"
	"io"

	"github.com/Lllllllleong/sheetsync/internal/models"
)

// DriveStore is the destination store. internal/gcp.DriveClient implements it.
type DriveStore interface {
	// FindByName returns the first non-trashed file named name directly inside
	// folderID, or nil when there is none.
	FindByName(ctx context.Context, name, folderID string) (*models.ArtifactRef, error)
	CreateFile(ctx context.Context, name, mimeType, folderID string) (string, error)
	// Export streams docID in mimeType. A nil sheet exports the whole document.
	Export(ctx context.Context, docID string, sheet *models.Sheet, mimeType string) (io.ReadCloser, error)
	UpdateContent(ctx context.Context, fileID, mimeType string, content io.Reader) error
	CopyFile(ctx context.Context, docID, name, folderID string) (string, error)
}

// SheetStore is the spreadsheet value store. internal/gcp.SheetsClient implements it.
type SheetStore interface {
	Describe(ctx context.Context, spreadsheetID string) (*models.Spreadsheet, error)
	ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	// ClearValues empties every given range in one request.
	ClearValues(ctx context.Context, spreadsheetID string, ranges ...string) error
	UpdateValues(ctx context.Context, spreadsheetID, writeRange string, rows [][]interface{}) error
	AppendValues(ctx context.Context, spreadsheetID, writeRange string, rows [][]interface{}) error
}

// Archiver keeps a dated copy of every exported payload.
type Archiver interface {
	Archive(ctx context.Context, folderID, name, contentType string, content []byte) error
}

// RunLedger persists the report of a finished run.
type RunLedger interface {
	Record(ctx context.Context, report *models.RunReport) error
}
