package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Lllllllleong/sheetsync/internal/models"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
)

const docsBaseURL = "https://docs.google.com"

// ErrIncompleteSearch is returned when Drive could not search every corpus
// and found nothing, so absence cannot be concluded.
var ErrIncompleteSearch = errors.New("drive search was incomplete")

// exportFormats maps export mime types to the format parameter of the
// spreadsheet export endpoint, which is the only way to export a single sheet.
var exportFormats = map[string]string{
	"application/pdf": "pdf",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"application/vnd.oasis.opendocument.spreadsheet":                    "ods",
	"text/csv":                  "csv",
	"text/tab-separated-values": "tsv",
}

// DriveClient is the destination store backed by Drive v3. Every call
// supports shared drives.
type DriveClient struct {
	svc        *drive.Service
	httpClient *http.Client
	docsURL    string
}

// NewDriveClient builds a Drive client. opts are passed to both the Drive
// service and the authorized HTTP client used for single-sheet exports.
func NewDriveClient(ctx context.Context, opts ...option.ClientOption) (*DriveClient, error) {
	hc, _, err := htransport.NewClient(ctx, append([]option.ClientOption{option.WithScopes(drive.DriveScope)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive HTTP client: %w", err)
	}
	svc, err := drive.NewService(ctx, append(opts, option.WithHTTPClient(hc))...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &DriveClient{svc: svc, httpClient: hc, docsURL: docsBaseURL}, nil
}

// FindByName returns the first non-trashed file named name directly inside
// folderID, or nil when Drive completed the search and found none.
func (c *DriveClient) FindByName(ctx context.Context, name, folderID string) (*models.ArtifactRef, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(folderID))
	res, err := c.svc.Files.List().
		Q(q).
		Spaces("drive").
		Corpora("allDrives").
		Fields("incompleteSearch, files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list files named %q in %s: %w", name, folderID, err)
	}
	if len(res.Files) == 0 {
		// An empty but incomplete allDrives listing proves nothing.
		if res.IncompleteSearch {
			return nil, fmt.Errorf("listing files named %q in %s: %w", name, folderID, ErrIncompleteSearch)
		}
		return nil, nil
	}
	return &models.ArtifactRef{ID: res.Files[0].Id, Name: res.Files[0].Name}, nil
}

// CreateFile creates an empty file and returns its id.
func (c *DriveClient) CreateFile(ctx context.Context, name, mimeType, folderID string) (string, error) {
	f, err := c.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create %q in %s: %w", name, folderID, err)
	}
	return f.Id, nil
}

// Export streams docID in mimeType. A non-nil sheet narrows the export to that sheet.
func (c *DriveClient) Export(ctx context.Context, docID string, sheet *models.Sheet, mimeType string) (io.ReadCloser, error) {
	if sheet == nil {
		resp, err := c.svc.Files.Export(docID, mimeType).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("failed to export %s as %s: %w", docID, mimeType, err)
		}
		return resp.Body, nil
	}

	format, ok := exportFormats[mimeType]
	if !ok {
		return nil, fmt.Errorf("no single-sheet export format for %s", mimeType)
	}
	u := fmt.Sprintf("%s/spreadsheets/d/%s/export?format=%s&gid=%d", c.docsURL, url.PathEscape(docID), format, sheet.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to export sheet %q of %s: %w", sheet.Title, docID, err)
	}
	if err := googleapi.CheckResponse(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to export sheet %q of %s: %w", sheet.Title, docID, err)
	}
	return resp.Body, nil
}

// UpdateContent replaces the media of fileID, leaving its metadata unchanged.
func (c *DriveClient) UpdateContent(ctx context.Context, fileID, mimeType string, content io.Reader) error {
	_, err := c.svc.Files.Update(fileID, &drive.File{}).
		Media(content, googleapi.ContentType(mimeType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload content to %s: %w", fileID, err)
	}
	return nil
}

// CopyFile duplicates docID into folderID under name and returns the copy's id.
func (c *DriveClient) CopyFile(ctx context.Context, docID, name, folderID string) (string, error) {
	f, err := c.svc.Files.Copy(docID, &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to copy %s into %s: %w", docID, folderID, err)
	}
	return f.Id, nil
}

// escapeQuery escapes a value for a single-quoted Drive query string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
