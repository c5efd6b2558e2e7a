package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Lllllllleong/sheetsync/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

// RosterSource supplies the rows of one upstream query for one unit and school year.
type RosterSource interface {
	Fetch(ctx context.Context, query string, unitID, yearID int, columns []string) ([][]interface{}, error)
}

// RosterClientConfig configures the upstream student-information API client.
type RosterClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// RosterClient calls named queries on the student-information API. Tokens are
// obtained with the client-credentials grant and refreshed by oauth2.
type RosterClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewRosterClient(ctx context.Context, cfg RosterClientConfig) *RosterClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/oauth/access_token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	hc := cc.Client(ctx)
	hc.Timeout = cfg.Timeout
	return &RosterClient{httpClient: hc, baseURL: baseURL}
}

type rosterQueryRequest struct {
	SchoolID int `json:"schoolid"`
	YearID   int `json:"yearid"`
}

type rosterQueryResponse struct {
	Record []struct {
		Tables struct {
			Students map[string]interface{} `json:"students"`
		} `json:"tables"`
	} `json:"record"`
}

// Fetch runs query for one unit and flattens each record into a row ordered by columns.
func (c *RosterClient) Fetch(ctx context.Context, query string, unitID, yearID int, columns []string) ([][]interface{}, error) {
	body, err := json.Marshal(rosterQueryRequest{SchoolID: unitID, YearID: yearID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+query, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster query %s failed: %w", query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("roster query %s returned %d: %s", query, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed rosterQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode roster response for %s: %w", query, err)
	}
	return flattenRecords(parsed, columns), nil
}

func flattenRecords(resp rosterQueryResponse, columns []string) [][]interface{} {
	rows := make([][]interface{}, 0, len(resp.Record))
	for _, rec := range resp.Record {
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			v, ok := rec.Tables.Students[col]
			if !ok || v == nil {
				v = ""
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows
}

// SchoolYearID returns the upstream year id for t. The school year rolls over in July.
func SchoolYearID(t time.Time) int {
	if t.Month() <= time.June {
		return t.Year() - 1991
	}
	return t.Year() - 1990
}

// RosterPuller refreshes every unit's source spreadsheet from the upstream API.
type RosterPuller struct {
	catalog     *models.Catalog
	source      RosterSource
	transcriber *Transcriber
	now         func() time.Time
	fetchLimit  int
}

func NewRosterPuller(catalog *models.Catalog, source RosterSource, sheets SheetStore) *RosterPuller {
	return &RosterPuller{
		catalog:     catalog,
		source:      source,
		transcriber: NewTranscriber(sheets),
		now:         time.Now,
		fetchLimit:  4,
	}
}

type fetchResult struct {
	sheet models.SheetDescriptor
	rows  [][]interface{}
	err   error
}

// Pull writes each query's rows over its sheet. A query that fails or returns
// nothing leaves the existing sheet untouched.
func (p *RosterPuller) Pull(ctx context.Context, req *models.RosterPullRequest) (*models.RosterPullResponse, error) {
	yearID := req.YearID
	if yearID == 0 {
		yearID = SchoolYearID(p.now())
	}
	res := &models.RosterPullResponse{Status: "success", YearID: yearID}

	var queries []models.SheetDescriptor
	for _, s := range p.catalog.Sheets {
		if s.Query != "" {
			queries = append(queries, s)
		}
	}

	for _, unit := range p.catalog.WithUnits(req.Units).Units {
		logCtx := slog.With("unitId", unit.ID, "yearId", yearID)
		results := p.fetchAll(ctx, unit, yearID, queries)
		for _, r := range results {
			sheetCtx := logCtx.With("sheet", r.sheet.Name)
			if r.err != nil {
				sheetCtx.Error("Roster query failed, leaving sheet unchanged.", "error", r.err)
				res.SheetsSkipped++
				continue
			}
			if len(r.rows) == 0 {
				sheetCtx.Warn("Roster query returned no rows, leaving sheet unchanged.")
				res.SheetsSkipped++
				continue
			}
			if err := p.transcriber.Write(ctx, sheetCtx, unit.SpreadsheetID, r.sheet.Name, r.rows, r.sheet.Columns, false); err != nil {
				sheetCtx.Error("Failed to write roster rows.", "error", err)
				res.SheetsSkipped++
				continue
			}
			sheetCtx.Info("Sheet updated from roster.", "rowCount", len(r.rows))
			res.SheetsWritten++
		}
	}
	if res.SheetsSkipped > 0 {
		res.Status = "degraded"
	}
	return res, ctx.Err()
}

// fetchAll runs the unit's queries concurrently. Failures are kept per query
// so one bad query does not cancel the others.
func (p *RosterPuller) fetchAll(ctx context.Context, unit models.OrganizationalUnit, yearID int, queries []models.SheetDescriptor) []fetchResult {
	results := make([]fetchResult, len(queries))
	var eg errgroup.Group
	eg.SetLimit(p.fetchLimit)
	for i, q := range queries {
		eg.Go(func() error {
			rows, err := p.source.Fetch(ctx, q.Query, unit.ID, yearID, q.Columns)
			results[i] = fetchResult{sheet: q, rows: rows, err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
