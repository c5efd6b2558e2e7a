package gcp

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/sheetsync/internal/models"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient reads and writes spreadsheet values through Sheets v4.
type SheetsClient struct {
	svc *sheets.Service
}

func NewSheetsClient(ctx context.Context, opts ...option.ClientOption) (*SheetsClient, error) {
	svc, err := sheets.NewService(ctx, append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return &SheetsClient{svc: svc}, nil
}

// Describe returns the spreadsheet title and its sheets in tab order.
func (c *SheetsClient) Describe(ctx context.Context, spreadsheetID string) (*models.Spreadsheet, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId,properties.title,sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", spreadsheetID, err)
	}
	out := &models.Spreadsheet{ID: spreadsheetID}
	if ss.Properties != nil {
		out.Title = ss.Properties.Title
	}
	for _, s := range ss.Sheets {
		if s.Properties == nil {
			continue
		}
		out.Sheets = append(out.Sheets, models.Sheet{ID: s.Properties.SheetId, Title: s.Properties.Title})
	}
	return out, nil
}

func (c *SheetsClient) ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	vr, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", readRange, spreadsheetID, err)
	}
	return vr.Values, nil
}

// ClearValues empties ranges with a single batchClear call.
func (c *SheetsClient) ClearValues(ctx context.Context, spreadsheetID string, ranges ...string) error {
	if len(ranges) == 0 {
		return nil
	}
	req := &sheets.BatchClearValuesRequest{Ranges: ranges}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear %v in %s: %w", ranges, spreadsheetID, err)
	}
	return nil
}

func (c *SheetsClient) UpdateValues(ctx context.Context, spreadsheetID, writeRange string, rows [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write %s in %s: %w", writeRange, spreadsheetID, err)
	}
	return nil
}

func (c *SheetsClient) AppendValues(ctx context.Context, spreadsheetID, writeRange string, rows [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, writeRange, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s in %s: %w", writeRange, spreadsheetID, err)
	}
	return nil
}
