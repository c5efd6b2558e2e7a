package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownSheet is returned when a sheet has no column descriptor. Writing
// it anyway would produce unlabeled columns.
var ErrUnknownSheet = errors.New("no column descriptor for sheet")

// Transcriber moves cell values between sheets. Row 1 of every sheet holds
// the column keys; data starts on row 2.
type Transcriber struct {
	sheets SheetStore
}

func NewTranscriber(sheets SheetStore) *Transcriber {
	return &Transcriber{sheets: sheets}
}

// Read returns every populated data row of sheetName.
func (t *Transcriber) Read(ctx context.Context, logCtx *slog.Logger, spreadsheetID, sheetName string) ([][]interface{}, error) {
	return Retry(ctx, logCtx, "read-sheet", func(ctx context.Context) ([][]interface{}, error) {
		return t.sheets.ReadValues(ctx, spreadsheetID, sheetRange(sheetName, "A2:"+lastColumn))
	})
}

// Write puts rows into sheetName. Without appendRows the sheet becomes a
// header row of columns followed by rows: the new values are written over the
// old ones first and only then is the stale remainder cleared, so a failed
// write leaves the previous content in place. With appendRows the rows land
// after the last populated row and the header is left alone.
func (t *Transcriber) Write(ctx context.Context, logCtx *slog.Logger, spreadsheetID, sheetName string, rows [][]interface{}, columns []string, appendRows bool) error {
	if len(columns) == 0 {
		return fmt.Errorf("sheet %q: %w", sheetName, ErrUnknownSheet)
	}

	if appendRows {
		_, err := Retry(ctx, logCtx, "append-sheet", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, t.sheets.AppendValues(ctx, spreadsheetID, sheetRange(sheetName, "A1"), rows)
		})
		return err
	}

	values := make([][]interface{}, 0, len(rows)+1)
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	values = append(values, header)
	values = append(values, rows...)

	if _, err := Retry(ctx, logCtx, "write-sheet", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.sheets.UpdateValues(ctx, spreadsheetID, sheetRange(sheetName, "A1"), values)
	}); err != nil {
		return err
	}
	_, err := Retry(ctx, logCtx, "clear-sheet", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.sheets.ClearValues(ctx, spreadsheetID, staleRanges(sheetName, values)...)
	})
	return err
}

// staleRanges covers every cell outside the block just written: the rows
// below it and the columns to its right.
func staleRanges(sheetName string, values [][]interface{}) []string {
	width := 0
	for _, row := range values {
		width = max(width, len(row))
	}
	return []string{
		sheetRange(sheetName, fmt.Sprintf("A%d:%s", len(values)+1, lastColumn)),
		sheetRange(sheetName, columnName(width+1)+"1:"+lastColumn),
	}
}

// lastColumn bounds open-ended ranges; Sheets caps a grid at 18278 columns.
const lastColumn = "ZZZ"

// columnName converts a 1-based column index to its A1 letters: 1 -> A, 27 -> AA.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// sheetRange builds an A1 range with the sheet title quoted.
func sheetRange(sheetName, cells string) string {
	quoted := "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}
