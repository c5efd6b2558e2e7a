package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Lllllllleong/sheetsync/internal/models"
)

var errTransient = errors.New("transient: 503 backend error")

// fakeFile is one file in the fake Drive.
type fakeFile struct {
	id       string
	name     string
	parent   string
	mimeType string
	content  []byte
	trashed  bool
}

// fakeWorkspace is an in-memory Drive plus Sheets. Both sides share one id
// space so a copied spreadsheet can be refreshed through the values API.
type fakeWorkspace struct {
	mu     sync.Mutex
	nextID int
	files  map[string]*fakeFile
	// docs holds spreadsheet structure; values holds rows per (doc, sheet).
	docs   map[string]*models.Spreadsheet
	values map[string]map[string][][]interface{}
	// exports returns the payload for (doc, sheet title or "", mime type).
	exports func(docID string, sheet *models.Sheet, mimeType string) []byte

	// failures injects errors per operation name: n > 0 fails the next n
	// calls, n < 0 fails every call.
	failures map[string]int
	calls    map[string]int
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{
		files:    map[string]*fakeFile{},
		docs:     map[string]*models.Spreadsheet{},
		values:   map[string]map[string][][]interface{}{},
		failures: map[string]int{},
		calls:    map[string]int{},
		exports: func(docID string, sheet *models.Sheet, mimeType string) []byte {
			title := ""
			if sheet != nil {
				title = sheet.Title
			}
			return []byte(fmt.Sprintf("%s|%s|%s", docID, title, mimeType))
		},
	}
}

// addSpreadsheet registers a source document with the given sheets and rows.
func (w *fakeWorkspace) addSpreadsheet(id, title string, sheets map[string][][]interface{}, order ...string) {
	doc := &models.Spreadsheet{ID: id, Title: title}
	if len(order) == 0 {
		for name := range sheets {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	for i, name := range order {
		doc.Sheets = append(doc.Sheets, models.Sheet{ID: int64(100 + i), Title: name})
	}
	w.docs[id] = doc
	w.values[id] = map[string][][]interface{}{}
	for name, rows := range sheets {
		w.values[id][name] = rows
	}
}

// addFile places an existing file into a folder and returns its id.
func (w *fakeWorkspace) addFile(name, folderID, mimeType string, content []byte) string {
	w.nextID++
	id := fmt.Sprintf("existing-%d", w.nextID)
	w.files[id] = &fakeFile{id: id, name: name, parent: folderID, mimeType: mimeType, content: content}
	return id
}

func (w *fakeWorkspace) fail(op string, times int) { w.failures[op] = times }

// enter counts a call and returns an injected error, if any.
func (w *fakeWorkspace) enter(op string) error {
	w.calls[op]++
	n := w.failures[op]
	switch {
	case n < 0:
		return fmt.Errorf("%s: %w", op, errTransient)
	case n > 0:
		w.failures[op] = n - 1
		return fmt.Errorf("%s: %w", op, errTransient)
	}
	return nil
}

// inFolder returns the non-trashed files in folderID keyed by name.
func (w *fakeWorkspace) inFolder(folderID string) map[string]*fakeFile {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := map[string]*fakeFile{}
	for _, f := range w.files {
		if f.parent == folderID && !f.trashed {
			out[f.name] = f
		}
	}
	return out
}

func (w *fakeWorkspace) newID() string {
	w.nextID++
	return fmt.Sprintf("file-%d", w.nextID)
}

// --- DriveStore ---

func (w *fakeWorkspace) FindByName(_ context.Context, name, folderID string) (*models.ArtifactRef, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("find"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(w.files))
	for id := range w.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f := w.files[id]
		if f.name == name && f.parent == folderID && !f.trashed {
			return &models.ArtifactRef{ID: f.id, Name: f.name}, nil
		}
	}
	return nil, nil
}

func (w *fakeWorkspace) CreateFile(_ context.Context, name, mimeType, folderID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("create"); err != nil {
		return "", err
	}
	id := w.newID()
	w.files[id] = &fakeFile{id: id, name: name, parent: folderID, mimeType: mimeType}
	return id, nil
}

func (w *fakeWorkspace) Export(_ context.Context, docID string, sheet *models.Sheet, mimeType string) (io.ReadCloser, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("export"); err != nil {
		return nil, err
	}
	if _, ok := w.docs[docID]; !ok {
		return nil, fmt.Errorf("export: no document %s", docID)
	}
	return io.NopCloser(bytes.NewReader(w.exports(docID, sheet, mimeType))), nil
}

func (w *fakeWorkspace) UpdateContent(_ context.Context, fileID, _ string, content io.Reader) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("upload"); err != nil {
		return err
	}
	f, ok := w.files[fileID]
	if !ok {
		return fmt.Errorf("upload: no file %s", fileID)
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.content = data
	return nil
}

func (w *fakeWorkspace) CopyFile(_ context.Context, docID, name, folderID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("copy"); err != nil {
		return "", err
	}
	src, ok := w.docs[docID]
	if !ok {
		return "", fmt.Errorf("copy: no document %s", docID)
	}
	id := w.newID()
	w.files[id] = &fakeFile{id: id, name: name, parent: folderID, mimeType: models.MimeTypeSpreadsheet}
	cp := *src
	cp.ID = id
	cp.Sheets = append([]models.Sheet(nil), src.Sheets...)
	w.docs[id] = &cp
	w.values[id] = map[string][][]interface{}{}
	for sheet, rows := range w.values[docID] {
		w.values[id][sheet] = rows
	}
	return id, nil
}

// --- SheetStore ---

func (w *fakeWorkspace) Describe(_ context.Context, spreadsheetID string) (*models.Spreadsheet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("describe"); err != nil {
		return nil, err
	}
	doc, ok := w.docs[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("describe: no document %s", spreadsheetID)
	}
	cp := *doc
	return &cp, nil
}

// The fake ignores the cell part of ranges; see sheetName.
func (w *fakeWorkspace) ReadValues(_ context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("read"); err != nil {
		return nil, err
	}
	return w.values[spreadsheetID][sheetName(readRange)], nil
}

func (w *fakeWorkspace) ClearValues(_ context.Context, spreadsheetID string, ranges ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("clear"); err != nil {
		return err
	}
	for _, r := range ranges {
		name := sheetName(r)
		col, row := startCell(r)
		rows := append([][]interface{}(nil), w.values[spreadsheetID][name]...)
		for i := row; i < len(rows); i++ {
			if len(rows[i]) > col {
				rows[i] = rows[i][:col]
			}
		}
		for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
			rows = rows[:len(rows)-1]
		}
		if len(rows) == 0 {
			delete(w.values[spreadsheetID], name)
			continue
		}
		w.values[spreadsheetID][name] = rows
	}
	return nil
}

// UpdateValues overwrites cells from the range's start cell, leaving cells
// outside the written block untouched as Sheets does.
func (w *fakeWorkspace) UpdateValues(_ context.Context, spreadsheetID, writeRange string, rows [][]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("write"); err != nil {
		return err
	}
	if w.values[spreadsheetID] == nil {
		w.values[spreadsheetID] = map[string][][]interface{}{}
	}
	name := sheetName(writeRange)
	col, row := startCell(writeRange)
	// Copy so callers holding the old slices do not see the write.
	grid := make([][]interface{}, 0, len(w.values[spreadsheetID][name]))
	for _, r := range w.values[spreadsheetID][name] {
		grid = append(grid, append([]interface{}(nil), r...))
	}
	for i, r := range rows {
		for len(grid) <= row+i {
			grid = append(grid, nil)
		}
		for j, v := range r {
			for len(grid[row+i]) <= col+j {
				grid[row+i] = append(grid[row+i], "")
			}
			grid[row+i][col+j] = v
		}
	}
	w.values[spreadsheetID][name] = grid
	return nil
}

func (w *fakeWorkspace) AppendValues(_ context.Context, spreadsheetID, writeRange string, rows [][]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("append"); err != nil {
		return err
	}
	name := sheetName(writeRange)
	w.values[spreadsheetID][name] = append(w.values[spreadsheetID][name], rows...)
	return nil
}

// sheetName undoes sheetRange: "'It''s'!A1" -> "It's".
func sheetName(a1 string) string {
	s := a1
	if i := strings.LastIndex(s, "!"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "'"), "'")
	return strings.ReplaceAll(s, "''", "'")
}

// startCell returns the zero-based column and row of a range's first cell.
// A range without cells starts at A1.
func startCell(a1 string) (col, row int) {
	i := strings.LastIndex(a1, "!")
	if i < 0 {
		return 0, 0
	}
	cell, _, _ := strings.Cut(a1[i+1:], ":")
	letters := strings.TrimRight(cell, "0123456789")
	for _, c := range letters {
		col = col*26 + int(c-'A'+1)
	}
	if n, err := strconv.Atoi(cell[len(letters):]); err == nil {
		row = n - 1
	}
	return col - 1, row
}

// recordingArchive collects archived payloads.
type recordingArchive struct {
	keys []string
	err  error
}

func (a *recordingArchive) Archive(_ context.Context, folderID, name, _ string, _ []byte) error {
	a.keys = append(a.keys, folderID+"/"+name)
	return a.err
}

// recordingLedger keeps the reports it was asked to record.
type recordingLedger struct {
	reports []*models.RunReport
}

func (l *recordingLedger) Record(_ context.Context, report *models.RunReport) error {
	l.reports = append(l.reports, report)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
