package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/sheetsync/internal/models"
)

// Reconciler drives one pass over every unit, folder and artifact kind in the
// catalog. Each instance resolves existence, then refreshes or creates. A
// failure is recorded for that instance only; siblings always run.
type Reconciler struct {
	catalog     *models.Catalog
	drive       DriveStore
	sheets      SheetStore
	resolver    *Resolver
	exporter    *Exporter
	transcriber *Transcriber
	ledger      RunLedger
	now         func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithExporter replaces the default exporter, e.g. to attach an archive.
func WithExporter(e *Exporter) ReconcilerOption {
	return func(r *Reconciler) { r.exporter = e }
}

// WithLedger persists every run report through l.
func WithLedger(l RunLedger) ReconcilerOption {
	return func(r *Reconciler) { r.ledger = l }
}

// WithClock overrides time.Now for run timestamps.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(catalog *models.Catalog, drive DriveStore, sheets SheetStore, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		catalog:     catalog,
		drive:       drive,
		sheets:      sheets,
		resolver:    NewResolver(drive),
		exporter:    NewExporter(drive),
		transcriber: NewTranscriber(sheets),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs every instance to completion, one at a time, and returns the
// report. It never fails as a whole: degraded runs show up as skipped or
// failed outcomes.
func (r *Reconciler) Reconcile(ctx context.Context, runID string) *models.RunReport {
	report := &models.RunReport{RunID: runID, Status: "RUNNING", StartedAt: r.now()}
	logCtx := slog.With("runId", runID)
	logCtx.Info("Starting reconciliation.", "unitCount", len(r.catalog.Units), "kindCount", len(r.catalog.Kinds))

	for _, unit := range r.catalog.Units {
		r.reconcileUnit(ctx, logCtx.With("unitId", unit.ID), unit, report)
	}

	report.FinishedAt = r.now()
	report.Status = "COMPLETED"
	if report.Degraded() {
		report.Status = "DEGRADED"
	}
	logCtx.Info(
		"Reconciliation complete.",
		"status", report.Status,
		"created", report.Count(models.ActionCreated),
		"refreshed", report.Count(models.ActionRefreshed),
		"skipped", report.Count(models.ActionSkipped),
		"failed", report.Count(models.ActionFailed),
	)

	if r.ledger != nil {
		if err := r.ledger.Record(ctx, report); err != nil {
			logCtx.Error("Failed to record run report.", "error", err)
		}
	}
	return report
}

func (r *Reconciler) reconcileUnit(ctx context.Context, logCtx *slog.Logger, unit models.OrganizationalUnit, report *models.RunReport) {
	doc, err := Retry(ctx, logCtx, "describe", func(ctx context.Context) (*models.Spreadsheet, error) {
		return r.sheets.Describe(ctx, unit.SpreadsheetID)
	})
	if err != nil {
		logCtx.Error("Failed to read source spreadsheet, skipping unit.", "spreadsheetId", unit.SpreadsheetID, "error", err)
		report.Outcomes = append(report.Outcomes, models.Outcome{UnitID: unit.ID, Action: models.ActionFailed, Error: err.Error()})
		return
	}
	logCtx.Info("Reconciling unit.", "title", doc.Title, "sheetCount", len(doc.Sheets), "folderCount", len(unit.Folders))

	for _, folderID := range unit.Folders {
		for _, kind := range r.catalog.Kinds {
			kindCtx := logCtx.With("folderId", folderID, "kind", kind.Name)
			switch kind.Scope {
			case models.ScopeLiveCopy:
				r.reconcileLiveCopy(ctx, kindCtx, unit, doc, folderID, kind, report)
			case models.ScopeDocument:
				r.reconcileExport(ctx, kindCtx, unit, doc, nil, folderID, kind, report)
			case models.ScopeSheet:
				if unit.ID == r.catalog.AggregateUnitID {
					kindCtx.Debug("Aggregate unit is exempt from per-sheet exports.")
					continue
				}
				for i := range doc.Sheets {
					sheet := doc.Sheets[i]
					r.reconcileExport(ctx, kindCtx.With("sheet", sheet.Title), unit, doc, &sheet, folderID, kind, report)
				}
			}
		}
	}
}

// reconcileLiveCopy keeps a full spreadsheet copy in folderID. A new copy is
// made with Drive's copy so formulas and formatting survive; an existing copy
// is refreshed sheet by sheet.
func (r *Reconciler) reconcileLiveCopy(ctx context.Context, logCtx *slog.Logger, unit models.OrganizationalUnit, doc *models.Spreadsheet, folderID string, kind models.ArtifactKind, report *models.RunReport) {
	name := models.ArtifactName(doc.Title, kind, "")
	logCtx = logCtx.With("artifact", name)
	outcome := models.Outcome{UnitID: unit.ID, FolderID: folderID, Kind: kind.Name, Artifact: name}

	lookup := r.resolver.Locate(ctx, logCtx, name, folderID)
	switch lookup.State {
	case Unknown:
		report.Outcomes = append(report.Outcomes, skipped(logCtx, outcome, lookup.Err))
	case Absent:
		id, err := Retry(ctx, logCtx, "copy", func(ctx context.Context) (string, error) {
			return r.drive.CopyFile(ctx, doc.ID, name, folderID)
		})
		if err != nil {
			report.Outcomes = append(report.Outcomes, failed(logCtx, outcome, err))
			return
		}
		outcome.ArtifactID = id
		outcome.Action = models.ActionCreated
		logCtx.Info("Copied spreadsheet into folder.", "fileId", id)
		report.Outcomes = append(report.Outcomes, outcome)
	case Exists:
		outcome.ArtifactID = lookup.Ref.ID
		if len(doc.Sheets) == 0 {
			logCtx.Info("Source has no sheets, nothing to refresh.")
			outcome.Action = models.ActionRefreshed
			report.Outcomes = append(report.Outcomes, outcome)
			return
		}
		for _, sheet := range doc.Sheets {
			sheetOutcome := outcome
			sheetOutcome.Sheet = sheet.Title
			if err := r.refreshSheet(ctx, logCtx.With("sheet", sheet.Title), doc.ID, lookup.Ref.ID, sheet.Title); err != nil {
				report.Outcomes = append(report.Outcomes, failed(logCtx, sheetOutcome, err))
				continue
			}
			sheetOutcome.Action = models.ActionRefreshed
			report.Outcomes = append(report.Outcomes, sheetOutcome)
		}
	}
}

// refreshSheet replaces the destination sheet's values with the source's.
func (r *Reconciler) refreshSheet(ctx context.Context, logCtx *slog.Logger, sourceID, destID, sheetName string) error {
	desc, ok := r.catalog.Sheet(sheetName)
	if !ok {
		return fmt.Errorf("sheet %q: %w", sheetName, ErrUnknownSheet)
	}
	rows, err := r.transcriber.Read(ctx, logCtx, sourceID, sheetName)
	if err != nil {
		return err
	}
	if err := r.transcriber.Write(ctx, logCtx, destID, sheetName, rows, desc.Columns, false); err != nil {
		return err
	}
	logCtx.Info("Sheet refreshed.", "rowCount", len(rows))
	return nil
}

// reconcileExport keeps one exported file in folderID: the whole document
// when sheet is nil, otherwise that sheet alone.
func (r *Reconciler) reconcileExport(ctx context.Context, logCtx *slog.Logger, unit models.OrganizationalUnit, doc *models.Spreadsheet, sheet *models.Sheet, folderID string, kind models.ArtifactKind, report *models.RunReport) {
	sheetTitle := ""
	if sheet != nil {
		sheetTitle = sheet.Title
	}
	name := models.ArtifactName(doc.Title, kind, sheetTitle)
	logCtx = logCtx.With("artifact", name)
	outcome := models.Outcome{UnitID: unit.ID, FolderID: folderID, Kind: kind.Name, Sheet: sheetTitle, Artifact: name}

	lookup := r.resolver.Locate(ctx, logCtx, name, folderID)
	existingID := ""
	switch lookup.State {
	case Unknown:
		report.Outcomes = append(report.Outcomes, skipped(logCtx, outcome, lookup.Err))
		return
	case Exists:
		existingID = lookup.Ref.ID
	}

	id, err := r.exporter.ExportAndStore(ctx, logCtx, ExportSource{DocumentID: doc.ID, Sheet: sheet}, kind.MimeType, name, folderID, existingID)
	outcome.ArtifactID = id
	if err != nil {
		report.Outcomes = append(report.Outcomes, failed(logCtx, outcome, err))
		return
	}
	outcome.Action = models.ActionCreated
	if existingID != "" {
		outcome.Action = models.ActionRefreshed
	}
	report.Outcomes = append(report.Outcomes, outcome)
}

// skipped records an instance whose existence could not be established.
// Nothing is written: treating it as absent could create a duplicate.
func skipped(logCtx *slog.Logger, o models.Outcome, err error) models.Outcome {
	logCtx.Error("Existence unknown, skipping artifact.", "error", err)
	o.Action = models.ActionSkipped
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

func failed(logCtx *slog.Logger, o models.Outcome, err error) models.Outcome {
	if errors.Is(err, ErrUnknownSheet) {
		logCtx.Error("Sheet has no column descriptor, refusing to write unlabeled columns.", "sheet", o.Sheet, "error", err)
	} else {
		logCtx.Error("Failed to reconcile artifact.", "error", err)
	}
	o.Action = models.ActionFailed
	o.Error = err.Error()
	return o
}
