package models

import "time"

// Sheet is one tab inside a spreadsheet. ID is the tab's gid.
type Sheet struct {
	ID    int64
	Title string
}

// Spreadsheet is the source document as seen at the start of a pass.
type Spreadsheet struct {
	ID     string
	Title  string
	Sheets []Sheet
}

// ArtifactRef identifies an artifact that already exists in a destination folder.
type ArtifactRef struct {
	ID   string
	Name string
}

// Action is what a reconciliation pass did to one destination artifact.
type Action string

const (
	ActionCreated   Action = "created"
	ActionRefreshed Action = "refreshed"
	// ActionSkipped means existence could not be established, so nothing was written.
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// Outcome records the result for one (unit, folder, kind[, sheet]) instance.
type Outcome struct {
	UnitID     int    `firestore:"unitId" json:"unitId"`
	FolderID   string `firestore:"folderId,omitempty" json:"folderId,omitempty"`
	Kind       string `firestore:"kind,omitempty" json:"kind,omitempty"`
	Sheet      string `firestore:"sheet,omitempty" json:"sheet,omitempty"`
	Artifact   string `firestore:"artifact,omitempty" json:"artifact,omitempty"`
	ArtifactID string `firestore:"artifactId,omitempty" json:"artifactId,omitempty"`
	Action     Action `firestore:"action" json:"action"`
	Error      string `firestore:"error,omitempty" json:"error,omitempty"`
}

// RunReport is the record of one reconciliation run, stored in Firestore.
type RunReport struct {
	RunID      string    `firestore:"runId" json:"runId"`
	Status     string    `firestore:"status" json:"status"`
	StartedAt  time.Time `firestore:"startedAt" json:"startedAt"`
	FinishedAt time.Time `firestore:"finishedAt,omitempty" json:"finishedAt,omitempty"`
	Outcomes   []Outcome `firestore:"outcomes" json:"outcomes"`
}

// Count returns how many outcomes ended with the given action.
func (r *RunReport) Count(a Action) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}

// Degraded reports whether any instance was skipped or failed.
func (r *RunReport) Degraded() bool {
	return r.Count(ActionSkipped) > 0 || r.Count(ActionFailed) > 0
}
