package models

// These structs define the JSON payloads accepted and returned by the
// sheet-sync and roster-pull functions.

// SyncRequest is the optional body of the Pub/Sub message that triggers a sync.
// An empty request reconciles every unit in the catalog.
type SyncRequest struct {
	Units []int `json:"units,omitempty"`
}

// RosterPullRequest is the input for the roster-pull function.
type RosterPullRequest struct {
	Units  []int `json:"units,omitempty"`
	YearID int   `json:"yearId,omitempty"`
}

// RosterPullResponse is the output of the roster-pull function.
type RosterPullResponse struct {
	Status        string `json:"status"`
	YearID        int    `json:"yearId"`
	SheetsWritten int    `json:"sheetsWritten"`
	SheetsSkipped int    `json:"sheetsSkipped"`
}
