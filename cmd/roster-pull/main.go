package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/sheetsync/internal/models"
	"github.com/Lllllllleong/sheetsync/internal/services"
)

var (
	pullInstance *services.RosterPullFunction
	once         sync.Once
	initErr      error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleRosterPull", handleRosterPull)
}

func main() {}

// handleRosterPull is the HTTP handler for the roster pull service.
func handleRosterPull(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		pullInstance, initErr = services.NewRosterPull(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: RosterPull initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	// An empty body pulls every unit for the current school year.
	var req models.RosterPullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := pullInstance.Process(r.Context(), &req)
	if err != nil {
		slog.Error("Roster pull aborted", "error", err)
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "yearId", res.YearID)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
