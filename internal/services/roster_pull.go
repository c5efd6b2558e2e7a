package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/sheetsync/internal/gcp"
	"github.com/Lllllllleong/sheetsync/internal/models"
)

type RosterPullConfig struct {
	Catalog CatalogSource
	Client  RosterClientConfig
}

// RosterPullFunction holds dependencies for the roster pull.
type RosterPullFunction struct {
	puller *RosterPuller
	config RosterPullConfig
}

func loadRosterPullConfig() (*RosterPullConfig, error) {
	config := &RosterPullConfig{
		Catalog: catalogSourceFromEnv(),
		Client: RosterClientConfig{
			BaseURL:      gcp.GetEnv("ROSTER_BASE_URL", ""),
			ClientID:     gcp.GetEnv("ROSTER_CLIENT_ID", ""),
			ClientSecret: gcp.GetEnv("ROSTER_CLIENT_SECRET", ""),
			Timeout:      time.Duration(gcp.GetEnvInt("ROSTER_TIMEOUT_SECONDS", 10)) * time.Second,
		},
	}
	if config.Client.BaseURL == "" || config.Client.ClientID == "" || config.Client.ClientSecret == "" {
		return nil, fmt.Errorf("%w: ROSTER_BASE_URL, ROSTER_CLIENT_ID and ROSTER_CLIENT_SECRET must be set", ErrMissingConfig)
	}
	return config, nil
}

// NewRosterPull creates a new RosterPullFunction instance.
func NewRosterPull(ctx context.Context) (*RosterPullFunction, error) {
	config, err := loadRosterPullConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var storageClient *storage.Client
	if config.Catalog.Bucket != "" {
		if storageClient, err = storage.NewClient(ctx); err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}
	catalog, err := LoadCatalog(ctx, storageClient, config.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	sheetsClient, err := gcp.NewSheetsClient(ctx)
	if err != nil {
		return nil, err
	}

	// The token source outlives this call, so it gets a background context.
	source := NewRosterClient(context.Background(), config.Client)
	slog.Info("Roster pull logic initialized.", "baseUrl", config.Client.BaseURL, "unitCount", len(catalog.Units))
	return &RosterPullFunction{
		puller: NewRosterPuller(catalog, source, sheetsClient),
		config: *config,
	}, nil
}

// Process pulls every configured query into the unit spreadsheets.
func (f *RosterPullFunction) Process(ctx context.Context, req *models.RosterPullRequest) (*models.RosterPullResponse, error) {
	return f.puller.Pull(ctx, req)
}
