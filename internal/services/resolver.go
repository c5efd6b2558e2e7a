package services

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/sheetsync/internal/models"
)

// Resolution is the outcome of an existence lookup.
type Resolution int

const (
	Absent Resolution = iota
	Exists
	// Unknown means the lookup itself failed; the artifact may or may not exist.
	Unknown
)

func (r Resolution) String() string {
	switch r {
	case Absent:
		return "absent"
	case Exists:
		return "exists"
	default:
		return "unknown"
	}
}

// Lookup is what the resolver learned about one artifact name in one folder.
type Lookup struct {
	State Resolution
	Ref   *models.ArtifactRef
	Err   error
}

// Resolver answers whether an artifact already exists in a destination folder.
// Duplicate names are not detected: the first match wins.
type Resolver struct {
	drive DriveStore
}

func NewResolver(drive DriveStore) *Resolver {
	return &Resolver{drive: drive}
}

// Locate searches folderID (non-recursively) for a file named exactly name.
func (r *Resolver) Locate(ctx context.Context, logCtx *slog.Logger, name, folderID string) Lookup {
	ref, err := Retry(ctx, logCtx, "resolve", func(ctx context.Context) (*models.ArtifactRef, error) {
		return r.drive.FindByName(ctx, name, folderID)
	})
	if err != nil {
		return Lookup{State: Unknown, Err: err}
	}
	if ref == nil {
		return Lookup{State: Absent}
	}
	return Lookup{State: Exists, Ref: ref}
}
