package store

import (
	"context"
	"time"

	"github.com/linkmill/partners-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for research runs. SaveRun is
// an upsert keyed by project ID so the orchestrator can persist the same
// run at start and again after finalization.
type Store interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, projectID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
