package repository

import (
	"context"

	"github.com/anime-shed/lecture-indexer-go/pkg/models"
)

// JobStore persists job records. Each record has exactly one writer (its worker);
// implementations must allow concurrent Create and Get across jobs.
type JobStore interface {
	// Create stores a new record
	Create(ctx context.Context, job *models.JobRecord) error

	// Get returns a copy of the record or ErrJobNotFound
	Get(ctx context.Context, jobID string) (*models.JobRecord, error)

	// Update replaces the record, rejecting status changes that are not forward transitions
	Update(ctx context.Context, job *models.JobRecord) error

	// List returns every record ordered by creation time
	List(ctx context.Context) ([]*models.JobRecord, error)
}
