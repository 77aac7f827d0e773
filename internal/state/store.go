// Package state persists fetched batch predictions in a local SQLite
// database so they can be browsed again without re-running the model.
//
// Only the batch itself (summary and records in server order) is stored.
// Search, filter and pagination state always starts fresh.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/oojn4/korika/internal/prediction"
)

// ErrNotFound is returned when a batch id does not exist.
var ErrNotFound = errors.New("batch not found")

// StoredBatch is a batch prediction persisted locally.
type StoredBatch struct {
	ID        string
	CreatedAt time.Time
	Summary   prediction.BatchSummary
	// Records is nil for batches returned by ListBatches.
	Records     []prediction.Record
	RecordCount int
}

// Store is the batch history store.
type Store interface {
	SaveBatch(ctx context.Context, summary prediction.BatchSummary, records []prediction.Record) (*StoredBatch, error)
	GetBatch(ctx context.Context, id string) (*StoredBatch, error)
	// LatestBatch returns nil, nil when no batch has been stored.
	LatestBatch(ctx context.Context) (*StoredBatch, error)
	// ListBatches returns batches newest first without their records. A
	// limit <= 0 returns all of them.
	ListBatches(ctx context.Context, limit int) ([]StoredBatch, error)
	DeleteBatch(ctx context.Context, id string) error
	// ResolveBatch accepts a full id, a unique id prefix, or "" for the
	// latest batch.
	ResolveBatch(ctx context.Context, ref string) (*StoredBatch, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
