package i

import (
	"context"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
)

// DeathRecordRepo defines the interface for death history persistence.
type DeathRecordRepo interface {
	// Save inserts a record.
	Save(ctx context.Context, record *dmn.DeathRecord) error

	// ByRun returns up to limit records of a run, newest first.
	ByRun(ctx context.Context, runID string, limit int64) ([]*dmn.DeathRecord, error)
}
