package i

import (
	"context"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
)

// Leaderboard keeps the best lengths reached in a run.
type Leaderboard interface {
	// Record stores length for pid unless a longer one is already stored.
	Record(ctx context.Context, runID string, pid int, length int) error

	// Top returns up to n entries, longest first.
	Top(ctx context.Context, runID string, n int64) ([]dmn.LeaderboardEntry, error)

	// Trim drops every entry ranked below keep.
	Trim(ctx context.Context, runID string, keep int64) error
}
