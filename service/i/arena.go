package i

import (
	"context"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
	"github.com/beka-birhanu/vinom-snake/game"
)

// ArenaStatus is the game status plus the identity of the current run.
type ArenaStatus struct {
	RunID string `json:"run_id"`
	game.Status
}

// Arena is what the HTTP layer needs from the running server.
type Arena interface {
	Status() ArenaStatus
	Leaderboard(ctx context.Context, n int64) ([]dmn.LeaderboardEntry, error)
	RecentDeaths(ctx context.Context, n int64) ([]*dmn.DeathRecord, error)
	Spectate(game.Transport)
	Unspectate(game.Transport)
}
