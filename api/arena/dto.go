// Package arenaapi exposes the running arena over HTTP.
package arenaapi

import (
	dmn "github.com/beka-birhanu/vinom-snake/domain"
)

// LeaderboardResponse lists the longest snakes of the current run.
type LeaderboardResponse struct {
	RunID   string                 `json:"run_id"`
	Entries []dmn.LeaderboardEntry `json:"entries"`
}

// DeathsResponse lists the most recent deaths of the current run.
type DeathsResponse struct {
	RunID  string             `json:"run_id"`
	Deaths []*dmn.DeathRecord `json:"deaths"`
}

type limitQuery struct {
	Limit int64 `form:"limit" binding:"omitempty,min=1,max=1000"`
}
