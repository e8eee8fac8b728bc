package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeathRecord is the history entry stored for every snake that dies.
type DeathRecord struct {
	ID     uuid.UUID `json:"id" bson:"_id"`
	RunID  string    `json:"run_id" bson:"runId"`
	PID    int       `json:"pid" bson:"pid"`
	Length int       `json:"length" bson:"length"`
	Tick   uint64    `json:"tick" bson:"tick"`
	DiedAt time.Time `json:"died_at" bson:"diedAt"`
}

// LeaderboardEntry is one player's best length in a run.
type LeaderboardEntry struct {
	PID    int `json:"pid"`
	Length int `json:"length"`
}
