package service

import (
	"context"
	"errors"
	"io"
	"time"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
	"github.com/beka-birhanu/vinom-snake/game"
	"github.com/beka-birhanu/vinom-snake/service/i"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultLeaderboardSize = 100
	sinkTimeout            = 2 * time.Second
)

var (
	ErrMissingGame         = errors.New("game server is required")
	ErrLeaderboardDisabled = errors.New("leaderboard is not configured")
	ErrHistoryDisabled     = errors.New("death history is not configured")
)

// ArenaManager connects the running game to the optional leaderboard and
// death history, and answers status queries for one server run.
type ArenaManager struct {
	runID           uuid.UUID
	game            i.GameServer
	leaderboard     i.Leaderboard     // May be nil.
	deaths          i.DeathRecordRepo // May be nil.
	leaderboardSize int64
	logger          logrus.FieldLogger
}

type Config struct {
	Game            i.GameServer
	Leaderboard     i.Leaderboard
	DeathRepo       i.DeathRecordRepo
	LeaderboardSize int64
	Logger          logrus.FieldLogger
}

func NewArenaManager(c *Config) (*ArenaManager, error) {
	if c.Game == nil {
		return nil, ErrMissingGame
	}
	if c.LeaderboardSize <= 0 {
		c.LeaderboardSize = defaultLeaderboardSize
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}

	return &ArenaManager{
		runID:           uuid.New(),
		game:            c.Game,
		leaderboard:     c.Leaderboard,
		deaths:          c.DeathRepo,
		leaderboardSize: c.LeaderboardSize,
		logger:          c.Logger,
	}, nil
}

// RunID identifies this server run in the leaderboard and the history.
func (a *ArenaManager) RunID() string {
	return a.runID.String()
}

// Listen forwards game events to the sinks until ctx is done.
func (a *ArenaManager) Listen(ctx context.Context) {
	events := a.game.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.recordDeath(ctx, e)
		}
	}
}

func (a *ArenaManager) Status() i.ArenaStatus {
	return i.ArenaStatus{RunID: a.RunID(), Status: a.game.Status()}
}

func (a *ArenaManager) Leaderboard(ctx context.Context, n int64) ([]dmn.LeaderboardEntry, error) {
	if a.leaderboard == nil {
		return nil, ErrLeaderboardDisabled
	}
	return a.leaderboard.Top(ctx, a.RunID(), n)
}

func (a *ArenaManager) RecentDeaths(ctx context.Context, n int64) ([]*dmn.DeathRecord, error) {
	if a.deaths == nil {
		return nil, ErrHistoryDisabled
	}
	return a.deaths.ByRun(ctx, a.RunID(), n)
}

func (a *ArenaManager) Spectate(t game.Transport) {
	a.game.Watch(t)
	a.logger.Info("spectator joined")
}

func (a *ArenaManager) Unspectate(t game.Transport) {
	a.game.Unwatch(t)
	a.logger.Info("spectator left")
}

// recordDeath writes one event to every configured sink. Sink failures are
// logged and otherwise ignored.
func (a *ArenaManager) recordDeath(ctx context.Context, e game.DeathEvent) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	log := a.logger.WithFields(logrus.Fields{"pid": e.PID, "length": e.Length})

	if a.leaderboard != nil {
		if err := a.leaderboard.Record(ctx, a.RunID(), e.PID, e.Length); err != nil {
			log.WithError(err).Error("recording leaderboard entry")
		} else if err := a.leaderboard.Trim(ctx, a.RunID(), a.leaderboardSize); err != nil {
			log.WithError(err).Error("trimming leaderboard")
		}
	}

	if a.deaths != nil {
		record := &dmn.DeathRecord{
			ID:     uuid.New(),
			RunID:  a.RunID(),
			PID:    e.PID,
			Length: e.Length,
			Tick:   e.Tick,
			DiedAt: e.At,
		}
		if err := a.deaths.Save(ctx, record); err != nil {
			log.WithError(err).Error("saving death record")
		}
	}

	log.Debug("death recorded")
}
