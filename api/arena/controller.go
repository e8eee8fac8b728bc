package arenaapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/beka-birhanu/vinom-snake/service"
	"github.com/beka-birhanu/vinom-snake/service/i"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit = 10
	queryTimeout = 2 * time.Second
)

// ArenaController serves arena status, leaderboard, death history and the
// spectator feed.
type ArenaController struct {
	arena    i.Arena
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
}

// NewArenaController initializes an ArenaController.
func NewArenaController(arena i.Arena, logger logrus.FieldLogger) *ArenaController {
	return &ArenaController{
		arena: arena,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterPublic registers public routes.
func (ac *ArenaController) RegisterPublic(route *gin.RouterGroup) {
	arena := route.Group("/arena")
	{
		arena.GET("/status", ac.status)
		arena.GET("/leaderboard", ac.leaderboard)
		arena.GET("/deaths", ac.deaths)
		arena.GET("/spectate", ac.spectate)
	}
}

func (ac *ArenaController) status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, ac.arena.Status())
}

func (ac *ArenaController) leaderboard(ctx *gin.Context) {
	limit, ok := bindLimit(ctx)
	if !ok {
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	entries, err := ac.arena.Leaderboard(timeoutCtx, limit)
	if err != nil {
		ac.fail(ctx, err, service.ErrLeaderboardDisabled)
		return
	}

	ctx.JSON(http.StatusOK, &LeaderboardResponse{RunID: ac.arena.Status().RunID, Entries: entries})
}

func (ac *ArenaController) deaths(ctx *gin.Context) {
	limit, ok := bindLimit(ctx)
	if !ok {
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	records, err := ac.arena.RecentDeaths(timeoutCtx, limit)
	if err != nil {
		ac.fail(ctx, err, service.ErrHistoryDisabled)
		return
	}

	ctx.JSON(http.StatusOK, &DeathsResponse{RunID: ac.arena.Status().RunID, Deaths: records})
}

// spectate upgrades the request to a websocket that receives every frame.
func (ac *ArenaController) spectate(ctx *gin.Context) {
	conn, err := ac.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		ac.logger.WithError(err).Warn("spectator upgrade failed")
		return
	}

	s := newSpectator(conn, ac.logger)
	ac.arena.Spectate(s)
	go s.run(func() { ac.arena.Unspectate(s) })
}

// fail writes 503 for a sink that is not configured and 500 for anything else.
func (ac *ArenaController) fail(ctx *gin.Context, err, disabled error) {
	if errors.Is(err, disabled) {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	ac.logger.WithError(err).Error("arena query failed")
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error"})
}

func bindLimit(ctx *gin.Context) (int64, bool) {
	var q limitQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	return q.Limit, true
}
