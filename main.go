package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beka-birhanu/vinom-snake/api"
	arenaapi "github.com/beka-birhanu/vinom-snake/api/arena"
	api_i "github.com/beka-birhanu/vinom-snake/api/i"
	"github.com/beka-birhanu/vinom-snake/config"
	"github.com/beka-birhanu/vinom-snake/game"
	jsonenc "github.com/beka-birhanu/vinom-snake/game/json_encoder"
	"github.com/beka-birhanu/vinom-snake/infrastruture/leaderboard"
	logger "github.com/beka-birhanu/vinom-snake/infrastruture/log"
	"github.com/beka-birhanu/vinom-snake/infrastruture/repo"
	"github.com/beka-birhanu/vinom-snake/service"
	"github.com/beka-birhanu/vinom-snake/service/i"
	"github.com/beka-birhanu/vinom-snake/tcp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shutdownTimeout = 5 * time.Second

// Global variables for dependencies
var (
	appLogger       *logrus.Entry
	snakeGame       *game.Game
	socketManager   *tcp.ServerSocketManager
	redisClient     *redis.Client
	mongoClient     *mongo.Client
	scoreBoard      i.Leaderboard
	deathRepo       i.DeathRecordRepo
	arenaManager    *service.ArenaManager
	arenaController api_i.Controller
	router          *api.Router
)

func newLogger(prefix, color string) *logrus.Entry {
	l, err := logger.New(prefix, color, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Creating %s logger: %v\n", prefix, err)
		os.Exit(1)
	}
	return l
}

func initGame() {
	var err error
	snakeGame, err = game.New(game.Config{
		Width:         config.Envs.GridWidth,
		Height:        config.Envs.GridHeight,
		TickPeriod:    time.Duration(config.Envs.TickMS) * time.Millisecond,
		InitialFood:   config.Envs.InitialFood,
		GrowthPerFood: config.Envs.GrowthPerFood,
		Encoder:       &jsonenc.JSON{},
		Logger:        newLogger("GAME", config.ColorGreen),
	})
	if err != nil {
		appLogger.Errorf("Creating game: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Game initialized")
}

func initSocketManager() {
	var err error
	socketManager, err = tcp.NewServerSocketManager(
		tcp.ServerConfig{ListenAddr: fmt.Sprintf("%s:%d", config.Envs.HostIP, config.Envs.TCPPort)},
		tcp.ServerWithClientRegisterHandler(func(c *tcp.Client) int { return snakeGame.Join(c) }),
		tcp.ServerWithClientRequestHandler(snakeGame.HandleCommand),
		tcp.ServerWithClientLeaveHandler(snakeGame.Leave),
		tcp.ServerWithMaxLineSize(config.Envs.MaxLineSize),
		tcp.ServerWithWriteTimeout(time.Duration(config.Envs.WriteTimeoutMS)*time.Millisecond),
		tcp.ServerWithLogger(newLogger("SERVER-SOCKET", config.ColorBlue)),
	)
	if err != nil {
		appLogger.Errorf("Creating socket manager: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Socket manager initialized")
}

func initRedis(ctx context.Context) {
	if config.Envs.RedisAddr == "" {
		appLogger.Info("REDIS_ADDR not set, leaderboard disabled")
		return
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr:     config.Envs.RedisAddr,
		Password: config.Envs.RedisPassword,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Errorf("Redis ping failed, leaderboard disabled: %v", err)
		_ = redisClient.Close()
		redisClient = nil
		return
	}
	scoreBoard = leaderboard.NewRedisLeaderboard(redisClient, config.Envs.LeaderboardTTL)
	appLogger.Info("Connected to Redis")
}

func initMongo(ctx context.Context) {
	if config.Envs.DBHost == "" {
		appLogger.Info("DB_HOST not set, death history disabled")
		return
	}

	uri := fmt.Sprintf("mongodb://%s:%v", config.Envs.DBHost, config.Envs.DBPort)
	if config.Envs.DBUser != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%v", config.Envs.DBUser, config.Envs.DBPassword, config.Envs.DBHost, config.Envs.DBPort)
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		appLogger.Errorf("Failed to connect to MongoDB, death history disabled: %v", err)
		return
	}
	if err = client.Ping(ctx, nil); err != nil {
		appLogger.Errorf("MongoDB ping failed, death history disabled: %v", err)
		_ = client.Disconnect(ctx)
		return
	}
	mongoClient = client

	r := repo.NewDeathRecordRepo(client, config.Envs.DBName, "deaths")
	if err := r.EnsureIndexes(ctx); err != nil {
		appLogger.Warnf("Creating death record indexes: %v", err)
	}
	deathRepo = r
	appLogger.Info("Connected to MongoDB")
}

func initArenaManager() {
	var err error
	arenaManager, err = service.NewArenaManager(&service.Config{
		Game:            snakeGame,
		Leaderboard:     scoreBoard,
		DeathRepo:       deathRepo,
		LeaderboardSize: int64(config.Envs.LeaderboardSize),
		Logger:          newLogger("ARENA", config.ColorMagenta),
	})
	if err != nil {
		appLogger.Errorf("Creating arena manager: %v", err)
		os.Exit(1)
	}
	appLogger.WithField("run_id", arenaManager.RunID()).Info("Arena manager initialized")
}

func initRouter() {
	if config.Envs.RESTPort <= 0 {
		appLogger.Info("REST_PORT not set, HTTP API disabled")
		return
	}

	arenaController = arenaapi.NewArenaController(arenaManager, newLogger("ARENA-API", config.ColorYellow))
	router = api.NewRouter(api.Config{
		Addr:        fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.RESTPort),
		BaseURL:     "/api",
		Controllers: []api_i.Controller{arenaController},
		Mode:        config.Envs.GinMode,
	})
	appLogger.Info("Router initialized")
}

func main() {
	logger.Init(config.Envs.LogLevel, config.Envs.LogFormat)
	appLogger = newLogger("APP", config.ColorCyan)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	initRedis(connectCtx)
	initMongo(connectCtx)
	cancel()

	initGame()
	initSocketManager()
	initArenaManager()
	initRouter()

	arenaDone := make(chan struct{})
	go func() {
		arenaManager.Listen(ctx)
		close(arenaDone)
	}()
	go snakeGame.Start(ctx)
	go func() {
		if err := socketManager.Serve(); err != nil && !errors.Is(err, tcp.ErrServerClosed) {
			appLogger.Errorf("Socket server: %v", err)
			stop()
		}
	}()
	if router != nil {
		go func() {
			if err := router.Run(); err != nil {
				appLogger.Errorf("HTTP server: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	snakeGame.Stop()
	socketManager.Stop()
	if router != nil {
		if err := router.Shutdown(shutdownCtx); err != nil {
			appLogger.Warnf("HTTP shutdown: %v", err)
		}
	}
	<-arenaDone
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}
}
