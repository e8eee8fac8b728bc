package leaderboard

import (
	"context"
	"strconv"
	"time"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "snake:leaderboard:"

// RedisLeaderboard keeps one sorted set per run, scored by the best length
// each player reached. Keys expire after the configured TTL.
type RedisLeaderboard struct {
	client *redis.Client
	locker *redsync.Redsync
	ttl    time.Duration
}

// NewRedisLeaderboard initializes a RedisLeaderboard with the provided Redis client and TTL.
func NewRedisLeaderboard(client *redis.Client, ttlSeconds int) *RedisLeaderboard {
	pool := goredis.NewPool(client)
	return &RedisLeaderboard{
		client: client,
		locker: redsync.New(pool),
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}
}

// Key returns the sorted set key of a run.
func Key(runID string) string {
	return keyPrefix + runID
}

// Record stores length for pid, keeping the larger of the new and stored scores.
func (rl *RedisLeaderboard) Record(ctx context.Context, runID string, pid int, length int) error {
	key := Key(runID)
	err := rl.client.ZAddGT(ctx, key, redis.Z{Score: float64(length), Member: strconv.Itoa(pid)}).Err()
	if err != nil {
		return err
	}

	// Set expiration only if it's not already set
	ttl, err := rl.client.TTL(ctx, key).Result()
	if err == nil && ttl == -1 && rl.ttl > 0 {
		_ = rl.client.Expire(ctx, key, rl.ttl).Err()
	}

	return nil
}

// Top returns up to n entries, longest first.
func (rl *RedisLeaderboard) Top(ctx context.Context, runID string, n int64) ([]dmn.LeaderboardEntry, error) {
	if n <= 0 {
		return []dmn.LeaderboardEntry{}, nil
	}

	zs, err := rl.client.ZRevRangeWithScores(ctx, Key(runID), 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]dmn.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		pid, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		entries = append(entries, dmn.LeaderboardEntry{PID: pid, Length: int(z.Score)})
	}
	return entries, nil
}

// Trim removes every entry ranked below keep. Concurrent trims of the same
// run are serialized through a redsync mutex.
func (rl *RedisLeaderboard) Trim(ctx context.Context, runID string, keep int64) error {
	key := Key(runID)
	mutex := rl.locker.NewMutex(key + ":trim_lock")
	if err := mutex.LockContext(ctx); err != nil {
		return err
	}
	defer func() {
		_, _ = mutex.UnlockContext(ctx)
	}()

	if rl.client.ZCard(ctx, key).Val() <= keep {
		return nil
	}
	// Ranks run lowest score first, so drop the bottom of the set.
	return rl.client.ZRemRangeByRank(ctx, key, 0, -keep-1).Err()
}
