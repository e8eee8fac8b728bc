package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
	"github.com/beka-birhanu/vinom-snake/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGame struct {
	events   chan game.DeathEvent
	watchers map[game.Transport]bool
	mu       sync.Mutex
}

func newFakeGame() *fakeGame {
	return &fakeGame{events: make(chan game.DeathEvent, 8), watchers: make(map[game.Transport]bool)}
}

func (f *fakeGame) Events() <-chan game.DeathEvent { return f.events }
func (f *fakeGame) Status() game.Status            { return game.Status{Tick: 7, Alive: 2} }

func (f *fakeGame) Watch(t game.Transport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchers[t] = true
}

func (f *fakeGame) Unwatch(t game.Transport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.watchers, t)
}

type fakeLeaderboard struct {
	mu      sync.Mutex
	entries map[string]map[int]int
	trims   int
	fail    error
}

func (f *fakeLeaderboard) Record(_ context.Context, runID string, pid, length int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.entries == nil {
		f.entries = make(map[string]map[int]int)
	}
	if f.entries[runID] == nil {
		f.entries[runID] = make(map[int]int)
	}
	f.entries[runID][pid] = max(f.entries[runID][pid], length)
	return nil
}

func (f *fakeLeaderboard) Top(_ context.Context, runID string, n int64) ([]dmn.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dmn.LeaderboardEntry
	for pid, l := range f.entries[runID] {
		out = append(out, dmn.LeaderboardEntry{PID: pid, Length: l})
	}
	return out, nil
}

func (f *fakeLeaderboard) Trim(context.Context, string, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trims++
	return nil
}

type fakeRepo struct {
	mu      sync.Mutex
	records []*dmn.DeathRecord
}

func (f *fakeRepo) Save(_ context.Context, r *dmn.DeathRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
	return nil
}

func (f *fakeRepo) ByRun(_ context.Context, runID string, limit int64) ([]*dmn.DeathRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*dmn.DeathRecord
	for _, r := range f.records {
		if r.RunID == runID && int64(len(out)) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type nopTransport struct{}

func (nopTransport) Send([]byte) error { return nil }

func TestNewArenaManager(t *testing.T) {
	_, err := NewArenaManager(&Config{})
	assert.ErrorIs(t, err, ErrMissingGame)

	a, err := NewArenaManager(&Config{Game: newFakeGame()})
	require.NoError(t, err)
	assert.NotEmpty(t, a.RunID())

	b, err := NewArenaManager(&Config{Game: newFakeGame()})
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestArenaManagerForwardsDeaths(t *testing.T) {
	g := newFakeGame()
	lb := &fakeLeaderboard{}
	repo := &fakeRepo{}
	a, err := NewArenaManager(&Config{Game: g, Leaderboard: lb, DeathRepo: repo})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Listen(ctx)
		close(done)
	}()

	at := time.Now()
	g.events <- game.DeathEvent{PID: 1, Length: 4, Tick: 10, At: at}
	g.events <- game.DeathEvent{PID: 2, Length: 9, Tick: 12, At: at}

	require.Eventually(t, func() bool { return repo.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	top, err := a.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []dmn.LeaderboardEntry{{PID: 1, Length: 4}, {PID: 2, Length: 9}}, top)
	assert.Equal(t, 2, lb.trims)

	deaths, err := a.RecentDeaths(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, deaths, 2)
	assert.Equal(t, a.RunID(), deaths[0].RunID)
	assert.Equal(t, 1, deaths[0].PID)
	assert.Equal(t, uint64(10), deaths[0].Tick)
	assert.Equal(t, at, deaths[0].DiedAt)
}

func TestArenaManagerSurvivesSinkFailures(t *testing.T) {
	g := newFakeGame()
	lb := &fakeLeaderboard{fail: errors.New("redis down")}
	repo := &fakeRepo{}
	a, err := NewArenaManager(&Config{Game: g, Leaderboard: lb, DeathRepo: repo})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Listen(ctx)

	g.events <- game.DeathEvent{PID: 3, Length: 1}
	require.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, lb.trims)
}

func TestArenaManagerWithoutSinks(t *testing.T) {
	g := newFakeGame()
	a, err := NewArenaManager(&Config{Game: g})
	require.NoError(t, err)

	_, err = a.Leaderboard(context.Background(), 5)
	assert.ErrorIs(t, err, ErrLeaderboardDisabled)
	_, err = a.RecentDeaths(context.Background(), 5)
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	status := a.Status()
	assert.Equal(t, a.RunID(), status.RunID)
	assert.Equal(t, uint64(7), status.Tick)
	assert.Equal(t, 2, status.Alive)

	tr := nopTransport{}
	a.Spectate(tr)
	assert.True(t, g.watchers[tr])
	a.Unspectate(tr)
	assert.False(t, g.watchers[tr])
}
