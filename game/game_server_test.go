package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEncoder renders messages as short text lines.
type stubEncoder struct{}

func (stubEncoder) MarshalFrame(f Frame) ([]byte, error) {
	return []byte(fmt.Sprintf("frame %d %d %s\n", f.Width, f.Height, strings.Join(f.Rows, "|"))), nil
}

func (stubEncoder) MarshalDeath(pid int) ([]byte, error) {
	return []byte(fmt.Sprintf("dead %d\n", pid)), nil
}

func (stubEncoder) UnmarshalCommand(b []byte) (Direction, error) {
	s := strings.TrimSpace(string(b))
	if !strings.HasPrefix(s, "cmd ") {
		return "", ErrUnknownMessage
	}
	return ParseDirection(strings.TrimPrefix(s, "cmd "))
}

// recordingTransport keeps every payload it is sent.
type recordingTransport struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (r *recordingTransport) Send(b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	r.messages = append(r.messages, string(b))
	return nil
}

func (r *recordingTransport) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recordingTransport) deaths() []string {
	var out []string
	for _, m := range r.received() {
		if strings.HasPrefix(m, "dead ") {
			out = append(out, m)
		}
	}
	return out
}

func newTestGame(t *testing.T, width, height, food int) *Game {
	t.Helper()
	g, err := New(Config{
		Width:         width,
		Height:        height,
		TickPeriod:    10 * time.Millisecond,
		InitialFood:   food,
		GrowthPerFood: 3,
		Encoder:       stubEncoder{},
		Rand:          rand.New(rand.NewSource(7)),
	})
	require.NoError(t, err)
	return g
}

func TestNew(t *testing.T) {
	base := Config{Width: 30, Height: 15, TickPeriod: time.Second, InitialFood: 10, GrowthPerFood: 3, Encoder: stubEncoder{}}

	t.Run("places initial food", func(t *testing.T) {
		g, err := New(base)
		require.NoError(t, err)
		assert.Equal(t, 10, g.Status().Food)
	})

	t.Run("validates configuration", func(t *testing.T) {
		c := base
		c.Encoder = nil
		_, err := New(c)
		assert.ErrorIs(t, err, ErrMissingEncoder)

		c = base
		c.TickPeriod = 0
		_, err = New(c)
		assert.ErrorIs(t, err, ErrInvalidTickPeriod)

		c = base
		c.Width = 1
		_, err = New(c)
		assert.ErrorIs(t, err, ErrInvalidDimension)

		c = base
		c.InitialFood = 30 * 15
		_, err = New(c)
		assert.ErrorIs(t, err, ErrTooMuchFood)
	})
}

func TestJoinAssignsMonotonicIDs(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)

	for want := 1; want <= 5; want++ {
		assert.Equal(t, want, g.Join(&recordingTransport{}))
	}
	g.Leave(3)
	assert.Equal(t, 6, g.Join(&recordingTransport{}))

	status := g.Status()
	assert.Equal(t, 6, status.Snakes)
	assert.Equal(t, 5, status.Alive)
	assert.Equal(t, 5, status.Players)
}

func TestSinglePlayerScenario(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)
	tr := &recordingTransport{}
	id := g.Join(tr)

	s, ok := g.world.Snake(id)
	require.True(t, ok)
	s.Dir = Right
	start := s.Head()

	g.Tick()
	assert.Equal(t, []Position{{X: (start.X + 1) % 30, Y: start.Y}}, s.Body)

	g.HandleCommand(id, []byte("cmd L\n"))
	assert.Equal(t, Left, s.Dir)

	msgs := tr.received()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0], "frame 30 15 "))
}

func TestHandleCommand(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)
	id := g.Join(&recordingTransport{})
	s, _ := g.world.Snake(id)
	s.Body = []Position{{5, 5}, {4, 5}}
	s.Dir = Right

	g.HandleCommand(id, []byte("garbage"))
	g.HandleCommand(id, []byte("cmd X"))
	assert.Equal(t, Right, s.Dir)

	g.HandleCommand(id, []byte("cmd L"))
	assert.Equal(t, Right, s.Dir)

	g.HandleCommand(id, []byte("cmd U"))
	assert.Equal(t, Up, s.Dir)

	g.HandleCommand(99, []byte("cmd D"))
	assert.Equal(t, Up, s.Dir)
}

func TestDeathIsNotifiedOnlyToTheDeadPlayer(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)
	ta, tb := &recordingTransport{}, &recordingTransport{}
	a := g.Join(ta)
	b := g.Join(tb)

	sa, _ := g.world.Snake(a)
	sa.Body = []Position{{10, 5}, {10, 4}, {10, 3}}
	sa.Dir = Down
	sb, _ := g.world.Snake(b)
	sb.Body = []Position{{9, 3}}
	sb.Dir = Right

	g.Tick()
	g.Tick()

	assert.False(t, sb.Alive)
	assert.True(t, sa.Alive)
	assert.Equal(t, []string{fmt.Sprintf("dead %d\n", b)}, tb.deaths())
	assert.Empty(t, ta.deaths())

	select {
	case e := <-g.Events():
		assert.Equal(t, b, e.PID)
		assert.Equal(t, 1, e.Length)
		assert.Equal(t, uint64(1), e.Tick)
	default:
		t.Fatal("no death event published")
	}

	// The dead snake vanished from the frames of the second tick.
	frames := ta.received()
	require.Len(t, frames, 2)
	assert.NotContains(t, frames[1], fmt.Sprint(b%10))
}

func TestBroadcastDropsFailingTransports(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)
	good := &recordingTransport{}
	bad := &recordingTransport{fail: true}
	spectator := &recordingTransport{}
	brokenSpectator := &recordingTransport{fail: true}

	goodID := g.Join(good)
	badID := g.Join(bad)
	g.Watch(spectator)
	g.Watch(brokenSpectator)

	sg, _ := g.world.Snake(goodID)
	sg.Body, sg.Dir = []Position{{2, 2}}, Right
	sb, _ := g.world.Snake(badID)
	sb.Body, sb.Dir = []Position{{2, 10}}, Right

	g.Tick()

	status := g.Status()
	assert.Equal(t, 1, status.Players)
	assert.Equal(t, 1, status.Spectators)
	assert.Len(t, good.received(), 1)
	assert.Len(t, spectator.received(), 1)

	assert.True(t, sb.Alive, "dropping a transport leaves the snake alone")

	g.Tick()
	assert.Len(t, good.received(), 2)
	assert.Len(t, spectator.received(), 2)

	g.Unwatch(spectator)
	g.Tick()
	assert.Len(t, spectator.received(), 2)
}

func TestFramesKeepTheirShape(t *testing.T) {
	g := newTestGame(t, 30, 15, 10)
	tr := &recordingTransport{}
	for range 8 {
		g.Join(tr)
	}

	for range 30 {
		g.Tick()
	}

	for _, m := range tr.received() {
		if !strings.HasPrefix(m, "frame ") {
			continue
		}
		rows := strings.Split(strings.TrimSpace(strings.TrimPrefix(m, "frame 30 15 ")), "|")
		require.Len(t, rows, 15)
		for _, r := range rows {
			require.Len(t, r, 30)
		}
	}
}

func TestLeave(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)
	tr := &recordingTransport{}
	id := g.Join(tr)

	g.Leave(id)
	g.Leave(id)

	s, ok := g.world.Snake(id)
	require.True(t, ok, "snakes stay in the world after leaving")
	assert.False(t, s.Alive)
	assert.Equal(t, 0, g.Status().Players)

	require.Len(t, g.Events(), 1)

	g.Tick()
	assert.Empty(t, tr.received())
}

func TestStartStops(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)
	tr := &recordingTransport{}
	g.Join(tr)

	done := make(chan struct{})
	go func() {
		g.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return len(tr.received()) >= 3 }, time.Second, 5*time.Millisecond)
	g.Stop()
	g.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick loop did not stop")
	}
}

func TestStartHonoursContext(t *testing.T) {
	g := newTestGame(t, 30, 15, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		g.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return g.Status().Tick > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick loop ignored context")
	}
}
