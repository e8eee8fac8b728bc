package game

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Game-related errors.
var (
	ErrInvalidTickPeriod = errors.New("tick period must be positive")
	ErrMissingEncoder    = errors.New("encoder is required")
)

const defaultEventBuffer = 64

// DeathEvent is published every time a snake dies, by collision or disconnect.
type DeathEvent struct {
	PID    int       // Id of the dead snake.
	Length int       // Body length at death.
	Tick   uint64    // Tick during which the snake died.
	At     time.Time // Wall-clock time of death.
}

// Status is a point-in-time summary of the game.
type Status struct {
	Tick       uint64 `json:"tick"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Snakes     int    `json:"snakes"`
	Alive      int    `json:"alive"`
	Food       int    `json:"food"`
	Players    int    `json:"players"`
	Spectators int    `json:"spectators"`
}

// Config holds the parameters of a new Game.
type Config struct {
	Width         int                // Grid columns.
	Height        int                // Grid rows.
	TickPeriod    time.Duration      // Target period between ticks.
	InitialFood   int                // Food items placed before the first tick.
	GrowthPerFood int                // Segments gained per food item.
	EventBuffer   int                // Capacity of the death event channel.
	Encoder       Encoder            // Wire encoder for frames, deaths and commands.
	Logger        logrus.FieldLogger // Logger, discarded when nil.
	Rand          *rand.Rand         // Randomness source for spawns, seeded from the clock when nil.
}

// Game is the authoritative snake server. It owns the world, the registered
// transports and the tick loop. One mutex guards all of them: commands,
// joins, leaves, ticks and broadcasts never interleave.
type Game struct {
	world      *World
	transports map[int]Transport       // Player transports indexed by snake id.
	spectators map[Transport]struct{}  // Frame-only transports.
	nextID     int                     // Next snake id; ids start at 1.
	tick       uint64                  // Ticks completed.
	period     time.Duration           // Target tick period.
	encoder    Encoder                 // Wire encoder.
	logger     logrus.FieldLogger      // Logger.
	events     chan DeathEvent         // Death events for consumers.
	stop       chan struct{}           // Closed to end the tick loop.
	stopOnce   sync.Once               // Guards stop.
	mu         sync.Mutex              // Guards everything above except the channels.
}

// New creates a Game and places the initial food.
func New(c Config) (*Game, error) {
	if c.Encoder == nil {
		return nil, ErrMissingEncoder
	}
	if c.TickPeriod <= 0 {
		return nil, ErrInvalidTickPeriod
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}

	world, err := NewWorld(c.Width, c.Height, c.GrowthPerFood, c.Rand)
	if err != nil {
		return nil, err
	}
	if c.InitialFood < 0 || c.InitialFood >= c.Width*c.Height {
		return nil, ErrTooMuchFood
	}
	for range c.InitialFood {
		world.SpawnFood()
	}

	return &Game{
		world:      world,
		transports: make(map[int]Transport),
		spectators: make(map[Transport]struct{}),
		nextID:     1,
		period:     c.TickPeriod,
		encoder:    c.Encoder,
		logger:     c.Logger,
		events:     make(chan DeathEvent, c.EventBuffer),
		stop:       make(chan struct{}),
	}, nil
}

// Join creates a snake for a new connection, registers its transport and
// returns the snake id.
func (g *Game) Join(t Transport) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	s := g.world.SpawnSnake(id)
	g.transports[id] = t

	g.logger.WithFields(logrus.Fields{"pid": id, "x": s.Head().X, "y": s.Head().Y, "dir": s.Dir}).Info("player joined")
	return id
}

// HandleCommand decodes one client line and applies it to the player's snake.
// Payloads that do not decode to a command are dropped.
func (g *Game) HandleCommand(id int, payload []byte) {
	dir, err := g.encoder.UnmarshalCommand(payload)
	if err != nil {
		g.logger.WithField("pid", id).WithError(err).Debug("dropped client message")
		return
	}

	g.mu.Lock()
	accepted := g.world.Turn(id, dir)
	g.mu.Unlock()

	if !accepted {
		g.logger.WithFields(logrus.Fields{"pid": id, "dir": dir}).Debug("turn refused")
	}
}

// Leave kills the player's snake and forgets its transport.
func (g *Game) Leave(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if s, ok := g.world.Snake(id); ok && g.world.Kill(id) {
		g.publish(DeathEvent{PID: id, Length: s.Len(), Tick: g.tick, At: time.Now()})
	}
	delete(g.transports, id)

	g.logger.WithField("pid", id).Info("player left")
}

// Watch registers a transport that receives frames without owning a snake.
func (g *Game) Watch(t Transport) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spectators[t] = struct{}{}
}

// Unwatch removes a spectator transport.
func (g *Game) Unwatch(t Transport) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.spectators, t)
}

// Events returns the channel death events are published on.
// Events are dropped when nobody drains it fast enough.
func (g *Game) Events() <-chan DeathEvent {
	return g.events
}

// Status returns a summary of the current state.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Status{
		Tick:       g.tick,
		Width:      g.world.Width(),
		Height:     g.world.Height(),
		Snakes:     g.world.SnakeCount(),
		Alive:      g.world.AliveCount(),
		Food:       len(g.world.food),
		Players:    len(g.transports),
		Spectators: len(g.spectators),
	}
}

// Start runs the tick loop until ctx is done or Stop is called.
// Each iteration ticks and broadcasts under the lock, then sleeps for what is
// left of the period. Late ticks are not made up.
func (g *Game) Start(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		start := time.Now()
		g.Tick()
		timer.Reset(max(0, g.period-time.Since(start)))

		select {
		case <-ctx.Done():
			return
		case <-g.stop:
			return
		case <-timer.C:
		}
	}
}

// Stop ends the tick loop. It is safe to call more than once.
func (g *Game) Stop() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
}

// Tick runs one physics step followed by a broadcast, atomically.
func (g *Game) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	dead := g.world.Step()
	g.tick++
	g.notifyDeaths(dead)
	g.broadcastFrame()
}

// notifyDeaths tells each snake that died this tick about it, on its own
// transport only. Write failures are ignored here; the broadcast catches them.
func (g *Game) notifyDeaths(dead []*Snake) {
	now := time.Now()
	for _, s := range dead {
		g.publish(DeathEvent{PID: s.ID, Length: s.Len(), Tick: g.tick, At: now})
		g.logger.WithFields(logrus.Fields{"pid": s.ID, "length": s.Len(), "tick": g.tick}).Info("snake died")

		t, ok := g.transports[s.ID]
		if !ok {
			continue
		}
		payload, err := g.encoder.MarshalDeath(s.ID)
		if err != nil {
			g.logger.WithError(err).Error("marshaling death message")
			continue
		}
		if err := t.Send(payload); err != nil {
			g.logger.WithField("pid", s.ID).WithError(err).Debug("death message not delivered")
		}
	}
}

// broadcastFrame sends the current grid to every transport. Transports that
// fail are dropped once the whole pass is done; their snakes are untouched.
func (g *Game) broadcastFrame() {
	payload, err := g.encoder.MarshalFrame(Frame{
		Width:  g.world.Width(),
		Height: g.world.Height(),
		Rows:   g.world.Render(),
	})
	if err != nil {
		g.logger.WithError(err).Error("marshaling frame")
		return
	}

	var failed []int
	for id, t := range g.transports {
		if err := t.Send(payload); err != nil {
			g.logger.WithField("pid", id).WithError(err).Info("dropping player transport")
			failed = append(failed, id)
		}
	}

	var failedSpectators []Transport
	for t := range g.spectators {
		if err := t.Send(payload); err != nil {
			g.logger.WithError(err).Info("dropping spectator")
			failedSpectators = append(failedSpectators, t)
		}
	}

	for _, id := range failed {
		delete(g.transports, id)
	}
	for _, t := range failedSpectators {
		delete(g.spectators, t)
	}
}

// publish hands an event to consumers without ever blocking the caller.
func (g *Game) publish(e DeathEvent) {
	select {
	case g.events <- e:
	default:
		g.logger.WithField("pid", e.PID).Warn("death event dropped, consumer too slow")
	}
}
