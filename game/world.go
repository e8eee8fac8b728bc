package game

import (
	"errors"
	"math/rand"
	"slices"
)

// World-related errors.
var (
	ErrInvalidDimension = errors.New("grid dimension is not big enough")
	ErrTooMuchFood      = errors.New("initial food does not fit in the grid")
	ErrInvalidGrowth    = errors.New("growth per food must not be negative")
)

const (
	minDimension = 2 // Smallest width or height that lets a head move off its own cell.

	emptyGlyph = '.'
	foodGlyph  = '*'
)

// Snake is one player's body on the grid.
type Snake struct {
	ID    int        // Player id, never reused within a run.
	Body  []Position // Segments, head first.
	Dir   Direction  // Current facing.
	Grow  int        // Segments still to be added, one per tick.
	Alive bool       // Dead snakes stay in the world but are inert.
}

// Head returns the first segment.
func (s *Snake) Head() Position {
	return s.Body[0]
}

// Len returns the number of segments.
func (s *Snake) Len() int {
	return len(s.Body)
}

// World is the shared game state: a toroidal grid, snakes and food.
// It is not safe for concurrent use; Game serializes every access.
type World struct {
	width  int
	height int
	growth int                   // Pending growth added per food eaten.
	snakes map[int]*Snake        // Every snake ever spawned this run, indexed by id.
	food   map[Position]struct{} // Food cells.
	rng    *rand.Rand
}

// NewWorld creates an empty world of the given size.
func NewWorld(width, height, growth int, rng *rand.Rand) (*World, error) {
	if width < minDimension || height < minDimension {
		return nil, ErrInvalidDimension
	}
	if growth < 0 {
		return nil, ErrInvalidGrowth
	}

	return &World{
		width:  width,
		height: height,
		growth: growth,
		snakes: make(map[int]*Snake),
		food:   make(map[Position]struct{}),
		rng:    rng,
	}, nil
}

// Width returns the number of columns.
func (w *World) Width() int { return w.width }

// Height returns the number of rows.
func (w *World) Height() int { return w.height }

// SpawnSnake places a new length-one snake on a random cell facing a random
// direction. Existing snakes are not checked, so a spawn may overlap one.
func (w *World) SpawnSnake(id int) *Snake {
	pos := Position{X: w.rng.Intn(w.width), Y: w.rng.Intn(w.height)}
	s := &Snake{
		ID:    id,
		Body:  []Position{pos},
		Dir:   AllDirections[w.rng.Intn(len(AllDirections))],
		Alive: true,
	}
	w.snakes[id] = s
	return s
}

// Snake looks a snake up by id, dead or alive.
func (w *World) Snake(id int) (*Snake, bool) {
	s, ok := w.snakes[id]
	return s, ok
}

// Turn applies a direction change request and reports whether it was taken.
// Requests for unknown or dead snakes are ignored. A snake of two or more
// segments refuses the one direction that points its head back onto its neck.
func (w *World) Turn(id int, d Direction) bool {
	s, ok := w.snakes[id]
	if !ok || !s.Alive {
		return false
	}

	if s.Len() >= 2 && w.wrap(s.Head().Add(d.Vector())) == s.Body[1] {
		return false
	}

	s.Dir = d
	return true
}

// Kill marks a snake dead. It reports whether the snake was alive.
func (w *World) Kill(id int) bool {
	s, ok := w.snakes[id]
	if !ok || !s.Alive {
		return false
	}
	s.Alive = false
	return true
}

// SpawnFood drops one food item on a random cell holding neither food nor a
// living snake segment. The search samples until it succeeds and never gives
// up, so it spins forever once no such cell exists.
func (w *World) SpawnFood() Position {
	for {
		p := Position{X: w.rng.Intn(w.width), Y: w.rng.Intn(w.height)}
		if w.occupied(p) {
			continue
		}
		if _, ok := w.food[p]; ok {
			continue
		}
		w.food[p] = struct{}{}
		return p
	}
}

// Food returns the food cells ordered by row then column.
func (w *World) Food() []Position {
	food := make([]Position, 0, len(w.food))
	for p := range w.food {
		food = append(food, p)
	}
	slices.SortFunc(food, func(a, b Position) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return food
}

// HasFood reports whether p holds food.
func (w *World) HasFood(p Position) bool {
	_, ok := w.food[p]
	return ok
}

// AliveCount returns the number of living snakes.
func (w *World) AliveCount() int {
	n := 0
	for _, s := range w.snakes {
		if s.Alive {
			n++
		}
	}
	return n
}

// SnakeCount returns the number of snakes spawned this run.
func (w *World) SnakeCount() int {
	return len(w.snakes)
}

// Step advances the world by one tick and returns the snakes that died in it.
//
// Every living snake moves at once: candidate heads are tested against the
// bodies as they were before the tick, own body and own tail included, so two
// heads entering the same empty cell both survive while a head entering a
// tail that is about to move away still dies. Survivors are then moved in id
// order, eating and growing as they go.
func (w *World) Step() []*Snake {
	alive := w.aliveSnakes()

	occupied := make(map[Position]struct{})
	for _, s := range alive {
		for _, p := range s.Body {
			occupied[p] = struct{}{}
		}
	}

	heads := make(map[int]Position, len(alive))
	var dead []*Snake
	for _, s := range alive {
		next := w.wrap(s.Head().Add(s.Dir.Vector()))
		if _, hit := occupied[next]; hit {
			dead = append(dead, s)
			continue
		}
		heads[s.ID] = next
	}

	for _, s := range dead {
		s.Alive = false
	}

	for _, s := range alive {
		head, ok := heads[s.ID]
		if !ok {
			continue
		}

		s.Body = slices.Insert(s.Body, 0, head)
		if _, ok := w.food[head]; ok {
			delete(w.food, head)
			s.Grow += w.growth
			w.SpawnFood()
		}

		if s.Grow > 0 {
			s.Grow--
		} else {
			s.Body = s.Body[:len(s.Body)-1]
		}
	}

	return dead
}

// Render draws the grid as one string per row. Living snakes use the last
// digit of their id; digits have no case, so the head and the body share the
// glyph and two ids with the same last digit look identical.
func (w *World) Render() []string {
	grid := make([][]byte, w.height)
	for y := range grid {
		grid[y] = make([]byte, w.width)
		for x := range grid[y] {
			grid[y][x] = emptyGlyph
		}
	}

	for p := range w.food {
		grid[p.Y][p.X] = foodGlyph
	}

	for _, s := range w.aliveSnakes() {
		glyph := byte('0' + s.ID%10)
		for _, p := range s.Body {
			grid[p.Y][p.X] = glyph
		}
	}

	rows := make([]string, w.height)
	for y, row := range grid {
		rows[y] = string(row)
	}
	return rows
}

// aliveSnakes returns living snakes ordered by id.
func (w *World) aliveSnakes() []*Snake {
	alive := make([]*Snake, 0, len(w.snakes))
	for _, s := range w.snakes {
		if s.Alive {
			alive = append(alive, s)
		}
	}
	slices.SortFunc(alive, func(a, b *Snake) int { return a.ID - b.ID })
	return alive
}

// occupied reports whether a living snake has a segment on p.
func (w *World) occupied(p Position) bool {
	for _, s := range w.snakes {
		if !s.Alive {
			continue
		}
		if slices.Contains(s.Body, p) {
			return true
		}
	}
	return false
}

// wrap folds p back onto the torus.
func (w *World) wrap(p Position) Position {
	return Position{
		X: ((p.X % w.width) + w.width) % w.width,
		Y: ((p.Y % w.height) + w.height) % w.height,
	}
}
