package game

import "errors"

// ErrUnknownDirection is returned when a direction name is not one of U, D, L, R.
var ErrUnknownDirection = errors.New("unknown direction")

// Direction is a facing a snake can move in.
type Direction string

// Directions understood on the wire.
const (
	Up    Direction = "U"
	Down  Direction = "D"
	Left  Direction = "L"
	Right Direction = "R"
)

var (
	// AllDirections lists every direction in a stable order.
	AllDirections = []Direction{Up, Down, Left, Right}

	vectors = map[Direction]Position{
		Up:    {X: 0, Y: -1},
		Down:  {X: 0, Y: 1},
		Left:  {X: -1, Y: 0},
		Right: {X: 1, Y: 0},
	}
)

// ParseDirection converts a wire direction name into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if _, ok := vectors[d]; !ok {
		return "", ErrUnknownDirection
	}
	return d, nil
}

// Vector returns the unit step of the direction. Y grows downwards.
func (d Direction) Vector() Position {
	return vectors[d]
}

// Position is a cell on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the component-wise sum of p and o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}
