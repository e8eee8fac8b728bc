package game

import "errors"

// ErrUnknownMessage is returned by encoders for well-formed payloads that are not a known message.
var ErrUnknownMessage = errors.New("unknown message")

// Frame is a full snapshot of the grid as sent to clients.
type Frame struct {
	Width  int
	Height int
	Rows   []string // Height rows of Width glyphs each.
}

// Encoder converts game messages to and from their wire form.
// Marshaled payloads must be complete wire messages, terminator included.
type Encoder interface {
	MarshalFrame(Frame) ([]byte, error)
	MarshalDeath(pid int) ([]byte, error)
	UnmarshalCommand([]byte) (Direction, error)
}

// Transport is an output channel to one connected peer.
type Transport interface {
	Send([]byte) error
}
