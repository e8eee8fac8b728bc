package i

import "github.com/beka-birhanu/vinom-snake/game"

// GameServer is the running snake game as seen by the service layer.
type GameServer interface {
	// Events returns the channel death events are published on.
	Events() <-chan game.DeathEvent

	// Status returns a summary of the current state.
	Status() game.Status

	// Watch registers a frame-only transport.
	Watch(game.Transport)

	// Unwatch removes a frame-only transport.
	Unwatch(game.Transport)
}
