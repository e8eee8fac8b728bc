package main

import (
	"github.com/beka-birhanu/vinom-snake/game"
	"github.com/gdamore/tcell/v2"
)

// keyAction is what a key press asks the client to do.
type keyAction int

const (
	actionNone keyAction = iota
	actionTurn
	actionQuit
)

var runeDirections = map[rune]game.Direction{
	'w': game.Up, 'W': game.Up,
	's': game.Down, 'S': game.Down,
	'a': game.Left, 'A': game.Left,
	'd': game.Right, 'D': game.Right,
}

var keyDirections = map[tcell.Key]game.Direction{
	tcell.KeyUp:    game.Up,
	tcell.KeyDown:  game.Down,
	tcell.KeyLeft:  game.Left,
	tcell.KeyRight: game.Right,
}

// mapKey translates a key event. The direction is only set for actionTurn.
func mapKey(ev *tcell.EventKey) (keyAction, game.Direction) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return actionQuit, ""
	case tcell.KeyRune:
		if ev.Rune() == 'q' || ev.Rune() == 'Q' {
			return actionQuit, ""
		}
		if d, ok := runeDirections[ev.Rune()]; ok {
			return actionTurn, d
		}
		return actionNone, ""
	}

	if d, ok := keyDirections[ev.Key()]; ok {
		return actionTurn, d
	}
	return actionNone, ""
}
