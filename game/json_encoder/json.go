// Package jsonenc encodes game messages as newline-delimited JSON.
package jsonenc

import (
	"bytes"

	"github.com/beka-birhanu/vinom-snake/game"
	"github.com/goccy/go-json"
)

var _ game.Encoder = &JSON{}

// Message types carried in the "type" field.
const (
	CommandType = "cmd"
	FrameType   = "frame"
	DeathType   = "dead"
)

const lineTerminator = '\n'

type commandMessage struct {
	Type string `json:"type"`
	Dir  string `json:"dir"`
}

type frameMessage struct {
	Type string   `json:"type"`
	W    int      `json:"w"`
	H    int      `json:"h"`
	Rows []string `json:"rows"`
}

type deathMessage struct {
	Type string `json:"type"`
	PID  int    `json:"pid"`
}

// ServerMessage is a decoded server-to-client line.
// Frame is set for frame messages, PID for death messages.
type ServerMessage struct {
	Type  string
	Frame *game.Frame
	PID   int
}

// JSON is a line-delimited JSON codec for both sides of the protocol.
type JSON struct{}

// MarshalFrame implements game.Encoder.
func (j *JSON) MarshalFrame(f game.Frame) ([]byte, error) {
	return marshalLine(frameMessage{Type: FrameType, W: f.Width, H: f.Height, Rows: f.Rows})
}

// MarshalDeath implements game.Encoder.
func (j *JSON) MarshalDeath(pid int) ([]byte, error) {
	return marshalLine(deathMessage{Type: DeathType, PID: pid})
}

// UnmarshalCommand implements game.Encoder.
func (j *JSON) UnmarshalCommand(b []byte) (game.Direction, error) {
	var msg commandMessage
	if err := json.Unmarshal(bytes.TrimSpace(b), &msg); err != nil {
		return "", err
	}
	if msg.Type != CommandType {
		return "", game.ErrUnknownMessage
	}
	return game.ParseDirection(msg.Dir)
}

// MarshalCommand encodes a direction change request.
func (j *JSON) MarshalCommand(d game.Direction) ([]byte, error) {
	return marshalLine(commandMessage{Type: CommandType, Dir: string(d)})
}

// UnmarshalServerMessage decodes a frame or death line.
func (j *JSON) UnmarshalServerMessage(b []byte) (*ServerMessage, error) {
	b = bytes.TrimSpace(b)

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Type {
	case FrameType:
		var msg frameMessage
		if err := json.Unmarshal(b, &msg); err != nil {
			return nil, err
		}
		return &ServerMessage{Type: FrameType, Frame: &game.Frame{Width: msg.W, Height: msg.H, Rows: msg.Rows}}, nil
	case DeathType:
		var msg deathMessage
		if err := json.Unmarshal(b, &msg); err != nil {
			return nil, err
		}
		return &ServerMessage{Type: DeathType, PID: msg.PID}, nil
	default:
		return nil, game.ErrUnknownMessage
	}
}

func marshalLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, lineTerminator), nil
}
