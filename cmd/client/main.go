// Command client is a terminal player for the snake server.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/beka-birhanu/vinom-snake/game"
	jsonenc "github.com/beka-birhanu/vinom-snake/game/json_encoder"
	"github.com/beka-birhanu/vinom-snake/tcp"
	"github.com/gdamore/tcell/v2"
)

// disconnected is posted to the event loop when the server goes away.
type disconnected struct{ err error }

type view struct {
	screen tcell.Screen
	frame  *game.Frame
	status string
}

func (v *view) draw() {
	v.screen.Clear()
	if v.frame != nil {
		for y, row := range v.frame.Rows {
			for x, ch := range row {
				v.screen.SetContent(x, y, ch, nil, glyphStyle(ch))
			}
		}
	}

	y := 0
	if v.frame != nil {
		y = len(v.frame.Rows) + 1
	}
	for x, ch := range v.status {
		v.screen.SetContent(x, y, ch, nil, tcell.StyleDefault.Foreground(tcell.ColorYellow))
	}
	v.screen.Show()
}

func glyphStyle(ch rune) tcell.Style {
	switch {
	case ch == '*':
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case ch >= '0' && ch <= '9':
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 8765, "server port")
	flag.Parse()

	if err := run(net.JoinHostPort(*host, strconv.Itoa(*port))); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr string) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	codec := &jsonenc.JSON{}
	socket, err := tcp.NewClientSocketManager(tcp.ClientConfig{
		ServerAddr: addr,
		OnServerResponse: func(b []byte) {
			msg, err := codec.UnmarshalServerMessage(b)
			if err != nil {
				return
			}
			_ = screen.PostEvent(tcell.NewEventInterrupt(msg))
		},
		OnDisconnect: func(err error) {
			_ = screen.PostEvent(tcell.NewEventInterrupt(disconnected{err: err}))
		},
	})
	if err != nil {
		return err
	}
	if err := socket.Connect(); err != nil {
		return err
	}
	defer socket.Close()

	v := &view{screen: screen, status: "connected to " + addr + "  (WASD/arrows, q to quit)"}
	v.draw()

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			v.draw()
		case *tcell.EventKey:
			action, dir := mapKey(ev)
			switch action {
			case actionQuit:
				return nil
			case actionTurn:
				line, err := codec.MarshalCommand(dir)
				if err == nil {
					_ = socket.Send(line)
				}
			}
		case *tcell.EventInterrupt:
			switch data := ev.Data().(type) {
			case *jsonenc.ServerMessage:
				if data.Type == jsonenc.FrameType {
					v.frame = data.Frame
				} else {
					v.status = fmt.Sprintf("You died (pid %d), spectating. q to quit", data.PID)
				}
			case disconnected:
				v.status = "server closed the connection. q to quit"
				if data.err != nil {
					v.status = "connection lost: " + data.err.Error() + ". q to quit"
				}
			}
			v.draw()
		case nil:
			return nil
		}
	}
}
