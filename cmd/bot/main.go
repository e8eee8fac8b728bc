// Command bot connects to the snake server and steers at random.
package main

import (
	"context"
	"flag"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/beka-birhanu/vinom-snake/game"
	jsonenc "github.com/beka-birhanu/vinom-snake/game/json_encoder"
	logger "github.com/beka-birhanu/vinom-snake/infrastruture/log"
	"github.com/beka-birhanu/vinom-snake/tcp"
	"github.com/sirupsen/logrus"
)

const colorMagenta = "\033[35m"

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 8765, "server port")
	interval := flag.Duration("interval", 300*time.Millisecond, "time between direction changes")
	flag.Parse()

	log, err := logger.New("BOT", colorMagenta, os.Stdout)
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, net.JoinHostPort(*host, strconv.Itoa(*port)), *interval, log); err != nil {
		log.WithError(err).Error("bot stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, interval time.Duration, log logrus.FieldLogger) error {
	codec := &jsonenc.JSON{}
	socket, err := tcp.NewClientSocketManager(tcp.ClientConfig{
		ServerAddr: addr,
		OnServerResponse: func(b []byte) {
			msg, err := codec.UnmarshalServerMessage(b)
			if err == nil && msg.Type == jsonenc.DeathType {
				log.WithField("pid", msg.PID).Info("died, still watching")
			}
		},
		Logger: log,
	})
	if err != nil {
		return err
	}
	if err := socket.Connect(); err != nil {
		return err
	}
	defer socket.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-socket.Done():
			log.Info("server closed the connection")
			return nil
		case <-ticker.C:
			line, err := codec.MarshalCommand(game.AllDirections[rng.Intn(len(game.AllDirections))])
			if err != nil {
				return err
			}
			if err := socket.Send(line); err != nil {
				return err
			}
		}
	}
}
