package arenaapi

import (
	"bytes"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Websocket settings.
const (
	writeWait      = time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// spectator is a frame-only transport backed by a websocket. Each frame is
// one text message without the line terminator.
type spectator struct {
	conn      *websocket.Conn
	logger    logrus.FieldLogger
	mu        sync.Mutex // Serializes writes.
	done      chan struct{}
	closeOnce sync.Once
}

func newSpectator(conn *websocket.Conn, logger logrus.FieldLogger) *spectator {
	return &spectator{
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Send writes one payload, failing after writeWait.
func (s *spectator) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(payload, "\n"))
}

// run pings the peer and discards what it sends until the connection fails,
// then calls leave and closes the socket.
func (s *spectator) run(leave func()) {
	go s.pingLoop()

	defer func() {
		leave()
		s.close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithError(err).Debug("spectator read failed")
			}
			return
		}
	}
}

func (s *spectator) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *spectator) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			s.logger.WithError(err).Debug("closing spectator")
		}
	})
}
