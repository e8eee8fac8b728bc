package tcp

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("client socket is not connected")

// ClientConfig holds the parameters of a ClientSocketManager.
type ClientConfig struct {
	ServerAddr       string             // Address of the game server.
	OnServerResponse func([]byte)       // Called with every line the server sends.
	OnDisconnect     func(error)        // Called once when the read loop ends; nil error on clean close.
	MaxLineSize      int                // Longest accepted server line.
	Logger           logrus.FieldLogger // Logger, discarded when nil.
}

// ClientSocketManager is the player side of the line protocol.
type ClientSocketManager struct {
	config    ClientConfig
	conn      net.Conn
	done      chan struct{}
	closeOnce sync.Once
	sync.Mutex
}

// NewClientSocketManager validates the configuration. Call Connect to dial.
func NewClientSocketManager(c ClientConfig) (*ClientSocketManager, error) {
	if c.OnServerResponse == nil {
		c.OnServerResponse = func([]byte) {}
	}
	if c.OnDisconnect == nil {
		c.OnDisconnect = func(error) {}
	}
	if c.MaxLineSize <= 0 {
		// Frames grow with the grid; leave plenty of room.
		c.MaxLineSize = 1 << 20
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}

	return &ClientSocketManager{config: c, done: make(chan struct{})}, nil
}

// Connect dials the server and starts reading in the background.
func (c *ClientSocketManager) Connect() error {
	conn, err := net.Dial("tcp", c.config.ServerAddr)
	if err != nil {
		return err
	}

	c.Lock()
	c.conn = conn
	c.Unlock()

	c.config.Logger.Infof("connected to %s", c.config.ServerAddr)
	go c.readLoop(conn)
	return nil
}

// Send writes one line to the server. A missing terminator is added.
func (c *ClientSocketManager) Send(line []byte) error {
	c.Lock()
	defer c.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	_, err := c.conn.Write(line)
	return err
}

// Close closes the connection. The read loop then ends and OnDisconnect runs.
func (c *ClientSocketManager) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.Close()
}

// Done is closed once the read loop has ended.
func (c *ClientSocketManager) Done() <-chan struct{} {
	return c.done
}

func (c *ClientSocketManager) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, initialReadBuffer), c.config.MaxLineSize)
	for scanner.Scan() {
		c.config.OnServerResponse(scanner.Bytes())
	}

	err := scanner.Err()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	c.config.Logger.WithError(err).Debug("server connection ended")
	c.config.OnDisconnect(err)
	c.closeOnce.Do(func() { close(c.done) })
}
