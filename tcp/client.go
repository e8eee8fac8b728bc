package tcp

import (
	"net"
	"sync"
	"time"
)

// Client is one accepted connection. It is the server side of a session and
// the transport the game writes frames to.
type Client struct {
	ID int // Snake id handed out by the register handler.

	conn         net.Conn      // Underlying connection.
	writeTimeout time.Duration // Deadline applied to each write, none when zero.
	closeOnce    sync.Once     // Guards closing conn.
	closeErr     error         // Result of the first Close.

	sync.Mutex // Serializes writes.
}

func newClient(conn net.Conn, writeTimeout time.Duration) *Client {
	return &Client{conn: conn, writeTimeout: writeTimeout}
}

// Send writes one complete message to the peer.
func (c *Client) Send(payload []byte) error {
	c.Lock()
	defer c.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(payload)
	return err
}

// Close closes the connection. Later calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer address.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
