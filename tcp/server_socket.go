package tcp

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ClientRegisterHandler is called for every accepted connection before its
// read loop starts. It returns the id the connection is known by.
type ClientRegisterHandler func(*Client) int

// ClientRequestHandler is called with every line a client sends, terminator stripped.
type ClientRequestHandler func(int, []byte)

// ClientLeaveHandler is called once when a client's read loop ends.
type ClientLeaveHandler func(int)

type ServerOption func(*ServerSocketManager)

// Custom error types
var (
	ErrMissingRegisterHandler = errors.New("client register handler is required")
	ErrServerClosed           = errors.New("server socket closed")
)

const (
	defaultMaxLineSize  int = 4096
	initialReadBuffer   int = 512
	defaultWriteTimeout     = time.Second
)

// ServerSocketManager is a TCP socket manager that accepts connections and
// runs one line-oriented read loop per client.
type ServerSocketManager struct {
	maxLineSize      int                   // Longest accepted line; longer lines end the session.
	writeTimeout     time.Duration         // Write deadline handed to every client.
	listener         net.Listener          // Listener to accept from.
	onClientRegister ClientRegisterHandler // Called when a connection is accepted.
	onClientRequest  ClientRequestHandler  // Called for every received line.
	onClientLeave    ClientLeaveHandler    // Called when a client's connection ends.
	clients          map[int]*Client       // Map of connected clients indexed by their identifier.
	clientsLock      sync.RWMutex          // Read-write lock for accessing the clients map.
	logger           logrus.FieldLogger    // Logger.
	stop             chan struct{}         // Closed to signal stopping the server.
	stopOnce         sync.Once             // Guards stop.
	wg               *sync.WaitGroup       // WaitGroup to manage client goroutines.
}

// ServerConfig is a struct used to pass the required parameters to initialize a new ServerSocketManager
type ServerConfig struct {
	ListenAddr string // TCP address to listen on.
}

// NewServerSocketManager binds the listener and applies the options.
func NewServerSocketManager(c ServerConfig, options ...ServerOption) (*ServerSocketManager, error) {
	s := &ServerSocketManager{
		clients: make(map[int]*Client),
		stop:    make(chan struct{}),
		wg:      &sync.WaitGroup{},
	}

	// Run optional configurations
	for _, opt := range options {
		opt(s)
	}

	if s.onClientRegister == nil {
		return nil, ErrMissingRegisterHandler
	}
	if s.onClientRequest == nil {
		s.onClientRequest = func(int, []byte) {}
	}
	if s.onClientLeave == nil {
		s.onClientLeave = func(int) {}
	}
	if s.maxLineSize <= 0 {
		s.maxLineSize = defaultMaxLineSize
	}
	if s.writeTimeout == 0 {
		s.writeTimeout = defaultWriteTimeout
	}
	if s.logger == nil {
		// Discard logging if no logger is set
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}

	listener, err := net.Listen("tcp", c.ListenAddr)
	if err != nil {
		return nil, err
	}
	s.listener = listener

	return s, nil
}

// Serve accepts connections until Stop is called. It always returns a
// non-nil error; after Stop that error is ErrServerClosed.
func (s *ServerSocketManager) Serve() error {
	s.logger.Infof("server listening on tcp address: %v", s.listener.Addr().String())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return ErrServerClosed
			default:
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.WithError(err).Warn("temporary accept error")
				continue
			}
			return err
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Stop stops accepting, closes every client connection and waits for the
// read loops to finish. It is safe to call more than once.
func (s *ServerSocketManager) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("server stopping gracefully...")
		defer s.logger.Info("server stopped")

		close(s.stop)
		if err := s.listener.Close(); err != nil {
			s.logger.WithError(err).Warn("closing listener")
		}

		s.clientsLock.RLock()
		for _, cl := range s.clients {
			_ = cl.Close()
		}
		s.clientsLock.RUnlock()

		s.wg.Wait()
	})
}

// Addr returns the address the server listens on.
func (s *ServerSocketManager) Addr() string {
	return s.listener.Addr().String()
}

// ClientCount returns the number of connected clients.
func (s *ServerSocketManager) ClientCount() int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.clients)
}

// handleConn registers the connection and runs its read loop until the peer
// goes away, the line limit is exceeded or the server stops.
func (s *ServerSocketManager) handleConn(conn net.Conn) {
	defer s.wg.Done()

	cl := newClient(conn, s.writeTimeout)
	cl.ID = s.onClientRegister(cl)

	s.clientsLock.Lock()
	s.clients[cl.ID] = cl
	s.clientsLock.Unlock()

	// Stop may have swept the clients map before this one was added.
	select {
	case <-s.stop:
		_ = cl.Close()
	default:
	}

	log := s.logger.WithFields(logrus.Fields{"pid": cl.ID, "addr": cl.RemoteAddr()})
	log.Info("accepted connection")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, min(initialReadBuffer, s.maxLineSize)), s.maxLineSize)
	for scanner.Scan() {
		s.onClientRequest(cl.ID, scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		log.WithError(err).Debug("read loop ended")
	}

	s.onClientLeave(cl.ID)

	s.clientsLock.Lock()
	delete(s.clients, cl.ID)
	s.clientsLock.Unlock()

	if err := cl.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).Debug("closing connection")
	}
	log.Info("connection closed")
}

// ServerWithClientRegisterHandler sets the callback that registers accepted connections
func ServerWithClientRegisterHandler(f ClientRegisterHandler) ServerOption {
	return func(s *ServerSocketManager) {
		s.onClientRegister = f
	}
}

// ServerWithClientRequestHandler sets the callback that receives client lines
func ServerWithClientRequestHandler(f ClientRequestHandler) ServerOption {
	return func(s *ServerSocketManager) {
		s.onClientRequest = f
	}
}

// ServerWithClientLeaveHandler sets the callback run when a client disconnects
func ServerWithClientLeaveHandler(f ClientLeaveHandler) ServerOption {
	return func(s *ServerSocketManager) {
		s.onClientLeave = f
	}
}

// ServerWithMaxLineSize sets the longest accepted line
func ServerWithMaxLineSize(i int) ServerOption {
	return func(s *ServerSocketManager) {
		s.maxLineSize = i
	}
}

// ServerWithWriteTimeout sets the per-message write deadline; negative disables it
func ServerWithWriteTimeout(t time.Duration) ServerOption {
	return func(s *ServerSocketManager) {
		s.writeTimeout = t
	}
}

// ServerWithLogger sets the logger
func ServerWithLogger(l logrus.FieldLogger) ServerOption {
	return func(s *ServerSocketManager) {
		s.logger = l
	}
}
