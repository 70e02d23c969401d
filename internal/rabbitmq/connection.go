package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultDialTimeout = 30 * time.Second
	defaultHeartbeat   = 10 * time.Second
)

// Connection owns a single broker connection. It does not reconnect; once
// the broker closes it every Channel call fails with ErrConnectionClosed.
type Connection struct {
	url         string
	dialTimeout time.Duration
	heartbeat   time.Duration
	logger      *slog.Logger

	mu   sync.RWMutex
	conn *amqp.Connection
}

// ConnectionOption configures the Connection
type ConnectionOption func(*Connection)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithDialTimeout sets how long Connect waits for the broker
func WithDialTimeout(timeout time.Duration) ConnectionOption {
	return func(c *Connection) {
		c.dialTimeout = timeout
	}
}

// WithHeartbeat sets the heartbeat interval negotiated with the broker
func WithHeartbeat(interval time.Duration) ConnectionOption {
	return func(c *Connection) {
		c.heartbeat = interval
	}
}

// NewConnection creates an unconnected Connection
func NewConnection(url string, options ...ConnectionOption) *Connection {
	c := &Connection{
		url:         url,
		dialTimeout: defaultDialTimeout,
		heartbeat:   defaultHeartbeat,
		logger:      slog.Default(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// Connect dials the broker. It is a no-op while connected.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	connCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	connChan := make(chan *amqp.Connection, 1)
	errChan := make(chan error, 1)

	go func() {
		conn, err := amqp.DialConfig(c.url, amqp.Config{
			Heartbeat: c.heartbeat,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(c.dialTimeout),
		})
		if err != nil {
			errChan <- err
			return
		}
		select {
		case connChan <- conn:
		case <-connCtx.Done():
			conn.Close()
		}
	}()

	select {
	case conn := <-connChan:
		c.conn = conn
		c.watch(conn)
		c.logger.Info("connected to RabbitMQ", "url", SanitizeURL(c.url))
		return nil

	case err := <-errChan:
		return &ConnectionError{
			Op:  "connect",
			URL: SanitizeURL(c.url),
			Err: err,
		}

	case <-connCtx.Done():
		return &ConnectionError{
			Op:  "connect",
			URL: SanitizeURL(c.url),
			Err: ErrConnectionTimeout,
		}
	}
}

func (c *Connection) watch(conn *amqp.Connection) {
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok && err != nil {
			c.logger.Error("connection closed by broker", "error", err)
		}
	}()
}

// Channel opens a new channel on the connection
func (c *Connection) Channel() (Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return nil, ErrConnectionNotReady
	}
	if c.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// IsConnected reports whether the connection is open
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	conn := c.conn
	c.conn = nil
	if conn.IsClosed() {
		return nil
	}
	return conn.Close()
}
