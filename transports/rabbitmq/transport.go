package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/glimte/zula-go/internal/rabbitmq"
	"github.com/glimte/zula-go/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Transport implements messaging.Transport for RabbitMQ
type Transport struct {
	conn      *rabbitmq.Connection
	source    rabbitmq.ChannelSource
	queues    *rabbitmq.QueueManager
	publisher *rabbitmq.Publisher
	cfg       *TransportConfig

	mu        sync.Mutex
	listeners []*rabbitmq.Listener
	closed    bool
}

// TransportConfig holds configuration for the transport
type TransportConfig struct {
	ConnectionOptions []rabbitmq.ConnectionOption
	PublisherOptions  []rabbitmq.PublisherOption
	ListenerOptions   []rabbitmq.ListenerOption
	Logger            *slog.Logger
}

// TransportOption configures the transport
type TransportOption func(*TransportConfig)

// WithConnectionOptions sets connection options
func WithConnectionOptions(opts ...rabbitmq.ConnectionOption) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.ConnectionOptions = append(cfg.ConnectionOptions, opts...)
	}
}

// WithPublisherOptions sets publisher options
func WithPublisherOptions(opts ...rabbitmq.PublisherOption) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.PublisherOptions = append(cfg.PublisherOptions, opts...)
	}
}

// WithListenerOptions sets options applied to every listener container
func WithListenerOptions(opts ...rabbitmq.ListenerOption) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.ListenerOptions = append(cfg.ListenerOptions, opts...)
	}
}

// WithLogger sets the logger shared by all transport components
func WithLogger(logger *slog.Logger) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.Logger = logger
	}
}

// NewTransport connects to the broker at url
func NewTransport(ctx context.Context, url string, options ...TransportOption) (*Transport, error) {
	cfg := &TransportConfig{
		Logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	conn := rabbitmq.NewConnection(url, append([]rabbitmq.ConnectionOption{
		rabbitmq.WithLogger(cfg.Logger),
	}, cfg.ConnectionOptions...)...)

	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return newTransport(conn, conn, cfg), nil
}

func newTransport(conn *rabbitmq.Connection, channels rabbitmq.ChannelSource, cfg *TransportConfig) *Transport {
	queues := rabbitmq.NewQueueManager(channels, rabbitmq.WithQueueManagerLogger(cfg.Logger))
	publisher := rabbitmq.NewPublisher(channels, append([]rabbitmq.PublisherOption{
		rabbitmq.WithPublisherLogger(cfg.Logger),
	}, cfg.PublisherOptions...)...)

	return &Transport{
		conn:      conn,
		source:    channels,
		queues:    queues,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Send publishes body to exchange with routingKey and waits for the confirm
func (t *Transport) Send(ctx context.Context, exchange, routingKey string, body []byte) error {
	return t.publisher.Send(ctx, exchange, routingKey, body)
}

// NewListenerContainer creates a container consuming on its own channel.
// The transport stops it on Close.
func (t *Transport) NewListenerContainer() messaging.ListenerContainer {
	listener := rabbitmq.NewListener(t.source, append([]rabbitmq.ListenerOption{
		rabbitmq.WithListenerLogger(t.cfg.Logger),
	}, t.cfg.ListenerOptions...)...)

	t.mu.Lock()
	t.listeners = append(t.listeners, listener)
	t.mu.Unlock()

	return &listenerContainer{listener: listener}
}

// QueueManager returns the queue manager naming and provisioning queues
func (t *Transport) QueueManager() messaging.QueueManager {
	return t.queues
}

// IsConnected reports whether the broker connection is open
func (t *Transport) IsConnected() bool {
	return t.conn != nil && t.conn.IsConnected()
}

// Close stops all listeners, then closes the publisher and the connection
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	listeners := t.listeners
	t.listeners = nil
	t.mu.Unlock()

	for _, l := range listeners {
		l.Stop()
	}

	var firstErr error
	if err := t.publisher.Close(); err != nil {
		firstErr = err
	}
	if t.conn != nil {
		if err := t.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// listenerContainer adapts a rabbitmq.Listener to messaging.ListenerContainer
type listenerContainer struct {
	listener *rabbitmq.Listener
}

func (c *listenerContainer) SetQueueNames(names ...string) {
	c.listener.SetQueueNames(names...)
}

func (c *listenerContainer) SetMessageListener(listener messaging.MessageListener) {
	c.listener.SetHandler(func(ctx context.Context, d amqp.Delivery) {
		listener(ctx, delivery{d})
	})
}

func (c *listenerContainer) Start(ctx context.Context) error {
	return c.listener.Start(ctx)
}

// delivery adapts amqp.Delivery to messaging.Delivery
type delivery struct {
	raw amqp.Delivery
}

func (d delivery) Body() []byte {
	return d.raw.Body
}

func (d delivery) Headers() map[string]interface{} {
	return d.raw.Headers
}

var _ messaging.Transport = (*Transport)(nil)
