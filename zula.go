// Copyright 2024 Zula Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zula

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/zula-go/config"
	"github.com/glimte/zula-go/health"
	"github.com/glimte/zula-go/internal/rabbitmq"
	"github.com/glimte/zula-go/messaging"
	"github.com/glimte/zula-go/routing"
	rabbitmqTransport "github.com/glimte/zula-go/transports/rabbitmq"
)

// Client provides the main entry point for zula-go
type Client struct {
	transport messaging.Transport
	registry  *messaging.Registry
	publisher *messaging.Publisher
	logger    *slog.Logger
}

// NewClient connects to RabbitMQ at url and wires a registry and publisher
// over the connection
func NewClient(ctx context.Context, url string, options ...ClientOption) (*Client, error) {
	cfg := newClientConfig(options)

	transportOpts := []rabbitmqTransport.TransportOption{
		rabbitmqTransport.WithLogger(cfg.logger),
		rabbitmqTransport.WithListenerOptions(cfg.listenerOptions...),
	}
	if cfg.confirmTimeout > 0 {
		transportOpts = append(transportOpts, rabbitmqTransport.WithPublisherOptions(
			rabbitmq.WithConfirmTimeout(cfg.confirmTimeout),
		))
	}

	transport, err := rabbitmqTransport.NewTransport(ctx, url, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return newClient(transport, cfg), nil
}

// NewClientFromConfig reads the broker URL and the service name from src
func NewClientFromConfig(ctx context.Context, src config.Source, options ...ClientOption) (*Client, error) {
	url := src.GetString(config.KeyBrokerURL)
	if url == "" {
		return nil, &messaging.ValidationError{Field: config.KeyBrokerURL, Reason: "must not be blank"}
	}
	return NewClient(ctx, url, append([]ClientOption{WithConfig(src)}, options...)...)
}

// NewClientWithTransport wires a client over an existing transport
func NewClientWithTransport(transport messaging.Transport, options ...ClientOption) *Client {
	return newClient(transport, newClientConfig(options))
}

func newClient(transport messaging.Transport, cfg *clientConfig) *Client {
	var resolverOpts []routing.ResolverOption
	if cfg.types != nil {
		resolverOpts = append(resolverOpts, routing.WithTypeLookup(cfg.types))
	}
	resolver := routing.NewTypeResolver(resolverOpts...)

	registryOpts := []messaging.RegistryOption{
		messaging.WithRegistryLogger(cfg.logger),
		messaging.WithRegistryResolver(resolver),
	}
	publisherOpts := []messaging.PublisherOption{
		messaging.WithPublisherLogger(cfg.logger),
		messaging.WithPublisherResolver(resolver),
	}
	if cfg.config != nil {
		registryOpts = append(registryOpts, messaging.WithRegistryConfig(cfg.config))
	}
	if cfg.codec != nil {
		registryOpts = append(registryOpts, messaging.WithRegistryCodec(cfg.codec))
		publisherOpts = append(publisherOpts, messaging.WithPublisherCodec(cfg.codec))
	}

	queues := transport.QueueManager()

	return &Client{
		transport: transport,
		registry:  messaging.NewRegistry(transport, queues, registryOpts...),
		publisher: messaging.NewPublisher(transport, queues, publisherOpts...),
		logger:    cfg.logger,
	}
}

// Registry returns the handler registry
func (c *Client) Registry() *messaging.Registry {
	return c.registry
}

// Publisher returns the message publisher
func (c *Client) Publisher() *messaging.Publisher {
	return c.publisher
}

// Transport returns the underlying transport
func (c *Client) Transport() messaging.Transport {
	return c.transport
}

// ServiceName returns the identity the client's queues are named after
func (c *Client) ServiceName() string {
	return c.registry.ServiceName()
}

// Health checks the broker connection and that every queue in
// expectedQueues has a handler bound
func (c *Client) Health(ctx context.Context, expectedQueues ...string) health.OverallHealth {
	checks := health.NewRegistry(health.NewBindingsChecker(c.registry, expectedQueues...))
	if conn, ok := c.transport.(health.Connectivity); ok {
		checks.Register(health.NewConnectionChecker(conn))
	}
	return checks.Check(ctx)
}

// Close stops every listener and closes the broker connection
func (c *Client) Close() error {
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	c.logger.Info("client closed", "service", c.ServiceName())
	return nil
}

// Register binds handler on the client's registry
func Register[T any](ctx context.Context, c *Client, handler messaging.HandlerFunc[T]) error {
	return messaging.Register(ctx, c.registry, handler)
}

// RegisterAs binds handler under an explicit message type
func RegisterAs[T any](ctx context.Context, c *Client, messageType string, handler messaging.HandlerFunc[T]) error {
	return messaging.RegisterAs(ctx, c.registry, messageType, handler)
}

// RegisterNamed binds handler under the message type resolved from typeName.
// Names known to the client's type registry resolve like their type.
func RegisterNamed[T any](ctx context.Context, c *Client, typeName string, handler messaging.HandlerFunc[T]) error {
	return messaging.RegisterNamed(ctx, c.registry, typeName, handler)
}

// clientConfig holds client configuration
type clientConfig struct {
	logger          *slog.Logger
	config          config.Source
	codec           messaging.Codec
	types           routing.TypeLookup
	listenerOptions []rabbitmq.ListenerOption
	confirmTimeout  time.Duration
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

func newClientConfig(options []ClientOption) *clientConfig {
	cfg := &clientConfig{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger for all client components
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithConfig sets the configuration source of the service identity
func WithConfig(src config.Source) ClientOption {
	return func(cfg *clientConfig) {
		cfg.config = src
	}
}

// WithCodec sets the codec shared by the registry and the publisher
func WithCodec(codec messaging.Codec) ClientOption {
	return func(cfg *clientConfig) {
		cfg.codec = codec
	}
}

// WithTypeRegistry sets the lookup RegisterNamed resolves type names with,
// typically a *serialization.TypeRegistry
func WithTypeRegistry(types routing.TypeLookup) ClientOption {
	return func(cfg *clientConfig) {
		cfg.types = types
	}
}

// WithListenerOptions sets options for every listener the client starts
func WithListenerOptions(opts ...rabbitmq.ListenerOption) ClientOption {
	return func(cfg *clientConfig) {
		cfg.listenerOptions = append(cfg.listenerOptions, opts...)
	}
}

// WithPublisherConfirmTimeout sets how long a publish waits for the broker
func WithPublisherConfirmTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.confirmTimeout = timeout
	}
}

// WithPrefetchCount sets the prefetch count of every listener channel
func WithPrefetchCount(count int) ClientOption {
	return WithListenerOptions(rabbitmq.WithPrefetchCount(count))
}

// WithConcurrency sets the number of workers per consumed queue
func WithConcurrency(workers int) ClientOption {
	return WithListenerOptions(rabbitmq.WithConcurrency(workers))
}
