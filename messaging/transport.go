package messaging

import (
	"context"

	"github.com/glimte/zula-go/routing"
)

// QueueManager owns the naming convention and provisions broker resources
type QueueManager interface {
	routing.Namer

	// CreateServiceQueue provisions the exchange and queue for a
	// (service, messageType) pair. It must be safe to call repeatedly.
	CreateServiceQueue(ctx context.Context, serviceName, messageType string) error
}

// Codec converts payloads to and from bytes
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, target any) error
}

// Sender sends encoded payloads to an exchange
type Sender interface {
	Send(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Delivery represents a message delivered by a listener container
type Delivery interface {
	// Body returns the raw message body
	Body() []byte

	// Headers returns message headers
	Headers() map[string]interface{}
}

// MessageListener is invoked once per delivery
type MessageListener func(ctx context.Context, delivery Delivery)

// ListenerContainer consumes queues and hands each delivery to a listener
type ListenerContainer interface {
	// SetQueueNames sets the queues consumed once started
	SetQueueNames(names ...string)

	// SetMessageListener sets the callback invoked per delivery
	SetMessageListener(listener MessageListener)

	// Start begins consuming. ctx bounds startup only; deliveries continue
	// until the transport is closed.
	Start(ctx context.Context) error
}

// ListenerFactory creates listener containers
type ListenerFactory interface {
	NewListenerContainer() ListenerContainer
}

// Transport provides everything the registry and publisher need from a broker
type Transport interface {
	Sender
	ListenerFactory

	// QueueManager returns the broker's queue manager
	QueueManager() QueueManager

	// Close closes all resources
	Close() error
}
