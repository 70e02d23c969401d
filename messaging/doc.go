// Package messaging registers typed handlers and publishes typed payloads
// without hand-written queue names, exchange names or routing keys.
//
// Names follow one convention built by the routing package: a payload type
// resolves to a lowercase message type, the message type and a service name
// give the queue, the message type gives the exchange, and message type plus
// action give the routing key ("ordercreated.process").
//
// Example usage:
//
//	registry := messaging.NewRegistry(transport, transport.QueueManager(),
//		messaging.WithRegistryConfig(cfg))
//
//	err := messaging.Register(ctx, registry,
//		func(ctx context.Context, msg *OrderCreatedMessage) error {
//			return billing.Charge(ctx, msg.OrderID)
//		})
//
//	publisher := messaging.NewPublisher(transport, transport.QueueManager())
//	err = publisher.PublishToService(ctx, "billing", &OrderCreatedMessage{OrderID: "o-1"})
//
// Registration and publishing fail fast with ValidationError or
// ConfigurationError before touching the broker. Once a handler is bound,
// decode and handler failures are logged with the raw body and the listener
// moves on to the next delivery.
package messaging
