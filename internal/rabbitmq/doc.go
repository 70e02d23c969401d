// Package rabbitmq provides the RabbitMQ side of zula messaging.
//
// This package includes:
//   - Connection: Dials the broker and opens channels
//   - QueueManager: Names and provisions per-service exchanges and queues
//   - Publisher: Publishes persistent messages in confirm mode
//   - Listener: Consumes queues with a bounded set of workers
//
// Every component works against the Channel interface, which *amqp.Channel
// satisfies, and obtains channels from a ChannelSource.
package rabbitmq
