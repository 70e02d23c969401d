package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// QueueManager provisions one durable topic exchange per message type and
// one durable queue per (service, message type) pair.
//
// The queue is bound with the pattern "<messageType>.*" so every action
// published for the message type reaches it.
type QueueManager struct {
	channels ChannelSource
	logger   *slog.Logger

	mu          sync.Mutex
	provisioned map[string]struct{}
}

// QueueManagerOption configures the QueueManager
type QueueManagerOption func(*QueueManager)

// WithQueueManagerLogger sets the logger
func WithQueueManagerLogger(logger *slog.Logger) QueueManagerOption {
	return func(qm *QueueManager) {
		qm.logger = logger
	}
}

// NewQueueManager creates a new queue manager
func NewQueueManager(channels ChannelSource, options ...QueueManagerOption) *QueueManager {
	qm := &QueueManager{
		channels:    channels,
		logger:      slog.Default(),
		provisioned: make(map[string]struct{}),
	}

	for _, opt := range options {
		opt(qm)
	}

	return qm
}

// QueueName returns "<service>.<messageType>.queue"
func (qm *QueueManager) QueueName(serviceName, messageType string) string {
	return fmt.Sprintf("%s.%s.queue", serviceName, messageType)
}

// ExchangeName returns "<messageType>.exchange"
func (qm *QueueManager) ExchangeName(messageType string) string {
	return messageType + ".exchange"
}

// BindingPattern returns the topic pattern binding a service queue
func (qm *QueueManager) BindingPattern(messageType string) string {
	return messageType + ".*"
}

// CreateServiceQueue declares the exchange, queue and binding for the pair.
// Pairs already provisioned by this manager are not declared again.
func (qm *QueueManager) CreateServiceQueue(ctx context.Context, serviceName, messageType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	queue := qm.QueueName(serviceName, messageType)

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if _, ok := qm.provisioned[queue]; ok {
		return nil
	}

	ch, err := qm.channels.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	exchange := qm.ExchangeName(messageType)
	pattern := qm.BindingPattern(messageType)

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return topologyError("exchange", exchange, "declare", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return topologyError("queue", queue, "declare", err)
	}

	if err := ch.QueueBind(queue, pattern, exchange, false, nil); err != nil {
		return topologyError("binding", queue, "bind", err)
	}

	qm.provisioned[queue] = struct{}{}
	qm.logger.Debug("provisioned service queue",
		"queue", queue,
		"exchange", exchange,
		"pattern", pattern,
	)

	return nil
}

// Forget drops the memo for a pair so the next CreateServiceQueue declares
// it again, e.g. after the queue was deleted out of band.
func (qm *QueueManager) Forget(serviceName, messageType string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	delete(qm.provisioned, qm.QueueName(serviceName, messageType))
}

func topologyError(component, name, op string, err error) error {
	return &TopologyError{
		Component: component,
		Name:      name,
		Op:        op,
		Err:       err,
	}
}
