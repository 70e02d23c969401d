package rabbitmq

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliveryHandler processes a single delivery. The listener acknowledges the
// delivery once the handler returns, whatever the outcome.
type DeliveryHandler func(ctx context.Context, delivery amqp.Delivery)

// Listener consumes one or more queues on a dedicated channel
type Listener struct {
	channels    ChannelSource
	prefetch    int
	concurrency int
	tagPrefix   string
	logger      *slog.Logger

	mu      sync.Mutex
	queues  []string
	handler DeliveryHandler
	started bool
	ch      Channel
	tags    []string
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
}

// ListenerOption configures the listener
type ListenerOption func(*Listener)

// WithPrefetchCount sets the channel prefetch count
func WithPrefetchCount(count int) ListenerOption {
	return func(l *Listener) {
		l.prefetch = count
	}
}

// WithConcurrency sets the number of workers per queue
func WithConcurrency(workers int) ListenerOption {
	return func(l *Listener) {
		if workers > 0 {
			l.concurrency = workers
		}
	}
}

// WithConsumerTagPrefix sets the prefix of generated consumer tags
func WithConsumerTagPrefix(prefix string) ListenerOption {
	return func(l *Listener) {
		l.tagPrefix = prefix
	}
}

// WithListenerLogger sets the logger
func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a listener that is configured, then started once
func NewListener(channels ChannelSource, options ...ListenerOption) *Listener {
	l := &Listener{
		channels:    channels,
		prefetch:    10,
		concurrency: 1,
		tagPrefix:   "zula",
		logger:      slog.Default(),
	}

	for _, opt := range options {
		opt(l)
	}

	return l
}

// SetQueueNames sets the queues consumed once started
func (l *Listener) SetQueueNames(names ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queues = append([]string(nil), names...)
}

// SetHandler sets the callback invoked per delivery
func (l *Listener) SetHandler(handler DeliveryHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = handler
}

// QueueNames returns the configured queues
func (l *Listener) QueueNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.queues...)
}

// Start opens a channel and begins consuming every configured queue.
// ctx bounds setup only; consumption runs until Stop is called or the
// delivery channels close. Values carried by ctx reach the handler.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	switch {
	case l.started:
		return ErrListenerStarted
	case len(l.queues) == 0:
		return ErrNoQueues
	case l.handler == nil:
		return ErrNoHandler
	}

	ch, err := l.channels.Channel()
	if err != nil {
		return l.consumerError(strings.Join(l.queues, ","), "", "open channel", err)
	}

	if err := ch.Qos(l.prefetch, 0, false); err != nil {
		ch.Close()
		return l.consumerError(strings.Join(l.queues, ","), "", "qos", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	tags := make([]string, 0, len(l.queues))

	for _, queue := range l.queues {
		tag := l.tagPrefix + "-" + uuid.NewString()
		deliveries, err := ch.Consume(
			queue,
			tag,
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			cancel()
			l.wg.Wait()
			ch.Close()
			return l.consumerError(queue, tag, "consume", err)
		}
		tags = append(tags, tag)

		for i := 0; i < l.concurrency; i++ {
			l.wg.Add(1)
			go l.work(runCtx, queue, deliveries, l.handler)
		}
	}

	l.ch = ch
	l.tags = tags
	l.cancel = cancel
	l.done = make(chan struct{})
	l.started = true

	go l.shutdownOnDone(runCtx, ch, tags, l.done)

	l.logger.Info("listener started",
		"queues", l.queues,
		"prefetchCount", l.prefetch,
		"concurrency", l.concurrency,
	)

	return nil
}

// Stop cancels the consumers and waits for in-flight deliveries
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done
}

func (l *Listener) shutdownOnDone(ctx context.Context, ch Channel, tags []string, done chan struct{}) {
	defer close(done)
	<-ctx.Done()

	for _, tag := range tags {
		if err := ch.Cancel(tag, false); err != nil {
			l.logger.Debug("failed to cancel consumer", "consumerTag", tag, "error", err)
		}
	}
	l.wg.Wait()
	if err := ch.Close(); err != nil {
		l.logger.Debug("failed to close listener channel", "error", err)
	}
	l.logger.Info("listener stopped", "queues", l.QueueNames())
}

func (l *Listener) work(ctx context.Context, queue string, deliveries <-chan amqp.Delivery, handler DeliveryHandler) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case delivery, ok := <-deliveries:
			if !ok {
				if ctx.Err() == nil {
					l.logger.Warn("delivery channel closed", "queue", queue)
				}
				return
			}
			l.handle(ctx, queue, delivery, handler)
		}
	}
}

// handle runs handler and acknowledges the delivery, recovering panics
func (l *Listener) handle(ctx context.Context, queue string, delivery amqp.Delivery, handler DeliveryHandler) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in delivery handler",
				"queue", queue,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		if err := delivery.Ack(false); err != nil {
			l.logger.Error("failed to ack message",
				"queue", queue,
				"deliveryTag", delivery.DeliveryTag,
				"error", err,
			)
		}
	}()

	handler(ctx, delivery)
}

func (l *Listener) consumerError(queue, tag, op string, err error) error {
	return &ConsumerError{
		Queue:       queue,
		ConsumerTag: tag,
		Op:          op,
		Err:         err,
	}
}
