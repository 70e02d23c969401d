package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes messages in confirm mode over one channel.
// Publishes are serialized; each waits for its own confirmation.
type Publisher struct {
	channels       ChannelSource
	confirmTimeout time.Duration
	mandatory      bool
	contentType    string
	logger         *slog.Logger

	mu       sync.Mutex
	ch       Channel
	confirms chan amqp.Confirmation
	returns  chan amqp.Return
	closed   bool
}

// PublisherOption configures the publisher
type PublisherOption func(*Publisher)

// WithConfirmTimeout sets how long a publish waits for the broker's confirm
func WithConfirmTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.confirmTimeout = timeout
	}
}

// WithMandatory sets the mandatory flag on every publish
func WithMandatory(mandatory bool) PublisherOption {
	return func(p *Publisher) {
		p.mandatory = mandatory
	}
}

// WithContentType sets the content type Send stamps on messages
func WithContentType(contentType string) PublisherOption {
	return func(p *Publisher) {
		p.contentType = contentType
	}
}

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a new publisher
func NewPublisher(channels ChannelSource, options ...PublisherOption) *Publisher {
	p := &Publisher{
		channels:       channels,
		confirmTimeout: 5 * time.Second,
		mandatory:      true,
		contentType:    "application/json",
		logger:         slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Send publishes body as a persistent message
func (p *Publisher) Send(ctx context.Context, exchange, routingKey string, body []byte) error {
	return p.Publish(ctx, exchange, routingKey, amqp.Publishing{
		ContentType:  p.contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Publish publishes msg and waits for the broker to confirm it. A nack, a
// mandatory return or a missing confirmation is returned as *PublishError.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.publishError(exchange, routingKey, ErrPublisherClosed)
	}

	ch, err := p.channel()
	if err != nil {
		return p.publishError(exchange, routingKey, err)
	}

	if err := ch.PublishWithContext(ctx, exchange, routingKey, p.mandatory, false, msg); err != nil {
		p.reset()
		return p.publishError(exchange, routingKey, err)
	}

	if err := p.awaitConfirm(ctx); err != nil {
		p.reset()
		return p.publishError(exchange, routingKey, err)
	}

	p.logger.Debug("message confirmed",
		"exchange", exchange,
		"routingKey", routingKey,
		"messageId", msg.MessageId,
	)

	return nil
}

func (p *Publisher) awaitConfirm(ctx context.Context) error {
	timer := time.NewTimer(p.confirmTimeout)
	defer timer.Stop()

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return ErrChannelClosed
		}
		if !confirm.Ack {
			return ErrPublishNotConfirmed
		}
		// The broker sends basic.return before the ack of an unroutable message
		select {
		case ret := <-p.returns:
			return fmt.Errorf("%w: %d %s", ErrMandatoryFailed, ret.ReplyCode, ret.ReplyText)
		default:
		}
		return nil

	case ret := <-p.returns:
		return fmt.Errorf("%w: %d %s", ErrMandatoryFailed, ret.ReplyCode, ret.ReplyText)

	case <-timer.C:
		return ErrPublishTimeout

	case <-ctx.Done():
		return ctx.Err()
	}
}

// channel returns the confirm-mode channel, opening it when needed
func (p *Publisher) channel() (Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	ch, err := p.channels.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to enable confirms: %w", err)
	}

	p.ch = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returns = ch.NotifyReturn(make(chan amqp.Return, 1))
	return ch, nil
}

// reset discards the channel after a failed publish. Late confirmations
// for that publish must not be attributed to the next one.
func (p *Publisher) reset() {
	if p.ch == nil {
		return
	}
	if err := p.ch.Close(); err != nil {
		p.logger.Debug("failed to close publisher channel", "error", err)
	}
	p.ch = nil
	p.confirms = nil
	p.returns = nil
}

func (p *Publisher) publishError(exchange, routingKey string, err error) error {
	return &PublishError{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Mandatory:  p.mandatory,
		Err:        err,
	}
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
