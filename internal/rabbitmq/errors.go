package rabbitmq

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrConnectionClosed   = errors.New("rabbitmq: connection is closed")
	ErrConnectionNotReady = errors.New("rabbitmq: connection not ready")
	ErrConnectionTimeout  = errors.New("rabbitmq: connection timeout")
	ErrChannelClosed      = errors.New("rabbitmq: channel is closed")

	// Returned inside *PublishError
	ErrPublisherClosed     = errors.New("rabbitmq: publisher is closed")
	ErrPublishTimeout      = errors.New("rabbitmq: no confirm before timeout")
	ErrPublishNotConfirmed = errors.New("rabbitmq: broker nacked the publish")
	ErrMandatoryFailed     = errors.New("rabbitmq: message returned as unroutable")

	ErrListenerStarted = errors.New("rabbitmq: listener already started")
	ErrNoQueues        = errors.New("rabbitmq: listener has no queues")
	ErrNoHandler       = errors.New("rabbitmq: listener has no handler")
)

// ConnectionError is returned when dialing the broker fails. URL never
// carries the password.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("rabbitmq: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PublishError wraps a failed or unconfirmed publish
type PublishError struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("rabbitmq: publish to %s with key %s (mandatory=%t): %v",
		e.Exchange, e.RoutingKey, e.Mandatory, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ConsumerError is returned when a listener cannot start consuming
type ConsumerError struct {
	Queue       string
	ConsumerTag string // empty when the failure precedes basic.consume
	Op          string
	Err         error
}

func (e *ConsumerError) Error() string {
	if e.ConsumerTag == "" {
		return fmt.Sprintf("rabbitmq: %s on %s: %v", e.Op, e.Queue, e.Err)
	}
	return fmt.Sprintf("rabbitmq: %s on %s as %s: %v", e.Op, e.Queue, e.ConsumerTag, e.Err)
}

func (e *ConsumerError) Unwrap() error { return e.Err }

// TopologyError is returned when declaring a service queue's exchange,
// queue or binding fails
type TopologyError struct {
	Component string // exchange, queue or binding
	Name      string
	Op        string
	Err       error
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("rabbitmq: %s %s %q: %v", e.Op, e.Component, e.Name, e.Err)
}

func (e *TopologyError) Unwrap() error { return e.Err }

// SanitizeURL masks the password of a connection URL
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
