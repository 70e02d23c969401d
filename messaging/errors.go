package messaging

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks invalid arguments to Register or Publish
	ErrValidation = errors.New("messaging: validation failed")

	// ErrConfiguration marks payload types lacking required declarations
	ErrConfiguration = errors.New("messaging: invalid configuration")

	// ErrAlreadyBound is returned when a queue already has a handler
	ErrAlreadyBound = errors.New("messaging: queue already has a handler")
)

// ValidationError represents a missing or blank required argument
type ValidationError struct {
	Field  string // Argument that failed validation
	Reason string // What was wrong with it
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("messaging: invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConfigurationError represents a payload type that cannot be routed
type ConfigurationError struct {
	PayloadType string // Go type of the payload
	Reason      string // Missing declaration
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("messaging: payload type %s %s", e.PayloadType, e.Reason)
}

// Is matches ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DecodeError represents an inbound body that could not be decoded
type DecodeError struct {
	Queue string // Queue the delivery came from
	Body  []byte // Raw undecoded body
	Err   error  // Underlying codec error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("messaging: failed to decode message from %s: %v", e.Queue, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HandlerError represents a failure raised by a registered handler
type HandlerError struct {
	Queue       string // Queue the delivery came from
	MessageType string // Message type of the binding
	Err         error  // Error returned or panic raised by the handler
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("messaging: handler for %s on %s failed: %v", e.MessageType, e.Queue, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// TransportError represents a broker operation that failed
type TransportError struct {
	Op         string // provision, encode, send or listen
	Exchange   string // Target exchange, if any
	RoutingKey string // Routing key, if any
	Queue      string // Queue, if any
	Err        error  // Underlying error
}

func (e *TransportError) Error() string {
	switch {
	case e.Exchange != "":
		return fmt.Sprintf("messaging: %s to %s/%s failed: %v", e.Op, e.Exchange, e.RoutingKey, e.Err)
	case e.Queue != "":
		return fmt.Sprintf("messaging: %s on %s failed: %v", e.Op, e.Queue, e.Err)
	default:
		return fmt.Sprintf("messaging: %s failed: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be blank"}
	}
	return nil
}
