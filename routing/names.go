package routing

import "strings"

// DefaultAction is used when a publish names no action
const DefaultAction = "process"

// Namer owns the queue and exchange naming convention
type Namer interface {
	QueueName(serviceName, messageType string) string
	ExchangeName(messageType string) string
}

// Target identifies where a message goes
type Target struct {
	Service     string
	MessageType string
	Action      string
}

// WithDefaults returns a copy of t with a blank action replaced by
// DefaultAction
func (t Target) WithDefaults() Target {
	if strings.TrimSpace(t.Action) == "" {
		t.Action = DefaultAction
	}
	return t
}

// Route holds the broker names derived from a Target
type Route struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// NameBuilder composes routing names through a Namer
type NameBuilder struct {
	namer Namer
}

// NewNameBuilder creates a name builder backed by namer
func NewNameBuilder(namer Namer) *NameBuilder {
	return &NameBuilder{namer: namer}
}

// QueueName returns the queue a service consumes messageType from
func (b *NameBuilder) QueueName(serviceName, messageType string) string {
	return b.namer.QueueName(serviceName, messageType)
}

// ExchangeName returns the exchange messageType is published to
func (b *NameBuilder) ExchangeName(messageType string) string {
	return b.namer.ExchangeName(messageType)
}

// Route derives all names for t. Service and message type must be non-empty;
// callers validate before routing.
func (b *NameBuilder) Route(t Target) Route {
	t = t.WithDefaults()
	return Route{
		Queue:      b.QueueName(t.Service, t.MessageType),
		Exchange:   b.ExchangeName(t.MessageType),
		RoutingKey: RoutingKey(t.MessageType, t.Action),
	}
}

// RoutingKey joins message type and action
func RoutingKey(messageType, action string) string {
	return strings.ToLower(messageType) + "." + strings.ToLower(action)
}
