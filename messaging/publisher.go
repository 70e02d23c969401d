package messaging

import (
	"context"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/glimte/zula-go/contracts"
	"github.com/glimte/zula-go/routing"
	"github.com/glimte/zula-go/serialization"
)

// Publisher publishes payloads to convention-named exchanges
type Publisher struct {
	sender   Sender
	queues   QueueManager
	names    *routing.NameBuilder
	resolver *routing.TypeResolver
	injector *routing.RequestIDInjector
	codec    Codec
	logger   *slog.Logger
}

// PublisherOption configures the Publisher
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithPublisherCodec sets the codec used to encode payloads
func WithPublisherCodec(codec Codec) PublisherOption {
	return func(p *Publisher) {
		p.codec = codec
	}
}

// WithPublisherResolver sets the message type resolver
func WithPublisherResolver(resolver *routing.TypeResolver) PublisherOption {
	return func(p *Publisher) {
		p.resolver = resolver
	}
}

// WithRequestIDInjector sets the request ID injector
func WithRequestIDInjector(injector *routing.RequestIDInjector) PublisherOption {
	return func(p *Publisher) {
		p.injector = injector
	}
}

// NewPublisher creates a new publisher
func NewPublisher(sender Sender, queues QueueManager, options ...PublisherOption) *Publisher {
	p := &Publisher{
		sender:   sender,
		queues:   queues,
		names:    routing.NewNameBuilder(queues),
		resolver: routing.NewTypeResolver(),
		injector: routing.NewRequestIDInjector(),
		codec:    serialization.NewJSONCodec(),
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish sends payload to the service its type declares through
// contracts.Destined, using contracts.Actioned or the default action.
// A payload type without a destination fails with a ConfigurationError.
func (p *Publisher) Publish(ctx context.Context, payload any) error {
	if err := requirePayload(payload); err != nil {
		return err
	}

	payloadType := reflect.TypeOf(payload)
	dest, ok := contracts.Lookup[contracts.Destined](payloadType)
	if !ok {
		return &ConfigurationError{
			PayloadType: payloadType.String(),
			Reason:      "does not declare a destination service",
		}
	}
	serviceName := strings.TrimSpace(dest.PublishService())
	if serviceName == "" {
		return &ConfigurationError{
			PayloadType: payloadType.String(),
			Reason:      "declares a blank destination service",
		}
	}

	action := routing.DefaultAction
	if a, ok := contracts.Lookup[contracts.Actioned](payloadType); ok && strings.TrimSpace(a.PublishAction()) != "" {
		action = a.PublishAction()
	}

	return p.PublishMessage(ctx, serviceName, p.resolver.Resolve(payload), action, payload)
}

// PublishToService sends payload to serviceName with the default action
func (p *Publisher) PublishToService(ctx context.Context, serviceName string, payload any) error {
	return p.PublishAction(ctx, serviceName, routing.DefaultAction, payload)
}

// PublishAction sends payload to serviceName with action
func (p *Publisher) PublishAction(ctx context.Context, serviceName, action string, payload any) error {
	if err := requirePayload(payload); err != nil {
		return err
	}
	return p.PublishMessage(ctx, serviceName, p.resolver.Resolve(payload), action, payload)
}

// PublishMessage stamps a request ID on payload, provisions the destination
// queue and sends the encoded payload. A blank action means the default
// action; an action containing a dot is rejected. Broker failures are
// returned as *TransportError.
func (p *Publisher) PublishMessage(ctx context.Context, serviceName, messageType, action string, payload any) error {
	if err := requirePayload(payload); err != nil {
		return err
	}
	if err := requireText("serviceName", serviceName); err != nil {
		return err
	}
	if err := requireText("messageType", messageType); err != nil {
		return err
	}
	if strings.Contains(action, ".") {
		// service queues bind "<messageType>.*", which matches one word
		return &ValidationError{Field: "action", Reason: "must be a single routing word, got " + strconv.Quote(action)}
	}

	target := routing.Target{
		Service:     strings.TrimSpace(serviceName),
		MessageType: strings.ToLower(strings.TrimSpace(messageType)),
		Action:      strings.TrimSpace(action),
	}.WithDefaults()

	if !p.injector.Ensure(payload) {
		p.logger.Debug("payload carries no request id",
			"payloadType", reflect.TypeOf(payload).String(),
		)
	}

	route := p.names.Route(target)

	if err := p.queues.CreateServiceQueue(ctx, target.Service, target.MessageType); err != nil {
		return &TransportError{Op: "provision", Queue: route.Queue, Err: err}
	}

	body, err := p.codec.Encode(payload)
	if err != nil {
		return &TransportError{Op: "encode", Exchange: route.Exchange, RoutingKey: route.RoutingKey, Err: err}
	}

	if err := p.sender.Send(ctx, route.Exchange, route.RoutingKey, body); err != nil {
		return &TransportError{Op: "send", Exchange: route.Exchange, RoutingKey: route.RoutingKey, Err: err}
	}

	p.logger.Info("published message",
		"messageType", target.MessageType,
		"action", target.Action,
		"service", target.Service,
		"exchange", route.Exchange,
		"routingKey", route.RoutingKey,
	)

	return nil
}

func requirePayload(payload any) error {
	if payload == nil {
		return &ValidationError{Field: "payload", Reason: "must not be nil"}
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if v.IsNil() {
			return &ValidationError{Field: "payload", Reason: "must not be nil"}
		}
	}
	return nil
}
