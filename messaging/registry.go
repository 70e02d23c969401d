package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/glimte/zula-go/config"
	"github.com/glimte/zula-go/routing"
	"github.com/glimte/zula-go/serialization"
)

// HandlerFunc processes a decoded payload
type HandlerFunc[T any] func(ctx context.Context, msg T) error

// Binding associates a queue with the handler consuming it
type Binding struct {
	Queue       string
	ServiceName string
	MessageType string
	PayloadType reflect.Type

	handler   func(context.Context, any) error
	container ListenerContainer
}

// Registry binds typed handlers to convention-named queues.
// A queue is bound at most once per registry.
type Registry struct {
	listeners ListenerFactory
	queues    QueueManager
	names     *routing.NameBuilder
	resolver  *routing.TypeResolver
	codec     Codec
	config    config.Source
	logger    *slog.Logger

	mu       sync.Mutex
	bindings map[string]*Binding
}

// RegistryOption configures the Registry
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryCodec sets the codec used to decode deliveries
func WithRegistryCodec(codec Codec) RegistryOption {
	return func(r *Registry) {
		r.codec = codec
	}
}

// WithRegistryConfig sets the source of the service identity
func WithRegistryConfig(src config.Source) RegistryOption {
	return func(r *Registry) {
		r.config = src
	}
}

// WithRegistryResolver sets the message type resolver
func WithRegistryResolver(resolver *routing.TypeResolver) RegistryOption {
	return func(r *Registry) {
		r.resolver = resolver
	}
}

// NewRegistry creates a new handler registry
func NewRegistry(listeners ListenerFactory, queues QueueManager, options ...RegistryOption) *Registry {
	r := &Registry{
		listeners: listeners,
		queues:    queues,
		names:     routing.NewNameBuilder(queues),
		resolver:  routing.NewTypeResolver(),
		codec:     serialization.NewJSONCodec(),
		logger:    slog.Default(),
		bindings:  make(map[string]*Binding),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Register binds handler to the queue derived from T's message type
func Register[T any](ctx context.Context, r *Registry, handler HandlerFunc[T]) error {
	if handler == nil {
		return &ValidationError{Field: "handler", Reason: "must not be nil"}
	}
	payloadType := reflect.TypeOf((*T)(nil)).Elem()
	return r.Bind(ctx, r.resolver.ResolveType(payloadType), payloadType, adapt(handler))
}

// RegisterAs binds handler to the queue derived from an explicit message type
func RegisterAs[T any](ctx context.Context, r *Registry, messageType string, handler HandlerFunc[T]) error {
	if handler == nil {
		return &ValidationError{Field: "handler", Reason: "must not be nil"}
	}
	return r.Bind(ctx, messageType, reflect.TypeOf((*T)(nil)).Elem(), adapt(handler))
}

// RegisterNamed binds handler using a message type resolved from a type name.
// Names known to the registry's resolver resolve like their type; other names
// only get the suffix conventions.
func RegisterNamed[T any](ctx context.Context, r *Registry, typeName string, handler HandlerFunc[T]) error {
	if handler == nil {
		return &ValidationError{Field: "handler", Reason: "must not be nil"}
	}
	if err := requireText("typeName", typeName); err != nil {
		return err
	}
	return r.Bind(ctx, r.resolver.ResolveName(typeName), reflect.TypeOf((*T)(nil)).Elem(), adapt(handler))
}

func adapt[T any](handler HandlerFunc[T]) func(context.Context, any) error {
	return func(ctx context.Context, msg any) error {
		return handler(ctx, msg.(T))
	}
}

// Bind provisions the queue for messageType and starts one listener that
// decodes every delivery into a new payloadType value and passes it to handler.
//
// ctx bounds provisioning and listener startup. Once bound, the listener runs
// until the transport is closed, so cancelling ctx afterwards leaves the
// binding consuming. Binding a queue twice fails with ErrAlreadyBound and has
// no side effects.
func (r *Registry) Bind(ctx context.Context, messageType string, payloadType reflect.Type, handler func(context.Context, any) error) error {
	if payloadType == nil {
		return &ValidationError{Field: "payloadType", Reason: "must not be nil"}
	}
	if payloadType.Kind() == reflect.Interface {
		return &ValidationError{Field: "payloadType", Reason: "must be a concrete type, got " + payloadType.String()}
	}
	if handler == nil {
		return &ValidationError{Field: "handler", Reason: "must not be nil"}
	}
	if err := requireText("messageType", messageType); err != nil {
		return err
	}

	messageType = strings.ToLower(strings.TrimSpace(messageType))
	serviceName := r.ServiceName()
	queue := r.names.QueueName(serviceName, messageType)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[queue]; ok {
		return fmt.Errorf("%w: %s is consumed by a %v handler", ErrAlreadyBound, queue, existing.PayloadType)
	}

	if err := r.queues.CreateServiceQueue(ctx, serviceName, messageType); err != nil {
		return &TransportError{Op: "provision", Queue: queue, Err: err}
	}

	binding := &Binding{
		Queue:       queue,
		ServiceName: serviceName,
		MessageType: messageType,
		PayloadType: payloadType,
		handler:     handler,
	}

	container := r.listeners.NewListenerContainer()
	container.SetQueueNames(queue)
	container.SetMessageListener(r.listener(binding))
	if err := container.Start(ctx); err != nil {
		return &TransportError{Op: "listen", Queue: queue, Err: err}
	}
	binding.container = container
	r.bindings[queue] = binding

	r.logger.Info("registered handler",
		"queue", queue,
		"messageType", messageType,
		"payloadType", payloadType.String(),
	)

	return nil
}

// ServiceName returns the identity queues are named after
func (r *Registry) ServiceName() string {
	return config.ServiceName(r.config)
}

// Binding returns the binding for queue
func (r *Registry) Binding(queue string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[queue]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Bindings returns all bindings ordered by queue
func (r *Registry) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	bindings := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		bindings = append(bindings, *b)
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Queue < bindings[j].Queue
	})
	return bindings
}

// listener contains every failure to the delivery it happened on
func (r *Registry) listener(b *Binding) MessageListener {
	return func(ctx context.Context, delivery Delivery) {
		body := delivery.Body()
		if err := r.dispatch(ctx, b, body); err != nil {
			r.logger.Error("failed to process message",
				"queue", b.Queue,
				"messageType", b.MessageType,
				"error", err,
				"raw", string(body),
			)
		}
	}
}

func (r *Registry) dispatch(ctx context.Context, b *Binding, body []byte) (err error) {
	target := reflect.New(b.PayloadType)
	if decodeErr := r.codec.Decode(body, target.Interface()); decodeErr != nil {
		return &DecodeError{Queue: b.Queue, Body: body, Err: decodeErr}
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			r.logger.Error("panic in message handler",
				"queue", b.Queue,
				"panic", rvr,
				"stack", string(debug.Stack()),
			)
			err = &HandlerError{Queue: b.Queue, MessageType: b.MessageType, Err: fmt.Errorf("panic: %v", rvr)}
		}
	}()

	if handleErr := b.handler(ctx, target.Elem().Interface()); handleErr != nil {
		return &HandlerError{Queue: b.Queue, MessageType: b.MessageType, Err: handleErr}
	}
	return nil
}
