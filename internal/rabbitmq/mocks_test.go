package rabbitmq

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

// mockChannel records topology and consume calls through testify and
// answers publishes according to its confirm field
type mockChannel struct {
	mock.Mock

	mu        sync.Mutex
	confirms  chan amqp.Confirmation
	returns   chan amqp.Return
	tag       uint64
	confirm   func(tag uint64) (amqp.Confirmation, bool)
	returned  *amqp.Return
	published []amqp.Publishing
	closed    bool
}

func newMockChannel() *mockChannel {
	return &mockChannel{
		confirm: func(tag uint64) (amqp.Confirmation, bool) {
			return amqp.Confirmation{DeliveryTag: tag, Ack: true}, true
		},
	}
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	mockArgs := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return amqp.Queue{Name: name}, mockArgs.Error(0)
}

func (m *mockChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return m.Called(name, key, exchange, noWait, args).Error(0)
}

func (m *mockChannel) Confirm(noWait bool) error {
	return m.Called(noWait).Error(0)
}

func (m *mockChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirms = confirm
	return confirm
}

func (m *mockChannel) NotifyReturn(c chan amqp.Return) chan amqp.Return {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returns = c
	return c
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if err := m.Called(exchange, key, mandatory).Error(0); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tag++
	m.published = append(m.published, msg)
	if m.returned != nil {
		m.returns <- *m.returned
	}
	if c, ok := m.confirm(m.tag); ok {
		m.confirms <- c
	}
	return nil
}

func (m *mockChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return m.Called(prefetchCount, prefetchSize, global).Error(0)
}

func (m *mockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	mockArgs := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
	if mockArgs.Get(0) == nil {
		return nil, mockArgs.Error(1)
	}
	return mockArgs.Get(0).(<-chan amqp.Delivery), mockArgs.Error(1)
}

func (m *mockChannel) Cancel(consumer string, noWait bool) error {
	return m.Called(consumer, noWait).Error(0)
}

func (m *mockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockChannel) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// fakeSource hands out the given channels in order
type fakeSource struct {
	mu       sync.Mutex
	channels []*mockChannel
	opened   int
	err      error
}

func (s *fakeSource) Channel() (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if s.opened >= len(s.channels) {
		return nil, errors.New("no more channels")
	}
	ch := s.channels[s.opened]
	s.opened++
	return ch, nil
}

func (s *fakeSource) openedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// fakeAcknowledger counts acknowledgements
type fakeAcknowledger struct {
	mu   sync.Mutex
	acks []uint64
	ack  chan uint64
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{ack: make(chan uint64, 16)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks = append(a.acks, tag)
	a.mu.Unlock()
	a.ack <- tag
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return nil
}
