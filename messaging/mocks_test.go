package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
)

type mockQueueManager struct {
	mock.Mock
}

func (m *mockQueueManager) QueueName(serviceName, messageType string) string {
	return fmt.Sprintf("%s.%s.queue", serviceName, messageType)
}

func (m *mockQueueManager) ExchangeName(messageType string) string {
	return messageType + ".exchange"
}

func (m *mockQueueManager) CreateServiceQueue(ctx context.Context, serviceName, messageType string) error {
	args := m.Called(ctx, serviceName, messageType)
	return args.Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, exchange, routingKey string, body []byte) error {
	args := m.Called(ctx, exchange, routingKey, body)
	return args.Error(0)
}

// fakeContainer records its configuration and lets tests push deliveries
type fakeContainer struct {
	mu       sync.Mutex
	queues   []string
	listener MessageListener
	started  bool
	startErr error
}

func (c *fakeContainer) SetQueueNames(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues = names
}

func (c *fakeContainer) SetMessageListener(listener MessageListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = listener
}

func (c *fakeContainer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	return nil
}

func (c *fakeContainer) deliver(body string) {
	c.mu.Lock()
	listener := c.listener
	c.mu.Unlock()
	listener(context.Background(), fakeDelivery(body))
}

type fakeListenerFactory struct {
	mu         sync.Mutex
	containers []*fakeContainer
	startErr   error
}

func (f *fakeListenerFactory) NewListenerContainer() ListenerContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeContainer{startErr: f.startErr}
	f.containers = append(f.containers, c)
	return c
}

func (f *fakeListenerFactory) created() []*fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeContainer(nil), f.containers...)
}

type fakeDelivery string

func (d fakeDelivery) Body() []byte {
	return []byte(d)
}

func (d fakeDelivery) Headers() map[string]interface{} {
	return nil
}
