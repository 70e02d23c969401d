package zula

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/glimte/zula-go/config"
	"github.com/glimte/zula-go/contracts"
	"github.com/glimte/zula-go/health"
	"github.com/glimte/zula-go/messaging"
	"github.com/glimte/zula-go/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type OrderCreatedMessage struct {
	contracts.BaseMessage
	OrderID string `json:"orderId"`
}

type ChargeCardCommand struct {
	contracts.BaseMessage
	Amount int `json:"amount"`
}

func (ChargeCardCommand) PublishService() string { return "billing" }
func (ChargeCardCommand) PublishAction() string { return "charge" }

type RefundPaymentCommand struct {
	contracts.BaseMessage
	PaymentID string `json:"paymentId"`
}

func (RefundPaymentCommand) CommandType() string { return "refund" }

// memTransport routes published messages to bound queues in memory
type memTransport struct {
	mu        sync.Mutex
	bindings  map[string][]string // exchange -> queues
	listeners map[string]messaging.MessageListener
	sent      []string
	closed    bool
}

func newMemTransport() *memTransport {
	return &memTransport{
		bindings:  make(map[string][]string),
		listeners: make(map[string]messaging.MessageListener),
	}
}

func (m *memTransport) QueueName(serviceName, messageType string) string {
	return fmt.Sprintf("%s.%s.queue", serviceName, messageType)
}

func (m *memTransport) ExchangeName(messageType string) string {
	return messageType + ".exchange"
}

func (m *memTransport) CreateServiceQueue(ctx context.Context, serviceName, messageType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exchange, queue := m.ExchangeName(messageType), m.QueueName(serviceName, messageType)
	for _, q := range m.bindings[exchange] {
		if q == queue {
			return nil
		}
	}
	m.bindings[exchange] = append(m.bindings[exchange], queue)
	return nil
}

func (m *memTransport) Send(ctx context.Context, exchange, routingKey string, body []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("transport closed")
	}
	m.sent = append(m.sent, exchange+"/"+routingKey)
	prefix := strings.TrimSuffix(exchange, ".exchange") + "."
	var targets []messaging.MessageListener
	if strings.HasPrefix(routingKey, prefix) {
		for _, q := range m.bindings[exchange] {
			if l, ok := m.listeners[q]; ok {
				targets = append(targets, l)
			}
		}
	}
	m.mu.Unlock()

	for _, l := range targets {
		l(ctx, memDelivery(body))
	}
	return nil
}

func (m *memTransport) NewListenerContainer() messaging.ListenerContainer {
	return &memContainer{transport: m}
}

func (m *memTransport) QueueManager() messaging.QueueManager {
	return m
}

func (m *memTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memContainer struct {
	transport *memTransport
	queues    []string
	listener  messaging.MessageListener
}

func (c *memContainer) SetQueueNames(names ...string) {
	c.queues = names
}

func (c *memContainer) SetMessageListener(listener messaging.MessageListener) {
	c.listener = listener
}

func (c *memContainer) Start(ctx context.Context) error {
	c.transport.mu.Lock()
	defer c.transport.mu.Unlock()
	for _, q := range c.queues {
		c.transport.listeners[q] = c.listener
	}
	return nil
}

type memDelivery []byte

func (d memDelivery) Body() []byte {
	return d
}

func (d memDelivery) Headers() map[string]interface{} {
	return nil
}

func billingConfig(t *testing.T) config.Source {
	t.Helper()
	src, err := config.NewViperFromBytes("yaml", []byte("application:\n  name: billing\n"))
	require.NoError(t, err)
	return src
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	transport := newMemTransport()
	client := NewClientWithTransport(transport, WithConfig(billingConfig(t)))
	defer client.Close()

	assert.Equal(t, "billing", client.ServiceName())

	received := make(chan OrderCreatedMessage, 1)
	require.NoError(t, Register(ctx, client, func(ctx context.Context, msg OrderCreatedMessage) error {
		received <- msg
		return nil
	}))

	_, ok := client.Registry().Binding("billing.ordercreated.queue")
	require.True(t, ok)

	require.NoError(t, client.Publisher().PublishToService(ctx, "billing", &OrderCreatedMessage{OrderID: "o-1"}))

	msg := <-received
	assert.Equal(t, "o-1", msg.OrderID)
	assert.NotEmpty(t, msg.RequestID)
	assert.Equal(t, []string{"ordercreated.exchange/ordercreated.process"}, transport.sent)
}

func TestClientPublishDeclaredDestination(t *testing.T) {
	ctx := context.Background()
	transport := newMemTransport()
	client := NewClientWithTransport(transport, WithConfig(billingConfig(t)))

	var amounts []int
	require.NoError(t, RegisterAs(ctx, client, "ChargeCard", func(ctx context.Context, cmd *ChargeCardCommand) error {
		amounts = append(amounts, cmd.Amount)
		return nil
	}))

	require.NoError(t, client.Publisher().Publish(ctx, &ChargeCardCommand{Amount: 42}))

	assert.Equal(t, []int{42}, amounts)
	assert.Equal(t, []string{"chargecard.exchange/chargecard.charge"}, transport.sent)
}

func TestClientRegisterNamed(t *testing.T) {
	ctx := context.Background()

	t.Run("known names resolve through the type registry", func(t *testing.T) {
		types := serialization.NewTypeRegistry()
		require.NoError(t, types.RegisterType(RefundPaymentCommand{}))
		transport := newMemTransport()
		client := NewClientWithTransport(transport, WithConfig(billingConfig(t)), WithTypeRegistry(types))

		refunded := make(chan string, 1)
		require.NoError(t, RegisterNamed(ctx, client, "RefundPaymentCommand", func(ctx context.Context, cmd RefundPaymentCommand) error {
			refunded <- cmd.PaymentID
			return nil
		}))

		_, ok := client.Registry().Binding("billing.refund.queue")
		require.True(t, ok)

		require.NoError(t, client.Publisher().PublishToService(ctx, "billing", &RefundPaymentCommand{PaymentID: "p-7"}))
		assert.Equal(t, "p-7", <-refunded)
		assert.Equal(t, []string{"refund.exchange/refund.process"}, transport.sent)
	})

	t.Run("unknown names only drop the suffix", func(t *testing.T) {
		client := NewClientWithTransport(newMemTransport(), WithConfig(billingConfig(t)))

		require.NoError(t, RegisterNamed(ctx, client, "RefundPaymentCommand", func(ctx context.Context, cmd RefundPaymentCommand) error {
			return nil
		}))

		_, ok := client.Registry().Binding("billing.refundpayment.queue")
		assert.True(t, ok)
	})
}

func TestClientDuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	client := NewClientWithTransport(newMemTransport())
	handler := func(ctx context.Context, msg OrderCreatedMessage) error { return nil }

	require.NoError(t, Register(ctx, client, handler))
	err := Register(ctx, client, handler)

	assert.ErrorIs(t, err, messaging.ErrAlreadyBound)
	assert.Equal(t, config.DefaultServiceName, client.ServiceName())
}

func TestClientClose(t *testing.T) {
	transport := newMemTransport()
	client := NewClientWithTransport(transport)

	require.NoError(t, client.Close())

	err := client.Publisher().PublishToService(context.Background(), "billing", &OrderCreatedMessage{})
	var terr *messaging.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "send", terr.Op)
}

func TestNewClientFromConfig(t *testing.T) {
	t.Run("requires broker url", func(t *testing.T) {
		_, err := NewClientFromConfig(context.Background(), billingConfig(t))

		assert.ErrorIs(t, err, messaging.ErrValidation)
	})

	t.Run("connection failure", func(t *testing.T) {
		src, err := config.NewViperFromBytes("yaml", []byte("broker:\n  url: invalid://url\n"))
		require.NoError(t, err)

		_, err = NewClientFromConfig(context.Background(), src)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create transport")
	})
}

func TestClientOptions(t *testing.T) {
	cfg := newClientConfig([]ClientOption{
		WithPrefetchCount(20),
		WithConcurrency(4),
		WithPublisherConfirmTimeout(0),
	})

	assert.Len(t, cfg.listenerOptions, 2)
	assert.NotNil(t, cfg.logger)
}

func TestClientHealth(t *testing.T) {
	ctx := context.Background()
	client := NewClientWithTransport(newMemTransport(), WithConfig(billingConfig(t)))

	overall := client.Health(ctx, "billing.ordercreated.queue")
	assert.Equal(t, health.StatusUnhealthy, overall.Status)

	require.NoError(t, Register(ctx, client, func(ctx context.Context, msg OrderCreatedMessage) error {
		return nil
	}))

	overall = client.Health(ctx, "billing.ordercreated.queue")
	assert.Equal(t, health.StatusHealthy, overall.Status)
	assert.NotContains(t, overall.Checks, "rabbitmq")
}
