package health

import (
	"context"
	"testing"
	"time"

	"github.com/glimte/zula-go/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectivity bool

func (c connectivity) IsConnected() bool {
	return bool(c)
}

type bindings []string

func (b bindings) Bindings() []messaging.Binding {
	out := make([]messaging.Binding, 0, len(b))
	for _, q := range b {
		out = append(out, messaging.Binding{Queue: q})
	}
	return out
}

type slowChecker struct{}

func (slowChecker) Name() string { return "slow" }

func (slowChecker) Check(ctx context.Context) CheckResult {
	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	return CheckResult{Name: "slow", Status: StatusHealthy}
}

func TestConnectionChecker(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, StatusHealthy, NewConnectionChecker(connectivity(true)).Check(ctx).Status)

	result := NewConnectionChecker(connectivity(false)).Check(ctx)
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Equal(t, false, result.Details["connection_open"])
}

func TestBindingsChecker(t *testing.T) {
	ctx := context.Background()

	t.Run("all expected queues bound", func(t *testing.T) {
		result := NewBindingsChecker(bindings{"billing.ordercreated.queue"}, "billing.ordercreated.queue").Check(ctx)
		assert.Equal(t, StatusHealthy, result.Status)
	})

	t.Run("missing queue", func(t *testing.T) {
		result := NewBindingsChecker(bindings{"billing.ordercreated.queue"}, "billing.refund.queue").Check(ctx)
		assert.Equal(t, StatusUnhealthy, result.Status)
		assert.Equal(t, []string{"billing.refund.queue"}, result.Details["missing"])
	})

	t.Run("nothing registered", func(t *testing.T) {
		result := NewBindingsChecker(bindings{}).Check(ctx)
		assert.Equal(t, StatusDegraded, result.Status)
	})
}

func TestRegistryCheck(t *testing.T) {
	t.Run("worst status wins", func(t *testing.T) {
		r := NewRegistry(
			NewConnectionChecker(connectivity(true)),
			NewBindingsChecker(bindings{}),
		)

		overall := r.Check(context.Background())

		assert.Equal(t, StatusDegraded, overall.Status)
		require.Len(t, overall.Checks, 2)
		assert.Equal(t, []string{"bindings", "rabbitmq"}, r.Names())
	})

	t.Run("timed out checks are unhealthy", func(t *testing.T) {
		r := NewRegistry(NewConnectionChecker(connectivity(true)), slowChecker{})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		overall := r.Check(ctx)

		assert.Equal(t, StatusUnhealthy, overall.Status)
		assert.Equal(t, "Check timed out", overall.Checks["slow"].Message)
	})
}
