package health

import (
	"context"
	"fmt"
	"time"

	"github.com/glimte/zula-go/messaging"
)

// Connectivity reports whether a broker connection is open
type Connectivity interface {
	IsConnected() bool
}

// BindingLister lists the bindings of a handler registry
type BindingLister interface {
	Bindings() []messaging.Binding
}

// ConnectionChecker checks the broker connection
type ConnectionChecker struct {
	conn Connectivity
}

// NewConnectionChecker creates a new connection health checker
func NewConnectionChecker(conn Connectivity) *ConnectionChecker {
	return &ConnectionChecker{conn: conn}
}

func (c *ConnectionChecker) Name() string {
	return "rabbitmq"
}

func (c *ConnectionChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	connected := c.conn.IsConnected()
	result.Details["connection_open"] = connected
	if connected {
		result.Status = StatusHealthy
		result.Message = "Connection is healthy"
	} else {
		result.Status = StatusUnhealthy
		result.Message = "Connection is closed"
	}

	result.Duration = time.Since(start)
	return result
}

// BindingsChecker checks that the expected queues have handlers
type BindingsChecker struct {
	registry BindingLister
	expected []string
}

// NewBindingsChecker creates a checker that is unhealthy while any of the
// expected queues has no handler bound
func NewBindingsChecker(registry BindingLister, expectedQueues ...string) *BindingsChecker {
	return &BindingsChecker{
		registry: registry,
		expected: expectedQueues,
	}
}

func (c *BindingsChecker) Name() string {
	return "bindings"
}

func (c *BindingsChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	bound := make(map[string]bool)
	queues := make([]string, 0)
	for _, b := range c.registry.Bindings() {
		bound[b.Queue] = true
		queues = append(queues, b.Queue)
	}
	result.Details["queues"] = queues

	var missing []string
	for _, q := range c.expected {
		if !bound[q] {
			missing = append(missing, q)
		}
	}

	switch {
	case len(missing) > 0:
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("%d expected queues have no handler", len(missing))
		result.Details["missing"] = missing
	case len(queues) == 0:
		result.Status = StatusDegraded
		result.Message = "No handlers registered"
	default:
		result.Status = StatusHealthy
		result.Message = fmt.Sprintf("%d queues bound", len(queues))
	}

	result.Duration = time.Since(start)
	return result
}
