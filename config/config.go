// Package config provides the ambient key-value configuration a service
// reads its own identity and broker settings from.
package config

import "strings"

const (
	// KeyApplicationName holds the name of the running service
	KeyApplicationName = "application.name"
	// KeyBrokerURL holds the AMQP connection URL
	KeyBrokerURL = "broker.url"

	// DefaultServiceName is used when no application name is configured
	DefaultServiceName = "unknown-service"
)

// Source retrieves configuration values by key.
// Missing keys yield the empty string.
type Source interface {
	GetString(key string) string
}

// ServiceName returns the configured application name, or
// DefaultServiceName when src is nil or the value is blank
func ServiceName(src Source) string {
	if src == nil {
		return DefaultServiceName
	}
	if name := strings.TrimSpace(src.GetString(KeyApplicationName)); name != "" {
		return name
	}
	return DefaultServiceName
}
