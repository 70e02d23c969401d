// Package serialization provides the default payload codec and the registry
// that maps type names to Go types for name-based message type resolution.
package serialization
