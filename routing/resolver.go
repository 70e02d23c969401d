package routing

import (
	"reflect"
	"strings"

	"github.com/glimte/zula-go/contracts"
)

const (
	commandSuffix = "Command"
	messageSuffix = "Message"
)

// TypeLookup maps a type name to a concrete type
type TypeLookup interface {
	Lookup(name string) (reflect.Type, bool)
}

// TypeResolver derives message types from payload types
type TypeResolver struct {
	lookup TypeLookup
}

// ResolverOption configures the TypeResolver
type ResolverOption func(*TypeResolver)

// WithTypeLookup sets the lookup used by ResolveName
func WithTypeLookup(lookup TypeLookup) ResolverOption {
	return func(r *TypeResolver) {
		r.lookup = lookup
	}
}

// NewTypeResolver creates a new type resolver
func NewTypeResolver(options ...ResolverOption) *TypeResolver {
	r := &TypeResolver{}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// ResolveType returns the message type for t.
//
// A non-blank CommandType wins over a non-blank MessageType, which wins over
// the type name with a trailing Command or Message removed. The result is
// always lowercase. A nil or unnamed type resolves to "".
func (r *TypeResolver) ResolveType(t reflect.Type) string {
	t = contracts.Indirect(t)
	if t == nil {
		return ""
	}

	if c, ok := contracts.Lookup[contracts.CommandTyped](t); ok {
		if v := strings.TrimSpace(c.CommandType()); v != "" {
			return strings.ToLower(v)
		}
	}
	if m, ok := contracts.Lookup[contracts.MessageTyped](t); ok {
		if v := strings.TrimSpace(m.MessageType()); v != "" {
			return strings.ToLower(v)
		}
	}

	return FromName(t.Name())
}

// Resolve returns the message type of the payload's dynamic type
func (r *TypeResolver) Resolve(payload any) string {
	return r.ResolveType(reflect.TypeOf(payload))
}

// ResolveName resolves a type given only its name. Known names go through
// ResolveType; unknown names only get the suffix conventions.
func (r *TypeResolver) ResolveName(name string) string {
	if r.lookup != nil {
		if t, ok := r.lookup.Lookup(name); ok {
			return r.ResolveType(t)
		}
	}
	return FromName(name)
}

// FromName applies the suffix conventions to a bare type name
func FromName(name string) string {
	switch {
	case hasStrictSuffix(name, commandSuffix):
		name = strings.TrimSuffix(name, commandSuffix)
	case hasStrictSuffix(name, messageSuffix):
		name = strings.TrimSuffix(name, messageSuffix)
	}
	return strings.ToLower(name)
}

// hasStrictSuffix reports whether name ends in suffix and has something in
// front of it. Stripping must never produce an empty message type.
func hasStrictSuffix(name, suffix string) bool {
	return len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}
