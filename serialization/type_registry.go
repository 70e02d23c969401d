package serialization

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// TypeRegistry maps type names to Go types.
//
// Every type is reachable by its bare name ("OrderCreatedMessage") and by its
// package-qualified name ("github.com/acme/orders.OrderCreatedMessage").
type TypeRegistry struct {
	types map[string]reflect.Type
	mu    sync.RWMutex
}

// NewTypeRegistry creates a new type registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: make(map[string]reflect.Type),
	}
}

// Register registers the type of sample under typeName
func (r *TypeRegistry) Register(typeName string, sample any) error {
	if typeName == "" {
		return fmt.Errorf("type name cannot be empty")
	}
	t, err := concreteType(sample)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(typeName, t)
}

// RegisterType registers the type of sample under its bare and qualified names
func (r *TypeRegistry) RegisterType(sample any) error {
	t, err := concreteType(sample)
	if err != nil {
		return err
	}
	if t.Name() == "" {
		return fmt.Errorf("cannot determine type name for %v", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.add(t.Name(), t); err != nil {
		return err
	}
	if t.PkgPath() != "" {
		return r.add(t.PkgPath()+"."+t.Name(), t)
	}
	return nil
}

// Lookup returns the type registered under name
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// IsRegistered checks if a type name is registered
func (r *TypeRegistry) IsRegistered(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// ListTypes returns all registered names, sorted
func (r *TypeRegistry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// add must be called with mu held
func (r *TypeRegistry) add(name string, t reflect.Type) error {
	if existing, exists := r.types[name]; exists {
		if existing == t {
			return nil
		}
		return fmt.Errorf("type name %s already registered to %v", name, existing)
	}
	r.types[name] = t
	return nil
}

func concreteType(sample any) (reflect.Type, error) {
	if sample == nil {
		return nil, fmt.Errorf("message type cannot be nil")
	}
	t := reflect.TypeOf(sample)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("message type must be a struct, got %v", t.Kind())
	}
	return t, nil
}
