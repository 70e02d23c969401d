package routing

import (
	"reflect"
	"strings"

	"github.com/glimte/zula-go/contracts"
	"github.com/google/uuid"
)

// requestIDFields are the struct field names probed when a payload has no
// accessor methods
var requestIDFields = []string{"RequestID", "RequestId"}

// RequestIDInjector stamps request identifiers onto outbound payloads
type RequestIDInjector struct {
	generate func() string
}

// InjectorOption configures the RequestIDInjector
type InjectorOption func(*RequestIDInjector)

// WithIDGenerator sets the function producing new identifiers
func WithIDGenerator(generate func() string) InjectorOption {
	return func(i *RequestIDInjector) {
		i.generate = generate
	}
}

// NewRequestIDInjector creates an injector generating random UUIDs
func NewRequestIDInjector(options ...InjectorOption) *RequestIDInjector {
	i := &RequestIDInjector{
		generate: uuid.NewString,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Ensure gives payload a request ID unless it already carries a non-blank one.
//
// It reports whether payload carries a non-blank ID when it returns. A false
// result means the payload type has no settable request ID; it is never an
// error and Ensure never panics.
func (i *RequestIDInjector) Ensure(payload any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if payload == nil {
		return false
	}
	if current, found := readRequestID(payload); found && strings.TrimSpace(current) != "" {
		return true
	}

	id := i.generate()
	if strings.TrimSpace(id) == "" {
		return false
	}

	if setter, isSetter := payload.(contracts.RequestIDSetter); isSetter {
		setter.SetRequestID(id)
		return true
	}

	field, found := requestIDField(payload)
	if !found || !field.CanSet() {
		return false
	}
	field.SetString(id)
	return true
}

func readRequestID(payload any) (string, bool) {
	if getter, ok := payload.(contracts.RequestIDGetter); ok {
		return getter.GetRequestID(), true
	}
	field, ok := requestIDField(payload)
	if !ok {
		return "", false
	}
	return field.String(), true
}

func requestIDField(payload any) (reflect.Value, bool) {
	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	for _, name := range requestIDFields {
		field := v.FieldByName(name)
		if field.IsValid() && field.Kind() == reflect.String {
			return field, true
		}
	}
	return reflect.Value{}, false
}
