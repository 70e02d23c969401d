package contracts

import "reflect"

// Lookup reports whether the type t satisfies the capability C.
//
// Pointer types are dereferenced first. The check runs against a pointer to a
// fresh zero value, so both value and pointer receiver methods count. The
// returned C is bound to that zero value.
func Lookup[C any](t reflect.Type) (C, bool) {
	var zero C
	if t == nil {
		return zero, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return zero, false
	}

	c, ok := reflect.New(t).Interface().(C)
	return c, ok
}

// Indirect strips every level of pointer from t
func Indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
