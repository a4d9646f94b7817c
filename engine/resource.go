package engine

import (
	"reflect"
	"sync"
)

// ResourceStore is a thread-safe container for process-scope singletons.
// Systems reach shared services (time, config, bridged providers) through
// it without coupling to whoever constructed them
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[reflect.Type]any
}

// NewResourceStore creates an empty store
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[reflect.Type]any),
	}
}

// AddResource registers or replaces a resource keyed by its type.
// Pointer types are recommended so systems share one mutable instance
func AddResource[T any](rs *ResourceStore, resource T) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.resources[reflect.TypeOf(resource)] = resource
}

// GetResource retrieves the resource of type T
func GetResource[T any](rs *ResourceStore) (T, bool) {
	var zero T
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	val, ok := rs.resources[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}
	return val.(T), true
}

// MustGetResource retrieves a resource that must exist (time, config).
// Missing is a wiring bug, so it panics
func MustGetResource[T any](rs *ResourceStore) T {
	res, ok := GetResource[T](rs)
	if !ok {
		var zero T
		panic("required resource not found: " + reflect.TypeOf(zero).String())
	}
	return res
}
