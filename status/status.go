// Package status is the engine's lightweight telemetry surface.
// Hot paths bump atomic counters instead of logging; diagnostic code and
// tests read them back by name
package status

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// AtomicFloat provides atomic float64 operations using bit conversion.
// Zero value is ready to use
type AtomicFloat struct {
	bits atomic.Uint64
}

// Set stores a float64 value atomically
func (f *AtomicFloat) Set(val float64) {
	f.bits.Store(math.Float64bits(val))
}

// Get loads the float64 value atomically
func (f *AtomicFloat) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Add atomically adds delta and returns the new value
func (f *AtomicFloat) Add(delta float64) float64 {
	for {
		old := f.bits.Load()
		next := math.Float64frombits(old) + delta
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// metricMap registers metrics of one type.
// Registration takes the mutex; cached pointer access is lock-free
type metricMap[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
}

func newMetricMap[T any]() *metricMap[T] {
	return &metricMap[T]{items: make(map[string]*T)}
}

// Get returns the metric pointer for key, creating it on first use.
// Callers cache the pointer during init and write atomics directly
func (m *metricMap[T]) Get(key string) *T {
	m.mu.RLock()
	if ptr, ok := m.items[key]; ok {
		m.mu.RUnlock()
		return ptr
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if ptr, ok := m.items[key]; ok {
		return ptr
	}
	ptr := new(T)
	m.items[key] = ptr
	return ptr
}

// each iterates in sorted key order for deterministic dumps
func (m *metricMap[T]) each(fn func(key string, ptr *T)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(k, m.items[k])
	}
}

// Registry is the central metrics facade
type Registry struct {
	Ints   *metricMap[atomic.Int64]
	Floats *metricMap[AtomicFloat]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Ints:   newMetricMap[atomic.Int64](),
		Floats: newMetricMap[AtomicFloat](),
	}
}

// Snapshot renders every counter for logs and tests
func (r *Registry) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	r.Ints.each(func(key string, ptr *atomic.Int64) {
		out[key] = float64(ptr.Load())
	})
	r.Floats.each(func(key string, ptr *AtomicFloat) {
		out[key] = ptr.Get()
	})
	return out
}
