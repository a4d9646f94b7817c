package engine

import (
	"sync"
	"time"
)

// TimeProvider abstracts the wall clock so the loop is testable.
// Production code uses the monotonic provider; tests drive a mock
type TimeProvider interface {
	Now() time.Time
}

// MonotonicTimeProvider reads the system clock with monotonic readings
type MonotonicTimeProvider struct{}

// NewMonotonicTimeProvider creates the production time source
func NewMonotonicTimeProvider() *MonotonicTimeProvider {
	return &MonotonicTimeProvider{}
}

// Now returns the current time with monotonic clock reading
func (p *MonotonicTimeProvider) Now() time.Time {
	return time.Now()
}

// MockTimeProvider is a hand-driven clock for tests and benchmarks:
// time moves only when the caller advances it
type MockTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockTimeProvider starts the mock clock at start
func NewMockTimeProvider(start time.Time) *MockTimeProvider {
	return &MockTimeProvider{now: start}
}

// Now returns the mocked time
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mocked time forward by d
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
