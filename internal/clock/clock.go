// Package clock provides time and ticker injection so throttling and
// periodic repaint can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Ticker is an interface for time.Ticker to allow mocking.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TimeProvider provides time-related functionality for dependency injection.
type TimeProvider interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// RealTicker wraps time.Ticker to implement the Ticker interface.
type RealTicker struct {
	ticker *time.Ticker
}

// C returns the ticker's channel.
func (r *RealTicker) C() <-chan time.Time {
	return r.ticker.C
}

// Stop stops the ticker.
func (r *RealTicker) Stop() {
	r.ticker.Stop()
}

// RealTimeProvider implements TimeProvider using real time functions.
type RealTimeProvider struct{}

// NewTicker creates a new ticker.
func (RealTimeProvider) NewTicker(d time.Duration) Ticker {
	return &RealTicker{ticker: time.NewTicker(d)}
}

// Now returns the current time.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// MockTicker is a manually driven Ticker.
type MockTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

// C returns the ticker's channel.
func (m *MockTicker) C() <-chan time.Time {
	return m.ch
}

// Stop marks the ticker stopped. The channel is left open, like time.Ticker.
func (m *MockTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
}

// Stopped reports whether Stop has been called.
func (m *MockTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stopped
}

// Tick delivers one tick unless the ticker was stopped. It never blocks;
// a tick is dropped when the previous one has not been consumed yet.
func (m *MockTicker) Tick(t time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return false
	}

	select {
	case m.ch <- t:
		return true
	default:
		return false
	}
}

// Mock is a TimeProvider whose clock only moves when told to.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
}

// NewMock creates a Mock starting at the given time.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
}

// NewTicker creates a MockTicker. The interval is ignored; ticks are
// delivered with Tick or TickAll.
func (m *Mock) NewTicker(time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticker := &MockTicker{ch: make(chan time.Time, 1)}
	m.tickers = append(m.tickers, ticker)

	return ticker
}

// Tickers returns every ticker created so far, oldest first.
func (m *Mock) Tickers() []*MockTicker {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*MockTicker(nil), m.tickers...)
}

// TickAll advances the clock by d and ticks every live ticker.
func (m *Mock) TickAll(d time.Duration) {
	m.Advance(d)
	now := m.Now()

	for _, ticker := range m.Tickers() {
		ticker.Tick(now)
	}
}
