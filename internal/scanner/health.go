// Package scanner - Browser health monitoring with circuit breaker pattern
package scanner

import (
	"sync"
)

// BrowserHealthChecker trips after a number of consecutive browser
// infrastructure failures. A run is sequential and short, so an open circuit
// stays open: there is no cooldown or half-open probing.
type BrowserHealthChecker struct {
	failures    int
	maxFailures int
	lastErr     error
	mu          sync.RWMutex
}

// NewBrowserHealthChecker creates a checker that opens after maxFailures
// consecutive failures. Values below 1 are treated as 1.
func NewBrowserHealthChecker(maxFailures int) *BrowserHealthChecker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &BrowserHealthChecker{maxFailures: maxFailures}
}

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the browser is healthy, operations proceed normally
	CircuitClosed CircuitState = iota
	// CircuitOpen means the browser is unhealthy, remaining browser cases are skipped
	CircuitOpen
)

// String returns a human-readable state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "Closed (Healthy)"
	case CircuitOpen:
		return "Open (Unhealthy)"
	default:
		return "Unknown"
	}
}

// State returns the current circuit breaker state.
func (b *BrowserHealthChecker) State() CircuitState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.failures < b.maxFailures {
		return CircuitClosed
	}
	return CircuitOpen
}

// IsHealthy returns true if browser operations should proceed.
func (b *BrowserHealthChecker) IsHealthy() bool {
	return b.State() == CircuitClosed
}

// RecordFailure records a browser infrastructure failure.
func (b *BrowserHealthChecker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastErr = err
}

// RecordSuccess resets the consecutive failure count. It has no effect once
// the circuit is open.
func (b *BrowserHealthChecker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.maxFailures {
		b.failures = 0
	}
}

// FailureCount returns the current number of consecutive failures.
func (b *BrowserHealthChecker) FailureCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failures
}

// LastError returns the most recent recorded failure
func (b *BrowserHealthChecker) LastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}
