package hooks

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks call outcomes for one handler, shared across every event the
// handler is registered for.
type Stats struct {
	callCount          atomic.Uint64
	failureCount       atomic.Uint64
	consecutiveFailures atomic.Uint64
	totalLatency       atomic.Int64 // nanoseconds

	mu         sync.Mutex
	disabled   bool
	disabledAt time.Time
}

// CallCount returns the number of completed calls.
func (s *Stats) CallCount() uint64 { return s.callCount.Load() }

// FailureCount returns the number of failed calls.
func (s *Stats) FailureCount() uint64 { return s.failureCount.Load() }

// ConsecutiveFailures returns the current failure streak.
func (s *Stats) ConsecutiveFailures() uint64 { return s.consecutiveFailures.Load() }

// AvgLatency returns the mean call latency, or zero if no calls recorded.
func (s *Stats) AvgLatency() time.Duration {
	n := s.callCount.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(s.totalLatency.Load() / int64(n))
}

func (s *Stats) recordSuccess(latency time.Duration) {
	s.callCount.Add(1)
	s.totalLatency.Add(int64(latency))
	s.consecutiveFailures.Store(0)
}

func (s *Stats) recordFailure(latency time.Duration) {
	s.callCount.Add(1)
	s.totalLatency.Add(int64(latency))
	s.failureCount.Add(1)
	s.consecutiveFailures.Add(1)
}

// checkCircuitBreaker reports whether the handler is currently circuit-broken,
// tripping it once the failure streak reaches threshold and re-enabling it if
// cooldown has elapsed.
func (s *Stats) checkCircuitBreaker(threshold uint64, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.disabled {
		if s.consecutiveFailures.Load() >= threshold {
			s.disabled = true
			s.disabledAt = time.Now()
			return true
		}
		return false
	}

	if time.Since(s.disabledAt) >= cooldown {
		s.disabled = false
		s.consecutiveFailures.Store(0)
		return false
	}
	return true
}

// Disabled reports the current circuit-breaker state without mutating it.
func (s *Stats) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}
