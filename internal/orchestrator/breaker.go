package orchestrator

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// breakerRegistry hands out one gobreaker.CircuitBreaker per tool id, so a
// misbehaving provider (e.g. a payment rail returning errors) trips open
// independently of every other tool. Dispatch through a tripped breaker
// fails fast with gobreaker.ErrOpenState instead of waiting out the full
// step timeout.
type breakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerRegistry() *breakerRegistry {
	return &breakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (r *breakerRegistry) forTool(toolID string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[toolID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        toolID,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	r.breakers[toolID] = cb
	return cb
}
