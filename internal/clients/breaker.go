package clients

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"order-fulfillment/internal/metrics"
)

// newBreaker builds a circuit breaker for one downstream capability and
// keeps its state visible through the metrics gauge.
func newBreaker(capability string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        capability,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
		},
	})
}

// breakerError translates gobreaker sentinel errors into readable ones.
func breakerError(capability string, err error) error {
	if err == gobreaker.ErrOpenState {
		return fmt.Errorf("%s circuit is open (service unavailable)", capability)
	}
	if err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%s circuit: too many requests in half-open state", capability)
	}
	return err
}
