package infra

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// NewCircuitBreaker creates a breaker for one external dependency.
// isSuccessful decides which errors are answers rather than failures
// (a "not found" from a geocoder is an answer); nil counts every error.
// A cancelled caller never counts against the dependency.
func NewCircuitBreaker(name string, isSuccessful func(err error) bool) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return isSuccessful != nil && isSuccessful(err)
		},
	})
}
