// Package services holds process-wide support services shared by the
// refresh engine and API layer.
package services

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Throttle paces outbound calls to a single upstream (Overpass or Wikidata)
// to a configured interval between requests, shared across every caller in
// the process.
type Throttle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewThrottle builds a Throttle that allows one request per interval, with a
// burst of 1 (no catch-up bursts after idle periods).
func NewThrottle(interval rate.Limit) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(interval, 1)}
}

// Wait blocks until the next request is allowed under the configured pace.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	limiter := t.limiter
	t.mu.Unlock()
	return limiter.Wait(ctx)
}

// SetInterval reconfigures the pace, e.g. when admin settings change.
func (t *Throttle) SetInterval(interval rate.Limit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limiter.SetLimit(interval)
}
