package submission

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSubmitInFlight is returned when a key already has a submission running.
var ErrSubmitInFlight = errors.New("submission already in flight")

// InFlight admits at most one submission per key. Keys are form instances:
// a browser session plus the form it is posting.
type InFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInFlight returns an empty guard.
func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]struct{})}
}

// TryAcquire claims key without blocking. It reports false when key is
// already held. A successful claim must be released exactly once.
func (g *InFlight) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

// Release frees key.
func (g *InFlight) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}

// ActiveCount returns the number of submissions running.
func (g *InFlight) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// Busy reports whether key is held.
func (g *InFlight) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[key]
	return busy
}

// WaitForDrain blocks until no submission is running or ctx ends. Used on
// shutdown so in-flight API calls can finish.
func (g *InFlight) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if g.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
