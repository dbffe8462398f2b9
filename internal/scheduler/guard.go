package scheduler

import (
	"sync"

	"github.com/angelmondragon/stocksync-backend/pkg/enums"
)

// Guard is the process-wide in-flight marker per source. A second run
// for a held source is rejected immediately, never queued. Concurrency
// control is deliberately process-local: both the scheduled and the
// manual trigger path live in the same process.
type Guard struct {
	mu   sync.Mutex
	held map[enums.SyncSource]bool
}

// NewGuard builds an empty guard.
func NewGuard() *Guard {
	return &Guard{held: make(map[enums.SyncSource]bool)}
}

// TryAcquire claims the source. It reports false when a run is already
// in flight.
func (g *Guard) TryAcquire(source enums.SyncSource) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[source] {
		return false
	}
	g.held[source] = true
	return true
}

// Release frees the source. Safe to call on an unheld source.
func (g *Guard) Release(source enums.SyncSource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, source)
}

// Held reports whether a run is currently in flight for the source.
func (g *Guard) Held(source enums.SyncSource) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[source]
}
