package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/Cicerokx7/bean-order-server/internal/logger"
	"github.com/Cicerokx7/bean-order-server/internal/metrics"
)

// Limiter is a per-client sliding-window request counter. Each client keeps
// the timestamps of its requests within the trailing window; a request is
// admitted only while fewer than max timestamps remain in the window.
// Rejected attempts are not recorded.
type Limiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	max     int
	window  time.Duration

	now func() time.Time
}

// New creates a Limiter admitting at most max requests per client per window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		clients: make(map[string][]time.Time),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Admit records and admits a request for clientID, or rejects it if the
// client already has max requests inside the trailing window. Timestamps
// older than the window are pruned on every call.
func (l *Limiter) Admit(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	window := l.clients[clientID]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.max {
		l.clients[clientID] = kept
		return false
	}

	l.clients[clientID] = append(kept, now)
	return true
}

// Start runs a periodic sweep that drops clients whose windows have fully
// expired, so the map stays bounded under many distinct clients. The sweep
// stops when ctx is cancelled.
func (l *Limiter) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				swept := l.sweep()
				if swept > 0 {
					logger.Info("rate limiter sweep", map[string]interface{}{
						"clients_removed":   swept,
						"clients_remaining": l.Clients(),
					})
				}
			}
		}
	}()
}

// sweep removes clients with no request inside the trailing window and
// returns how many were removed.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for id, window := range l.clients {
		live := false
		for _, t := range window {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.clients, id)
			removed++
		}
	}
	metrics.RateLimitClients.Set(float64(len(l.clients)))
	return removed
}

// Clients returns the number of client windows currently tracked.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
