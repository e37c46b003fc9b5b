// Package ratelimit throttles write requests per client address.
package ratelimit

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finflow/internal/metrics"
)

const idleTTL = 10 * time.Minute

var tooManyRequestsBody = []byte(`{"success":false,"error":"rate limit exceeded, please try again later"}`)

// Limiter is a fixed one-minute window counter per client.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	sweep   time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	seen  time.Time
	count int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop
// to release it. Non-positive settings fall back to DefaultConfig.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	rl := &Limiter{
		windows: map[string]*window{},
		limit:   cfg.RequestsPerMinute,
		sweep:   cfg.CleanupInterval,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow counts a request from client and reports whether it fits the
// current window.
func (rl *Limiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= time.Minute {
		w = &window{start: now}
		rl.windows[client] = w
	}
	w.count++
	w.seen = now
	return w.count <= rl.limit
}

// Middleware rejects over-limit requests that modify state with 429. Safe
// methods are never limited.
func (rl *Limiter) Middleware(clientIP func(*http.Request) string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(clientIP(r)) {
				m.RateLimited()
				h := w.Header()
				h.Set("Retry-After", "60")
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write(tooManyRequestsBody)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *Limiter) cleanupLoop() {
	ticker := time.NewTicker(rl.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := rl.cleanupStaleEntries(); n > 0 {
				slog.Debug("Rate limiter entries expired", "count", n)
			}
		case <-rl.done:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than idleTTL.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleTTL)
	removed := 0
	for client, w := range rl.windows {
		if w.seen.Before(cutoff) {
			delete(rl.windows, client)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of tracked clients.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}
