package server

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleClientTTL is how long an untouched client entry is kept.
const idleClientTTL = 24 * time.Hour

// RateLimiter enforces a per-client request rate and a daily upload quota.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	maxBytesPerDay    int64

	clients   map[string]*clientUsage
	lastPrune time.Time
	now       func() time.Time
}

type clientUsage struct {
	limiter  *rate.Limiter
	day      time.Time
	bytes    int64
	requests int64
	lastSeen time.Time
}

// Usage is a snapshot of one client's counters.
type Usage struct {
	RequestsToday int64
	BytesToday    int64
}

// NewRateLimiter creates a limiter. A zero value disables that limit.
func NewRateLimiter(requestsPerMinute int, maxBytesPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxBytesPerDay:    maxBytesPerDay,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// Allow records a request of size bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)
	u := rl.usage(client, now)

	if today := startOfDay(now); !today.Equal(u.day) {
		u.day, u.bytes, u.requests = today, 0, 0
	}

	if rl.maxBytesPerDay > 0 && u.bytes+size > rl.maxBytesPerDay {
		return &QuotaExceededError{
			Limit:  rl.maxBytesPerDay,
			Used:   u.bytes,
			Resets: u.day.AddDate(0, 0, 1),
		}
	}

	if u.limiter != nil {
		r := u.limiter.ReserveN(now, 1)
		if d := r.DelayFrom(now); d > 0 {
			r.CancelAt(now)
			return &RateLimitError{Limit: rl.requestsPerMinute, RetryAfter: d}
		}
	}

	u.bytes += size
	u.requests++
	u.lastSeen = now
	return nil
}

// GetUsage returns the counters for client.
func (rl *RateLimiter) GetUsage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if u, ok := rl.clients[client]; ok {
		return Usage{RequestsToday: u.requests, BytesToday: u.bytes}
	}
	return Usage{}
}

func (rl *RateLimiter) usage(client string, now time.Time) *clientUsage {
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{day: startOfDay(now), lastSeen: now}
		if rl.requestsPerMinute > 0 {
			every := time.Minute / time.Duration(rl.requestsPerMinute)
			u.limiter = rate.NewLimiter(rate.Every(every), rl.requestsPerMinute)
		}
		rl.clients[client] = u
	}
	return u
}

func (rl *RateLimiter) prune(now time.Time) {
	if now.Sub(rl.lastPrune) < time.Minute {
		return
	}
	rl.lastPrune = now
	for id, u := range rl.clients {
		if now.Sub(u.lastSeen) > idleClientTTL {
			delete(rl.clients, id)
		}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError is returned when a client exceeds its request rate.
type RateLimitError struct {
	Limit      int           // requests per minute
	RetryAfter time.Duration // until the next request is admitted
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d/min, retry after: %v)", e.Limit, e.RetryAfter)
}

// QuotaExceededError is returned when a client exceeds its daily upload quota.
type QuotaExceededError struct {
	Limit  int64 // bytes per day
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily data quota exceeded (used: %d, limit: %d, resets: %s)",
		e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
