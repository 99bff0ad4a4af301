// Package ratelimit throttles requests per client with a token bucket.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client. Idle clients are dropped by
// CleanExpired, which the cache janitor calls.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	now     func() time.Time

	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	denied int64
}

type clientInfo struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Config struct {
	RequestsPerMinute int
	IdleTTL           time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleTTL:           10 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}
	return &Limiter{
		clients: make(map[string]*clientInfo),
		now:     time.Now,
		limit:   rate.Limit(float64(config.RequestsPerMinute) / 60),
		burst:   config.RequestsPerMinute,
		idleTTL: config.IdleTTL,
	}
}

// Allow reports whether a request from clientIP may proceed.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, ok := rl.clients[clientIP]
	if !ok {
		client = &clientInfo{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastSeen = now

	if !client.limiter.AllowN(now, 1) {
		atomic.AddInt64(&rl.denied, 1)
		return false
	}
	return true
}

// CleanExpired removes clients idle for longer than the idle TTL.
func (rl *Limiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	removed := 0
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

type Metrics struct {
	TotalHits   int64 // denied requests
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.denied),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// retryAfter is the wait for one token, in whole seconds.
func (rl *Limiter) retryAfter() string {
	secs := int(1/float64(rl.limit) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Middleware rejects requests over the limit with onLimit, or a plain 429.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", rl.retryAfter())
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Demasiadas solicitudes, intente nuevamente en unos instantes.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
