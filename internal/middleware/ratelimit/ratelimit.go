// Package ratelimit throttles state-changing requests per client IP.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/cache"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// Burst defaults to RequestsPerMinute.
	Burst int
	// MaxClients bounds the number of tracked IPs; the least recently seen
	// client is forgotten first.
	MaxClients int
	// IdleTTL drops clients not seen for this long.
	IdleTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
		IdleTTL:           10 * time.Minute,
	}
}

// Limiter keeps one token bucket per client.
type Limiter struct {
	mu       sync.Mutex
	clients  *cache.LRUCache[*rate.Limiter]
	limit    rate.Limit
	burst    int
	rejected atomic.Int64
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}

	return &Limiter{
		clients: cache.NewLRUCache[*rate.Limiter](config.MaxClients, config.IdleTTL),
		limit:   rate.Every(time.Minute / time.Duration(config.RequestsPerMinute)),
		burst:   config.Burst,
	}
}

// Allow checks if a request from the given IP should be allowed
func (l *Limiter) Allow(clientIP string) bool {
	if l.bucket(clientIP).Allow() {
		return true
	}
	l.rejected.Add(1)
	return false
}

func (l *Limiter) bucket(clientIP string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.clients.Get(clientIP); ok {
		return b
	}
	b := rate.NewLimiter(l.limit, l.burst)
	l.clients.Set(clientIP, b)
	return b
}

// CleanExpired forgets idle clients. It lets a cache.Manager sweep the limiter.
func (l *Limiter) CleanExpired() int {
	return l.clients.CleanExpired()
}

// ActiveClients returns the number of currently tracked clients
func (l *Limiter) ActiveClients() int {
	return l.clients.Size()
}

// Rejected returns how many requests were turned away.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// retryAfter is the wait for one token, rounded up to whole seconds.
func (l *Limiter) retryAfter() string {
	secs := int(time.Duration(float64(time.Second)/float64(l.limit)).Seconds() + 0.999)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Middleware limits POST requests only; reads are never throttled.
// onLimit, if not nil, writes the rejection response.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || l.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", l.retryAfter())
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
