package api

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/metrics"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// Enabled determines if rate limiting is active.
	Enabled bool
	// RequestsPerSecond is the refill rate of each client's bucket.
	RequestsPerSecond float64
	// BurstSize is the maximum burst allowed.
	BurstSize int
	// CleanupInterval is how often idle clients are dropped. Zero disables
	// the cleanup goroutine.
	CleanupInterval time.Duration
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Metrics counts rejected requests (optional).
	Metrics *metrics.Metrics
}

// DefaultRateLimitConfig returns the defaults for the chat routes, which
// each cost an LLM call.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 2,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
	}
}

// tokenBucket is one client's allowance.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastSeen   time.Time
}

func newTokenBucket(rate float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastSeen:   now,
	}
}

// take spends a token if one is available. Otherwise it reports how long
// until the next token.
func (b *tokenBucket) take(now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastSeen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.maxTokens, b.tokens+elapsed*b.refillRate)
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, time.Minute
	}
	wait := (1 - b.tokens) / b.refillRate
	return false, time.Duration(wait * float64(time.Second))
}

func (b *tokenBucket) idleSince(t time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen.Before(t)
}

// RateLimiter keeps a token bucket per client.
type RateLimiter struct {
	config  RateLimitConfig
	clock   clock.Clock
	clients map[string]*tokenBucket
	mu      sync.Mutex
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a new rate limiter. Call Stop to end the cleanup
// goroutine.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		clock:   config.Clock,
		clients: make(map[string]*tokenBucket),
		stopCh:  make(chan struct{}),
	}
	if rl.clock == nil {
		rl.clock = clock.New()
	}

	if config.Enabled && config.CleanupInterval > 0 {
		go rl.cleanup()
	}

	return rl
}

// Allow checks if a request from the given client is allowed.
func (rl *RateLimiter) Allow(clientID string) bool {
	ok, _ := rl.reserve(clientID)
	return ok
}

func (rl *RateLimiter) reserve(clientID string) (bool, time.Duration) {
	if !rl.config.Enabled {
		return true, 0
	}

	now := rl.clock.Now()
	rl.mu.Lock()
	bucket, exists := rl.clients[clientID]
	if !exists {
		bucket = newTokenBucket(rl.config.RequestsPerSecond, rl.config.BurstSize, now)
		rl.clients[clientID] = bucket
	}
	rl.mu.Unlock()

	return bucket.take(now)
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// prune drops clients idle for two cleanup intervals.
func (rl *RateLimiter) prune() {
	threshold := rl.clock.Now().Add(-2 * rl.config.CleanupInterval)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, bucket := range rl.clients {
		if bucket.idleSince(threshold) {
			delete(rl.clients, id)
		}
	}
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

// Stop stops the rate limiter cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
}

// NewRateLimitMiddleware rejects requests over the client's allowance with
// 429 and a Retry-After hint in whole seconds.
func NewRateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || !limiter.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := limiter.reserve(getClientID(r))
			if !ok {
				limiter.config.Metrics.RecordRateLimited(routePattern(r))

				retry := int(math.Ceil(wait.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.config.RequestsPerSecond, 'f', -1, 64))
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"success":false,"code":%q,"message":"Too many requests"}`+"\n", ErrCodeRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientID identifies the caller by IP. RealIP has already folded
// X-Real-IP and X-Forwarded-For into RemoteAddr.
func getClientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
