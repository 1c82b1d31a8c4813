package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hongminglow/taskql/internal/http/respond"
)

// RateLimiterConfig configures the per-client token bucket.
type RateLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL time.Duration
}

// RejectionObserver is told about every rejected request; metrics.Collector implements it.
type RejectionObserver interface {
	RecordRateLimited()
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles requests per client IP. Login and registration run
// bcrypt, so unthrottled clients could pin the CPU.
type RateLimiter struct {
	config   RateLimiterConfig
	observer RejectionObserver

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter starts a limiter and its background cleanup loop.
func NewRateLimiter(config RateLimiterConfig, observer RejectionObserver) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		observer: observer,
		clients:  make(map[string]*clientLimiter),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.limiterFor(clientKey(r))
			reservation := limiter.ReserveN(rl.now(), 1)
			if !reservation.OK() {
				rl.reject(w, time.Second)
				return
			}
			if delay := reservation.DelayFrom(rl.now()); delay > 0 {
				reservation.CancelAt(rl.now())
				rl.reject(w, delay)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) reject(w http.ResponseWriter, retryAfter time.Duration) {
	if rl.observer != nil {
		rl.observer.RecordRateLimited()
	}
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	respond.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.clients[key] = cl
	}
	cl.lastAccess = rl.now()
	return cl.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.config.IdleTTL)
	for key, cl := range rl.clients {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// clientKey uses the remote host; chi's RealIP middleware has already applied
// X-Forwarded-For / X-Real-IP when present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
