// Package ratelimit throttles requests per client with token buckets.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/usersapi/internal/logger"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	rate    rate.Limit
	burst   int
	keyFunc func(*http.Request) string
	reject  http.HandlerFunc
	now     func() time.Time
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithKeyFunc sets how a request is mapped to a client key. The default is
// the host part of RemoteAddr.
func WithKeyFunc(keyFunc func(*http.Request) string) Option {
	return func(rl *RateLimiter) {
		rl.keyFunc = keyFunc
	}
}

// WithRejectHandler sets the handler that answers throttled requests.
func WithRejectHandler(reject http.HandlerFunc) Option {
	return func(rl *RateLimiter) {
		rl.reject = reject
	}
}

// New creates a limiter allowing requestsPerSecond with the given burst.
func New(requestsPerSecond float64, burst int, opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
		keyFunc: remoteHost,
		reject: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Allow reports whether the client identified by key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, exists := rl.clients[key]
	if !exists {
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = rl.now()

	return c.limiter.Allow()
}

// Handler returns the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)
		if !rl.Allow(key) {
			logger.Log.Warnw("rate limit exceeded", "client", key, "method", r.Method, "path", r.URL.Path)
			rl.reject(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup drops clients idle for longer than maxIdle and returns how many
// were removed.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}

	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := rl.Cleanup(interval); removed > 0 {
					logger.Log.Debugf("rate limiter dropped %d idle clients", removed)
				}
			}
		}
	}()
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
