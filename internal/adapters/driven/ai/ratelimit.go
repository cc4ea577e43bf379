package ai

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitBackoff is how long calls pause after the hosted API
// answers 429
const DefaultRateLimitBackoff = 5 * time.Second

// RateLimitConfig bounds calls to the hosted API. A non-positive
// RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Backoff           time.Duration
}

// RateLimiter is a token bucket shared by the hosted embedding and
// generation adapters, since both spend the same API key's quota. A 429
// pauses every caller for the backoff period. A nil RateLimiter never
// blocks.
type RateLimiter struct {
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimiter returns nil when cfg disables limiting
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRateLimitBackoff
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		backoff: cfg.Backoff,
	}
}

// Wait blocks until a call may be made or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Observe starts a backoff period when err is a 429 from the hosted API
func (r *RateLimiter) Observe(err error) {
	if r == nil || !isRateLimited(err) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(r.backoff); until.After(r.retryAt) {
		r.retryAt = until
	}
}

func isRateLimited(err error) bool {
	code, ok := statusCode(err)
	return ok && code == http.StatusTooManyRequests
}
