package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// minThrottledRate is the floor Throttle never goes below
const minThrottledRate = 0.1

// Limiter paces outbound model calls with one token bucket per provider.
// A provider that answers 429 can be slowed down without affecting others.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	waited  map[string]time.Duration
	limit   rate.Limit
	burst   int
}

// NewLimiter creates a limiter allowing requestsPerSecond per provider with
// the given burst. A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 4
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		waited:  make(map[string]time.Duration),
		limit:   limit,
		burst:   burst,
	}
}

// Wait blocks until the provider has a free token or ctx is done. It
// returns how long the call was held back.
func (l *Limiter) Wait(ctx context.Context, provider string) (time.Duration, error) {
	start := time.Now()
	err := l.bucket(provider).Wait(ctx)
	held := time.Since(start)
	if err != nil {
		return held, err
	}

	l.mu.Lock()
	l.waited[provider] += held
	l.mu.Unlock()
	return held, nil
}

// Allow takes a token if one is free, without waiting
func (l *Limiter) Allow(provider string) bool {
	return l.bucket(provider).Allow()
}

// Throttle halves the provider's rate, down to one request every ten
// seconds. Unlimited providers start from the burst size per second. It
// returns the new rate.
func (l *Limiter) Throttle(provider string) float64 {
	b := l.bucket(provider)

	current := float64(b.Limit())
	if b.Limit() == rate.Inf {
		current = float64(l.burst)
	}
	next := current / 2
	if next < minThrottledRate {
		next = minThrottledRate
	}
	b.SetLimit(rate.Limit(next))
	return next
}

// SetRate replaces the provider's rate and burst, e.g. for a stricter
// free-tier quota
func (l *Limiter) SetRate(provider string, requestsPerSecond float64, burst int) {
	b := l.bucket(provider)
	if burst <= 0 {
		burst = l.burst
	}
	b.SetLimit(rate.Limit(requestsPerSecond))
	b.SetBurst(burst)
}

// Rate returns the provider's current requests per second
func (l *Limiter) Rate(provider string) float64 {
	return float64(l.bucket(provider).Limit())
}

// Waited returns the total time calls to provider were held back
func (l *Limiter) Waited(provider string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waited[provider]
}

func (l *Limiter) bucket(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[provider]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[provider] = b
	}
	return b
}
