package httpclient

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-side rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained request rate.
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed in a burst.
	Burst int

	// WaitOnLimit determines behavior when rate limit is hit.
	// If true, requests wait for a token (respecting context deadline).
	// If false, requests immediately return ErrRateLimited.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 100 requests per second with a burst of 10,
// waiting for tokens.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             10,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited is returned by a fail-fast rate limit interceptor when no
// token is available.
var ErrRateLimited = errors.New("httpclient: rate limit exceeded")

// RateLimitInterceptor creates an interceptor that throttles outgoing
// requests. With wait set the interceptor blocks until a token is available
// (respecting ctx); otherwise it fails fast with ErrRateLimited.
//
// The limiter is consulted once per Execute call, including calls that are
// later coalesced with an in-flight request.
func RateLimitInterceptor(limiter *rate.Limiter, wait bool) Interceptor {
	return func(ctx context.Context, d Draft) (Draft, error) {
		if err := takeToken(ctx, limiter, wait); err != nil {
			return d, err
		}
		return d, nil
	}
}

// NewRateLimitInterceptor creates a RateLimitInterceptor from cfg. A
// non-positive rate disables limiting.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithRequestInterceptor(
//	        httpclient.NewRateLimitInterceptor(httpclient.DefaultRateLimitConfig()),
//	    ),
//	)
func NewRateLimitInterceptor(cfg RateLimitConfig) Interceptor {
	if cfg.RequestsPerSecond <= 0 {
		return func(_ context.Context, d Draft) (Draft, error) { return d, nil }
	}
	return RateLimitInterceptor(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst), cfg.WaitOnLimit)
}

// WithRateLimit appends NewRateLimitInterceptor(rl) to the client's chain.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithRateLimit(httpclient.RateLimitConfig{
//	        RequestsPerSecond: 20,
//	        Burst:             5,
//	    }),
//	)
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors = append(cfg.Interceptors, NewRateLimitInterceptor(rl))
	}
}

// PerHostRateLimitInterceptor creates an interceptor that applies cfg to
// each target host separately, so a slow upstream does not consume the
// budget of the others.
func PerHostRateLimitInterceptor(cfg RateLimitConfig) Interceptor {
	limiters := &keyedLimiters{limiters: make(map[string]*rate.Limiter)}

	return func(ctx context.Context, d Draft) (Draft, error) {
		if cfg.RequestsPerSecond <= 0 {
			return d, nil
		}

		host := d.URL
		if u, err := url.Parse(d.URL); err == nil && u.Host != "" {
			host = u.Host
		}

		limiter := limiters.getOrCreate(host, cfg.RequestsPerSecond, cfg.Burst)
		if err := takeToken(ctx, limiter, cfg.WaitOnLimit); err != nil {
			return d, err
		}
		return d, nil
	}
}

func takeToken(ctx context.Context, limiter *rate.Limiter, wait bool) error {
	if !wait {
		if !limiter.Allow() {
			return ErrRateLimited
		}
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return ErrRateLimited
	}
	return nil
}

// keyedLimiters holds one limiter per key.
type keyedLimiters struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// getOrCreate returns the limiter for key, creating one if needed.
func (k *keyedLimiters) getOrCreate(key string, rps float64, burst int) *rate.Limiter {
	k.mu.RLock()
	if limiter, ok := k.limiters[key]; ok {
		k.mu.RUnlock()
		return limiter
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, ok := k.limiters[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	k.limiters[key] = limiter
	return limiter
}

// Len returns the number of keys with a limiter.
func (k *keyedLimiters) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.limiters)
}
