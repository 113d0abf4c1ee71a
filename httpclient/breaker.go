package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a transport
// call. It wraps gobreaker's open and too-many-requests errors.
var ErrCircuitOpen = errors.New("httpclient: circuit breaker open")

// NewRedisStore creates a gobreaker.SharedDataStore backed by Redis, so that
// several processes share one breaker state per service name.
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	client := httpclient.New(
//	    httpclient.WithServiceName("billing-api"),
//	    httpclient.WithCircuitBreaker(httpclient.DistributedBreakerConfig(httpclient.NewRedisStore(rdb))),
//	)
func NewRedisStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// BreakerClassifier reports whether a transport outcome counts as a failure
// for the circuit breaker.
type BreakerClassifier func(resp *http.Response, err error) bool

// BreakerConfig configures the circuit breaker guarding transport calls.
//
// The breaker sees physical calls only. Executions coalesced onto an
// in-flight call count once.
type BreakerConfig struct {
	// MaxRequests is the number of probe calls allowed while half-open.
	// 0 means 1.
	MaxRequests uint32

	// Interval clears the counts periodically while closed. 0 never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureThreshold is the minimum number of calls before the failure
	// ratio is considered.
	FailureThreshold uint32

	// FailureRatio trips the breaker when reached (0.0 - 1.0).
	FailureRatio float64

	// ConsecutiveFailures trips the breaker after that many failures in a
	// row. 0 disables the rule.
	ConsecutiveFailures uint32

	// Store shares the breaker state between processes. Nil keeps it local.
	Store gobreaker.SharedDataStore

	// Classifier decides which outcomes are failures.
	// Default: DefaultBreakerClassifier
	Classifier BreakerClassifier

	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns a local breaker that opens after 5
// consecutive failures, or at a 50% failure ratio over at least 20 calls,
// and probes again after 10s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             10 * time.Second,
		FailureThreshold:    20,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
		Classifier:          DefaultBreakerClassifier,
	}
}

// DistributedBreakerConfig returns DefaultBreakerConfig backed by store.
func DistributedBreakerConfig(store gobreaker.SharedDataStore) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Store = store
	return cfg
}

// DefaultBreakerClassifier counts network errors and 5xx responses as
// failures. Aborts and context cancellations are the caller's doing and do
// not count.
func DefaultBreakerClassifier(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, ErrAborted) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return isNetworkError(err)
	}
	return resp != nil && resp.StatusCode >= 500
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT)
}

// readyToTrip builds the gobreaker trip rule from the config.
func (c BreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if c.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= c.ConsecutiveFailures {
		return true
	}
	if c.FailureThreshold > 0 && counts.Requests < c.FailureThreshold {
		return false
	}
	if c.FailureRatio > 0 && counts.Requests > 0 {
		ratio := float64(counts.TotalFailures) / float64(counts.Requests)
		return ratio >= c.FailureRatio
	}
	return false
}
