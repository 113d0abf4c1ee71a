package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"
)

// circuitBreaker is the subset of gobreaker used by the transport. Both the
// local and the distributed breakers implement it.
type circuitBreaker interface {
	Execute(req func() (*http.Response, error)) (*http.Response, error)
}

// circuitBreakerTransport guards transport calls with a circuit breaker.
type circuitBreakerTransport struct {
	breaker    circuitBreaker
	next       http.RoundTripper
	classifier BreakerClassifier
	cfg        *internalConfig
	name       string
}

// errBreakerFailure marks a classified failure for the breaker. It never
// reaches the caller, which gets the transport's own response and error.
var errBreakerFailure = errors.New("breaker failure")

// RoundTrip implements http.RoundTripper.
func (t *circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var (
		served  *http.Response
		callErr error
	)
	_, err := t.breaker.Execute(func() (*http.Response, error) {
		served, callErr = t.next.RoundTrip(req) //nolint:bodyclose
		// A call cut short by the caller's own context says nothing about
		// the upstream, whatever error the transport wrapped it in.
		if callErr != nil && ctx.Err() != nil {
			return nil, nil
		}
		if t.classifier(served, callErr) {
			return nil, errBreakerFailure
		}
		return served, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "rejected")
		return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, t.name, err)
	case errors.Is(err, errBreakerFailure):
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "failure")
	default:
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "success")
	}

	return served, callErr
}

// newCircuitBreakerTransport wraps next with a breaker named after the
// client's service name. Without a BreakerConfig next is returned as-is.
func newCircuitBreakerTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.BreakerConfig == nil {
		return next
	}
	bc := *cfg.BreakerConfig
	if bc.Classifier == nil {
		bc.Classifier = DefaultBreakerClassifier
	}

	name := cfg.ServiceName
	if name == "" {
		name = "trail-client"
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: bc.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Metrics.recordBreakerState(context.Background(), name, int64(to))
			if cfg.Debug {
				cfg.Logger.Debug().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			}
			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	var cb circuitBreaker = gobreaker.NewCircuitBreaker[*http.Response](st)
	if bc.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[*http.Response](bc.Store, st)
		if err == nil {
			cb = dcb
		} else {
			cfg.Logger.Warn().Err(err).Str("breaker", name).Msg("distributed circuit breaker unavailable, using local state")
		}
	}

	return &circuitBreakerTransport{
		breaker:    cb,
		next:       next,
		classifier: bc.Classifier,
		cfg:        cfg,
		name:       name,
	}
}
