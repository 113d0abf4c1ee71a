package httpclient

import (
	"net"
	"net/http"
	"time"
)

// TransportConfig tunes the *http.Transport the client builds when neither
// WithTransport nor WithHTTPClient supplies one.
//
// Example:
//
//	tc := httpclient.DefaultTransportConfig()
//	tc.Timeout = 5 * time.Second
//
//	client := httpclient.New(httpclient.WithTransportConfig(tc))
type TransportConfig struct {
	// Timeout bounds one physical call, body read included. Zero means no
	// timeout. Default: 15s
	Timeout time.Duration

	// MaxIdleConns caps idle keep-alive connections across all hosts.
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections per host. Default: 20
	MaxIdleConnsPerHost int

	// MaxConnsPerHost caps idle plus active connections per host.
	// Zero means unlimited. Default: 100
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake. Default: 10s
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers after the
	// request is written. Zero disables it. Default: 0
	ResponseHeaderTimeout time.Duration

	// DialTimeout bounds TCP connection establishment. Default: 5s
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval. Default: 30s
	KeepAlive time.Duration

	// DisableKeepAlives forces a new connection per request. Default: false
	DisableKeepAlives bool

	// DisableCompression stops the transport from requesting gzip.
	// Default: true
	DisableCompression bool
}

// DefaultTransportConfig returns settings suited to typical JSON APIs.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Timeout:             15 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialTimeout:         5 * time.Second,
		KeepAlive:           30 * time.Second,
		DisableCompression:  true,
	}
}

// HighThroughputTransportConfig returns settings for clients that keep many
// concurrent calls open against the same hosts.
func HighThroughputTransportConfig() TransportConfig {
	tc := DefaultTransportConfig()
	tc.Timeout = 30 * time.Second
	tc.MaxIdleConns = 500
	tc.MaxIdleConnsPerHost = 100
	tc.MaxConnsPerHost = 0
	tc.IdleConnTimeout = 120 * time.Second
	return tc
}

// newTransport builds an *http.Transport from the config.
func (tc TransportConfig) newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   tc.DialTimeout,
		KeepAlive: tc.KeepAlive,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          tc.MaxIdleConns,
		MaxIdleConnsPerHost:   tc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       tc.MaxConnsPerHost,
		IdleConnTimeout:       tc.IdleConnTimeout,
		TLSHandshakeTimeout:   tc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: tc.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
		DisableKeepAlives:     tc.DisableKeepAlives,
		DisableCompression:    tc.DisableCompression,
		ForceAttemptHTTP2:     true,
	}
}
