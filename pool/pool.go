// Package pool builds the HTTP plumbing shared by the MCP client and server:
// pooled clients with HTTP/2 enabled, and cleartext HTTP/2 (h2c) on both
// sides for deployments behind a TLS-terminating proxy.
package pool

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Config holds the transport settings for a pooled client.
type Config struct {
	// InsecureSkipVerify allows self-signed certificates.
	InsecureSkipVerify bool

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Timeout bounds a whole request, 0 for none.
	Timeout time.Duration

	// H2C speaks HTTP/2 without TLS to http:// URLs (prior knowledge).
	H2C bool
}

// DefaultConfig returns secure defaults.
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		Timeout:             30 * time.Second,
	}
}

// NewClient returns an HTTP client for cfg.
func NewClient(cfg Config) *http.Client {
	if cfg.H2C {
		return &http.Client{
			Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, addr)
				},
				ReadIdleTimeout: cfg.IdleConnTimeout,
			},
			Timeout: cfg.Timeout,
		}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	http2.ConfigureTransport(transport)

	return &http.Client{Transport: transport, Timeout: cfg.Timeout}
}

var (
	defaultClient *http.Client
	defaultOnce   sync.Once
)

// Default returns the process-wide client built from DefaultConfig.
func Default() *http.Client {
	defaultOnce.Do(func() {
		defaultClient = NewClient(DefaultConfig())
	})
	return defaultClient
}

// H2CHandler wraps h so a plain-text listener also accepts HTTP/2 with prior
// knowledge and h2c upgrades.
func H2CHandler(h http.Handler) http.Handler {
	return h2c.NewHandler(h, &http2.Server{})
}
