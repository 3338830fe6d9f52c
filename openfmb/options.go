package openfmb

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. The client is copied
// before any middleware is installed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransport wraps the underlying transport with the given middlewares,
// first argument outermost. See the middleware subpackage for implementations.
func WithTransport(mws ...func(http.RoundTripper) http.RoundTripper) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, mws...)
	}
}
