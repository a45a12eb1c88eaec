package apiclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shelfdesk/shelfadmin/internal/metrics"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. "https://admin.example.com/api/v1".
// An empty value keeps DefaultBaseURL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout sets the HTTP request timeout.
// If not set, defaults to 15 seconds. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom http.Client for making requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger for request events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request counts and durations into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRequestHook registers a pre-send hook at construction time.
func WithRequestHook(h RequestHook) Option {
	return func(c *Client) {
		c.requestHooks = append(c.requestHooks, h)
	}
}

// WithResponseHook registers a post-receive hook at construction time.
func WithResponseHook(h ResponseHook) Option {
	return func(c *Client) {
		c.responseHooks = append(c.responseHooks, h)
	}
}
