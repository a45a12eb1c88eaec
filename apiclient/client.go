// Package apiclient is the JSON REST client every dashboard call goes through.
// Callers register hooks that run before each request is sent and after each
// response (or transport failure) is received.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfdesk/shelfadmin/internal/metrics"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// RequestIDHeader carries a per-request identifier for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// RequestHook runs synchronously before a request is dispatched. A non-nil
// error aborts the request and is returned to the caller.
type RequestHook func(req *http.Request) error

// ResponseHook runs after a response or transport failure, before the
// outcome reaches the caller. resp is nil when no response was received. The
// returned error replaces err for later hooks and for the caller.
type ResponseHook func(req *http.Request, resp *Response, err error) error

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CallOption adjusts a single outgoing request.
type CallOption func(req *http.Request)

// WithHeader sets a header on one request.
func WithHeader(key, value string) CallOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// NoCache asks every cache between client and origin to bypass stored responses.
func NoCache() CallOption {
	return func(req *http.Request) {
		req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		req.Header.Set("Pragma", "no-cache")
	}
}

// Client issues JSON requests against a base URL.
type Client struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu            sync.RWMutex
	requestHooks  []RequestHook
	responseHooks []ResponseHook
}

// New creates a Client. A request-ID hook is always registered first.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		timeout:   15 * time.Second,
		userAgent: "shelfadmin",
		logger:    slog.Default(),
	}
	c.requestHooks = append(c.requestHooks, RequestID())

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}
	return c
}

// BaseURL returns the URL every request path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnRequest appends a pre-send hook. Hooks run in registration order.
func (c *Client) OnRequest(h RequestHook) {
	c.mu.Lock()
	c.requestHooks = append(c.requestHooks, h)
	c.mu.Unlock()
}

// OnResponse appends a post-receive hook. Hooks run in registration order.
func (c *Client) OnResponse(h ResponseHook) {
	c.mu.Lock()
	c.responseHooks = append(c.responseHooks, h)
	c.mu.Unlock()
}

func (c *Client) hooks() ([]RequestHook, []ResponseHook) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]RequestHook(nil), c.requestHooks...), append([]ResponseHook(nil), c.responseHooks...)
}

// Get issues a GET and decodes the body into out when out is non-nil.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Do performs one request. Non-2xx responses yield *StatusError, failures to
// get a response yield *TransportError; both pass through the response hooks
// first. Errors building the request are returned without running any hook.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) (*Response, error) {
	url := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for _, opt := range opts {
		opt(req)
	}

	requestHooks, responseHooks := c.hooks()
	for _, h := range requestHooks {
		if err := h(req); err != nil {
			return nil, fmt.Errorf("request hook: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.send(req, method, path)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(method, status, elapsed)
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", status,
		"request_id", req.Header.Get(RequestIDHeader),
		"duration", elapsed,
	)

	for _, h := range responseHooks {
		err = h(req, resp, err)
	}
	if err != nil {
		return resp, err
	}

	if out != nil && resp != nil && len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) send(req *http.Request, method, path string) (*Response, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: httpResp.StatusCode,
			Body:       respBody,
		}
	}
	return resp, nil
}

// RequestID returns a hook that stamps X-Request-ID unless the caller set one.
func RequestID() RequestHook {
	return func(req *http.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		return nil
	}
}
