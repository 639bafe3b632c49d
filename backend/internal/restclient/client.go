// Package restclient is the JSON/HTTP client the dashboards use to talk to
// the portal API. Every response is read as the portal envelope
// {success, message, data}.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource yields the bearer token for a request. Returning an error
// aborts the request before anything is sent.
type TokenSource interface {
	Token() (string, error)
}

// Client issues authenticated requests against a portal base URL.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	timeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource attaches bearer tokens to every request
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTimeout bounds each request; zero disables the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a Client for baseURL (e.g. "http://localhost:8000")
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of c that authenticates with ts
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the configured portal base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a decoded portal envelope
type Response struct {
	Status  int
	Success bool
	Message string
	Data    json.RawMessage
	Body    []byte
}

// Decode unmarshals the envelope's data field into out
func (r *Response) Decode(out interface{}) error {
	if out == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// DecodeKey unmarshals a top-level body key other than data (some portal
// endpoints answer {"notices": [...]})
func (r *Response) DecodeKey(key string, out interface{}) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	raw, ok := body[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response %q: %w", key, err)
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do sends one request. body (if non-nil) is JSON-encoded; on a 2xx reply
// the envelope's data is decoded into out (if non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*Response, error) {
	// 1. Resolve token first so a logged-out session never hits the network
	var token string
	if c.tokens != nil {
		t, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		token = t
	}

	// 2. Build request
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// 3. Send
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	// 4. Decode envelope (tolerate empty or non-JSON bodies on errors)
	resp := &Response{Status: httpResp.StatusCode, Body: raw}
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && isSuccess(httpResp.StatusCode) {
			return nil, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	resp.Success = env.Success
	resp.Message = env.Message
	resp.Data = env.Data

	if !isSuccess(httpResp.StatusCode) {
		apiErr := &APIError{Method: method, Path: path, Status: httpResp.StatusCode, Message: env.Message}
		log.Printf("WARN: %v", apiErr)
		return resp, apiErr
	}

	if err := resp.Decode(out); err != nil {
		return resp, err
	}
	return resp, nil
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH request
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE request; body may be nil
func (c *Client) Delete(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, body, out)
}

// PathEscape joins escaped path segments onto a prefix: PathEscape("/api/results", "S1", "CSE 101")
func PathEscape(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
