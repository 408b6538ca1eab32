// Package upstream performs single-attempt JSON calls against third-party APIs and
// returns their answer as a status/body envelope that handlers can relay unchanged.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Envelope is an upstream response: status code plus the parsed JSON body
type Envelope struct {
	Status int
	Body   json.RawMessage
}

// OK reports whether the upstream answered with a 2xx status
func (e *Envelope) OK() bool {
	return e.Status >= 200 && e.Status < 300
}

// Caller is the narrow interface handlers depend on
type Caller interface {
	Do(ctx context.Context, method, path string, query url.Values, body []byte) (*Envelope, error)
}

// Client calls a single fixed base URL, adding fixed headers and query parameters to every request
type Client struct {
	baseURL    string
	headers    map[string]string
	query      url.Values
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHeader adds a header sent on every request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithQuery adds a query parameter sent on every request
func WithQuery(key, value string) Option {
	return func(c *Client) {
		c.query.Set(key, value)
	}
}

// WithHTTPClient replaces the default traced HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		query:      url.Values{},
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends one request and reads the whole response. The body is sent only when non-nil.
// An empty response body is reported as JSON null; a non-JSON body is an error.
// There is no retry: a transport failure is returned to the caller as is.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte) (*Envelope, error) {
	target := c.url(path, query)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call upstream: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	parsed, err := parseBody(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream response (status %d): %w", resp.StatusCode, err)
	}

	return &Envelope{Status: resp.StatusCode, Body: parsed}, nil
}

func (c *Client) url(path string, query url.Values) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path

	merged := url.Values{}
	for k, vs := range c.query {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range query {
		merged[k] = append(merged[k], vs...)
	}
	if len(merged) == 0 {
		return target
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + merged.Encode()
}

func parseBody(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(trimmed), nil
}
