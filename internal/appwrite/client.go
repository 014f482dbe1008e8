// Package appwrite talks to the hosted document, storage and account REST
// APIs. It implements store.Store, blob.Store and identity.Provider.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

// Client is a thin HTTP client for the hosted REST API. It sets the project,
// API key and session headers, handles JSON marshaling, and retries with
// exponential backoff on HTTP 429.
type Client struct {
	endpoint   string
	project    string
	apiKey     string
	httpClient *http.Client
	maxRetries int

	mu      sync.RWMutex
	session string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey authenticates server-side calls such as listing users.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for the project at endpoint
// (e.g. https://cloud.appwrite.io/v1).
func NewClient(endpoint, projectID string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		project:  projectID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the API root URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Project returns the project ID.
func (c *Client) Project() string { return c.project }

// SetSession sets the session secret sent with every request.
func (c *Client) SetSession(secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = secret
}

// Session returns the current session secret.
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("appwrite error (%d %s): %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("appwrite error (%d): %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// classify maps a transport error onto the store taxonomy.
func classify(op string, kind model.EntityKind, id string, err error) error {
	if err == nil {
		return nil
	}
	class := store.ErrStoreUnavailable
	switch StatusOf(err) {
	case http.StatusNotFound:
		class = store.ErrNotFound
	case http.StatusConflict:
		class = store.ErrStoreConflict
	}
	return store.NewError(op, kind, id, class, err)
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	apiKey      bool
}

// doJSON marshals body, sends the request and unmarshals the response
// into result.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, result any) error {
	req := request{method: method, path: path, query: query}
	if body != nil {
		data, err := jsonBody(body)
		if err != nil {
			return err
		}
		req.body = data
		req.contentType = "application/json"
	}
	_, err := c.send(ctx, req, result)
	return err
}

func jsonBody(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	return data, nil
}

// send performs the request, retrying on 429, and returns the raw response
// headers on success.
func (c *Client) send(ctx context.Context, r request, result any) (http.Header, error) {
	target := c.endpoint + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var body io.Reader
		if r.body != nil {
			body = bytes.NewReader(r.body)
		}

		req, err := http.NewRequestWithContext(ctx, r.method, target, body)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Appwrite-Project", c.project)
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}
		if r.apiKey && c.apiKey != "" {
			req.Header.Set("X-Appwrite-Key", c.apiKey)
		} else if s := c.Session(); s != "" {
			req.Header.Set("X-Appwrite-Session", s)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request %s %s: %w", r.method, r.path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &APIError{Status: resp.StatusCode, Message: "rate limited"}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{}
			if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(string(respBody))
			}
			apiErr.Status = resp.StatusCode
			return nil, fmt.Errorf("%s %s: %w", r.method, r.path, apiErr)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return resp.Header, nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("unmarshaling response from %s %s: %w", r.method, r.path, err)
		}
		return resp.Header, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// query is one entry of the JSON query syntax accepted by list endpoints.
type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func orderQuery(attribute string, desc bool) query {
	if desc {
		return query{Method: "orderDesc", Attribute: attribute}
	}
	return query{Method: "orderAsc", Attribute: attribute}
}

func limitQuery(n int) query {
	return query{Method: "limit", Values: []any{n}}
}

func searchQuery(attribute, text string) query {
	return query{Method: "search", Attribute: attribute, Values: []any{text}}
}

func encodeQueries(qs ...query) (url.Values, error) {
	v := url.Values{}
	for _, q := range qs {
		data, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("encoding query: %w", err)
		}
		v.Add("queries[]", string(data))
	}
	return v, nil
}
