// Package api is a thin client for the surveillance prediction service.
//
// Every call is a single HTTP request: there is no retry, no backoff and no
// client-side timeout. Cancellation is left to the caller's context.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultUserAgent identifies korika to the backend.
const DefaultUserAgent = "korika"

// Client calls the prediction service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The default has no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// envelope holds the fields every JSON response may carry.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// endpoint joins an already escaped path onto the base URL.
func (c *Client) endpoint(rawPath string, query url.Values) string {
	u := *c.baseURL
	ref := strings.TrimRight(u.EscapedPath(), "/") + rawPath
	if p, err := url.PathUnescape(ref); err == nil {
		u.Path = p
		u.RawPath = ref
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs the request and returns the response when the status is
// 2xx. Any other outcome is returned as a transport *Error.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Op: op, Message: fmt.Sprintf("marshal request failed: %v", err), Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Message: fmt.Sprintf("create request failed: %v", err), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", slog.String("op", op), slog.String("method", method), slog.String("url", req.URL.String()))

	res, err := c.httpClient.Do(req)
	if err != nil {
		msg := err.Error()
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			msg = urlErr.Err.Error()
		}
		return nil, &Error{Kind: KindTransport, Op: op, Message: msg, Err: err}
	}

	c.logger.Debug("api response", slog.String("op", op), slog.Int("status", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer func() { _ = res.Body.Close() }()
		raw, _ := io.ReadAll(res.Body)
		return nil, &Error{Kind: KindTransport, Op: op, Status: res.StatusCode, Message: errorMessage(raw, res.StatusCode)}
	}
	return res, nil
}

// errorMessage extracts the backend's error text from a failed response.
func errorMessage(raw []byte, status int) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("%s (status %d)", text, status)
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// doJSON performs a JSON call and decodes the body into out. A body that
// reports success=false is returned as an application *Error.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	res, err := c.send(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: res.StatusCode, Message: fmt.Sprintf("read body failed: %v", err), Err: err}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		if out == nil {
			return nil
		}
		return &Error{Kind: KindTransport, Op: op, Status: res.StatusCode, Message: "empty response body"}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: res.StatusCode, Message: fmt.Sprintf("decode response failed: %v", err), Err: err}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = op + " failed"
		}
		return &Error{Kind: KindApplication, Op: op, Status: res.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: res.StatusCode, Message: fmt.Sprintf("decode response failed: %v", err), Err: err}
	}
	return nil
}
