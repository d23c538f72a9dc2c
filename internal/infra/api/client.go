// Package api is the HTTP transport to the remote inventory service.
// The rest of the system treats it as an opaque send-request,
// get-response-or-fail primitive; failures come back as typed errors
// the classifier understands.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hotelops/stockpilot/internal/metrics"
)

// TokenSource supplies the current access credential. Typically the
// session manager's Token accessor.
type TokenSource func() string

// Config holds client settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the remote inventory service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
}

// NewClient creates an inventory service client. token may be nil for
// unauthenticated use (login).
func NewClient(cfg Config, token TokenSource) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		token: token,
	}
}

// do sends one request and decodes the response into out (when out is
// non-nil). A non-2xx response becomes a *StatusError; a failure to
// obtain any response becomes a *TransportError.
func (c *Client) do(ctx context.Context, method, path string, body, out any, header http.Header) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Set(k, v)
		}
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	metrics.APILatency.WithLabelValues(method).Observe(latency.Seconds())

	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "transport_error").Inc()
		return &TransportError{
			Op:      method + " " + path,
			Err:     err,
			timeout: isTimeoutErr(err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode == http.StatusConflict {
		if conflictErr := decodeConflict(raw); conflictErr != nil {
			return conflictErr
		}
	}

	statusErr := &StatusError{Status: resp.StatusCode}
	_ = json.Unmarshal(raw, statusErr) // best effort body decode
	return statusErr
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	for e := err; e != nil; {
		if t, ok := e.(timeouter); ok && t.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}
