package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/agentic-research/apiout/internal/ctxlog"
	"github.com/agentic-research/apiout/internal/serializer"
)

// HTTP issues GET requests and decodes JSON responses.
type HTTP struct {
	Client *http.Client
	// Header is sent with every request.
	Header http.Header
}

// NewHTTP returns an HTTP client using c, or a client with a 30s timeout
// when c is nil.
func NewHTTP(c *http.Client) *HTTP {
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{Client: c, Header: http.Header{"Accept": {"application/json"}}}
}

// Get fetches rawURL with params appended to its query string. JSON bodies
// are decoded keeping key order; any other body is returned as a string.
func (h *HTTP) Get(ctx context.Context, rawURL string, params any) (any, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	extra, err := queryString(params)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range h.Header {
		req.Header[k] = vs
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	ctxlog.FromContext(ctx).Debug("Received HTTP response.", "url", u.Redacted(), "status", resp.Status)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", u.Redacted(), resp.Status)
	}
	if decoded, err := serializer.DecodeJSON(body); err == nil {
		return decoded, nil
	}
	return string(body), nil
}
