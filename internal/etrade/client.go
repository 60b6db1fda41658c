// Package etrade issues authenticated requests against the E*Trade REST API
// and returns the responses as tables.
package etrade

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tordrt/snaketrade/internal/tabular"
	"github.com/tordrt/snaketrade/internal/timefmt"
)

// Doer sends HTTP requests. An OAuth1-signing *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the account endpoints of one API environment
type Client struct {
	baseURL string
	http    Doer
	logger  *slog.Logger
	flatten tabular.Options
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used for request logging
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFlattenOptions overrides how response records are flattened
func WithFlattenOptions(opts tabular.Options) Option {
	return func(c *Client) {
		c.flatten = opts
	}
}

// NewClient creates a client for baseURL (for example https://api.etrade.com)
func NewClient(baseURL string, doer Doer, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get fetches path and returns the record stored under the response's root key.
// A 204 response yields an empty record.
func (c *Client) get(ctx context.Context, path string, params url.Values, root string) (*tabular.Record, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	c.logger.DebugContext(ctx, "etrade request",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusNoContent {
		_ = resp.Body.Close()
		return tabular.NewRecord(), nil
	}

	v, err := ParseResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc, ok := v.Record()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, &tabular.ContractViolation{Op: "response", Want: tabular.KindRecord, Got: v.Kind()})
	}

	body, ok := doc.Get(root)
	if !ok {
		return nil, fmt.Errorf("%s: response has no %s", path, root)
	}
	r, ok := body.Record()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, &tabular.ContractViolation{Op: root, Want: tabular.KindRecord, Got: body.Kind()})
	}
	return r, nil
}

// convertTimestamps turns epoch-millisecond columns into UTC timestamps
func convertTimestamps(t tabular.Table, columns ...string) error {
	for _, col := range columns {
		if err := timefmt.MillisColumn(t, col); err != nil {
			return err
		}
	}
	return nil
}

// stringField renders the scalar stored under key, or "" if absent
func stringField(r *tabular.Record, key string) string {
	v, ok := r.Get(key)
	if !ok || v.Kind() != tabular.KindScalar {
		return ""
	}
	return v.String()
}

// markerFrom extracts the pagination marker from a single-row info table
func markerFrom(info tabular.Table, column string) string {
	v, ok := info.Get(0, column)
	if !ok || v.IsNull() {
		return ""
	}
	return v.String()
}
