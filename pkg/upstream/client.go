// Package upstream fetches message pages from the remote messages API.
//
// The API is paginated with skip/limit query parameters and answers with
// {"total": N, "items": [...]}. The client reads exactly one page per call and
// never retries; callers decide what a failed page means.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/msgsearch/pkg/core"
	"github.com/rubiojr/msgsearch/pkg/log"
	"github.com/rubiojr/msgsearch/pkg/version"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 30 * time.Second

// Page is one page of the upstream dataset.
type Page struct {
	Items []core.Message
	Total int
}

// pageResponse uses pointers so absent fields can be told apart from zero values.
type pageResponse struct {
	Total *int            `json:"total"`
	Items *[]core.Message `json:"items"`
}

// Client is a messages API client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The client's Timeout is
// used as the per-page ceiling.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-page request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles page requests to rps requests per second.
// Zero or negative values leave requests unthrottled.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a client for the messages endpoint at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
		userAgent: "msgsearch/" + version.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the endpoint the client reads from.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchPage reads limit messages starting at offset skip.
// Every failure is returned as an *Error.
func (c *Client) FetchPage(ctx context.Context, skip, limit int) (*Page, error) {
	l := log.ForComponent("upstream")

	if skip < 0 || limit <= 0 {
		return nil, &Error{Op: "validate", Skip: skip, Limit: limit, Err: ErrInvalidRange}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Op: "throttle", Skip: skip, Limit: limit, Err: err}
		}
	}

	u := *c.baseURL
	q := u.Query()
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Op: "create request", Skip: skip, Limit: limit, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: "do request", Skip: skip, Limit: limit, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			l.Warnf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: "check status", Skip: skip, Limit: limit, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	var body pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Op: "decode response", Skip: skip, Limit: limit, StatusCode: resp.StatusCode, Err: err}
	}
	if body.Items == nil {
		return nil, &Error{Op: "decode response", Skip: skip, Limit: limit, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: missing items", ErrMalformedBody)}
	}
	if body.Total == nil {
		return nil, &Error{Op: "decode response", Skip: skip, Limit: limit, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: missing total", ErrMalformedBody)}
	}
	if *body.Total < 0 {
		return nil, &Error{Op: "decode response", Skip: skip, Limit: limit, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: negative total %d", ErrMalformedBody, *body.Total)}
	}

	l.Debugf("fetched skip=%d limit=%d: %d items, total %d in %v", skip, limit, len(*body.Items), *body.Total, time.Since(start))

	return &Page{Items: *body.Items, Total: *body.Total}, nil
}
