package searchconsole

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
)

// DefaultBaseURL is the Google Search Console (Webmasters) API root.
const DefaultBaseURL = "https://www.googleapis.com/webmasters/v3"

const defaultTimeout = 15 * time.Second

// Client issues Search Analytics queries on behalf of a user. One call per
// Query; retry policy is the caller's concern.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client with an explicit request timeout.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query executes one searchAnalytics.query call for the given site property,
// authenticated with accessToken. Network failures and 5xx responses report
// ErrUpstreamUnavailable, 4xx responses report ErrUpstreamRejected (carrying
// the status via RejectedError), and undecodable bodies report
// ErrMalformedResponse.
func (c *Client) Query(ctx context.Context, accessToken string, query QueryRequest) ([]Row, error) {
	body, err := json.Marshal(queryBody{
		StartDate:  query.StartDate,
		EndDate:    query.EndDate,
		Dimensions: query.Dimensions,
		RowLimit:   query.RowLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("[searchconsole Query] encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/sites/%s/searchAnalytics/query", c.baseURL, url.PathEscape(query.SiteURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[searchconsole Query] building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[searchconsole Query] %w: %w", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("[searchconsole Query] %w: status %d", apperrors.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("[searchconsole Query] %w", &RejectedError{Status: resp.StatusCode})
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("[searchconsole Query] %w: %w", apperrors.ErrMalformedResponse, err)
	}
	return parsed.Rows, nil
}

// RejectedError is a 4xx from the API. It unwraps to ErrUpstreamRejected so
// callers can branch on the taxonomy while still seeing the status code.
type RejectedError struct {
	Status int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upstream rejected request: status %d", e.Status)
}

func (e *RejectedError) Unwrap() error {
	return apperrors.ErrUpstreamRejected
}

// TokenExpired reports whether the rejection looks like a stale access token.
func (e *RejectedError) TokenExpired() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
