package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Endpoint identifiers used for durable response caching.
const (
	FeedEndpoint   = "/neo/feed"
	LookupEndpoint = "/neo/lookup"
)

// UpstreamError marks a transport-level failure against the NASA API:
// unreachable host, timeout, or a non-2xx status. The synchronizer treats
// any UpstreamError as transient and attempts cache fallback.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("NASA API %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("NASA API %s request failed: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NEOClient fetches raw NeoWs payloads. Responses are returned as raw JSON
// so the caller can persist them verbatim for cache fallback.
type NEOClient interface {
	FetchFeed(ctx context.Context, startDate, endDate string) ([]byte, error)
	FetchObject(ctx context.Context, neoID string) ([]byte, error)
}

type neoClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type NEOConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func NewNEOClient(config NEOConfig) NEOClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &neoClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: false,
			},
		},
	}
}

// FetchFeed requests the NeoWs feed for an inclusive date range
// (YYYY-MM-DD).
func (c *neoClient) FetchFeed(ctx context.Context, startDate, endDate string) ([]byte, error) {
	params := url.Values{}
	params.Add("start_date", startDate)
	params.Add("end_date", endDate)
	if c.apiKey != "" {
		params.Add("api_key", c.apiKey)
	}

	return c.get(ctx, FeedEndpoint, c.baseURL+"/feed?"+params.Encode())
}

// FetchObject requests a single object by its NeoWs reference id.
func (c *neoClient) FetchObject(ctx context.Context, neoID string) ([]byte, error) {
	params := url.Values{}
	if c.apiKey != "" {
		params.Add("api_key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/neo/%s", c.baseURL, url.PathEscape(neoID))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	return c.get(ctx, LookupEndpoint, reqURL)
}

func (c *neoClient) get(ctx context.Context, endpoint, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "Cosmic-Watch/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}

	return body, nil
}
