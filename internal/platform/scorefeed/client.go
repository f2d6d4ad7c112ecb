// Package scorefeed is the REST client for the external match-data provider.
// It fetches authoritative fixture snapshots by external ID with a static
// API key, bounded retries, and a request rate limit.
package scorefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bangerpicks/backend/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	// maxRetries bounds synchronous retries for a single call; anything
	// beyond that waits for the next scheduled tick.
	maxRetries = 2
)

// ClientConfig holds connection parameters for the score feed client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://v3.football.api-sports.io".
	BaseURL string
	// APIKey is the static credential sent on every request.
	APIKey string
	// RequestTimeout applies per HTTP attempt. Zero means the default.
	RequestTimeout time.Duration
	// RequestsPerMinute caps outbound calls. Zero disables limiting.
	RequestsPerMinute int
}

// Client fetches fixtures from the provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a score feed client from the given configuration.
func New(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// FetchByIDs returns current snapshots for the given external fixture IDs in
// a single provider call. IDs absent from the provider response are simply
// missing from the result; callers match snapshots by ExternalID.
func (c *Client) FetchByIDs(ctx context.Context, ids []int64) ([]domain.MatchSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}

	params := url.Values{}
	params.Set("ids", strings.Join(parts, "-"))
	path := "/fixtures?" + params.Encode()

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("scorefeed: fetch fixtures %s: %w", params.Get("ids"), err)
	}

	var env fixturesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("scorefeed: decode fixtures: %w", err)
	}

	snaps := make([]domain.MatchSnapshot, 0, len(env.Response))
	for _, raw := range env.Response {
		var fx apiFixture
		if err := json.Unmarshal(raw, &fx); err != nil {
			return nil, fmt.Errorf("scorefeed: decode fixture: %w", err)
		}
		snaps = append(snaps, fx.toSnapshot(raw))
	}

	return snaps, nil
}

// doGet performs a rate-limited GET with bounded exponential retries.
// Transport failures and 5xx responses are retried; 4xx responses and
// in-band provider errors are permanent.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	var body []byte

	attempt := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("x-apisports-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("provider status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s",
				domain.ErrProvider, resp.StatusCode, truncate(data, 256)))
		}

		// The provider reports failures in-band on HTTP 200; treat them as
		// hard failures for this call.
		var env fixturesEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return backoff.Permanent(fmt.Errorf("decode envelope: %w", err))
		}
		if errs := env.errorMap(); len(errs) > 0 {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProvider, errs))
		}

		body = data
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxInterval = 5 * time.Second

	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(expo, maxRetries), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Compile-time interface check.
var _ domain.ResultProvider = (*Client)(nil)
