// Package gamma implements the market data provider against the Polymarket
// Gamma REST API.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"polytrader/internal/domain"
	"polytrader/internal/ports"

	"github.com/jpillora/backoff"
)

const defaultBaseURL = "https://gamma-api.polymarket.com"

// Client fetches binary market snapshots from the Gamma API. Every request
// is retried with exponential backoff; exhausted retries surface as
// ports.ErrDataUnavailable so the caller can skip the market for the cycle.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
	attempts   int
	baseDelay  time.Duration
}

// Config holds configuration for the Gamma client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration // Per-request HTTP timeout
	Attempts   int           // Total attempts per fetch (default 3)
	BaseDelay  time.Duration // First retry delay (default 1s, doubling)
	Logger     ports.Logger
	HTTPClient *http.Client // Optional, for tests
}

// New creates a Gamma API client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Gamma client")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		attempts:   attempts,
		baseDelay:  baseDelay,
	}, nil
}

// gammaMarket mirrors the subset of the Gamma market payload the engine
// consumes. Prices and volume arrive as JSON strings.
type gammaMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	OutcomePrices string `json:"outcomePrices"` // JSON-encoded array, YES first
	Volume        string `json:"volume"`
}

// Markets returns the currently active binary markets with YES prices.
func (c *Client) Markets(ctx context.Context) ([]domain.Market, error) {
	endpoint := c.baseURL + "/markets?" + url.Values{
		"active": {"true"},
		"closed": {"false"},
		"limit":  {"100"},
	}.Encode()

	body, err := c.getWithRetry(ctx, endpoint, "Markets")
	if err != nil {
		return nil, err
	}

	var raw []gammaMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode markets response: %v: %w", err, ports.ErrDataUnavailable)
	}

	markets := make([]domain.Market, 0, len(raw))
	for _, gm := range raw {
		yes, err := parseYesPrice(gm.OutcomePrices)
		if err != nil {
			c.logger.Warn(ctx, "Skipping market with unparseable prices",
				map[string]interface{}{"marketID": gm.ID, "error": err.Error()})
			continue
		}
		volume, _ := strconv.ParseFloat(gm.Volume, 64)
		markets = append(markets, domain.Market{
			ID:       gm.ID,
			Question: gm.Question,
			YesPrice: yes,
			Volume:   volume,
		})
	}
	return markets, nil
}

// CurrentPrice returns the current YES price for one market.
func (c *Client) CurrentPrice(ctx context.Context, marketID string) (float64, error) {
	endpoint := c.baseURL + "/markets/" + url.PathEscape(marketID)

	body, err := c.getWithRetry(ctx, endpoint, "CurrentPrice")
	if err != nil {
		return 0, err
	}

	var gm gammaMarket
	if err := json.Unmarshal(body, &gm); err != nil {
		return 0, fmt.Errorf("failed to decode market %s: %v: %w", marketID, err, ports.ErrDataUnavailable)
	}
	yes, err := parseYesPrice(gm.OutcomePrices)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price for market %s: %v: %w", marketID, err, ports.ErrDataUnavailable)
	}
	return yes, nil
}

// getWithRetry performs a GET with bounded exponential backoff. Any HTTP or
// non-2xx failure is retried until the attempt budget is spent.
func (c *Client) getWithRetry(ctx context.Context, endpoint, op string) ([]byte, error) {
	b := &backoff.Backoff{
		Min:    c.baseDelay,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: false,
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		body, err := c.get(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.logger.Warn(ctx, op+": fetch failed", map[string]interface{}{
			"endpoint": endpoint,
			"attempt":  attempt,
			"error":    err.Error(),
		})
		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s cancelled: %v: %w", op, ctx.Err(), ports.ErrDataUnavailable)
		case <-time.After(b.Duration()):
		}
	}
	return nil, fmt.Errorf("%s exhausted %d attempts: %v: %w", op, c.attempts, lastErr, ports.ErrDataUnavailable)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// parseYesPrice extracts the YES price from the outcomePrices field, which
// the API delivers as a JSON-encoded string array ("[\"0.45\", \"0.55\"]").
func parseYesPrice(outcomePrices string) (float64, error) {
	var prices []string
	if err := json.Unmarshal([]byte(outcomePrices), &prices); err != nil {
		return 0, fmt.Errorf("malformed outcomePrices %q: %w", outcomePrices, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("empty outcomePrices")
	}
	yes, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric YES price %q: %w", prices[0], err)
	}
	if yes < 0 || yes > 1 {
		return 0, fmt.Errorf("YES price %v outside [0,1]", yes)
	}
	return yes, nil
}

var _ ports.MarketDataProvider = (*Client)(nil)
