package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RateService fetches EUR-based quotes from an external historical rate
// provider.
type RateService interface {
	// Latest returns the most recent "1 EUR = X currency" quotes.
	Latest(ctx context.Context) (map[string]float64, error)
	// Month returns per-day quotes for every day of the given month
	// that the provider has published, keyed by ISO date (2006-01-02).
	Month(ctx context.Context, year int, month time.Month) (map[string]map[string]float64, error)
}

// Client talks to a Frankfurter-compatible rate API serving ECB
// reference rates.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new rate service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

type rangeResponse struct {
	Base  string                        `json:"base"`
	Rates map[string]map[string]float64 `json:"rates"`
}

// Latest fetches the provider's most recent snapshot.
func (c *Client) Latest(ctx context.Context) (map[string]float64, error) {
	var payload latestResponse
	url := fmt.Sprintf("%s/latest?base=EUR", c.baseURL)
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("fx: empty latest snapshot")
	}
	return payload.Rates, nil
}

// Month fetches one full calendar month of daily quotes in a single
// range request.
func (c *Client) Month(ctx context.Context, year int, month time.Month) (map[string]map[string]float64, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	url := fmt.Sprintf("%s/%s..%s?base=EUR", c.baseURL, first.Format("2006-01-02"), last.Format("2006-01-02"))

	var payload rangeResponse
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	return payload.Rates, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("fx: rate service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
