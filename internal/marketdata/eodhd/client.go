// Package eodhd reads daily end-of-day history from the EODHD API.
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"trading-analysisv1/internal/marketdata"
	"trading-analysisv1/internal/model"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per second.
	DefaultRateLimit = 10
)

// Client is an EODHD API client. It implements model.HistorySource.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	adjusted   bool
	log        *slog.Logger
}

var _ model.HistorySource = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimit sets requests per second.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithAdjusted scales open, high, low and close by adjusted_close/close so
// splits and dividends do not show up as returns. On by default.
func WithAdjusted(on bool) ClientOption {
	return func(c *Client) { c.adjusted = on }
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		adjusted:   true,
		log:        slog.With("component", "eodhd"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// eodRow is one element of the /eod response.
type eodRow struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        float64 `json:"volume"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("eodhd rate limiter: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("eodhd: create request: %w", err)
	}

	c.log.Debug("request", "url", c.baseURL+path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("eodhd: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &marketdata.APIError{
			Provider:   "EODHD",
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("eodhd: decode response: %w", err)
	}
	return nil
}

// FetchHistory retrieves daily bars for symbol in TICKER.EXCHANGE form
// (e.g. "TSM.US"). A zero to fetches up to the latest bar.
func (c *Client) FetchHistory(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	if !from.IsZero() {
		params.Set("from", from.Format(model.DateLayout))
	}
	if !to.IsZero() {
		params.Set("to", to.Format(model.DateLayout))
	}

	var rows []eodRow
	if err := c.get(ctx, "/eod/"+url.PathEscape(symbol), params, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: eodhd returned no rows for %s", model.ErrDataUnavailable, symbol)
	}

	bars := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: eodhd bad date %q", model.ErrDataUnavailable, r.Date)
		}
		b := model.Bar{Date: date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: int64(r.Volume)}
		if c.adjusted && r.Close > 0 && r.AdjustedClose > 0 {
			f := r.AdjustedClose / r.Close
			b.Open *= f
			b.High *= f
			b.Low *= f
			b.Close = r.AdjustedClose
		}
		bars = append(bars, b)
	}
	return model.NewPriceSeries(symbol, marketdata.Dedupe(bars))
}
