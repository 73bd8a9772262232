package priceprovider

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

	"github.com/byteball/perp-stats/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.coingecko.com/api/v3"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
)

// defaultCoinIDs maps ticker symbols to CoinGecko coin ids.
var defaultCoinIDs = map[string]string{
	"btc":   "bitcoin",
	"eth":   "ethereum",
	"gbyte": "byteball",
	"usdc":  "usd-coin",
	"usdt":  "tether",
}

// CoinGeckoClient implements Provider against the CoinGecko REST API.
type CoinGeckoClient struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	coinIDs    map[string]string
}

// Compile-time interface check.
var _ Provider = (*CoinGeckoClient)(nil)

// CoinGeckoOption configures CoinGeckoClient.
type CoinGeckoOption func(*CoinGeckoClient)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		c.client = client
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		c.maxRetries = n
	}
}

// WithCoinID adds or overrides a symbol to coin id mapping.
func WithCoinID(symbol, coinID string) CoinGeckoOption {
	return func(c *CoinGeckoClient) {
		c.coinIDs[strings.ToLower(symbol)] = coinID
	}
}

// NewCoinGeckoClient creates a new CoinGecko price provider.
func NewCoinGeckoClient(opts ...CoinGeckoOption) *CoinGeckoClient {
	coinIDs := make(map[string]string, len(defaultCoinIDs))
	for symbol, id := range defaultCoinIDs {
		coinIDs[symbol] = id
	}

	c := &CoinGeckoClient{
		baseURL:    DefaultBaseURL,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		coinIDs:    coinIDs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// marketChartResponse mirrors the market_chart/range payload. Each
// price entry is a [millisecond timestamp, price] pair.
type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// GetMarketChartRange fetches price samples for the symbol over
// [params.From, params.To], ordered ascending, timestamps in seconds.
func (c *CoinGeckoClient) GetMarketChartRange(ctx context.Context, params Params) ([]domain.PriceSample, error) {
	coinID, ok := c.coinIDs[strings.ToLower(params.Symbol)]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q", params.Symbol)
	}

	query := url.Values{}
	query.Set("vs_currency", params.VsCurrency)
	query.Set("from", strconv.FormatInt(params.From, 10))
	query.Set("to", strconv.FormatInt(params.To, 10))

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s", c.baseURL, coinID, query.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch market chart for %s: %w", params.Symbol, err)
	}

	var chart marketChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("unmarshal market chart: %w", err)
	}

	samples := make([]domain.PriceSample, 0, len(chart.Prices))
	for _, entry := range chart.Prices {
		samples = append(samples, domain.PriceSample{
			Timestamp: int64(entry[0]) / 1000,
			Price:     entry[1],
		})
	}
	return samples, nil
}

// get performs a GET request with retries and linear backoff.
func (c *CoinGeckoClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
