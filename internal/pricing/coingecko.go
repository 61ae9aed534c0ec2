package pricing

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"demo-trading-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient fetches crypto prices from the CoinGecko public API.
type CoinGeckoClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

// ensure CoinGeckoClient implements Source
var _ Source = (*CoinGeckoClient)(nil)

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(cfg *config.Pricing, logger *zap.Logger) *CoinGeckoClient {
	client := resty.New().SetBaseURL(coinGeckoBaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &CoinGeckoClient{
		client:  client,
		logger:  logger,
		limiter: limiter,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// simplePrice is the per-coin payload of the /simple/price endpoint.
type simplePrice struct {
	USD       float64 `json:"usd"`
	USDChange float64 `json:"usd_24h_change"`
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *CoinGeckoClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.RawResponse != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// GetQuotes fetches current USD prices with 24h change for the given
// CoinGecko coin ids in one batch.
func (c *CoinGeckoClient) GetQuotes(ctx context.Context, ids []string) (map[string]Quote, error) {
	var prices map[string]simplePrice

	req := c.client.R().
		SetResult(&prices).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"ids":                 strings.Join(ids, ","),
			"vs_currencies":       "usd",
			"include_24hr_change": "true",
		})

	_, err := c.doRequest(ctx, "GET", "/simple/price", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get coin prices: %w", err)
	}

	quotes := make(map[string]Quote, len(prices))
	for id, p := range prices {
		asset, ok := LookupAsset(id)
		if !ok {
			asset = Asset{ID: id, Name: id, Symbol: strings.ToUpper(id)}
		}
		quotes[id] = Quote{
			AssetID:   id,
			Name:      asset.Name,
			Symbol:    asset.Symbol,
			Price:     p.USD,
			Change24h: p.USDChange,
		}
	}

	return quotes, nil
}

// GetQuote fetches the current price for a single coin id.
func (c *CoinGeckoClient) GetQuote(ctx context.Context, assetID string) (Quote, error) {
	quotes, err := c.GetQuotes(ctx, []string{assetID})
	if err != nil {
		return Quote{}, err
	}
	q, ok := quotes[assetID]
	if !ok || q.Price == 0 {
		return Quote{}, fmt.Errorf("no price returned for %s: %w", assetID, ErrPriceUnavailable)
	}
	return q, nil
}
