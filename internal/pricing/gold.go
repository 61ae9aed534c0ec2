package pricing

import (
	"context"
	"fmt"
	"time"

	"demo-trading-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	goldAPIBaseURL = "https://www.goldapi.io/api"
	gramsPerOunce  = 31.1035
)

// GoldClient fetches the COMEX gold spot price from goldapi.io.
type GoldClient struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	timeout time.Duration
}

var _ Source = (*GoldClient)(nil)

// NewGoldClient creates a new goldapi.io client.
func NewGoldClient(cfg *config.Pricing, logger *zap.Logger) *GoldClient {
	return &GoldClient{
		client:  resty.New().SetBaseURL(goldAPIBaseURL),
		apiKey:  cfg.GoldAPIKey,
		logger:  logger,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// goldPriceResponse is the subset of the XAU/USD payload we consume.
// The API quotes per gram; we convert to per troy ounce.
type goldPriceResponse struct {
	PriceGram24k float64 `json:"price_gram_24k"`
	Change24h    float64 `json:"ch_24h"`
}

// GetQuote fetches the current gold price per troy ounce.
func (c *GoldClient) GetQuote(ctx context.Context, assetID string) (Quote, error) {
	if assetID != "gold" {
		return Quote{}, fmt.Errorf("gold source asked for %q: %w", assetID, ErrPriceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result goldPriceResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-access-token", c.apiKey).
		SetResult(&result).
		Get("/XAU/USD")
	if err != nil {
		return Quote{}, fmt.Errorf("failed to get gold price: %w", err)
	}
	if resp.IsError() {
		return Quote{}, fmt.Errorf("gold price request failed with status %s", resp.Status())
	}
	if result.PriceGram24k <= 0 {
		return Quote{}, fmt.Errorf("gold price response missing price")
	}

	quote := Quote{
		AssetID:   "gold",
		Name:      "COMEX Gold",
		Symbol:    "GOLD",
		Price:     result.PriceGram24k * gramsPerOunce,
		Change24h: result.Change24h,
	}
	c.logger.Debug("Fetched live gold price", zap.Float64("price", quote.Price))
	return quote, nil
}
