package trader

import (
	"context"
	"sync"
	"time"

	"demo-trading-go/internal/pricing"
	"go.uber.org/zap"
)

// Markets serves the tradable asset board. Quotes are cached between
// refreshes so the API can answer without hitting the price sources on
// every request.
type Markets struct {
	prices      pricing.Source
	commodities func() []pricing.CommodityQuote
	ttl         time.Duration
	logger      *zap.Logger

	mu        sync.RWMutex
	cache     []pricing.Quote
	fetchedAt time.Time
}

// NewMarkets creates the market board. commodities may be nil when no
// simulated commodity feed is wired.
func NewMarkets(prices pricing.Source, commodities func() []pricing.CommodityQuote, ttl time.Duration, logger *zap.Logger) *Markets {
	return &Markets{
		prices:      prices,
		commodities: commodities,
		ttl:         ttl,
		logger:      logger,
	}
}

// List returns quotes for every cataloged asset in display order,
// serving the cache while it is fresh.
func (m *Markets) List(ctx context.Context) []pricing.Quote {
	m.mu.RLock()
	fresh := m.cache != nil && time.Since(m.fetchedAt) < m.ttl
	cached := m.cache
	m.mu.RUnlock()

	if fresh {
		return cached
	}
	return m.Refresh(ctx)
}

// Refresh fetches quotes for the whole catalog and replaces the cache.
// Individual fetch failures fall back per asset and never fail the board.
func (m *Markets) Refresh(ctx context.Context) []pricing.Quote {
	assets := pricing.Catalog()
	quotes := make([]pricing.Quote, 0, len(assets))

	for _, asset := range assets {
		quote, err := m.prices.GetQuote(ctx, asset.ID)
		if err != nil {
			m.logger.Warn("Failed to quote asset for market board",
				zap.String("asset_id", asset.ID),
				zap.Error(err),
			)
			continue
		}
		quotes = append(quotes, quote)
	}

	m.mu.Lock()
	m.cache = quotes
	m.fetchedAt = time.Now()
	m.mu.Unlock()

	return quotes
}

// Commodities returns the simulated commodity board.
func (m *Markets) Commodities() []pricing.CommodityQuote {
	if m.commodities == nil {
		return nil
	}
	return m.commodities()
}
