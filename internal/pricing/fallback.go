package pricing

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// FallbackSource wraps a primary source and guarantees a quote for every
// cataloged asset: on failure it serves the last known good quote, and
// failing that the asset's documented fallback constant. It only errors
// for assets that are not in the catalog.
type FallbackSource struct {
	primary Source
	logger  *zap.Logger

	mu        sync.RWMutex
	lastKnown map[string]Quote
}

var _ Source = (*FallbackSource)(nil)

// NewFallbackSource wraps the given primary source.
func NewFallbackSource(primary Source, logger *zap.Logger) *FallbackSource {
	return &FallbackSource{
		primary:   primary,
		logger:    logger,
		lastKnown: make(map[string]Quote),
	}
}

// GetQuote never fails for a cataloged asset.
func (f *FallbackSource) GetQuote(ctx context.Context, assetID string) (Quote, error) {
	asset, ok := LookupAsset(assetID)
	if !ok {
		return Quote{}, fmt.Errorf("unknown asset %q: %w", assetID, ErrPriceUnavailable)
	}

	quote, err := f.primary.GetQuote(ctx, assetID)
	if err == nil && quote.Price > 0 {
		f.mu.Lock()
		f.lastKnown[assetID] = quote
		f.mu.Unlock()
		return quote, nil
	}

	f.logger.Warn("Price fetch failed, substituting fallback",
		zap.String("asset_id", assetID),
		zap.Error(err),
	)

	f.mu.RLock()
	cached, ok := f.lastKnown[assetID]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	return Quote{
		AssetID:   asset.ID,
		Name:      asset.Name,
		Symbol:    asset.Symbol,
		Price:     asset.Fallback,
		Change24h: 0,
	}, nil
}
