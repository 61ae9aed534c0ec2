package pricing

import (
	"context"
	"fmt"

	"demo-trading-go/internal/config"
	"go.uber.org/zap"
)

// Router dispatches quote requests to the source that owns the asset
// class: CoinGecko for crypto, goldapi.io for gold (with the synthetic
// feed behind it), and the synthetic feed for forex.
type Router struct {
	crypto Source
	gold   Source
	synth  *Synthetic
	logger *zap.Logger
}

var _ Source = (*Router)(nil)

// NewRouter wires the default source per asset class.
func NewRouter(cfg *config.Pricing, logger *zap.Logger) *Router {
	return &Router{
		crypto: NewCoinGeckoClient(cfg, logger.Named("coingecko")),
		gold:   NewGoldClient(cfg, logger.Named("goldapi")),
		synth:  NewSynthetic(),
		logger: logger,
	}
}

// GetQuote fetches a quote from the owning source.
func (r *Router) GetQuote(ctx context.Context, assetID string) (Quote, error) {
	asset, ok := LookupAsset(assetID)
	if !ok {
		return Quote{}, fmt.Errorf("unknown asset %q: %w", assetID, ErrPriceUnavailable)
	}

	switch asset.Class {
	case ClassCrypto:
		return r.crypto.GetQuote(ctx, assetID)
	case ClassGold:
		q, err := r.gold.GetQuote(ctx, assetID)
		if err != nil {
			// The live gold feed needs an API key; the simulation is the
			// normal path when none is configured.
			r.logger.Debug("Gold feed unavailable, using simulation", zap.Error(err))
			return r.synth.GetQuote(ctx, assetID)
		}
		return q, nil
	default:
		return r.synth.GetQuote(ctx, assetID)
	}
}

// Commodities exposes the simulated commodity board.
func (r *Router) Commodities() []CommodityQuote {
	return r.synth.Commodities()
}
