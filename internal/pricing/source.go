package pricing

import (
	"context"
	"errors"
)

// ErrPriceUnavailable is returned when an asset is not known to any source
// and no fallback constant exists for it.
var ErrPriceUnavailable = errors.New("price unavailable")

// Quote is a point-in-time price for a single asset.
type Quote struct {
	AssetID   string  `json:"asset_id"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
}

// Source provides current prices for asset identifiers.
type Source interface {
	GetQuote(ctx context.Context, assetID string) (Quote, error)
}
