package pricing

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Commodity feed parameters: recent base prices and daily volatility
// (percent standard deviation) per symbol.
var commodityParams = []struct {
	Symbol     string
	Name       string
	Unit       string
	Base       float64
	Volatility float64
	SeedScale  float64
}{
	{"XAU", "Gold", "per oz", 2083.5, 0.008, 1.0},
	{"XAG", "Silver", "per oz", 24.39, 0.015, 1.1},
	{"BRENT", "Oil (Brent)", "per barrel", 77.25, 0.02, 1.2},
	{"NATGAS", "Natural Gas", "per MMBtu", 2.65, 0.035, 1.3},
}

const (
	goldSimBase       = 2650.0 // approximate COMEX gold price per oz
	goldSimVolatility = 0.005  // 0.5% intraday volatility
	forexVariation    = 0.02   // +/-1% around the base rate
)

// CommodityQuote is one entry of the simulated commodity feed.
type CommodityQuote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Unit      string  `json:"unit"`
}

// Synthetic generates deterministic pseudo-random quotes for assets with
// no live feed. Prices are seeded from time buckets, so repeated reads
// within a bucket return the same value.
type Synthetic struct {
	clock func() time.Time
}

var _ Source = (*Synthetic)(nil)

// NewSynthetic creates a synthetic source using the wall clock.
func NewSynthetic() *Synthetic {
	return &Synthetic{clock: time.Now}
}

// NewSyntheticWithClock creates a synthetic source with a fixed clock,
// used in tests.
func NewSyntheticWithClock(clock func() time.Time) *Synthetic {
	return &Synthetic{clock: clock}
}

// seededUniform maps a seed to a uniform value in [0, 1).
func seededUniform(seed float64) float64 {
	v := math.Sin(seed) * 10000
	return v - math.Floor(v)
}

// seededNormal draws a standard normal value via the Box-Muller transform.
func seededNormal(seed float64) float64 {
	u1 := seededUniform(seed)
	u2 := seededUniform(seed * 2)
	if u1 < 1e-12 {
		u1 = 1e-12 // keep the log finite
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// walkPrice applies one volatility-scaled normal step to a base price.
func walkPrice(base, volatility, seed float64) float64 {
	return base * (1 + seededNormal(seed)*volatility)
}

// GetQuote serves gold and forex assets from the simulation.
func (s *Synthetic) GetQuote(_ context.Context, assetID string) (Quote, error) {
	asset, ok := LookupAsset(assetID)
	if !ok {
		return Quote{}, fmt.Errorf("unknown asset %q: %w", assetID, ErrPriceUnavailable)
	}

	now := s.clock()
	switch asset.Class {
	case ClassGold:
		return s.goldQuote(now), nil
	case ClassForex:
		return s.forexQuote(asset, now), nil
	default:
		return Quote{}, fmt.Errorf("no synthetic feed for %q: %w", assetID, ErrPriceUnavailable)
	}
}

// goldQuote simulates the COMEX gold price on a one-minute seed bucket,
// with the 24h change computed against the bucket from 24 hours earlier.
func (s *Synthetic) goldQuote(now time.Time) Quote {
	seed := float64(now.UnixMilli() / (60 * 1000))

	price := goldSimBase * (1 + (seededUniform(seed)-0.5)*goldSimVolatility)
	prevSeed := seed - 1440 // 24 hours of one-minute buckets
	prevPrice := goldSimBase * (1 + (seededUniform(prevSeed)-0.5)*goldSimVolatility)

	return Quote{
		AssetID:   "gold",
		Name:      "COMEX Gold",
		Symbol:    "GOLD",
		Price:     price,
		Change24h: (price - prevPrice) / prevPrice * 100,
	}
}

// forexQuote varies a pair's base rate on a one-minute seed bucket.
func (s *Synthetic) forexQuote(asset Asset, now time.Time) Quote {
	seed := float64(now.UnixMilli()/(60*1000)) * pairSeedScale(asset.ID)

	return Quote{
		AssetID:   asset.ID,
		Name:      asset.Name,
		Symbol:    asset.Symbol,
		Price:     asset.Fallback * (1 + (seededUniform(seed)-0.5)*forexVariation),
		Change24h: (seededUniform(seed*3) - 0.5) * 2,
	}
}

// pairSeedScale decorrelates pairs that share a seed bucket.
func pairSeedScale(pairID string) float64 {
	scale := 1.0
	for _, r := range pairID {
		scale += float64(r) / 1000
	}
	return scale
}

// Commodities returns the simulated commodity board. Prices change every
// five minutes; the 24h change compares against the previous bucket.
func (s *Synthetic) Commodities() []CommodityQuote {
	seed := float64(s.clock().UnixMilli() / (5 * 60 * 1000))

	out := make([]CommodityQuote, 0, len(commodityParams))
	for _, p := range commodityParams {
		price := walkPrice(p.Base, p.Volatility, seed*p.SeedScale)
		prevPrice := walkPrice(p.Base, p.Volatility, (seed-1)*p.SeedScale)
		out = append(out, CommodityQuote{
			Symbol:    p.Symbol,
			Name:      p.Name,
			Price:     price,
			Change24h: (price - prevPrice) / prevPrice * 100,
			Unit:      p.Unit,
		})
	}
	return out
}
