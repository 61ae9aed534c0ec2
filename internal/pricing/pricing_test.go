package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedSource returns canned quotes or errors per asset id.
type scriptedSource struct {
	quotes map[string]Quote
	err    error
}

func (s *scriptedSource) GetQuote(_ context.Context, assetID string) (Quote, error) {
	if s.err != nil {
		return Quote{}, s.err
	}
	q, ok := s.quotes[assetID]
	if !ok {
		return Quote{}, ErrPriceUnavailable
	}
	return q, nil
}

func TestLookupAsset(t *testing.T) {
	gold, ok := LookupAsset("gold")
	require.True(t, ok)
	assert.Equal(t, "GOLD", gold.Symbol)
	assert.Equal(t, ClassGold, gold.Class)

	eurusd, ok := LookupAsset("eurusd")
	require.True(t, ok)
	assert.Equal(t, ClassForex, eurusd.Class)
	assert.Equal(t, 1.09, eurusd.Fallback)

	_, ok = LookupAsset("tulips")
	assert.False(t, ok)
}

func TestFallbackSource_PassesThroughGoodQuotes(t *testing.T) {
	primary := &scriptedSource{quotes: map[string]Quote{
		"bitcoin": {AssetID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Price: 61234, Change24h: 1.2},
	}}
	f := NewFallbackSource(primary, zap.NewNop())

	q, err := f.GetQuote(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 61234.0, q.Price)
	assert.Equal(t, 1.2, q.Change24h)
}

func TestFallbackSource_SubstitutesConstantOnFailure(t *testing.T) {
	f := NewFallbackSource(&scriptedSource{err: errors.New("API down")}, zap.NewNop())

	q, err := f.GetQuote(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 96000.0, q.Price)
	assert.Equal(t, "BTC", q.Symbol)
	assert.Zero(t, q.Change24h)
}

func TestFallbackSource_ServesLastKnownGoodQuote(t *testing.T) {
	primary := &scriptedSource{quotes: map[string]Quote{
		"ethereum": {AssetID: "ethereum", Name: "Ethereum", Symbol: "ETH", Price: 3550},
	}}
	f := NewFallbackSource(primary, zap.NewNop())

	_, err := f.GetQuote(context.Background(), "ethereum")
	require.NoError(t, err)

	// The feed dies; the cached quote beats the static constant.
	primary.err = errors.New("API down")
	q, err := f.GetQuote(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, 3550.0, q.Price)
}

func TestFallbackSource_UnknownAsset(t *testing.T) {
	f := NewFallbackSource(&scriptedSource{}, zap.NewNop())

	_, err := f.GetQuote(context.Background(), "tulips")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestSynthetic_DeterministicWithinBucket(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	s := NewSyntheticWithClock(func() time.Time { return at })

	first, err := s.GetQuote(context.Background(), "gold")
	require.NoError(t, err)
	second, err := s.GetQuote(context.Background(), "gold")
	require.NoError(t, err)

	// Same minute bucket, same price
	assert.Equal(t, first.Price, second.Price)
	assert.InDelta(t, goldSimBase, first.Price, goldSimBase*goldSimVolatility)
}

func TestSynthetic_ForexVariesAroundBase(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	s := NewSyntheticWithClock(func() time.Time { return at })

	q, err := s.GetQuote(context.Background(), "eurusd")
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", q.Symbol)
	assert.InDelta(t, 1.09, q.Price, 1.09*forexVariation)
	assert.LessOrEqual(t, q.Change24h, 1.0)
	assert.GreaterOrEqual(t, q.Change24h, -1.0)
}

func TestSynthetic_UnknownAndUnsupportedAssets(t *testing.T) {
	s := NewSynthetic()

	_, err := s.GetQuote(context.Background(), "tulips")
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	// Crypto has no synthetic feed
	_, err = s.GetQuote(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestSynthetic_Commodities(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	s := NewSyntheticWithClock(func() time.Time { return at })

	board := s.Commodities()
	require.Len(t, board, 4)

	symbols := make([]string, 0, len(board))
	for _, c := range board {
		symbols = append(symbols, c.Symbol)
		assert.Greater(t, c.Price, 0.0, "%s price", c.Symbol)
	}
	assert.Equal(t, []string{"XAU", "XAG", "BRENT", "NATGAS"}, symbols)

	// Same bucket, same board
	assert.Equal(t, board, s.Commodities())
}
