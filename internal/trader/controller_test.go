package trader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"demo-trading-go/internal/config"
	"demo-trading-go/internal/ledger"
	"demo-trading-go/internal/models"
	"demo-trading-go/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockSource is a mock implementation of pricing.Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetQuote(ctx context.Context, assetID string) (pricing.Quote, error) {
	args := m.Called(ctx, assetID)
	return args.Get(0).(pricing.Quote), args.Error(1)
}

var testStart = time.UnixMilli(1_700_000_000_000)

// setupTest creates a controller over a fresh in-memory database with a
// fixed clock, a deterministic rand source and one funded account.
func setupTest(t *testing.T, winProbability float64) (*Controller, *MockSource, *gorm.DB) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Trade{}, &models.CompletedTrade{}, &models.Account{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Account{UserID: "u1", Balance: 95000}).Error)

	cfg := config.Trading{
		StartingBalance: 95000,
		WinProbability:  winProbability,
		Timeframes:      config.DefaultTimeframes(),
	}

	mockSource := new(MockSource)
	led := ledger.New(db, zap.NewNop())
	rng := rand.New(rand.NewSource(1))

	controller := NewController(cfg, led, mockSource, db, rng, zap.NewNop()).
		WithClock(func() time.Time { return testStart })

	return controller, mockSource, db
}

func goldQuote(price float64) pricing.Quote {
	return pricing.Quote{AssetID: "gold", Name: "COMEX Gold", Symbol: "GOLD", Price: price, Change24h: 0.5}
}

func bitcoinQuote(price float64) pricing.Quote {
	return pricing.Quote{AssetID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Price: price, Change24h: 2.1}
}

func TestOpenTrade_Success(t *testing.T) {
	c, mockSource, _ := setupTest(t, 0.6)
	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil)

	trade, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 60)
	require.NoError(t, err)

	assert.NotEmpty(t, trade.TradeID)
	assert.Equal(t, "gold", trade.AssetID)
	assert.Equal(t, "COMEX Gold", trade.AssetName)
	assert.Equal(t, 2000.0, trade.EntryPrice)
	assert.Equal(t, testStart.UnixMilli(), trade.StartTime)
	assert.Equal(t, int64(60*1000), trade.EndTime-trade.StartTime)

	// The committed amount is debited immediately
	balance, err := c.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, 94000.0, balance)

	mockSource.AssertExpectations(t)
}

func TestOpenTrade_EndTimeMatchesTimeframe(t *testing.T) {
	c, mockSource, _ := setupTest(t, 0.6)
	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil)

	for _, tf := range config.DefaultTimeframes() {
		trade, err := c.OpenTrade(context.Background(), "", "gold", models.DirectionShort, tf.MinAmount, tf.Seconds)
		require.NoError(t, err)
		assert.Equal(t, int64(tf.Seconds)*1000, trade.EndTime-trade.StartTime)
	}
}

func TestOpenTrade_InvalidDirection(t *testing.T) {
	c, mockSource, _ := setupTest(t, 0.6)

	_, err := c.OpenTrade(context.Background(), "u1", "gold", "sideways", 1000, 60)
	assert.ErrorIs(t, err, ErrInvalidDirection)
	mockSource.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestOpenTrade_InvalidTimeframe(t *testing.T) {
	c, mockSource, _ := setupTest(t, 0.6)

	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 42)
	assert.ErrorIs(t, err, ErrInvalidTimeframe)
	mockSource.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestOpenTrade_BelowMinimumAmount(t *testing.T) {
	c, mockSource, _ := setupTest(t, 0.6)

	// minimum for 60s is $500
	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 100, 60)
	assert.ErrorIs(t, err, ErrBelowMinimumAmount)

	// The ledger must be untouched
	active, err := c.RefreshLivePrices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
	mockSource.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestOpenTrade_InsufficientBalance(t *testing.T) {
	c, mockSource, db := setupTest(t, 0.6)
	require.NoError(t, db.Model(&models.Account{}).Where("user_id = ?", "u1").Update("balance", 1000).Error)

	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 5000, 90)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	mockSource.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestSweepExpired_GoldScenario(t *testing.T) {
	// Open a long on gold, amount 1000, 60s timeframe, entry 2000.
	// Sweep one second after expiry; with win probability 1 the 14%
	// settlement move applies in the trade's favor.
	c, mockSource, _ := setupTest(t, 1.0)
	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil)

	trade, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 60)
	require.NoError(t, err)

	settled, err := c.SweepExpired(testStart.Add(61 * time.Second))
	require.NoError(t, err)
	require.Len(t, settled, 1)

	record := settled[0]
	assert.Equal(t, trade.TradeID, record.TradeID)
	assert.Equal(t, trade.EndTime, record.CompletedAt)
	assert.InDelta(t, 2000*1.14, record.ExitPrice, 1e-9)
	assert.InDelta(t, (record.ExitPrice-2000)/2000*100, record.ProfitPercent, 1e-9)
	assert.InDelta(t, 140.0, record.Profit, 1e-9)

	// Stake plus profit is credited back
	balance, err := c.Balance("u1")
	require.NoError(t, err)
	assert.InDelta(t, 95140.0, balance, 1e-9)

	// The trade left the active set
	active, err := c.RefreshLivePrices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSweepExpired_Idempotent(t *testing.T) {
	c, mockSource, _ := setupTest(t, 1.0)
	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil)

	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 60)
	require.NoError(t, err)

	now := testStart.Add(61 * time.Second)

	first, err := c.SweepExpired(now)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A second sweep with the same clock must change nothing.
	second, err := c.SweepExpired(now)
	require.NoError(t, err)
	assert.Empty(t, second)

	history, err := c.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first[0].ExitPrice, history[0].ExitPrice)

	balance, err := c.Balance("u1")
	require.NoError(t, err)
	assert.InDelta(t, 95140.0, balance, 1e-9)
}

func TestSweepExpired_LeavesUnexpiredTrades(t *testing.T) {
	c, mockSource, _ := setupTest(t, 1.0)
	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil)
	mockSource.On("GetQuote", mock.Anything, "bitcoin").Return(bitcoinQuote(60000), nil)

	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 60)
	require.NoError(t, err)
	_, err = c.OpenTrade(context.Background(), "u1", "bitcoin", models.DirectionShort, 10000, 120)
	require.NoError(t, err)

	settled, err := c.SweepExpired(testStart.Add(61 * time.Second))
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, "gold", settled[0].AssetID)

	active, err := c.RefreshLivePrices(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "bitcoin", active[0].AssetID)
}

func TestRefreshLivePrices_FailureRetainsLastKnownPrice(t *testing.T) {
	c, mockSource, _ := setupTest(t, 0.6)

	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil).Once()
	mockSource.On("GetQuote", mock.Anything, "bitcoin").Return(bitcoinQuote(60000), nil).Once()

	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 60)
	require.NoError(t, err)
	_, err = c.OpenTrade(context.Background(), "u1", "bitcoin", models.DirectionLong, 10000, 120)
	require.NoError(t, err)

	// First refresh: bitcoin moves, gold fails and keeps its entry price.
	mockSource.On("GetQuote", mock.Anything, "gold").Return(pricing.Quote{}, errors.New("API down")).Once()
	mockSource.On("GetQuote", mock.Anything, "bitcoin").Return(bitcoinQuote(63000), nil).Once()

	views, err := c.RefreshLivePrices(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, 2000.0, views[0].CurrentPrice)
	assert.InDelta(t, 0.0, views[0].Profit, 1e-9)
	assert.Equal(t, 63000.0, views[1].CurrentPrice)
	assert.InDelta(t, 500.0, views[1].Profit, 1e-9) // +5% of 10000

	// Second refresh: both fail; bitcoin keeps the refreshed price, not
	// the entry price.
	mockSource.On("GetQuote", mock.Anything, "gold").Return(pricing.Quote{}, errors.New("API down")).Once()
	mockSource.On("GetQuote", mock.Anything, "bitcoin").Return(pricing.Quote{}, errors.New("API down")).Once()

	views, err = c.RefreshLivePrices(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, 2000.0, views[0].CurrentPrice)
	assert.Equal(t, 63000.0, views[1].CurrentPrice)

	mockSource.AssertExpectations(t)
}

func TestActiveTradesForUser_ScopesToOwner(t *testing.T) {
	c, mockSource, db := setupTest(t, 0.6)
	require.NoError(t, db.Create(&models.Account{UserID: "u2", Balance: 95000}).Error)
	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil)

	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 60)
	require.NoError(t, err)
	_, err = c.OpenTrade(context.Background(), "u2", "gold", models.DirectionShort, 1000, 60)
	require.NoError(t, err)

	views, err := c.ActiveTradesForUser(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.DirectionShort, views[0].Direction)
}

func TestClearHistory(t *testing.T) {
	c, mockSource, _ := setupTest(t, 1.0)
	mockSource.On("GetQuote", mock.Anything, "gold").Return(goldQuote(2000), nil)

	_, err := c.OpenTrade(context.Background(), "u1", "gold", models.DirectionLong, 1000, 60)
	require.NoError(t, err)
	_, err = c.SweepExpired(testStart.Add(61 * time.Second))
	require.NoError(t, err)

	require.NoError(t, c.ClearHistory())

	history, err := c.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}
