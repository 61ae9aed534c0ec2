package trader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"demo-trading-go/internal/config"
	"demo-trading-go/internal/ledger"
	"demo-trading-go/internal/models"
	"demo-trading-go/internal/pricing"
	"demo-trading-go/internal/settlement"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Validation errors surfaced to the caller of OpenTrade.
var (
	ErrInvalidDirection    = errors.New("direction must be long or short")
	ErrInvalidTimeframe    = errors.New("invalid timeframe")
	ErrBelowMinimumAmount  = errors.New("amount below timeframe minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ActiveTradeView is a read-only display snapshot of an active trade
// with its live metrics. It never feeds back into the ledger.
type ActiveTradeView struct {
	models.Trade
	CurrentPrice     float64 `json:"current_price"`
	Profit           float64 `json:"profit"`
	ProfitPercent    float64 `json:"profit_percent"`
	TargetPercent    float64 `json:"target_percent"`
	SecondsRemaining int64   `json:"seconds_remaining"`
}

// Controller drives the trade lifecycle: it opens trades, sweeps expired
// ones into history with a settlement outcome, and produces live views
// of the active set. It is the only writer of the ledger and of account
// balances.
type Controller struct {
	cfg    config.Trading
	settle settlement.Config
	ledger *ledger.Ledger
	prices pricing.Source
	db     *gorm.DB
	rng    *rand.Rand
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	lastPrices map[string]float64 // trade id -> last known price
}

// NewController creates a Controller. The rand source is injected so
// tests can force settlement outcomes.
func NewController(cfg config.Trading, led *ledger.Ledger, prices pricing.Source, db *gorm.DB, rng *rand.Rand, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:        cfg,
		settle:     settlement.NewConfig(cfg),
		ledger:     led,
		prices:     prices,
		db:         db,
		rng:        rng,
		logger:     logger,
		now:        time.Now,
		lastPrices: make(map[string]float64),
	}
}

// WithClock overrides the controller's clock. Used in tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// OpenTrade validates the request, fetches the entry price and inserts a
// new trade into the active set. The committed amount is debited from
// the user's account. Price is fetched before anything is mutated.
func (c *Controller) OpenTrade(ctx context.Context, userID, assetID, direction string, amount float64, timeframeSeconds int) (*models.Trade, error) {
	if direction != models.DirectionLong && direction != models.DirectionShort {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	tf, ok := c.cfg.FindTimeframe(timeframeSeconds)
	if !ok {
		return nil, fmt.Errorf("%w: %ds", ErrInvalidTimeframe, timeframeSeconds)
	}

	if amount < tf.MinAmount {
		return nil, fmt.Errorf("%w: minimum trade amount for %ds is $%.0f", ErrBelowMinimumAmount, tf.Seconds, tf.MinAmount)
	}

	balance, tracked, err := c.accountBalance(userID)
	if err != nil {
		return nil, err
	}
	if tracked && balance > 0 && amount > balance {
		return nil, fmt.Errorf("%w: available $%.2f", ErrInsufficientBalance, balance)
	}

	quote, err := c.prices.GetQuote(ctx, assetID)
	if err != nil {
		// Only unknown assets reach here; every cataloged asset has a
		// fallback price.
		return nil, err
	}

	now := c.now().UnixMilli()
	trade := &models.Trade{
		TradeID:          uuid.NewString(),
		UserID:           userID,
		AssetID:          quote.AssetID,
		AssetName:        quote.Name,
		AssetSymbol:      quote.Symbol,
		Direction:        direction,
		Amount:           amount,
		EntryPrice:       quote.Price,
		TimeframeSeconds: timeframeSeconds,
		StartTime:        now,
		EndTime:          now + int64(timeframeSeconds)*1000,
	}

	if err := c.ledger.InsertActive(trade); err != nil {
		return nil, err
	}

	if tracked {
		if err := c.adjustBalance(userID, -amount); err != nil {
			c.logger.Error("Failed to debit account for opened trade",
				zap.String("trade_id", trade.TradeID),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("Trade opened",
		zap.String("trade_id", trade.TradeID),
		zap.String("asset_id", trade.AssetID),
		zap.String("direction", direction),
		zap.Float64("amount", amount),
		zap.Float64("entry_price", trade.EntryPrice),
		zap.Int("timeframe_seconds", timeframeSeconds),
	)

	return trade, nil
}

// SweepExpired settles every active trade whose end time has passed.
// CompletedAt is stamped with the trade's end time, not the sweep time.
// Calling it again with the same clock is a no-op, so the sweep timer
// can fire as often as it likes.
func (c *Controller) SweepExpired(now time.Time) ([]models.CompletedTrade, error) {
	active, err := c.ledger.ListActive()
	if err != nil {
		return nil, err
	}

	nowMillis := now.UnixMilli()
	var settled []models.CompletedTrade

	for _, trade := range active {
		if trade.EndTime > nowMillis {
			continue
		}

		outcome := settlement.ComputeSettlement(c.settle, trade.EntryPrice, trade.Direction, trade.Amount, trade.TimeframeSeconds, c.rng)

		record, err := c.ledger.MoveToHistory(trade.TradeID, ledger.Settlement{
			ExitPrice:     outcome.ExitPrice,
			Profit:        outcome.Profit,
			ProfitPercent: outcome.ProfitPercent,
			CompletedAt:   trade.EndTime,
		})
		if errors.Is(err, ledger.ErrNotFound) {
			// Already settled; nothing to do.
			continue
		}
		if err != nil {
			c.logger.Error("Failed to settle trade", zap.String("trade_id", trade.TradeID), zap.Error(err))
			continue
		}

		// Return the stake plus the outcome to the account.
		if trade.UserID != "" {
			if err := c.adjustBalance(trade.UserID, trade.Amount+record.Profit); err != nil {
				c.logger.Error("Failed to credit settled trade", zap.String("trade_id", trade.TradeID), zap.Error(err))
			}
		}

		c.forgetPrice(trade.TradeID)
		settled = append(settled, *record)

		c.logger.Info("Trade settled",
			zap.String("trade_id", trade.TradeID),
			zap.Float64("exit_price", record.ExitPrice),
			zap.Float64("profit", record.Profit),
			zap.Bool("won", outcome.Won),
		)
	}

	return settled, nil
}

// RefreshLivePrices produces a display snapshot of the active set with
// current prices and live metrics. A failed price fetch keeps the
// trade's last known price; it never fails the whole refresh.
func (c *Controller) RefreshLivePrices(ctx context.Context) ([]ActiveTradeView, error) {
	active, err := c.ledger.ListActive()
	if err != nil {
		return nil, err
	}
	return c.buildViews(ctx, active), nil
}

// ActiveTradesForUser is RefreshLivePrices scoped to one user.
func (c *Controller) ActiveTradesForUser(ctx context.Context, userID string) ([]ActiveTradeView, error) {
	active, err := c.ledger.ListActiveForUser(userID)
	if err != nil {
		return nil, err
	}
	return c.buildViews(ctx, active), nil
}

func (c *Controller) buildViews(ctx context.Context, active []models.Trade) []ActiveTradeView {
	nowMillis := c.now().UnixMilli()
	views := make([]ActiveTradeView, 0, len(active))

	for _, trade := range active {
		currentPrice := c.lastPrice(trade.TradeID, trade.EntryPrice)

		quote, err := c.prices.GetQuote(ctx, trade.AssetID)
		if err != nil || quote.Price <= 0 {
			c.logger.Warn("Live price unavailable, keeping last known price",
				zap.String("trade_id", trade.TradeID),
				zap.String("asset_id", trade.AssetID),
				zap.Error(err),
			)
		} else {
			currentPrice = quote.Price
			c.rememberPrice(trade.TradeID, currentPrice)
		}

		metrics := settlement.ComputeLiveMetrics(c.settle, trade.EntryPrice, currentPrice, trade.Direction, trade.Amount, trade.TimeframeSeconds)

		remaining := (trade.EndTime - nowMillis) / 1000
		if remaining < 0 {
			remaining = 0
		}

		views = append(views, ActiveTradeView{
			Trade:            trade,
			CurrentPrice:     currentPrice,
			Profit:           metrics.Profit,
			ProfitPercent:    metrics.ProfitPercent,
			TargetPercent:    metrics.TargetPercent,
			SecondsRemaining: remaining,
		})
	}

	return views
}

// History returns the settled trades, most recent first.
func (c *Controller) History() ([]models.CompletedTrade, error) {
	return c.ledger.ListHistory()
}

// HistoryForUser returns one user's settled trades, most recent first.
func (c *Controller) HistoryForUser(userID string) ([]models.CompletedTrade, error) {
	all, err := c.ledger.ListHistory()
	if err != nil {
		return nil, err
	}
	out := make([]models.CompletedTrade, 0, len(all))
	for _, t := range all {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ClearHistory empties the trade history. Irreversible.
func (c *Controller) ClearHistory() error {
	return c.ledger.ClearHistory()
}

// Balance returns the user's available balance.
func (c *Controller) Balance(userID string) (float64, error) {
	balance, tracked, err := c.accountBalance(userID)
	if err != nil {
		return 0, err
	}
	if !tracked {
		return 0, nil
	}
	return balance, nil
}

// accountBalance loads the balance for a user. The second return value
// reports whether an account is tracked for the user at all.
func (c *Controller) accountBalance(userID string) (float64, bool, error) {
	if userID == "" {
		return 0, false, nil
	}

	var account models.Account
	err := c.db.Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load account: %w", err)
	}
	return account.Balance, true, nil
}

// adjustBalance applies a signed delta to a user's balance.
func (c *Controller) adjustBalance(userID string, delta float64) error {
	result := c.db.Model(&models.Account{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to adjust balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no account for user %s", userID)
	}
	return nil
}

func (c *Controller) lastPrice(tradeID string, fallback float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.lastPrices[tradeID]; ok {
		return p
	}
	return fallback
}

func (c *Controller) rememberPrice(tradeID string, price float64) {
	c.mu.Lock()
	c.lastPrices[tradeID] = price
	c.mu.Unlock()
}

func (c *Controller) forgetPrice(tradeID string) {
	c.mu.Lock()
	delete(c.lastPrices, tradeID)
	c.mu.Unlock()
}
