package ledger

import (
	"errors"
	"fmt"

	"demo-trading-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger integrity errors. These indicate a programming or data bug and
// are logged as errors by callers rather than shown to users.
var (
	ErrDuplicateID = errors.New("trade id already exists")
	ErrNotFound    = errors.New("trade not found in active set")
)

// Settlement carries the final outcome stamped onto a trade when it
// moves from the active set to history.
type Settlement struct {
	ExitPrice     float64
	Profit        float64
	ProfitPercent float64
	CompletedAt   int64
}

// Ledger is the persisted system of record for trades. Every trade lives
// in exactly one of two sets: active (open positions) or history
// (settled positions).
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a Ledger over the given database.
func New(db *gorm.DB, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// InsertActive appends a trade to the active set. The trade id must not
// exist in either set.
func (l *Ledger) InsertActive(trade *models.Trade) error {
	var count int64
	if err := l.db.Model(&models.Trade{}).Where("trade_id = ?", trade.TradeID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check active set: %w", err)
	}
	if count == 0 {
		if err := l.db.Model(&models.CompletedTrade{}).Where("trade_id = ?", trade.TradeID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check history set: %w", err)
		}
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, trade.TradeID)
	}

	if err := l.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// ListActive returns the active set in insertion order.
func (l *Ledger) ListActive() ([]models.Trade, error) {
	var trades []models.Trade
	if err := l.db.Order("id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list active trades: %w", err)
	}
	return trades, nil
}

// ListActiveForUser returns the active trades owned by one user.
func (l *Ledger) ListActiveForUser(userID string) ([]models.Trade, error) {
	var trades []models.Trade
	if err := l.db.Where("user_id = ?", userID).Order("id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list active trades: %w", err)
	}
	return trades, nil
}

// ListHistory returns the history set, most recently completed first.
func (l *Ledger) ListHistory() ([]models.CompletedTrade, error) {
	var trades []models.CompletedTrade
	if err := l.db.Order("completed_at desc, id desc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trade history: %w", err)
	}
	return trades, nil
}

// MoveToHistory atomically removes a trade from the active set, stamps
// the settlement outcome onto it and appends it to history. Returns
// ErrNotFound when the id is not in the active set, which makes repeated
// settlement of the same trade a detectable no-op.
func (l *Ledger) MoveToHistory(tradeID string, s Settlement) (*models.CompletedTrade, error) {
	var completed *models.CompletedTrade

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var trade models.Trade
		if err := tx.Where("trade_id = ?", tradeID).First(&trade).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, tradeID)
			}
			return fmt.Errorf("failed to load trade %s: %w", tradeID, err)
		}

		record := models.CompletedTrade{
			TradeID:          trade.TradeID,
			UserID:           trade.UserID,
			AssetID:          trade.AssetID,
			AssetName:        trade.AssetName,
			AssetSymbol:      trade.AssetSymbol,
			Direction:        trade.Direction,
			Amount:           trade.Amount,
			EntryPrice:       trade.EntryPrice,
			ExitPrice:        s.ExitPrice,
			Profit:           s.Profit,
			ProfitPercent:    s.ProfitPercent,
			TimeframeSeconds: trade.TimeframeSeconds,
			StartTime:        trade.StartTime,
			EndTime:          trade.EndTime,
			CompletedAt:      s.CompletedAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert history record: %w", err)
		}

		if err := tx.Unscoped().Delete(&trade).Error; err != nil {
			return fmt.Errorf("failed to remove trade from active set: %w", err)
		}

		completed = &record
		return nil
	})
	if err != nil {
		return nil, err
	}

	return completed, nil
}

// ClearHistory empties the history set. Irreversible.
func (l *Ledger) ClearHistory() error {
	if err := l.db.Unscoped().Where("1 = 1").Delete(&models.CompletedTrade{}).Error; err != nil {
		return fmt.Errorf("failed to clear trade history: %w", err)
	}
	l.logger.Info("Trade history cleared")
	return nil
}
