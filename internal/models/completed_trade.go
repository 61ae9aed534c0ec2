package models

import "gorm.io/gorm"

// CompletedTrade is a settled trade in the history set.
// ExitPrice, Profit and ProfitPercent are stamped exactly once, at
// settlement, and never recomputed afterwards.
type CompletedTrade struct {
	gorm.Model
	TradeID          string  `gorm:"uniqueIndex;not null" json:"id"`
	UserID           string  `gorm:"index" json:"user_id"`
	AssetID          string  `json:"asset_id"`
	AssetName        string  `json:"asset_name"`
	AssetSymbol      string  `json:"asset_symbol"`
	Direction        string  `json:"direction"`
	Amount           float64 `json:"amount"`
	EntryPrice       float64 `json:"entry_price"`
	ExitPrice        float64 `json:"exit_price"`
	Profit           float64 `json:"profit"`
	ProfitPercent    float64 `json:"profit_percent"`
	TimeframeSeconds int     `json:"timeframe_seconds"`
	StartTime        int64   `json:"start_time"`
	EndTime          int64   `json:"end_time"`
	CompletedAt      int64   `gorm:"index" json:"completed_at"`
}
