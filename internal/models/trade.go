package models

import "gorm.io/gorm"

// Trade direction constants.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade represents an open position in the active set.
// Timestamps are unix milliseconds, matching the wire format the UI uses.
type Trade struct {
	gorm.Model
	TradeID          string  `gorm:"uniqueIndex;not null" json:"id"`
	UserID           string  `gorm:"index" json:"user_id"`
	AssetID          string  `json:"asset_id"`
	AssetName        string  `json:"asset_name"`
	AssetSymbol      string  `json:"asset_symbol"`
	Direction        string  `json:"direction"` // "long" or "short"
	Amount           float64 `gorm:"not null" json:"amount"`
	EntryPrice       float64 `gorm:"not null" json:"entry_price"`
	TimeframeSeconds int     `json:"timeframe_seconds"`
	StartTime        int64   `json:"start_time"`
	EndTime          int64   `json:"end_time"`
}

// DirectionSign returns +1 for long positions and -1 for short positions.
func DirectionSign(direction string) float64 {
	if direction == DirectionShort {
		return -1
	}
	return 1
}
