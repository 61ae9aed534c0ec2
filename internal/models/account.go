package models

import "gorm.io/gorm"

// Account holds the available balance for a user.
// Only the lifecycle controller debits and credits it.
type Account struct {
	gorm.Model
	UserID  string  `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance float64 `gorm:"not null" json:"balance"`
}
