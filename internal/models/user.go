package models

import "gorm.io/gorm"

// User role constants.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered account.
// The password is stored as a bcrypt hash and never serialized.
type User struct {
	gorm.Model
	UserID       string `gorm:"uniqueIndex;not null" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `json:"name"`
	Role         string `gorm:"default:user" json:"role"`
	PasswordHash string `json:"-"`
}
