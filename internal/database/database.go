package database

import (
	"errors"
	"fmt"

	"demo-trading-go/internal/config"
	"demo-trading-go/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema and seeds the default admin account.
func Migrate(db *gorm.DB, cfg *config.Config) error {
	err := db.AutoMigrate(
		&models.Trade{},
		&models.CompletedTrade{},
		&models.User{},
		&models.Account{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return seedAdmin(db, cfg)
}

// seedAdmin creates the default admin user on first start.
func seedAdmin(db *gorm.DB, cfg *config.Config) error {
	var admin models.User
	err := db.Where("email = ?", cfg.Auth.AdminEmail).First(&admin).Error
	if err == nil {
		return nil // already seeded
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin = models.User{
		UserID:       uuid.NewString(),
		Email:        cfg.Auth.AdminEmail,
		Name:         "Admin User",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	account := models.Account{UserID: admin.UserID, Balance: cfg.Trading.StartingBalance}
	if err := db.Create(&account).Error; err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	return nil
}
