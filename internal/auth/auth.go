package auth

import (
	"errors"
	"fmt"
	"sync"

	"demo-trading-go/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User-facing auth errors.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
)

// Service manages accounts and login sessions. Passwords are stored as
// bcrypt hashes; sessions are opaque tokens held in memory, so a restart
// signs everyone out.
type Service struct {
	db              *gorm.DB
	logger          *zap.Logger
	startingBalance float64

	mu       sync.RWMutex
	sessions map[string]string // token -> user id
}

// NewService creates an auth service. New users start with the given
// account balance.
func NewService(db *gorm.DB, startingBalance float64, logger *zap.Logger) *Service {
	return &Service{
		db:              db,
		logger:          logger,
		startingBalance: startingBalance,
		sessions:        make(map[string]string),
	}
}

// SignUp registers a new user, creates their account and opens a session.
func (s *Service) SignUp(email, password, name string) (*models.User, string, error) {
	var existing models.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, "", ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         models.RoleUser,
		PasswordHash: string(hash),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		account := models.Account{UserID: user.UserID, Balance: s.startingBalance}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("User registered", zap.String("user_id", user.UserID), zap.String("email", email))
	return &user, s.openSession(user.UserID), nil
}

// SignIn checks the credentials and opens a session.
func (s *Service) SignIn(email, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	return &user, s.openSession(user.UserID), nil
}

// CurrentUser resolves a session token to its user.
func (s *Service) CurrentUser(token string) (*models.User, error) {
	s.mu.RLock()
	userID, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidSession
	}

	var user models.User
	if err := s.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	return &user, nil
}

// SignOut drops a session. Unknown tokens are ignored.
func (s *Service) SignOut(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Service) openSession(userID string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = userID
	s.mu.Unlock()
	return token
}
