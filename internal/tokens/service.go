package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

// SignupBonus is credited to every new account when it is seeded
const SignupBonus = 100

// Notifier delivers token-related notifications to recipients
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID uuid.UUID, notifType, targetID, targetType, message string) error
}

// Publisher emits domain events for downstream consumers
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// TokenService defines the virtual token economy operations
type TokenService interface {
	Start() error
	Stop() error
	SeedAccount(ctx context.Context, userID uuid.UUID) error
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.TokenAccount, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.TokenTransaction, int64, error)
	Earn(ctx context.Context, userID uuid.UUID, amount float64, reference, description string) (*models.TokenTransaction, error)
	Spend(ctx context.Context, userID uuid.UUID, amount float64, reference, description string) (*models.TokenTransaction, error)
	Tip(ctx context.Context, fromUserID, toUserID uuid.UUID, amount float64, message string) error
	Grant(ctx context.Context, adminID, userID uuid.UUID, amount float64, description string) (*models.TokenTransaction, error)
	CreatePending(ctx context.Context, userID uuid.UUID, txType string, amount float64, reference, description string) (*models.TokenTransaction, error)
	CompleteTransaction(ctx context.Context, transactionID uuid.UUID) error
	FailTransaction(ctx context.Context, transactionID uuid.UUID) error
	LockTokens(ctx context.Context, userID uuid.UUID, amount float64) error
	UnlockTokens(ctx context.Context, userID uuid.UUID, amount float64) error
}

// Service implements TokenService
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	notifier  Notifier
	publisher Publisher
}

// NewService creates a new TokenService
func NewService(logger *zap.Logger, db *gorm.DB, notifier Notifier, publisher Publisher) (TokenService, error) {
	svc := &Service{
		logger:    logger,
		db:        db,
		notifier:  notifier,
		publisher: publisher,
	}

	return svc, nil
}

// Start starts the tokens service
func (s *Service) Start() error {
	s.logger.Info("Tokens service started")
	return nil
}

// Stop stops the tokens service
func (s *Service) Stop() error {
	s.logger.Info("Tokens service stopped")
	return nil
}

// SeedAccount creates the token account for a new user with the signup bonus
func (s *Service) SeedAccount(ctx context.Context, userID uuid.UUID) error {
	// Check if account already exists
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.TokenAccount{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("account already exists")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := time.Now()
	account := &models.TokenAccount{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   SignupBonus,
		Available: SignupBonus,
		Locked:    0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(account).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create account: %w", err)
	}

	bonus := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        "earn",
		Amount:      SignupBonus,
		Status:      "completed",
		Reference:   "signup_bonus",
		Description: "Welcome bonus",
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if err := tx.Create(bonus).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create bonus transaction: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetAccount gets the token account for a user
func (s *Service) GetAccount(ctx context.Context, userID uuid.UUID) (*models.TokenAccount, error) {
	var account models.TokenAccount
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return &account, nil
}

// GetTransactions gets token transactions for a user with total count
func (s *Service) GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.TokenTransaction, int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.TokenTransaction{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var transactions []*models.TokenTransaction
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find transactions: %w", err)
	}

	return transactions, count, nil
}

// Earn credits tokens to a user for platform activity
func (s *Service) Earn(ctx context.Context, userID uuid.UUID, amount float64, reference, description string) (*models.TokenTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var account models.TokenAccount
	if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	account.Balance += amount
	account.Available += amount
	account.UpdatedAt = time.Now()
	if err := tx.Save(&account).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	now := time.Now()
	transaction := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        "earn",
		Amount:      amount,
		Status:      "completed",
		Reference:   reference,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if err := tx.Create(transaction).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

// Spend debits tokens from a user's available balance
func (s *Service) Spend(ctx context.Context, userID uuid.UUID, amount float64, reference, description string) (*models.TokenTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var account models.TokenAccount
	if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if account.Available < amount {
		tx.Rollback()
		return nil, fmt.Errorf("insufficient tokens")
	}

	account.Balance -= amount
	account.Available -= amount
	account.UpdatedAt = time.Now()
	if err := tx.Save(&account).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	now := time.Now()
	transaction := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        "spend",
		Amount:      amount,
		Status:      "completed",
		Reference:   reference,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if err := tx.Create(transaction).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

// Tip atomically transfers tokens between two users.
// The recipient account is created on the fly if missing.
func (s *Service) Tip(ctx context.Context, fromUserID, toUserID uuid.UUID, amount float64, message string) error {
	if amount <= 0 {
		return fmt.Errorf("invalid amount")
	}
	if fromUserID == toUserID {
		return fmt.Errorf("cannot tip yourself")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var fromAccount models.TokenAccount
	if err := tx.Where("user_id = ?", fromUserID).First(&fromAccount).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("account not found")
		}
		return fmt.Errorf("failed to find sender account: %w", err)
	}

	if fromAccount.Available < amount {
		tx.Rollback()
		return fmt.Errorf("insufficient tokens")
	}

	var toAccount models.TokenAccount
	if err := tx.Where("user_id = ?", toUserID).First(&toAccount).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			toAccount = models.TokenAccount{
				ID:        uuid.New(),
				UserID:    toUserID,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := tx.Create(&toAccount).Error; err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to create recipient account: %w", err)
			}
		} else {
			tx.Rollback()
			return fmt.Errorf("failed to find recipient account: %w", err)
		}
	}

	fromAccount.Balance -= amount
	fromAccount.Available -= amount
	fromAccount.UpdatedAt = time.Now()
	if err := tx.Save(&fromAccount).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save sender account: %w", err)
	}

	toAccount.Balance += amount
	toAccount.Available += amount
	toAccount.UpdatedAt = time.Now()
	if err := tx.Save(&toAccount).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save recipient account: %w", err)
	}

	now := time.Now()
	outTx := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      fromUserID,
		Type:        "tip_out",
		Amount:      amount,
		Status:      "completed",
		Reference:   toUserID.String(),
		Description: message,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if err := tx.Create(outTx).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create tip_out transaction: %w", err)
	}

	inTx := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      toUserID,
		Type:        "tip_in",
		Amount:      amount,
		Status:      "completed",
		Reference:   fromUserID.String(),
		Description: message,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if err := tx.Create(inTx).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create tip_in transaction: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, toUserID, fromUserID, "tokens", inTx.ID.String(), "", fmt.Sprintf("You received a tip of %.0f tokens", amount)); err != nil {
			s.logger.Warn("Failed to create tip notification", zap.Error(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, "tokens.transferred", map[string]interface{}{
			"from_user_id": fromUserID,
			"to_user_id":   toUserID,
			"amount":       amount,
		})
	}

	return nil
}

// Grant credits tokens to a user on behalf of an admin
func (s *Service) Grant(ctx context.Context, adminID, userID uuid.UUID, amount float64, description string) (*models.TokenTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var account models.TokenAccount
	if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	account.Balance += amount
	account.Available += amount
	account.UpdatedAt = time.Now()
	if err := tx.Save(&account).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	now := time.Now()
	transaction := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        "admin_grant",
		Amount:      amount,
		Status:      "completed",
		Reference:   adminID.String(),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if err := tx.Create(transaction).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, userID, adminID, "tokens", transaction.ID.String(), "", fmt.Sprintf("You were granted %.0f tokens", amount)); err != nil {
			s.logger.Warn("Failed to create grant notification", zap.Error(err))
		}
	}

	return transaction, nil
}

// CreatePending records a pending token transaction without moving balance
func (s *Service) CreatePending(ctx context.Context, userID uuid.UUID, txType string, amount float64, reference, description string) (*models.TokenTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount")
	}
	if txType != "earn" && txType != "spend" {
		return nil, fmt.Errorf("invalid transaction type")
	}

	// Account must exist before a pending transaction can target it
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.TokenAccount{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("account not found")
	}

	now := time.Now()
	transaction := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Status:      "pending",
		Reference:   reference,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return transaction, nil
}

// CompleteTransaction applies a pending transaction to the account balance
func (s *Service) CompleteTransaction(ctx context.Context, transactionID uuid.UUID) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var transaction models.TokenTransaction
	if err := tx.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("transaction not found")
		}
		return fmt.Errorf("failed to find transaction: %w", err)
	}

	if transaction.Status != "pending" {
		tx.Rollback()
		return fmt.Errorf("transaction already %s", transaction.Status)
	}

	var account models.TokenAccount
	if err := tx.Where("user_id = ?", transaction.UserID).First(&account).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("account not found")
		}
		return fmt.Errorf("failed to find account: %w", err)
	}

	switch transaction.Type {
	case "earn":
		account.Balance += transaction.Amount
		account.Available += transaction.Amount
	case "spend":
		if account.Available < transaction.Amount {
			tx.Rollback()
			return fmt.Errorf("insufficient tokens")
		}
		account.Balance -= transaction.Amount
		account.Available -= transaction.Amount
	}
	account.UpdatedAt = time.Now()

	if err := tx.Save(&account).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save account: %w", err)
	}

	now := time.Now()
	transaction.Status = "completed"
	transaction.UpdatedAt = now
	transaction.CompletedAt = &now
	if err := tx.Save(&transaction).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FailTransaction marks a pending transaction as failed
func (s *Service) FailTransaction(ctx context.Context, transactionID uuid.UUID) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var transaction models.TokenTransaction
	if err := tx.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("transaction not found")
		}
		return fmt.Errorf("failed to find transaction: %w", err)
	}

	if transaction.Status != "pending" {
		tx.Rollback()
		return fmt.Errorf("transaction already %s", transaction.Status)
	}

	transaction.Status = "failed"
	transaction.UpdatedAt = time.Now()
	if err := tx.Save(&transaction).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LockTokens moves tokens from available to locked
func (s *Service) LockTokens(ctx context.Context, userID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("invalid amount")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var account models.TokenAccount
	if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("account not found")
		}
		return fmt.Errorf("failed to find account: %w", err)
	}

	if account.Available < amount {
		tx.Rollback()
		return fmt.Errorf("insufficient tokens")
	}

	account.Available -= amount
	account.Locked += amount
	account.UpdatedAt = time.Now()
	if err := tx.Save(&account).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save account: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UnlockTokens moves tokens from locked back to available
func (s *Service) UnlockTokens(ctx context.Context, userID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("invalid amount")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var account models.TokenAccount
	if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("account not found")
		}
		return fmt.Errorf("failed to find account: %w", err)
	}

	if account.Locked < amount {
		tx.Rollback()
		return fmt.Errorf("insufficient locked tokens")
	}

	account.Available += amount
	account.Locked -= amount
	account.UpdatedAt = time.Now()
	if err := tx.Save(&account).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save account: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
