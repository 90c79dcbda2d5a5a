package tokens_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/internal/tokens"
	"github.com/Pragadees15/sport-backend/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.TokenAccount{}, &models.TokenTransaction{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) tokens.TokenService {
	svc, err := tokens.NewService(zap.NewNop(), db, nil, nil)
	assert.NoError(t, err)
	return svc
}

func TestSeedAccount(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	assert.NoError(t, svc.SeedAccount(ctx, userID))

	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(tokens.SignupBonus), account.Balance)
	assert.Equal(t, float64(tokens.SignupBonus), account.Available)
	assert.Equal(t, float64(0), account.Locked)

	// Signup bonus is recorded as a completed earn
	txs, total, err := svc.GetTransactions(ctx, userID, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "earn", txs[0].Type)
	assert.Equal(t, "completed", txs[0].Status)

	// Seeding twice is rejected
	assert.Error(t, svc.SeedAccount(ctx, userID))
}

func TestEarnAndSpend(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	_, err := svc.Earn(ctx, userID, 50, "daily_login", "Daily login reward")
	assert.NoError(t, err)

	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(150), account.Balance)

	_, err = svc.Spend(ctx, userID, 30, "badge", "Profile badge")
	assert.NoError(t, err)

	account, err = svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(120), account.Balance)
	assert.Equal(t, float64(120), account.Available)
}

func TestSpendInsufficient(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	_, err := svc.Spend(ctx, userID, 1000, "x", "too much")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient")

	// Balance untouched after the failed spend
	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(tokens.SignupBonus), account.Balance)
}

func TestInvalidAmounts(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	_, err := svc.Earn(ctx, userID, 0, "", "")
	assert.Error(t, err)
	_, err = svc.Spend(ctx, userID, -5, "", "")
	assert.Error(t, err)
}

func TestTip(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	from := uuid.New()
	to := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, from))

	// Recipient account is created on the fly
	assert.NoError(t, svc.Tip(ctx, from, to, 25, "nice post"))

	fromAccount, err := svc.GetAccount(ctx, from)
	assert.NoError(t, err)
	assert.Equal(t, float64(75), fromAccount.Balance)

	toAccount, err := svc.GetAccount(ctx, to)
	assert.NoError(t, err)
	assert.Equal(t, float64(25), toAccount.Balance)

	// Both sides of the transfer are recorded
	outTxs, _, err := svc.GetTransactions(ctx, from, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, "tip_out", outTxs[0].Type)

	inTxs, _, err := svc.GetTransactions(ctx, to, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, "tip_in", inTxs[0].Type)
}

func TestTipRejections(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	from := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, from))

	assert.Error(t, svc.Tip(ctx, from, from, 10, "self"))
	assert.Error(t, svc.Tip(ctx, from, uuid.New(), 0, "zero"))

	err := svc.Tip(ctx, from, uuid.New(), 1000, "too much")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient")
}

func TestGrant(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	admin := uuid.New()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	tx, err := svc.Grant(ctx, admin, userID, 500, "contest winner")
	assert.NoError(t, err)
	assert.Equal(t, "admin_grant", tx.Type)
	assert.Equal(t, admin.String(), tx.Reference)

	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(600), account.Balance)
}

func TestPendingLifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	pending, err := svc.CreatePending(ctx, userID, "spend", 40, "order", "Pending purchase")
	assert.NoError(t, err)
	assert.Equal(t, "pending", pending.Status)

	// Pending transactions do not move balance
	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(tokens.SignupBonus), account.Balance)

	assert.NoError(t, svc.CompleteTransaction(ctx, pending.ID))

	account, err = svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(60), account.Balance)

	// Completing twice is rejected
	assert.Error(t, svc.CompleteTransaction(ctx, pending.ID))
}

func TestFailTransaction(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	pending, err := svc.CreatePending(ctx, userID, "earn", 40, "promo", "Pending reward")
	assert.NoError(t, err)

	assert.NoError(t, svc.FailTransaction(ctx, pending.ID))

	// Failed transactions never touch balance
	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(tokens.SignupBonus), account.Balance)

	assert.Error(t, svc.CompleteTransaction(ctx, pending.ID))
}

func TestLockUnlock(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	assert.NoError(t, svc.LockTokens(ctx, userID, 60))

	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(100), account.Balance)
	assert.Equal(t, float64(40), account.Available)
	assert.Equal(t, float64(60), account.Locked)

	// Locked tokens are not spendable
	_, err = svc.Spend(ctx, userID, 50, "x", "over available")
	assert.Error(t, err)

	assert.NoError(t, svc.UnlockTokens(ctx, userID, 60))
	account, err = svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(100), account.Available)
	assert.Equal(t, float64(0), account.Locked)

	assert.Error(t, svc.UnlockTokens(ctx, userID, 1))
}

func TestLockUnlockInvalidAmounts(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	assert.NoError(t, svc.SeedAccount(ctx, userID))

	assert.Error(t, svc.LockTokens(ctx, userID, 0))
	assert.Error(t, svc.LockTokens(ctx, userID, -50))
	assert.Error(t, svc.UnlockTokens(ctx, userID, 0))
	assert.Error(t, svc.UnlockTokens(ctx, userID, -50))

	// A rejected negative lock must not move anything
	account, err := svc.GetAccount(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, float64(100), account.Available)
	assert.Equal(t, float64(0), account.Locked)
}
