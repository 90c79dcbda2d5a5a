package identities_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/internal/identities"
	"github.com/Pragadees15/sport-backend/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.TokenAccount{}, &models.TokenTransaction{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, seeder identities.AccountSeeder) identities.IdentityService {
	svc, err := identities.NewService(zap.NewNop(), db, nil, seeder, identities.Config{
		JWTSecret:     "test-secret",
		RefreshSecret: "test-refresh-secret",
	})
	assert.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	req := &models.RegisterRequest{
		Email:    "test@example.com",
		Username: "testuser",
		Password: "password123",
	}

	user, err := svc.Register(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, req.Email, user.Email)
	assert.Equal(t, req.Username, user.Username)
	assert.Equal(t, req.Username, user.DisplayName)

	loginReq := &models.LoginRequest{
		Login:    req.Email,
		Password: req.Password,
	}
	resp, err := svc.Login(ctx, loginReq)
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.False(t, resp.Requires2FA)

	userID, err := svc.ValidateToken(ctx, resp.Token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	isAdmin, err := svc.IsAdmin(ctx, userID)
	assert.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestLoginByUsername(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	_, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "name@example.com",
		Username: "nameuser",
		Password: "password123",
	})
	assert.NoError(t, err)

	resp, err := svc.Login(ctx, &models.LoginRequest{Login: "nameuser", Password: "password123"})
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestRegisterDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	req := &models.RegisterRequest{
		Email:    "dup@example.com",
		Username: "dupuser",
		Password: "password123",
	}
	_, err := svc.Register(ctx, req)
	assert.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "email already exists")

	req.Email = "other@example.com"
	_, err = svc.Register(ctx, req)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "username already exists")
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	_, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "wrong@example.com",
		Username: "wronguser",
		Password: "password123",
	})
	assert.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Login: "wrong@example.com", Password: "nope12345"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginBanned(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	user, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "banned@example.com",
		Username: "banneduser",
		Password: "password123",
	})
	assert.NoError(t, err)

	assert.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("banned", true).Error)

	_, err = svc.Login(ctx, &models.LoginRequest{Login: "banned@example.com", Password: "password123"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "banned")
}

func TestRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	_, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "refresh@example.com",
		Username: "refreshuser",
		Password: "password123",
	})
	assert.NoError(t, err)

	resp, err := svc.Login(ctx, &models.LoginRequest{Login: "refreshuser", Password: "password123"})
	assert.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, resp.RefreshToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)

	// Access tokens are not refresh tokens
	_, err = svc.RefreshToken(ctx, resp.Token)
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	_, err := svc.ValidateToken(context.Background(), "not-a-token")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestTwoFALifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	user, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "totp@example.com",
		Username: "totpuser",
		Password: "password123",
	})
	assert.NoError(t, err)

	setup, err := svc.Enable2FA(ctx, user.ID)
	assert.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.NotEmpty(t, setup.QRCode)

	// Enrollment is off until the first code is verified
	resp, err := svc.Login(ctx, &models.LoginRequest{Login: "totpuser", Password: "password123"})
	assert.NoError(t, err)
	assert.False(t, resp.Requires2FA)

	assert.Error(t, svc.Verify2FASetup(ctx, user.ID, "000000"))

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, svc.Verify2FASetup(ctx, user.ID, code))

	// Now login withholds tokens pending the second step
	resp, err = svc.Login(ctx, &models.LoginRequest{Login: "totpuser", Password: "password123"})
	assert.NoError(t, err)
	assert.True(t, resp.Requires2FA)
	assert.Empty(t, resp.Token)
	assert.Equal(t, user.ID, resp.UserID)

	_, err = svc.Verify2FA(ctx, user.ID, "000000")
	assert.Error(t, err)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	assert.NoError(t, err)
	verified, err := svc.Verify2FA(ctx, user.ID, code)
	assert.NoError(t, err)
	assert.NotEmpty(t, verified.Token)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, svc.Disable2FA(ctx, user.ID, code))

	resp, err = svc.Login(ctx, &models.LoginRequest{Login: "totpuser", Password: "password123"})
	assert.NoError(t, err)
	assert.False(t, resp.Requires2FA)
	assert.NotEmpty(t, resp.Token)
}

func TestVerify2FABannedUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	ctx := context.Background()
	user, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "banned2fa@example.com",
		Username: "banned2fauser",
		Password: "password123",
	})
	assert.NoError(t, err)

	setup, err := svc.Enable2FA(ctx, user.ID)
	assert.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, svc.Verify2FASetup(ctx, user.ID, code))

	// Ban after enrollment; the second login step must not issue tokens
	assert.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("banned", true).Error)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	assert.NoError(t, err)
	_, err = svc.Verify2FA(ctx, user.ID, code)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "banned")
}

type failingSeeder struct{}

func (failingSeeder) SeedAccount(ctx context.Context, userID uuid.UUID) error {
	return fmt.Errorf("seed failed")
}

func TestRegisterRollsBackOnSeedFailure(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, failingSeeder{})

	ctx := context.Background()
	_, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "rollback@example.com",
		Username: "rollbackuser",
		Password: "password123",
	})
	assert.Error(t, err)

	// The user row must be gone so a retry starts clean
	var count int64
	assert.NoError(t, db.Model(&models.User{}).Where("email = ?", "rollback@example.com").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
