package identities

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/pkg/models"
	"github.com/Pragadees15/sport-backend/pkg/validation"
)

// AccountSeeder provisions dependent per-user state during registration.
// Implemented by the tokens service.
type AccountSeeder interface {
	SeedAccount(ctx context.Context, userID uuid.UUID) error
}

// TOTPSetup carries the secret material returned when enabling 2FA
type TOTPSetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

// IdentityService defines user identity operations.
type IdentityService interface {
	Start() error
	Stop() error
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	Enable2FA(ctx context.Context, userID uuid.UUID) (*TOTPSetup, error)
	Verify2FASetup(ctx context.Context, userID uuid.UUID, token string) error
	Verify2FA(ctx context.Context, userID uuid.UUID, token string) (*models.LoginResponse, error)
	Disable2FA(ctx context.Context, userID uuid.UUID, token string) error
}

// Config holds token signing parameters for the identity service
type Config struct {
	JWTSecret       string
	ExpirationHours int
	RefreshSecret   string
	RefreshExpHours int
	Issuer          string
}

// Service implements IdentityService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	redis  *redis.Client
	seeder AccountSeeder
	cfg    Config
}

// NewService creates a new IdentityService
func NewService(logger *zap.Logger, db *gorm.DB, redisClient *redis.Client, seeder AccountSeeder, cfg Config) (IdentityService, error) {
	if cfg.ExpirationHours == 0 {
		cfg.ExpirationHours = 24
	}
	if cfg.RefreshExpHours == 0 {
		cfg.RefreshExpHours = 168
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "sportsfeed"
	}

	svc := &Service{
		logger: logger,
		db:     db,
		redis:  redisClient,
		seeder: seeder,
		cfg:    cfg,
	}

	return svc, nil
}

// Start starts the identities service
func (s *Service) Start() error {
	s.logger.Info("Identities service started")
	return nil
}

// Stop stops the identities service
func (s *Service) Stop() error {
	s.logger.Info("Identities service stopped")
	return nil
}

// Register registers a new user and seeds their token account.
// If seeding fails the created user row is rolled back.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	// Check if email already exists
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("email already exists")
	}

	// Check if username already exists
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("username already exists")
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	// Create user
	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
		Role:         "user",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// Save user to database
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Seed the token account. On failure, compensate by removing the user
	// so a retry of the registration starts clean.
	if s.seeder != nil {
		if seedErr := s.seeder.SeedAccount(ctx, user.ID); seedErr != nil {
			if delErr := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", user.ID).Error; delErr != nil {
				s.logger.Error("Failed to roll back user after seed failure",
					zap.String("user_id", user.ID.String()), zap.Error(delErr))
			}
			return nil, fmt.Errorf("failed to seed token account: %w", seedErr)
		}
	}

	return user, nil
}

// Login logs in a user by email or username
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	// Find user by email or username
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ? OR username = ?", req.Login, req.Login).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invalid credentials")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if user.Banned {
		return nil, fmt.Errorf("forbidden: account banned")
	}

	// 2FA-enabled users must complete the second step before tokens are issued
	if user.MFAEnabled {
		return &models.LoginResponse{
			Requires2FA: true,
			UserID:      user.ID,
		}, nil
	}

	return s.issueTokens(ctx, &user)
}

// Verify2FA completes a 2FA login and issues tokens
func (s *Service) Verify2FA(ctx context.Context, userID uuid.UUID, token string) (*models.LoginResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.Banned {
		return nil, fmt.Errorf("forbidden: account banned")
	}

	if !user.MFAEnabled {
		return nil, fmt.Errorf("2FA not enabled")
	}

	if !totp.Validate(token, user.TOTPSecret) {
		return nil, fmt.Errorf("invalid 2FA token")
	}

	return s.issueTokens(ctx, &user)
}

// Enable2FA generates a TOTP secret for a user.
// The secret is stored but 2FA stays off until Verify2FASetup succeeds.
func (s *Service) Enable2FA(ctx context.Context, userID uuid.UUID) (*TOTPSetup, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.MFAEnabled {
		return nil, fmt.Errorf("2FA already enabled")
	}

	// Generate TOTP key
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.Issuer,
		AccountName: user.Email,
		SecretSize:  32,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	user.TOTPSecret = key.Secret()
	user.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	return &TOTPSetup{Secret: key.Secret(), QRCode: key.URL()}, nil
}

// Verify2FASetup verifies the first TOTP token and switches 2FA on
func (s *Service) Verify2FASetup(ctx context.Context, userID uuid.UUID, token string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("user not found")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.MFAEnabled {
		return fmt.Errorf("2FA already enabled")
	}
	if user.TOTPSecret == "" {
		return fmt.Errorf("2FA setup not started")
	}

	if !totp.Validate(token, user.TOTPSecret) {
		return fmt.Errorf("invalid 2FA token")
	}

	user.MFAEnabled = true
	user.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// Disable2FA disables 2FA for a user after verifying a current token
func (s *Service) Disable2FA(ctx context.Context, userID uuid.UUID, token string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("user not found")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if !user.MFAEnabled {
		return fmt.Errorf("2FA not enabled")
	}

	if !totp.Validate(token, user.TOTPSecret) {
		return fmt.Errorf("invalid 2FA token")
	}

	user.MFAEnabled = false
	user.TOTPSecret = ""
	user.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// RefreshToken exchanges a refresh token for a new token pair
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	claims, err := s.parseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if revoked, err := s.isRevoked(ctx, claims.ID); err == nil && revoked {
		return nil, fmt.Errorf("invalid token: revoked")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid token: bad subject")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.Banned {
		return nil, fmt.Errorf("forbidden: account banned")
	}

	// Rotate: revoke the used refresh token
	if err := s.revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Warn("Failed to revoke used refresh token", zap.Error(err))
	}

	return s.issueTokens(ctx, &user)
}

// Logout revokes the presented access token until it expires
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token, s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return s.revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// ValidateToken validates a JWT access token and returns the user ID
func (s *Service) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := s.parseToken(token, s.cfg.JWTSecret)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}

	if revoked, err := s.isRevoked(ctx, claims.ID); err == nil && revoked {
		return uuid.Nil, fmt.Errorf("invalid token: revoked")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: bad subject")
	}

	return userID, nil
}

// GetUser gets a user by ID
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// IsAdmin checks if a user has the admin role
func (s *Service) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("role").Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, fmt.Errorf("user not found")
		}
		return false, fmt.Errorf("failed to find user: %w", err)
	}
	return user.Role == "admin", nil
}

// issueTokens stamps last login and returns a signed token pair
func (s *Service) issueTokens(ctx context.Context, user *models.User) (*models.LoginResponse, error) {
	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("last_login", now).Error; err != nil {
		s.logger.Warn("Failed to update last login", zap.Error(err))
	}

	access, err := s.signToken(user.ID, s.cfg.JWTSecret, time.Duration(s.cfg.ExpirationHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, err := s.signToken(user.ID, s.cfg.RefreshSecret, time.Duration(s.cfg.RefreshExpHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.LoginResponse{
		User:         user,
		Token:        access,
		RefreshToken: refresh,
		Requires2FA:  false,
	}, nil
}

// signToken creates a signed JWT with a unique ID for revocation
func (s *Service) signToken(userID uuid.UUID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.cfg.Issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parseToken parses and validates a JWT signed with the given secret
func (s *Service) parseToken(tokenString, secret string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token not valid")
	}
	return claims, nil
}

// revoke denylists a token ID in Redis until its natural expiry
func (s *Service) revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.redis == nil || tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, "revoked:"+tokenID, 1, ttl).Err()
}

// isRevoked reports whether a token ID is on the denylist
func (s *Service) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.redis == nil || tokenID == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, "revoked:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
