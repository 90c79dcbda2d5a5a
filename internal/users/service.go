package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

// Notifier delivers follow notifications to recipients
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID uuid.UUID, notifType, targetID, targetType, message string) error
}

// UserService defines profile and social graph operations
type UserService interface {
	Start() error
	Stop() error
	GetProfile(ctx context.Context, userID, viewerID uuid.UUID) (*models.PublicProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error)
	SearchUsers(ctx context.Context, viewerID uuid.UUID, query string, limit, offset int) ([]*models.PublicProfile, error)
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	ListFollowers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PublicProfile, error)
	ListFollowing(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PublicProfile, error)
	Block(ctx context.Context, blockerID, blockedID uuid.UUID) error
	Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	IsBlockedEitherWay(ctx context.Context, a, b uuid.UUID) (bool, error)
	BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Report(ctx context.Context, reporterID, reportedID uuid.UUID, reason string) (*models.UserReport, error)
	ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int64, error)
	SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error
	ListReports(ctx context.Context, status string, limit, offset int) ([]*models.UserReport, int64, error)
	ResolveReport(ctx context.Context, adminID, reportID uuid.UUID, status string) error
}

// Service implements UserService
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	notifier Notifier
}

// NewService creates a new UserService
func NewService(logger *zap.Logger, db *gorm.DB, notifier Notifier) (UserService, error) {
	svc := &Service{
		logger:   logger,
		db:       db,
		notifier: notifier,
	}

	return svc, nil
}

// Start starts the users service
func (s *Service) Start() error {
	s.logger.Info("Users service started")
	return nil
}

// Stop stops the users service
func (s *Service) Stop() error {
	s.logger.Info("Users service stopped")
	return nil
}

// GetProfile returns the public profile of a user.
// Profiles are invisible across a block in either direction.
func (s *Service) GetProfile(ctx context.Context, userID, viewerID uuid.UUID) (*models.PublicProfile, error) {
	if viewerID != uuid.Nil && viewerID != userID {
		blocked, err := s.IsBlockedEitherWay(ctx, userID, viewerID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, fmt.Errorf("user not found")
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.toPublicProfile(ctx, &user)
}

// UpdateProfile applies partial profile updates for a user
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.FavoriteTeams != nil {
		user.FavoriteTeams = *req.FavoriteTeams
	}
	user.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	return &user, nil
}

// SearchUsers finds users by username or display name substring
func (s *Service) SearchUsers(ctx context.Context, viewerID uuid.UUID, query string, limit, offset int) ([]*models.PublicProfile, error) {
	if query == "" {
		return nil, fmt.Errorf("invalid query")
	}

	blockedIDs, err := s.BlockedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	pattern := "%" + query + "%"
	q := s.db.WithContext(ctx).Where("(username LIKE ? OR display_name LIKE ?) AND banned = ?", pattern, pattern, false)
	if len(blockedIDs) > 0 {
		q = q.Where("id NOT IN ?", blockedIDs)
	}

	var users []*models.User
	if err := q.Order("username ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	profiles := make([]*models.PublicProfile, 0, len(users))
	for _, u := range users {
		p, err := s.toPublicProfile(ctx, u)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Follow creates a follower edge and notifies the followee
func (s *Service) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return fmt.Errorf("cannot follow yourself")
	}

	blocked, err := s.IsBlockedEitherWay(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("forbidden: user blocked")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", followeeID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("user not found")
	}

	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check follow: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("already following")
	}

	follow := &models.Follow{
		ID:         uuid.New(),
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(follow).Error; err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, followeeID, followerID, "follow", followerID.String(), "user", "started following you"); err != nil {
			s.logger.Warn("Failed to create follow notification", zap.Error(err))
		}
	}

	return nil
}

// Unfollow removes a follower edge
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete follow: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not following")
	}
	return nil
}

// ListFollowers returns users following the given user
func (s *Service) ListFollowers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PublicProfile, error) {
	var users []*models.User
	if err := s.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at DESC").Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find followers: %w", err)
	}
	return s.toPublicProfiles(ctx, users)
}

// ListFollowing returns users the given user follows
func (s *Service) ListFollowing(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PublicProfile, error) {
	var users []*models.User
	if err := s.db.WithContext(ctx).
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find following: %w", err)
	}
	return s.toPublicProfiles(ctx, users)
}

// Block blocks another user and severs any follow edges between the pair
func (s *Service) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return fmt.Errorf("cannot block yourself")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", blockedID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("user not found")
	}

	if err := s.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check block: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("already blocked")
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

	block := &models.UserBlock{
		ID:        uuid.New(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(block).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create block: %w", err)
	}

	// Blocking dissolves the social edge in both directions
	if err := tx.Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)",
		blockerID, blockedID, blockedID, blockerID).Delete(&models.Follow{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove follows: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Unblock removes a block
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).Delete(&models.UserBlock{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete block: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("block not found")
	}
	return nil
}

// IsBlockedEitherWay reports whether either user blocks the other
func (s *Service) IsBlockedEitherWay(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return count > 0, nil
}

// BlockedUserIDs returns the IDs involved in a block with the user, both directions
func (s *Service) BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, nil
	}

	var blocks []models.UserBlock
	if err := s.db.WithContext(ctx).Where("blocker_id = ? OR blocked_id = ?", userID, userID).Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("failed to find blocks: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == userID {
			ids = append(ids, b.BlockedID)
		} else {
			ids = append(ids, b.BlockerID)
		}
	}
	return ids, nil
}

// Report files a report against a user for admin review
func (s *Service) Report(ctx context.Context, reporterID, reportedID uuid.UUID, reason string) (*models.UserReport, error) {
	if reporterID == reportedID {
		return nil, fmt.Errorf("cannot report yourself")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", reportedID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("user not found")
	}

	report := &models.UserReport{
		ID:         uuid.New(),
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     reason,
		Status:     "open",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	return report, nil
}

// ListUsers returns users for the admin panel, optionally filtered by search
func (s *Service) ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*models.User
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find users: %w", err)
	}

	return users, count, nil
}

// SetBanned bans or unbans a user
func (s *Service) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"banned": banned, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// ListReports returns user reports, optionally filtered by status
func (s *Service) ListReports(ctx context.Context, status string, limit, offset int) ([]*models.UserReport, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.UserReport{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	var reports []*models.UserReport
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find reports: %w", err)
	}

	return reports, count, nil
}

// ResolveReport closes a report with the given status
func (s *Service) ResolveReport(ctx context.Context, adminID, reportID uuid.UUID, status string) error {
	if status != "resolved" && status != "dismissed" {
		return fmt.Errorf("invalid status")
	}

	var report models.UserReport
	if err := s.db.WithContext(ctx).Where("id = ?", reportID).First(&report).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("report not found")
		}
		return fmt.Errorf("failed to find report: %w", err)
	}

	if report.Status != "open" {
		return fmt.Errorf("report already %s", report.Status)
	}

	report.Status = status
	report.ResolvedBy = &adminID
	report.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&report).Error; err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// toPublicProfile builds the public view with follower/post counts
func (s *Service) toPublicProfile(ctx context.Context, user *models.User) (*models.PublicProfile, error) {
	var followers, following, posts int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("followee_id = ?", user.ID).Count(&followers).Error; err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&following).Error; err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", user.ID).Count(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	return &models.PublicProfile{
		ID:             user.ID,
		Username:       user.Username,
		DisplayName:    user.DisplayName,
		Bio:            user.Bio,
		AvatarURL:      user.AvatarURL,
		FavoriteTeams:  user.FavoriteTeams,
		FollowerCount:  followers,
		FollowingCount: following,
		PostCount:      posts,
		CreatedAt:      user.CreatedAt,
	}, nil
}

func (s *Service) toPublicProfiles(ctx context.Context, users []*models.User) ([]*models.PublicProfile, error) {
	profiles := make([]*models.PublicProfile, 0, len(users))
	for _, u := range users {
		p, err := s.toPublicProfile(ctx, u)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
