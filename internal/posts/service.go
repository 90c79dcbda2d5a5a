package posts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

// Notifier delivers like notifications to post authors
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID uuid.UUID, notifType, targetID, targetType, message string) error
}

// BlockChecker exposes the block graph so feeds and reads can filter across blocks
type BlockChecker interface {
	IsBlockedEitherWay(ctx context.Context, a, b uuid.UUID) (bool, error)
	BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Publisher emits domain events for downstream consumers
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// PostService defines post operations
type PostService interface {
	Start() error
	Stop() error
	CreatePost(ctx context.Context, authorID uuid.UUID, req *models.CreatePostRequest) (*models.Post, error)
	GetPost(ctx context.Context, postID, viewerID uuid.UUID) (*models.Post, error)
	UpdatePost(ctx context.Context, postID, userID uuid.UUID, req *models.UpdatePostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, postID, userID uuid.UUID, isAdmin bool) error
	ListUserPosts(ctx context.Context, authorID, viewerID uuid.UUID, limit, offset int) ([]*models.Post, int64, error)
	Feed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, error)
	LikePost(ctx context.Context, postID, userID uuid.UUID) error
	UnlikePost(ctx context.Context, postID, userID uuid.UUID) error
	SavePost(ctx context.Context, postID, userID uuid.UUID) error
	UnsavePost(ctx context.Context, postID, userID uuid.UUID) error
	ListSavedPosts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, error)
}

// Service implements PostService
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	notifier  Notifier
	blocks    BlockChecker
	publisher Publisher
	sanitizer *bluemonday.Policy
}

// NewService creates a new PostService
func NewService(logger *zap.Logger, db *gorm.DB, notifier Notifier, blocks BlockChecker, publisher Publisher) (PostService, error) {
	svc := &Service{
		logger:    logger,
		db:        db,
		notifier:  notifier,
		blocks:    blocks,
		publisher: publisher,
		sanitizer: bluemonday.UGCPolicy(),
	}

	return svc, nil
}

// Start starts the posts service
func (s *Service) Start() error {
	s.logger.Info("Posts service started")
	return nil
}

// Stop stops the posts service
func (s *Service) Stop() error {
	s.logger.Info("Posts service stopped")
	return nil
}

// CreatePost creates a new post with sanitized content
func (s *Service) CreatePost(ctx context.Context, authorID uuid.UUID, req *models.CreatePostRequest) (*models.Post, error) {
	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" && req.MediaURL == "" {
		return nil, fmt.Errorf("invalid post: content or media required")
	}

	post := &models.Post{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Content:   content,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, "post.created", post)
	}

	return post, nil
}

// GetPost returns a single post, hidden across a block in either direction
func (s *Service) GetPost(ctx context.Context, postID, viewerID uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	if viewerID != uuid.Nil && viewerID != post.AuthorID && s.blocks != nil {
		blocked, err := s.blocks.IsBlockedEitherWay(ctx, post.AuthorID, viewerID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, fmt.Errorf("post not found")
		}
	}

	return &post, nil
}

// UpdatePost edits a post's content. Only the author may edit.
func (s *Service) UpdatePost(ctx context.Context, postID, userID uuid.UUID, req *models.UpdatePostRequest) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != userID {
		return nil, fmt.Errorf("forbidden: not the author")
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" && post.MediaURL == "" {
		return nil, fmt.Errorf("invalid post: content or media required")
	}
	post.Content = content
	post.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&post).Error; err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	return &post, nil
}

// DeletePost removes a post and its likes, saves and comments.
// Admins may delete any post; users only their own.
func (s *Service) DeletePost(ctx context.Context, postID, userID uuid.UUID, isAdmin bool) error {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("post not found")
		}
		return fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != userID && !isAdmin {
		return fmt.Errorf("forbidden: not the author")
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

	if err := tx.Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete post likes: %w", err)
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.SavedPost{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete saved posts: %w", err)
	}
	if err := tx.Where("comment_id IN (?)", tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)).Delete(&models.CommentLike{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete comment likes: %w", err)
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	if err := tx.Delete(&models.Post{}, "id = ?", postID).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListUserPosts returns a user's posts, newest first
func (s *Service) ListUserPosts(ctx context.Context, authorID, viewerID uuid.UUID, limit, offset int) ([]*models.Post, int64, error) {
	if viewerID != uuid.Nil && viewerID != authorID && s.blocks != nil {
		blocked, err := s.blocks.IsBlockedEitherWay(ctx, authorID, viewerID)
		if err != nil {
			return nil, 0, err
		}
		if blocked {
			return nil, 0, fmt.Errorf("user not found")
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	var posts []*models.Post
	if err := s.db.WithContext(ctx).Where("author_id = ?", authorID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find posts: %w", err)
	}

	return posts, count, nil
}

// Feed returns posts from followed users plus the user's own, newest first
func (s *Service) Feed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, error) {
	var followeeIDs []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).Pluck("followee_id", &followeeIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to find followees: %w", err)
	}
	authorIDs := append(followeeIDs, userID)

	q := s.db.WithContext(ctx).Where("author_id IN ?", authorIDs)

	if s.blocks != nil {
		blockedIDs, err := s.blocks.BlockedUserIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(blockedIDs) > 0 {
			q = q.Where("author_id NOT IN ?", blockedIDs)
		}
	}

	var posts []*models.Post
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	return posts, nil
}

// LikePost records a like and bumps the post counter
func (s *Service) LikePost(ctx context.Context, postID, userID uuid.UUID) error {
	post, err := s.GetPost(ctx, postID, userID)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check like: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("already liked")
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

	like := &models.PostLike{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(like).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create like: %w", err)
	}
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).
		Update("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update like count: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, post.AuthorID, userID, "like", postID.String(), "post", "liked your post"); err != nil {
			s.logger.Warn("Failed to create like notification", zap.Error(err))
		}
	}

	return nil
}

// UnlikePost removes a like and decrements the post counter
func (s *Service) UnlikePost(ctx context.Context, postID, userID uuid.UUID) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete like: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("like not found")
	}
	if err := tx.Model(&models.Post{}).Where("id = ? AND like_count > 0", postID).
		Update("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update like count: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SavePost bookmarks a post for the user
func (s *Service) SavePost(ctx context.Context, postID, userID uuid.UUID) error {
	if _, err := s.GetPost(ctx, postID, userID); err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.SavedPost{}).
		Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check saved post: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("already saved")
	}

	saved := &models.SavedPost{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(saved).Error; err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}

	return nil
}

// UnsavePost removes a bookmark
func (s *Service) UnsavePost(ctx context.Context, postID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.SavedPost{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete saved post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("saved post not found")
	}
	return nil
}

// ListSavedPosts returns the user's bookmarked posts, most recently saved first
func (s *Service) ListSavedPosts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := s.db.WithContext(ctx).
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID).
		Order("saved_posts.created_at DESC").Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to find saved posts: %w", err)
	}
	return posts, nil
}
