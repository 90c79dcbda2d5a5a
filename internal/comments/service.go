package comments

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

// Notifier delivers comment notifications to post authors
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID uuid.UUID, notifType, targetID, targetType, message string) error
}

// CommentService defines comment operations
type CommentService interface {
	Start() error
	Stop() error
	CreateComment(ctx context.Context, postID, authorID uuid.UUID, req *models.CreateCommentRequest) (*models.Comment, error)
	ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*models.Comment, int64, error)
	DeleteComment(ctx context.Context, commentID, userID uuid.UUID, isAdmin bool) error
	LikeComment(ctx context.Context, commentID, userID uuid.UUID) error
	UnlikeComment(ctx context.Context, commentID, userID uuid.UUID) error
}

// Service implements CommentService
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	notifier  Notifier
	sanitizer *bluemonday.Policy
}

// NewService creates a new CommentService
func NewService(logger *zap.Logger, db *gorm.DB, notifier Notifier) (CommentService, error) {
	svc := &Service{
		logger:    logger,
		db:        db,
		notifier:  notifier,
		sanitizer: bluemonday.UGCPolicy(),
	}

	return svc, nil
}

// Start starts the comments service
func (s *Service) Start() error {
	s.logger.Info("Comments service started")
	return nil
}

// Stop stops the comments service
func (s *Service) Stop() error {
	s.logger.Info("Comments service stopped")
	return nil
}

// CreateComment adds a comment to a post and bumps the post counter
func (s *Service) CreateComment(ctx context.Context, postID, authorID uuid.UUID, req *models.CreateCommentRequest) (*models.Comment, error) {
	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" {
		return nil, fmt.Errorf("invalid comment: content required")
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
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

	comment := &models.Comment{
		ID:        uuid.New(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := tx.Create(comment).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).
		Update("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update comment count: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, post.AuthorID, authorID, "comment", postID.String(), "post", "commented on your post"); err != nil {
			s.logger.Warn("Failed to create comment notification", zap.Error(err))
		}
	}

	return comment, nil
}

// ListComments returns a post's comments, oldest first, with total count
func (s *Service) ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*models.Comment, int64, error) {
	var postCount int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&postCount).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to check post: %w", err)
	}
	if postCount == 0 {
		return nil, 0, fmt.Errorf("post not found")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	var comments []*models.Comment
	if err := s.db.WithContext(ctx).Where("post_id = ?", postID).
		Order("created_at ASC").Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find comments: %w", err)
	}

	return comments, count, nil
}

// DeleteComment removes a comment and decrements the post counter.
// Allowed for the comment author, the post author and admins.
func (s *Service) DeleteComment(ctx context.Context, commentID, userID uuid.UUID, isAdmin bool) error {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Where("id = ?", commentID).First(&comment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("comment not found")
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}

	if comment.AuthorID != userID && !isAdmin {
		var post models.Post
		if err := s.db.WithContext(ctx).Where("id = ?", comment.PostID).First(&post).Error; err != nil {
			return fmt.Errorf("failed to find post: %w", err)
		}
		if post.AuthorID != userID {
			return fmt.Errorf("forbidden: not the author")
		}
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

	if err := tx.Where("comment_id = ?", commentID).Delete(&models.CommentLike{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete comment likes: %w", err)
	}
	if err := tx.Delete(&models.Comment{}, "id = ?", commentID).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if err := tx.Model(&models.Post{}).Where("id = ? AND comment_count > 0", comment.PostID).
		Update("comment_count", gorm.Expr("comment_count - 1")).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update comment count: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LikeComment records a like on a comment
func (s *Service) LikeComment(ctx context.Context, commentID, userID uuid.UUID) error {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Where("id = ?", commentID).First(&comment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("comment not found")
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", commentID, userID).Count(&count).Error; err != nil {
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

	like := &models.CommentLike{
		ID:        uuid.New(),
		CommentID: commentID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(like).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create like: %w", err)
	}
	if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
		Update("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update like count: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, comment.AuthorID, userID, "like", commentID.String(), "comment", "liked your comment"); err != nil {
			s.logger.Warn("Failed to create comment like notification", zap.Error(err))
		}
	}

	return nil
}

// UnlikeComment removes a like from a comment
func (s *Service) UnlikeComment(ctx context.Context, commentID, userID uuid.UUID) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete like: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("like not found")
	}
	if err := tx.Model(&models.Comment{}).Where("id = ? AND like_count > 0", commentID).
		Update("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update like count: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
