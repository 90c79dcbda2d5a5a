package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/pkg/metrics"
	"github.com/Pragadees15/sport-backend/pkg/models"
)

// Publisher emits domain events for downstream consumers
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// Broadcaster pushes payloads to connected WebSocket clients by topic
type Broadcaster interface {
	Broadcast(topic string, data []byte)
}

// NotificationService defines notification operations
type NotificationService interface {
	Start() error
	Stop() error
	Notify(ctx context.Context, recipientID, actorID uuid.UUID, notifType, targetID, targetType, message string) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
}

// Service implements NotificationService
type Service struct {
	logger      *zap.Logger
	db          *gorm.DB
	publisher   Publisher
	broadcaster Broadcaster
}

// NewService creates a new NotificationService
func NewService(logger *zap.Logger, db *gorm.DB, publisher Publisher, broadcaster Broadcaster) (NotificationService, error) {
	svc := &Service{
		logger:      logger,
		db:          db,
		publisher:   publisher,
		broadcaster: broadcaster,
	}

	return svc, nil
}

// Start starts the notifications service
func (s *Service) Start() error {
	s.logger.Info("Notifications service started")
	return nil
}

// Stop stops the notifications service
func (s *Service) Stop() error {
	s.logger.Info("Notifications service stopped")
	return nil
}

// Notify creates a notification for a recipient.
// Self-actions never notify.
func (s *Service) Notify(ctx context.Context, recipientID, actorID uuid.UUID, notifType, targetID, targetType, message string) error {
	if recipientID == actorID {
		return nil
	}

	notification := &models.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        notifType,
		TargetID:    targetID,
		TargetType:  targetType,
		Message:     message,
		CreatedAt:   time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	metrics.NotificationsCreated.WithLabelValues(notifType).Inc()

	// Push to the recipient's live topic if they are connected
	if s.broadcaster != nil {
		if data, err := json.Marshal(notification); err == nil {
			s.broadcaster.Broadcast("user:"+recipientID.String(), data)
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, "notification.created", notification)
	}

	return nil
}

// List returns notifications for a user, newest first, with total count
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []*models.Notification
	if err := s.db.WithContext(ctx).Where("recipient_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}

	return notifications, count, nil
}

// UnreadCount returns the number of unread notifications for a user
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND read = ?", userID, false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// MarkAllRead marks every notification for a user as read
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Update("read", true).Error; err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification owned by the user
func (s *Service) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", notificationID, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}
