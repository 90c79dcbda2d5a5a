package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

// Notifier delivers message notifications to recipients
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID uuid.UUID, notifType, targetID, targetType, message string) error
}

// BlockChecker prevents conversations across a block
type BlockChecker interface {
	IsBlockedEitherWay(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// Broadcaster pushes payloads to connected WebSocket clients by topic
type Broadcaster interface {
	Broadcast(topic string, data []byte)
}

// ChatService defines direct messaging operations
type ChatService interface {
	Start() error
	Stop() error
	CreateConversation(ctx context.Context, userID, otherID uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.ConversationSummary, error)
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, req *models.SendMessageRequest) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]*models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error
}

// Service implements ChatService
type Service struct {
	logger      *zap.Logger
	db          *gorm.DB
	notifier    Notifier
	blocks      BlockChecker
	broadcaster Broadcaster
}

// NewService creates a new ChatService
func NewService(logger *zap.Logger, db *gorm.DB, notifier Notifier, blocks BlockChecker, broadcaster Broadcaster) (ChatService, error) {
	svc := &Service{
		logger:      logger,
		db:          db,
		notifier:    notifier,
		blocks:      blocks,
		broadcaster: broadcaster,
	}

	return svc, nil
}

// Start starts the chat service
func (s *Service) Start() error {
	s.logger.Info("Chat service started")
	return nil
}

// Stop stops the chat service
func (s *Service) Stop() error {
	s.logger.Info("Chat service stopped")
	return nil
}

// CreateConversation opens a 1:1 conversation, returning the existing one if present.
// The pair is stored in canonical order so each pair maps to a single row.
func (s *Service) CreateConversation(ctx context.Context, userID, otherID uuid.UUID) (*models.Conversation, error) {
	if userID == otherID {
		return nil, fmt.Errorf("cannot message yourself")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", otherID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("user not found")
	}

	if s.blocks != nil {
		blocked, err := s.blocks.IsBlockedEitherWay(ctx, userID, otherID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, fmt.Errorf("forbidden: user blocked")
		}
	}

	a, b := orderPair(userID, otherID)

	var conversation models.Conversation
	err := s.db.WithContext(ctx).Where("user_a_id = ? AND user_b_id = ?", a, b).First(&conversation).Error
	if err == nil {
		return &conversation, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	conversation = models.Conversation{
		ID:            uuid.New(),
		UserAID:       a,
		UserBID:       b,
		LastMessageAt: time.Now(),
		CreatedAt:     time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&conversation).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return &conversation, nil
}

// ListConversations returns the user's conversations with last message and unread count,
// most recently active first
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.ConversationSummary, error) {
	var conversations []*models.Conversation
	if err := s.db.WithContext(ctx).Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_message_at DESC").Limit(limit).Offset(offset).Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}

	summaries := make([]*models.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		peerID := c.UserAID
		if peerID == userID {
			peerID = c.UserBID
		}

		var peer models.User
		if err := s.db.WithContext(ctx).Where("id = ?", peerID).First(&peer).Error; err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		var last *models.Message
		var lastMsg models.Message
		err := s.db.WithContext(ctx).Where("conversation_id = ?", c.ID).
			Order("created_at DESC").First(&lastMsg).Error
		if err == nil {
			last = &lastMsg
		} else if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to find last message: %w", err)
		}

		var unread int64
		if err := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", c.ID, userID).
			Count(&unread).Error; err != nil {
			return nil, fmt.Errorf("failed to count unread messages: %w", err)
		}

		summaries = append(summaries, &models.ConversationSummary{
			Conversation: c,
			Peer:         &peer,
			LastMessage:  last,
			UnreadCount:  unread,
		})
	}

	return summaries, nil
}

// SendMessage persists a message, bumps conversation activity, then pushes it
// to the conversation topic and notifies the recipient
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, req *models.SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("invalid message: content required")
	}

	conversation, err := s.loadParticipantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	recipientID := conversation.UserAID
	if recipientID == senderID {
		recipientID = conversation.UserBID
	}

	if s.blocks != nil {
		blocked, err := s.blocks.IsBlockedEitherWay(ctx, senderID, recipientID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, fmt.Errorf("forbidden: user blocked")
		}
	}

	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		MediaURL:       req.MediaURL,
		CreatedAt:      time.Now(),
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

	if err := tx.Create(message).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if err := tx.Model(&models.Conversation{}).Where("id = ?", conversationID).
		Update("last_message_at", message.CreatedAt).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.broadcaster != nil {
		if data, err := json.Marshal(message); err == nil {
			s.broadcaster.Broadcast("chat:"+conversationID.String(), data)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, recipientID, senderID, "message", conversationID.String(), "conversation", "sent you a message"); err != nil {
			s.logger.Warn("Failed to create message notification", zap.Error(err))
		}
	}

	return message, nil
}

// ListMessages returns a conversation's messages, newest first
func (s *Service) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]*models.Message, error) {
	if _, err := s.loadParticipantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	var messages []*models.Message
	if err := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}

	return messages, nil
}

// MarkRead marks every message from the other participant as read
func (s *Service) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	if _, err := s.loadParticipantConversation(ctx, conversationID, userID); err != nil {
		return err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, userID).
		Update("read_at", now).Error; err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	return nil
}

// loadParticipantConversation loads a conversation and verifies membership.
// Non-participants see a not-found, never a forbidden.
func (s *Service) loadParticipantConversation(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := s.db.WithContext(ctx).Where("id = ?", conversationID).First(&conversation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	if conversation.UserAID != userID && conversation.UserBID != userID {
		return nil, fmt.Errorf("conversation not found")
	}

	return &conversation, nil
}

func orderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(a.String(), b.String()) > 0 {
		return b, a
	}
	return a, b
}
