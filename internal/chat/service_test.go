package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/internal/chat"
	"github.com/Pragadees15/sport-backend/internal/users"
	"github.com/Pragadees15/sport-backend/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Follow{}, &models.UserBlock{},
		&models.Conversation{}, &models.Message{}, &models.Post{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{
		ID:        uuid.New(),
		Email:     username + "@example.com",
		Username:  username,
		Role:      "user",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	assert.NoError(t, db.Create(user).Error)
	return user
}

func newTestService(t *testing.T, db *gorm.DB) (chat.ChatService, users.UserService) {
	usersSvc, err := users.NewService(zap.NewNop(), db, nil)
	assert.NoError(t, err)
	svc, err := chat.NewService(zap.NewNop(), db, nil, usersSvc, nil)
	assert.NoError(t, err)
	return svc, usersSvc
}

func TestCreateConversationIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	first, err := svc.CreateConversation(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)

	// Same pair from either side resolves to the same conversation
	second, err := svc.CreateConversation(ctx, bob.ID, alice.ID)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateConversationRejections(t *testing.T) {
	db := setupTestDB(t)
	svc, usersSvc := newTestService(t, db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := svc.CreateConversation(ctx, alice.ID, alice.ID)
	assert.Error(t, err)

	_, err = svc.CreateConversation(ctx, alice.ID, uuid.New())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	assert.NoError(t, usersSvc.Block(ctx, bob.ID, alice.ID))
	_, err = svc.CreateConversation(ctx, alice.ID, bob.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestSendAndListMessages(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conversation, err := svc.CreateConversation(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)

	msg, err := svc.SendMessage(ctx, conversation.ID, alice.ID, &models.SendMessageRequest{Content: "hey bob"})
	assert.NoError(t, err)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Nil(t, msg.ReadAt)

	list, err := svc.ListMessages(ctx, conversation.ID, bob.ID, 10, 0)
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "hey bob", list[0].Content)

	// Outsiders see the conversation as missing
	_, err = svc.ListMessages(ctx, conversation.ID, uuid.New(), 10, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSendMessageBlockedMidConversation(t *testing.T) {
	db := setupTestDB(t)
	svc, usersSvc := newTestService(t, db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conversation, err := svc.CreateConversation(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)

	assert.NoError(t, usersSvc.Block(ctx, bob.ID, alice.ID))

	_, err = svc.SendMessage(ctx, conversation.ID, alice.ID, &models.SendMessageRequest{Content: "hello?"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestConversationSummariesAndUnread(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conversation, err := svc.CreateConversation(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)

	_, err = svc.SendMessage(ctx, conversation.ID, alice.ID, &models.SendMessageRequest{Content: "one"})
	assert.NoError(t, err)
	_, err = svc.SendMessage(ctx, conversation.ID, alice.ID, &models.SendMessageRequest{Content: "two"})
	assert.NoError(t, err)

	summaries, err := svc.ListConversations(ctx, bob.ID, 10, 0)
	assert.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, "alice", summaries[0].Peer.Username)
	assert.Equal(t, "two", summaries[0].LastMessage.Content)
	assert.Equal(t, int64(2), summaries[0].UnreadCount)

	// Own messages are never unread for the sender
	summaries, err = svc.ListConversations(ctx, alice.ID, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), summaries[0].UnreadCount)
}

func TestMarkRead(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conversation, err := svc.CreateConversation(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)

	_, err = svc.SendMessage(ctx, conversation.ID, alice.ID, &models.SendMessageRequest{Content: "read me"})
	assert.NoError(t, err)

	assert.NoError(t, svc.MarkRead(ctx, conversation.ID, bob.ID))

	summaries, err := svc.ListConversations(ctx, bob.ID, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), summaries[0].UnreadCount)

	list, err := svc.ListMessages(ctx, conversation.ID, bob.ID, 10, 0)
	assert.NoError(t, err)
	assert.NotNil(t, list[0].ReadAt)

	// Non-participants cannot mark anything
	assert.Error(t, svc.MarkRead(ctx, conversation.ID, uuid.New()))
}
