package comments_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/internal/comments"
	"github.com/Pragadees15/sport-backend/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Post{}, &models.Comment{}, &models.CommentLike{}))
	return db
}

func createPost(t *testing.T, db *gorm.DB, authorID uuid.UUID) *models.Post {
	post := &models.Post{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Content:   "a post",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	assert.NoError(t, db.Create(post).Error)
	return post
}

func newTestService(t *testing.T, db *gorm.DB) comments.CommentService {
	svc, err := comments.NewService(zap.NewNop(), db, nil)
	assert.NoError(t, err)
	return svc
}

func TestCreateCommentIncrementsCount(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	author := uuid.New()
	post := createPost(t, db, author)

	comment, err := svc.CreateComment(ctx, post.ID, uuid.New(), &models.CreateCommentRequest{Content: "nice one"})
	assert.NoError(t, err)
	assert.Equal(t, "nice one", comment.Content)

	var got models.Post
	assert.NoError(t, db.Where("id = ?", post.ID).First(&got).Error)
	assert.Equal(t, int64(1), got.CommentCount)
}

func TestCreateCommentMissingPost(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.CreateComment(context.Background(), uuid.New(), uuid.New(), &models.CreateCommentRequest{Content: "orphan"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "post not found")
}

func TestCreateCommentSanitized(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	post := createPost(t, db, uuid.New())

	comment, err := svc.CreateComment(context.Background(), post.ID, uuid.New(), &models.CreateCommentRequest{
		Content: `ok <script>alert("x")</script>`,
	})
	assert.NoError(t, err)
	assert.NotContains(t, comment.Content, "<script>")

	_, err = svc.CreateComment(context.Background(), post.ID, uuid.New(), &models.CreateCommentRequest{
		Content: `<script>alert("x")</script>`,
	})
	assert.Error(t, err)
}

func TestListCommentsOrderAndTotal(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	post := createPost(t, db, uuid.New())

	first, err := svc.CreateComment(ctx, post.ID, uuid.New(), &models.CreateCommentRequest{Content: "first"})
	assert.NoError(t, err)
	_, err = svc.CreateComment(ctx, post.ID, uuid.New(), &models.CreateCommentRequest{Content: "second"})
	assert.NoError(t, err)

	list, total, err := svc.ListComments(ctx, post.ID, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)

	_, _, err = svc.ListComments(ctx, uuid.New(), 10, 0)
	assert.Error(t, err)
}

func TestDeleteCommentDecrementsCount(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	post := createPost(t, db, uuid.New())
	author := uuid.New()

	comment, err := svc.CreateComment(ctx, post.ID, author, &models.CreateCommentRequest{Content: "bye"})
	assert.NoError(t, err)

	// Strangers cannot delete
	assert.Error(t, svc.DeleteComment(ctx, comment.ID, uuid.New(), false))

	assert.NoError(t, svc.DeleteComment(ctx, comment.ID, author, false))

	var got models.Post
	assert.NoError(t, db.Where("id = ?", post.ID).First(&got).Error)
	assert.Equal(t, int64(0), got.CommentCount)

	assert.Error(t, svc.DeleteComment(ctx, comment.ID, author, false))
}

func TestDeleteCommentByPostAuthor(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	postAuthor := uuid.New()
	post := createPost(t, db, postAuthor)

	comment, err := svc.CreateComment(ctx, post.ID, uuid.New(), &models.CreateCommentRequest{Content: "on my post"})
	assert.NoError(t, err)

	// The post author moderates their own post
	assert.NoError(t, svc.DeleteComment(ctx, comment.ID, postAuthor, false))
}

func TestLikeComment(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	post := createPost(t, db, uuid.New())

	comment, err := svc.CreateComment(ctx, post.ID, uuid.New(), &models.CreateCommentRequest{Content: "likeable"})
	assert.NoError(t, err)

	liker := uuid.New()
	assert.NoError(t, svc.LikeComment(ctx, comment.ID, liker))
	assert.Error(t, svc.LikeComment(ctx, comment.ID, liker))

	var got models.Comment
	assert.NoError(t, db.Where("id = ?", comment.ID).First(&got).Error)
	assert.Equal(t, int64(1), got.LikeCount)

	assert.NoError(t, svc.UnlikeComment(ctx, comment.ID, liker))
	assert.Error(t, svc.UnlikeComment(ctx, comment.ID, liker))

	assert.NoError(t, db.Where("id = ?", comment.ID).First(&got).Error)
	assert.Equal(t, int64(0), got.LikeCount)
}
