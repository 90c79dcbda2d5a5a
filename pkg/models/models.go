package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID            uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Email         string     `json:"email" gorm:"uniqueIndex" validate:"required,email,max=254"`
	Username      string     `json:"username" gorm:"uniqueIndex" validate:"required,min=3,max=30,alphanum"`
	PasswordHash  string     `json:"-" gorm:"column:password_hash"`
	DisplayName   string     `json:"display_name" validate:"omitempty,max=100"`
	Bio           string     `json:"bio" gorm:"type:text" validate:"omitempty,max=500"`
	AvatarURL     string     `json:"avatar_url" validate:"omitempty,url,max=500"`
	FavoriteTeams string     `json:"favorite_teams" gorm:"type:text" validate:"omitempty,json"` // JSON array of team names
	Role          string     `json:"role" gorm:"default:user" validate:"required,oneof=user admin moderator"`
	Banned        bool       `json:"banned" gorm:"default:false"`
	MFAEnabled    bool       `json:"mfa_enabled"`
	TOTPSecret    string     `json:"-" gorm:"column:totp_secret"`
	LastLogin     *time.Time `json:"last_login"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Follow represents a follower edge between two users
type Follow struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	FollowerID uuid.UUID `json:"follower_id" gorm:"type:uuid;index:idx_follow_pair,unique"`
	FolloweeID uuid.UUID `json:"followee_id" gorm:"type:uuid;index:idx_follow_pair,unique;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserBlock represents one user blocking another
type UserBlock struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	BlockerID uuid.UUID `json:"blocker_id" gorm:"type:uuid;index:idx_block_pair,unique"`
	BlockedID uuid.UUID `json:"blocked_id" gorm:"type:uuid;index:idx_block_pair,unique;index"`
	CreatedAt time.Time `json:"created_at"`
}

// UserReport represents a report filed against a user
type UserReport struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	ReporterID uuid.UUID  `json:"reporter_id" gorm:"type:uuid;index"`
	ReportedID uuid.UUID  `json:"reported_id" gorm:"type:uuid;index"`
	Reason     string     `json:"reason" gorm:"type:text" validate:"required,min=3,max=1000"`
	Status     string     `json:"status" gorm:"default:open" validate:"required,oneof=open resolved dismissed"` // open, resolved, dismissed
	ResolvedBy *uuid.UUID `json:"resolved_by" gorm:"type:uuid"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Post represents a post in the feed
type Post struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	AuthorID     uuid.UUID `json:"author_id" gorm:"type:uuid;index"`
	Content      string    `json:"content" gorm:"type:text" validate:"required,max=5000"`
	MediaURL     string    `json:"media_url" validate:"omitempty,url,max=500"`
	MediaType    string    `json:"media_type" validate:"omitempty,oneof=image video"` // image, video
	LikeCount    int64     `json:"like_count" gorm:"default:0"`
	CommentCount int64     `json:"comment_count" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostLike represents a like on a post
type PostLike struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;index:idx_post_like,unique"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index:idx_post_like,unique"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedPost represents a bookmarked post
type SavedPost struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;index:idx_saved_post,unique"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index:idx_saved_post,unique"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a comment on a post
type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;index"`
	AuthorID  uuid.UUID `json:"author_id" gorm:"type:uuid;index"`
	Content   string    `json:"content" gorm:"type:text" validate:"required,max=2000"`
	LikeCount int64     `json:"like_count" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentLike represents a like on a comment
type CommentLike struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	CommentID uuid.UUID `json:"comment_id" gorm:"type:uuid;index:idx_comment_like,unique"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index:idx_comment_like,unique"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation represents a 1:1 message thread
type Conversation struct {
	ID            uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserAID       uuid.UUID `json:"user_a_id" gorm:"type:uuid;index:idx_conversation_pair,unique"`
	UserBID       uuid.UUID `json:"user_b_id" gorm:"type:uuid;index:idx_conversation_pair,unique"`
	LastMessageAt time.Time `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time `json:"created_at"`
}

// Message represents a direct message inside a conversation
type Message struct {
	ID             uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;index"`
	SenderID       uuid.UUID  `json:"sender_id" gorm:"type:uuid;index"`
	Content        string     `json:"content" gorm:"type:text" validate:"required,max=2000"`
	MediaURL       string     `json:"media_url" validate:"omitempty,url,max=500"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
}

// Notification represents a user notification
type Notification struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	RecipientID uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"`
	ActorID     uuid.UUID `json:"actor_id" gorm:"type:uuid"`
	Type        string    `json:"type" validate:"required,oneof=like comment follow message tokens"` // like, comment, follow, message, tokens
	TargetID    string    `json:"target_id"`                                                         // post ID, comment ID, conversation ID, etc.
	TargetType  string    `json:"target_type" validate:"omitempty,oneof=post comment user conversation"`
	Message     string    `json:"message" validate:"omitempty,max=500"`
	Read        bool      `json:"read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// TokenAccount represents a user's virtual token balance
type TokenAccount struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex"`
	Balance   float64   `json:"balance" validate:"min=0"`
	Available float64   `json:"available" validate:"min=0"`
	Locked    float64   `json:"locked" validate:"min=0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenTransaction represents a movement of virtual tokens
type TokenTransaction struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;index"`
	Type        string     `json:"type" validate:"required,oneof=earn spend tip_in tip_out admin_grant"` // earn, spend, tip_in, tip_out, admin_grant
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Status      string     `json:"status" validate:"required,oneof=pending completed failed"` // pending, completed, failed
	Reference   string     `json:"reference" validate:"omitempty,max=255"`
	Description string     `json:"description" validate:"omitempty,max=500"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email" validate:"required,email,max=254"`
	Username    string `json:"username" binding:"required,min=3,max=30" validate:"required,min=3,max=30,alphanum"`
	Password    string `json:"password" binding:"required,min=8" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Login    string `json:"login" binding:"required" validate:"required,max=254"` // email or username
	Password string `json:"password" binding:"required" validate:"required,min=8,max=128"`
}

// LoginResponse represents a user login response
type LoginResponse struct {
	User         *User     `json:"user,omitempty"`
	Token        string    `json:"token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Requires2FA  bool      `json:"requires_2fa"`
	UserID       uuid.UUID `json:"user_id,omitempty"`
}

// TwoFAVerifyRequest represents a 2FA verification request
type TwoFAVerifyRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Token  string `json:"token" binding:"required,len=6,numeric"`
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	DisplayName   *string `json:"display_name" binding:"omitempty,max=100"`
	Bio           *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL     *string `json:"avatar_url" binding:"omitempty,url,max=500"`
	FavoriteTeams *string `json:"favorite_teams" binding:"omitempty,max=2000"`
}

// CreatePostRequest represents a post creation request
type CreatePostRequest struct {
	Content   string `json:"content" binding:"required,max=5000"`
	MediaURL  string `json:"media_url" binding:"omitempty,url,max=500"`
	MediaType string `json:"media_type" binding:"omitempty,oneof=image video"`
}

// UpdatePostRequest represents a post edit request
type UpdatePostRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

// CreateCommentRequest represents a comment creation request
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// SendMessageRequest represents a direct message send request
type SendMessageRequest struct {
	Content  string `json:"content" binding:"required,max=2000"`
	MediaURL string `json:"media_url" binding:"omitempty,url,max=500"`
}

// TipRequest represents a token tip between users
type TipRequest struct {
	ToUserID string  `json:"to_user_id" binding:"required,uuid"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Message  string  `json:"message" binding:"omitempty,max=255"`
}

// ReportRequest represents a user report submission
type ReportRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=1000"`
}

// ConversationSummary is a conversation with its last message preview
type ConversationSummary struct {
	Conversation *Conversation `json:"conversation"`
	Peer         *User         `json:"peer"`
	LastMessage  *Message      `json:"last_message,omitempty"`
	UnreadCount  int64         `json:"unread_count"`
}

// PublicProfile is the externally visible view of a user
type PublicProfile struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar_url"`
	FavoriteTeams  string    `json:"favorite_teams"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	PostCount      int64     `json:"post_count"`
	CreatedAt      time.Time `json:"created_at"`
}
